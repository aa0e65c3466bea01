package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Orders    OrdersConfig    `yaml:"orders"`
	Payments  PaymentsConfig  `yaml:"payments"`
	Assistant AssistantConfig `yaml:"assistant"`
	Worker    WorkerConfig    `yaml:"worker"`
}

type HTTPConfig struct {
	Address         string   `yaml:"address"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	RatePerMinute   int      `yaml:"rate_per_minute"`
	RateBurst       int      `yaml:"rate_burst"`
	ShutdownSeconds int      `yaml:"shutdown_seconds"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TasksDB  int    `yaml:"tasks_db"`
}

type KafkaConfig struct {
	Brokers          []string `yaml:"brokers"`
	OrderEventsTopic string   `yaml:"order_events_topic"`
	GroupID          string   `yaml:"group_id"`
}

type OrdersConfig struct {
	HoldTTLMinutes  int    `yaml:"hold_ttl_minutes"`
	DefaultCurrency string `yaml:"default_currency"`
}

func (o OrdersConfig) HoldTTL() time.Duration {
	return time.Duration(o.HoldTTLMinutes) * time.Minute
}

type PaymentsConfig struct {
	StripeSecretKey     string `yaml:"stripe_secret_key"`
	StripeWebhookSecret string `yaml:"stripe_webhook_secret"`
	SuccessURL          string `yaml:"success_url"`
	CancelURL           string `yaml:"cancel_url"`
	SessionTTLMinutes   int    `yaml:"session_ttl_minutes"`
}

func (p PaymentsConfig) SessionTTL() time.Duration {
	return time.Duration(p.SessionTTLMinutes) * time.Minute
}

type AssistantConfig struct {
	GeminiAPIKey        string `yaml:"gemini_api_key"`
	GeminiModel         string `yaml:"gemini_model"`
	OracleTimeoutSecond int    `yaml:"oracle_timeout_seconds"`
	HubCode             string `yaml:"hub_code"`
	ReferenceYear       int    `yaml:"reference_year"`
	Timezone            string `yaml:"timezone"`
	MaxLimit            int    `yaml:"max_limit"`
	CacheTTLSeconds     int    `yaml:"cache_ttl_seconds"`
	FlightsCacheSeconds int    `yaml:"flights_cache_ttl_seconds"`
}

func (a AssistantConfig) OracleTimeout() time.Duration {
	return time.Duration(a.OracleTimeoutSecond) * time.Second
}

func (a AssistantConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type WorkerConfig struct {
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes"`
	TaskConcurrency        int `yaml:"task_concurrency"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv lets secrets from the environment (or a .env file loaded by the
// process) override whatever the YAML file carries.
func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Assistant.GeminiAPIKey = v
	}
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		c.Payments.StripeSecretKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		c.Payments.StripeWebhookSecret = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.RatePerMinute == 0 {
		c.HTTP.RatePerMinute = 120
	}
	if c.HTTP.RateBurst == 0 {
		c.HTTP.RateBurst = 20
	}
	if c.HTTP.ShutdownSeconds == 0 {
		c.HTTP.ShutdownSeconds = 5
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Orders.HoldTTLMinutes == 0 {
		c.Orders.HoldTTLMinutes = 15
	}
	if c.Orders.DefaultCurrency == "" {
		c.Orders.DefaultCurrency = "USD"
	}
	if c.Payments.SessionTTLMinutes == 0 {
		c.Payments.SessionTTLMinutes = 45
	}
	if c.Assistant.GeminiModel == "" {
		c.Assistant.GeminiModel = "gemini-1.5-flash"
	}
	if c.Assistant.OracleTimeoutSecond == 0 {
		c.Assistant.OracleTimeoutSecond = 10
	}
	if c.Assistant.HubCode == "" {
		c.Assistant.HubCode = "LWO"
	}
	if c.Assistant.Timezone == "" {
		c.Assistant.Timezone = "UTC"
	}
	if c.Assistant.MaxLimit == 0 {
		c.Assistant.MaxLimit = 100
	}
	if c.Assistant.CacheTTLSeconds == 0 {
		c.Assistant.CacheTTLSeconds = 30
	}
	if c.Assistant.FlightsCacheSeconds == 0 {
		c.Assistant.FlightsCacheSeconds = 60
	}
	if c.Worker.ExpirationSweepMinutes == 0 {
		c.Worker.ExpirationSweepMinutes = 1
	}
	if c.Worker.TaskConcurrency == 0 {
		c.Worker.TaskConcurrency = 10
	}
}
