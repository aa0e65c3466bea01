package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/airbooking/api"
	"github.com/Domenick1991/airbooking/config"
	"github.com/Domenick1991/airbooking/internal/bootstrap"
	"github.com/Domenick1991/airbooking/internal/cache"
	"github.com/Domenick1991/airbooking/internal/intent"
	"github.com/Domenick1991/airbooking/internal/kafka"
	"github.com/Domenick1991/airbooking/internal/logger"
	"github.com/Domenick1991/airbooking/internal/payment"
	"github.com/Domenick1991/airbooking/internal/repository"
	"github.com/Domenick1991/airbooking/internal/service/assistant"
	"github.com/Domenick1991/airbooking/internal/service/flights"
	"github.com/Domenick1991/airbooking/internal/service/orders"
	"github.com/Domenick1991/airbooking/internal/service/payments"
	"github.com/Domenick1991/airbooking/internal/tasks"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg := logger.Must(cfg.Log)
	defer lg.Sync()

	if cfg.Log.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		lg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	catalogDB, err := repository.OpenCatalogDB(ctx, cfg.Database.DSN())
	if err != nil {
		lg.Fatal("connect catalog database", zap.Error(err))
	}
	defer catalogDB.Close()

	redisCache := cache.NewRedisCache(cfg.Redis,
		time.Duration(cfg.Assistant.FlightsCacheSeconds)*time.Second,
		time.Duration(cfg.Assistant.CacheTTLSeconds)*time.Second,
	)
	defer redisCache.Close()
	var queryCache assistant.QueryCache
	var flightCache flights.FlightCache
	if err := redisCache.Ping(ctx); err != nil {
		lg.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		queryCache = redisCache
		flightCache = redisCache
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, lg)
	defer producer.Close()
	publisher := kafka.NewOrderPublisher(producer, cfg.Kafka.OrderEventsTopic)

	taskClient := asynq.NewClient(tasks.RedisOpt(cfg.Redis))
	defer taskClient.Close()

	extractor, err := intent.NewExtractor(ctx, cfg.Assistant, lg)
	if err != nil {
		lg.Fatal("create intent extractor", zap.Error(err))
	}
	if closer, ok := extractor.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	streamer, _ := extractor.(intent.Streamer)

	loc := cfg.Assistant.Location()
	tx := repository.NewTransactor(pool)
	orderRepo := repository.NewOrderRepository(pool)

	assistantService := assistant.NewService(
		extractor,
		intent.NewMapper(cfg.Assistant.MaxLimit),
		assistant.NewExecutor(repository.NewCatalogRepository(catalogDB), queryCache, loc, cfg.Assistant.HubCode, lg),
		loc,
		lg,
	)
	orderService := orders.NewService(tx, orderRepo, cfg.Orders.HoldTTL(), cfg.Orders.DefaultCurrency, lg,
		orders.WithPublisher(publisher),
		orders.WithScheduler(tasks.NewScheduler(taskClient)),
	)
	paymentService := payments.NewService(
		tx,
		repository.NewPaymentRepository(pool),
		orderRepo,
		orderService,
		payment.NewStripeGateway(cfg.Payments.StripeSecretKey, cfg.Payments.SuccessURL, cfg.Payments.CancelURL),
		payment.NewWebhookVerifier(cfg.Payments.StripeWebhookSecret),
		cfg.Payments.SessionTTL(),
		lg,
	)
	flightService := flights.NewFlightService(repository.NewFlightRepository(pool), flightCache, lg)

	router := api.NewRouter(cfg.HTTP, api.Handlers{
		Assistant: api.NewAssistantHandler(assistantService, lg),
		Orders:    api.NewOrderHandler(orderService, lg),
		Payments:  api.NewPaymentHandler(paymentService, lg),
		Flights:   api.NewFlightHandler(flightService, lg),
		Chat:      api.NewChatHandler(assistantService, orderService, streamer, cfg.HTTP.AllowedOrigins, lg),
	}, lg)

	if err := bootstrap.Run(ctx, cfg, router, assistantService, lg); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}
