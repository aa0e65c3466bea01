package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/airbooking/config"
	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
	queryTTL   time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL, queryTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL,
		queryTTL,
	)
}

func NewRedisCacheWithClient(client *redis.Client, flightsTTL, queryTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, flightsTTL: flightsTTL, queryTTL: queryTTL}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	return c.client.Del(ctx, flightsKey()).Err()
}

// GetQuery loads a cached query result into dest. It reports false on a miss.
func (c *RedisCache) GetQuery(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, queryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode cached query: %w", err)
	}
	return true, nil
}

func (c *RedisCache) SetQuery(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, queryKey(key), payload, c.queryTTL).Err()
}

func flightsKey() string {
	return "cache:flights"
}

func queryKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "cache:query:" + hex.EncodeToString(sum[:])
}
