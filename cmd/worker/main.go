package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/airbooking/config"
	"github.com/Domenick1991/airbooking/internal/email"
	"github.com/Domenick1991/airbooking/internal/kafka"
	"github.com/Domenick1991/airbooking/internal/logger"
	"github.com/Domenick1991/airbooking/internal/repository"
	"github.com/Domenick1991/airbooking/internal/service/orders"
	"github.com/Domenick1991/airbooking/internal/tasks"
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

	lg := logger.Must(cfg.Log).Named("worker")
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		lg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, lg)
	defer producer.Close()

	orderService := orders.NewService(
		repository.NewTransactor(pool),
		repository.NewOrderRepository(pool),
		cfg.Orders.HoldTTL(),
		cfg.Orders.DefaultCurrency,
		lg,
		orders.WithPublisher(kafka.NewOrderPublisher(producer, cfg.Kafka.OrderEventsTopic)),
	)

	taskServer, mux := tasks.NewServer(cfg.Redis, cfg.Worker.TaskConcurrency, orderService, lg)
	if err := taskServer.Start(mux); err != nil {
		lg.Fatal("start task server", zap.Error(err))
	}
	defer taskServer.Shutdown()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.OrderEventsTopic)
	defer consumer.Close()

	sender := email.NewSender(lg)
	go func() {
		if err := consumer.Consume(ctx, kafka.OrderEventHandler(lg, sender.Send)); err != nil {
			lg.Error("consumer stopped", zap.Error(err))
		}
	}()

	sweep := time.NewTicker(time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute)
	defer sweep.Stop()

	lg.Info("worker started")
	for {
		select {
		case <-sweep.C:
			n, err := orderService.ExpireStale(ctx)
			if err != nil {
				lg.Error("expire orders", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Info("expired stale orders", zap.Int("count", n))
			}
		case <-ctx.Done():
			lg.Info("shutting down worker")
			return
		}
	}
}
