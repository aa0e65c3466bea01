package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/airbooking/config"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeExpireOrder = "order:expire"

type ExpireOrderPayload struct {
	OrderID int64 `json:"order_id"`
}

// NewExpireOrderTask builds a task that fires when the order hold ends. The
// task id is derived from the order so rescheduling the same order is a no-op.
func NewExpireOrderTask(orderID int64, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(ExpireOrderPayload{OrderID: orderID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeExpireOrder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID(fmt.Sprintf("order-expire-%d", orderID)),
		asynq.MaxRetry(5),
	}
	return task, opts, nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler enqueues order expiry tasks.
type Scheduler struct {
	client enqueuer
}

func NewScheduler(client *asynq.Client) *Scheduler {
	return &Scheduler{client: client}
}

func (s *Scheduler) ScheduleExpiry(ctx context.Context, orderID int64, at time.Time) error {
	task, opts, err := NewExpireOrderTask(orderID, at)
	if err != nil {
		return err
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("enqueue order expiry: %w", err)
	}
	return nil
}

// OrderExpirer is implemented by the order service.
type OrderExpirer interface {
	ExpireOrder(ctx context.Context, orderID int64) (bool, error)
}

func HandleExpireOrder(expirer OrderExpirer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p ExpireOrderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid expire payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		expired, err := expirer.ExpireOrder(ctx, p.OrderID)
		if err != nil {
			logger.Error("expire order failed", zap.Int64("order_id", p.OrderID), zap.Error(err))
			return err
		}
		logger.Debug("expire order task done", zap.Int64("order_id", p.OrderID), zap.Bool("expired", expired))
		return nil
	}
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.TasksDB,
	}
}

// NewServer wires the expiry handler into an asynq server.
func NewServer(cfg config.RedisConfig, concurrency int, expirer OrderExpirer, logger *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"default": 1,
		},
		Logger: logger.Sugar(),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpireOrder, HandleExpireOrder(expirer, logger))
	return srv, mux
}
