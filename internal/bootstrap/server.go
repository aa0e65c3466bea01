package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/airbooking/config"
	assistantapi "github.com/Domenick1991/airbooking/internal/api/assistant_service_api"
	"github.com/Domenick1991/airbooking/internal/service/assistant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	logger     *zap.Logger
}

// Run starts the gRPC and HTTP servers and blocks until ctx is cancelled or a
// server fails.
func Run(ctx context.Context, cfg *config.Config, handler http.Handler, assistantSvc assistant.AssistantUseCase, logger *zap.Logger) error {
	s := newServers(cfg, handler, assistantSvc, logger)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc server started", zap.String("address", cfg.GRPC.Address))
		errCh <- s.grpcServer.Serve(lis)
	}()
	go func() {
		logger.Info("http server started", zap.String("address", cfg.HTTP.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.grpcServer.Stop()
		return err
	case <-ctx.Done():
		logger.Info("shutting down servers")
		s.health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSeconds)*time.Second)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newServers(cfg *config.Config, handler http.Handler, assistantSvc assistant.AssistantUseCase, logger *zap.Logger) *Servers {
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	assistantapi.RegisterAssistantServer(grpcSrv, assistantapi.NewServer(assistantSvc, logger))

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(assistantapi.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		started := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{zap.String("method", info.FullMethod), zap.Duration("latency", time.Since(started))}
		if err != nil {
			logger.Warn("grpc call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Info("grpc call", fields...)
		}
		return resp, err
	}
}
