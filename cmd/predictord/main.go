// Command predictord is the process supervisor for the multi-model
// inference server: it loads configuration, builds the
// dispatch fabric and one worker per model, then runs the HTTP and gRPC
// front ends concurrently until an OS signal or either server's
// unrecoverable exit.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/universal-ai-tools/predictord/internal/config"
	"github.com/universal-ai-tools/predictord/internal/dispatch"
	"github.com/universal-ai-tools/predictord/internal/grpcapi"
	"github.com/universal-ai-tools/predictord/internal/httpapi"
	"github.com/universal-ai-tools/predictord/internal/session"
	"github.com/universal-ai-tools/predictord/internal/session/identitybackend"
	"github.com/universal-ai-tools/predictord/internal/state"
	"github.com/universal-ai-tools/predictord/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting predictord",
		zap.Strings("models", cfg.ModelNames()),
		zap.Int("http_port", cfg.Server.HTTPPort),
		zap.Int("grpc_port", cfg.Server.GRPCPort),
	)

	shared := state.New(cfg)
	fabric, queues := dispatch.Build(cfg)
	metrics := httpapi.NewMetrics(prometheus.DefaultRegisterer)

	backend := identitybackend.New(nil)
	adapter := session.NewAdapter(backend, session.PostProcessNone)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var workers sync.WaitGroup
	for _, m := range cfg.Models {
		w := worker.New(m, cfg.Server.NumThreads, shared, adapter, queues[m.Name], logger)
		workers.Add(1)
		go func() {
			defer workers.Done()
			w.Run(ctx)
		}()
	}

	httpSrv := httpapi.New(fabric, shared, metrics, cfg.Server.EnqueueTimeout, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.HTTPPort),
		Handler:           httpSrv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv := grpcapi.New(fabric, shared, metrics, cfg.Server.EnqueueTimeout, logger)
	grpcServer := grpcSrv.NewGRPCServer()

	serverErrs := make(chan error, 2)

	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrs <- fmt.Errorf("http server: %w", err)
			return
		}
		serverErrs <- nil
	}()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.GRPCPort)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			serverErrs <- fmt.Errorf("grpc listen: %w", err)
			return
		}
		logger.Info("grpc server listening", zap.String("addr", addr))
		if err := grpcServer.Serve(lis); err != nil {
			serverErrs <- fmt.Errorf("grpc server: %w", err)
			return
		}
		serverErrs <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	bindFailed := false
	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErrs:
		if err != nil {
			logger.Error("front end exited unexpectedly", zap.Error(err))
			bindFailed = true
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", zap.Error(err))
	}
	grpcServer.GracefulStop()

	cancel() // signal workers to drain
	workers.Wait()

	if bindFailed {
		logger.Error("predictord exiting after server bind/serve failure")
		os.Exit(1)
	}

	logger.Info("predictord exited cleanly")
}

// initLogger builds the process logger at the given level, following the
// shared.SetupLogger pattern: an unparseable level falls back to info.
func initLogger(logLevel string) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
