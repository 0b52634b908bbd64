package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/config"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/server"
	"go-chi-calculator/internal/session"
)

func main() {

	ctx := context.Background()

	// Config
	if err := loadDotEnv(); err != nil {
		panic(err)
	}

	cfg, err := config.Load(afero.NewOsFs(), os.Getenv("CALC_CONFIG_FILE"))
	if err != nil {
		panic(err)
	}

	// Logger, tracing, metrics
	shutdown, err := initObservability(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer observability.SyncLogger()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			observability.Logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	// Sessions
	store := session.NewStore(
		session.WithShards(cfg.SessionShards),
		session.WithTTL(cfg.SessionTTL),
	)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go store.Run(janitorCtx, cfg.SweepInterval, func(removed int) {
		calculator.ReportSweep(janitorCtx, removed)
	})

	// Router
	router, err := server.NewRouter(store)
	if err != nil {
		panic(err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		observability.Logger.Info("server started", zap.String("addr", cfg.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Logger.Fatal("server failed", zap.Error(err))
		}
	}()

	waitForShutdown(srv, cfg.ShutdownTimeout)
}

func waitForShutdown(srv *http.Server, timeout time.Duration) {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	sig := <-stop
	observability.Logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		observability.Logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
