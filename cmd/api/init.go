package main

import (
	"context"
	"errors"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/config"
	"go-chi-calculator/internal/observability"
)

type shutdownFunc func(context.Context) error

// initObservability initialises the logger and whichever OTel providers cfg
// enables, then the calculator's metric instruments. The returned function
// shuts the providers down in reverse order.
func initObservability(ctx context.Context, cfg config.Config) (shutdownFunc, error) {
	if err := observability.InitLogger(cfg.LogLevel, cfg.LogDevelopment); err != nil {
		return nil, err
	}

	var shutdowns []shutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	type provider struct {
		enabled bool
		init    func(context.Context, string) (func(context.Context) error, error)
	}
	providers := []provider{
		{enabled: cfg.TracingEnabled, init: observability.InitTracing},
		{enabled: cfg.MetricsEnabled, init: observability.InitMetrics},
		{enabled: cfg.OTLPLogsEnabled, init: observability.InitLogging},
	}

	for _, p := range providers {
		if !p.enabled {
			continue
		}
		fn, err := p.init(ctx, cfg.ServiceName)
		if err != nil {
			_ = shutdown(ctx)
			return nil, err
		}
		shutdowns = append(shutdowns, fn)
	}

	// Instruments bind to whichever meter provider is global by now.
	if err := calculator.InitMetrics(); err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	return shutdown, nil
}
