package calculator

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"go-chi-calculator/internal/session"
)

// Metric instruments — initialized once via InitMetrics().
var (
	eventsCounter   metric.Int64Counter
	eventsHistogram metric.Float64Histogram
	errorCounter    metric.Int64Counter
	engineErrors    metric.Int64Counter
	sessionsCounter metric.Int64Counter
	sessionsExpired metric.Int64Counter
	resultGauge     metric.Float64Gauge
)

// InitMetrics registers custom OTel metric instruments for the calculator domain.
// Call this once at startup (after observability.InitMetrics).
func InitMetrics() error {
	meter := otel.Meter("calculator")

	var err error

	eventsCounter, err = meter.Int64Counter("calculator.events.total",
		metric.WithDescription("Total number of input events applied to calculator engines"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return fmt.Errorf("creating events counter: %w", err)
	}

	eventsHistogram, err = meter.Float64Histogram("calculator.event.duration",
		metric.WithDescription("Duration of a single engine event in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return fmt.Errorf("creating events histogram: %w", err)
	}

	errorCounter, err = meter.Int64Counter("calculator.errors.total",
		metric.WithDescription("Total number of rejected calculator requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating error counter: %w", err)
	}

	engineErrors, err = meter.Int64Counter("calculator.engine_errors.total",
		metric.WithDescription("Total number of times an engine entered an error state"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating engine error counter: %w", err)
	}

	sessionsCounter, err = meter.Int64Counter("calculator.sessions.created",
		metric.WithDescription("Total number of calculator sessions created"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return fmt.Errorf("creating sessions counter: %w", err)
	}

	sessionsExpired, err = meter.Int64Counter("calculator.sessions.expired",
		metric.WithDescription("Total number of idle calculator sessions swept"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return fmt.Errorf("creating expired sessions counter: %w", err)
	}

	resultGauge, err = meter.Float64Gauge("calculator.last_result",
		metric.WithDescription("The most recent finalized calculator result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("creating result gauge: %w", err)
	}

	return nil
}

// RegisterCollectors exposes the live session count on reg.
func RegisterCollectors(reg prometheus.Registerer, store *session.Store) error {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "calculator",
		Name:      "sessions_active",
		Help:      "Number of calculator sessions currently held in memory.",
	}, func() float64 {
		return float64(store.Len())
	})

	if err := reg.Register(gauge); err != nil {
		return fmt.Errorf("registering sessions gauge: %w", err)
	}
	return nil
}
