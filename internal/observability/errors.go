package observability

import (
	"context"
	"net/http"

	"go-chi-calculator/internal/handlers"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RecordError centralises request failure handling: records the error on
// the span, increments counter, logs with trace context, and writes the JSON
// error response. The request ID travels in the X-Request-ID header only.
func RecordError(ctx context.Context, span trace.Span, logger *zap.Logger, counter metric.Int64Counter, opName, msg string, err error, status int, w http.ResponseWriter) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", opName),
		attribute.Int("http.status_code", status),
	))

	fields := []zap.Field{
		zap.String("operation", opName),
		zap.Int("status", status),
		zap.Error(err),
		zap.String("request_id", RequestIDFromContext(ctx)),
	}
	if status >= http.StatusInternalServerError {
		logger.Error(msg, fields...)
	} else {
		logger.Warn(msg, fields...)
	}

	handlers.WriteError(w, status, msg)
}
