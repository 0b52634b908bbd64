package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/session"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// maxBodyBytes bounds event and key request bodies.
const maxBodyBytes = 64 << 10

var errInvalidBody = errors.New("invalid request body")

// Handler serves the calculator session endpoints.
type Handler struct {
	store *session.Store
}

func NewHandler(store *session.Store) *Handler {
	return &Handler{store: store}
}

// ---------------------------------------------------------------------------
// Handlers — session lifecycle
// ---------------------------------------------------------------------------

// CreateSession handles POST /calculator/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "calculator.session.create",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	sess := h.store.Create()

	sessionsCounter.Add(ctx, 1)
	span.SetAttributes(attribute.String("calculator.session.id", sess.ID()))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator session created",
		zap.String("session_id", sess.ID()),
		zap.String("request_id", requestID),
	)

	handlers.WriteJSON(w, http.StatusCreated, newSessionResponse(sess.ID(), sess.State()))
}

// GetSession handles GET /calculator/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.startSpan(r, "get")
	defer span.End()

	sess, ok := h.lookup(ctx, span, logger, w, r, "get")
	if !ok {
		return
	}

	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, newSessionResponse(sess.ID(), sess.State()))
}

// DeleteSession handles DELETE /calculator/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.startSpan(r, "delete")
	defer span.End()

	id := chi.URLParam(r, "id")
	if err := h.store.Delete(id); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "delete", "session not found", err, http.StatusNotFound, w)
		return
	}

	span.SetStatus(codes.Ok, "")
	logger.Info("calculator session deleted",
		zap.String("session_id", id),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)
	w.WriteHeader(http.StatusNoContent)
}

// ResetSession handles POST /calculator/sessions/{id}/reset
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.startSpan(r, "reset")
	defer span.End()

	sess, ok := h.lookup(ctx, span, logger, w, r, "reset")
	if !ok {
		return
	}

	st := sess.Reset()
	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, newSessionResponse(sess.ID(), st))
}

// ---------------------------------------------------------------------------
// Handlers — input (one child span per event)
// ---------------------------------------------------------------------------

// ApplyEvents handles POST /calculator/sessions/{id}/events
func (h *Handler) ApplyEvents(w http.ResponseWriter, r *http.Request) {
	h.handleInput(w, r, "events", func(r *http.Request) ([]engine.Event, error) {
		var req EventsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		return req.toEngine()
	})
}

// ApplyKeys handles POST /calculator/sessions/{id}/keys — keyboard
// equivalents of the button events.
func (h *Handler) ApplyKeys(w http.ResponseWriter, r *http.Request) {
	h.handleInput(w, r, "keys", func(r *http.Request) ([]engine.Event, error) {
		var req KeysRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		return req.toEngine()
	})
}

// handleInput decodes the whole request before touching the engine, so a
// bad event anywhere in the body leaves the session unchanged.
func (h *Handler) handleInput(w http.ResponseWriter, r *http.Request, opName string, decode func(*http.Request) ([]engine.Event, error)) {
	ctx, span, logger := h.startSpan(r, opName)
	defer span.End()
	requestID := observability.RequestIDFromContext(ctx)

	sess, ok := h.lookup(ctx, span, logger, w, r, opName)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	events, err := decode(r)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(attribute.Int("calculator.events_count", len(events)))

	st := sess.Do(func(e *engine.Engine) {
		for i, ev := range events {
			applyEvent(ctx, logger, sess.ID(), i, e, ev)
		}
	})

	span.SetAttributes(
		attribute.String("calculator.entry", st.Entry),
		attribute.String("calculator.formula", st.Formula),
		attribute.Bool("calculator.controls_enabled", st.ControlsEnabled),
	)
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator input applied",
		zap.String("operation", opName),
		zap.String("session_id", sess.ID()),
		zap.Int("events", len(events)),
		zap.String("entry", st.Entry),
		zap.String("formula", st.Formula),
		zap.String("request_id", requestID),
	)

	handlers.WriteJSON(w, http.StatusOK, newSessionResponse(sess.ID(), st))
}

// applyEvent runs one event on e inside its own span and records metrics.
// Engine errors are part of the returned state, not request failures.
func applyEvent(ctx context.Context, logger *zap.Logger, sessionID string, i int, e *engine.Engine, ev engine.Event) {
	_, stepSpan := tracer.Start(ctx, fmt.Sprintf("calculator.event.%d.%s", i, ev.Kind),
		trace.WithAttributes(
			attribute.Int("calculator.event.index", i),
			attribute.String("calculator.event.kind", ev.Kind.String()),
		),
	)
	defer stepSpan.End()

	before := e.State()
	start := time.Now()
	st := e.Apply(ev)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	attrs := metric.WithAttributes(attribute.String("event", ev.Kind.String()))
	eventsCounter.Add(ctx, 1, attrs)
	eventsHistogram.Record(ctx, elapsed, attrs)

	stepSpan.SetAttributes(
		attribute.String("calculator.entry", st.Entry),
		attribute.String("calculator.formula", st.Formula),
	)

	if st.Error != engine.ErrorNone && before.Error == engine.ErrorNone {
		err := fmt.Errorf("engine error: %s", st.Error)
		stepSpan.RecordError(err)
		stepSpan.SetStatus(codes.Error, st.Error.String())

		engineErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", st.Error.String())))

		logger.Warn("calculator entered error state",
			zap.String("session_id", sessionID),
			zap.String("event", ev.Kind.String()),
			zap.String("kind", st.Error.String()),
		)
		return
	}

	if finalized(before, st) {
		if v, err := strconv.ParseFloat(st.Entry, 64); err == nil {
			resultGauge.Record(ctx, v)
			stepSpan.AddEvent("computation.complete", trace.WithAttributes(
				attribute.Float64("result", v),
				attribute.Float64("duration_ms", elapsed),
			))
		}
	}
	stepSpan.SetStatus(codes.Ok, "")
}

// finalized reports whether the event completed a new expression.
func finalized(before, after engine.State) bool {
	return after.Formula != before.Formula && strings.HasSuffix(after.Formula, "=")
}

// ReportSweep records the outcome of a session janitor pass.
func ReportSweep(ctx context.Context, removed int) {
	if removed == 0 {
		return
	}
	sessionsExpired.Add(ctx, int64(removed))
	observability.Logger.Info("idle calculator sessions swept", zap.Int("removed", removed))
}

func (h *Handler) startSpan(r *http.Request, opName string) (context.Context, trace.Span, *zap.Logger) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	ctx, span := tracer.Start(ctx, fmt.Sprintf("calculator.session.%s", opName),
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("request.id", observability.RequestIDFromContext(ctx)),
		),
	)
	return ctx, span, logger
}

func (h *Handler) lookup(ctx context.Context, span trace.Span, logger *zap.Logger, w http.ResponseWriter, r *http.Request, opName string) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	span.SetAttributes(attribute.String("calculator.session.id", id))

	sess, err := h.store.Get(id)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "session not found", err, http.StatusNotFound, w)
		return nil, false
	}
	return sess, true
}
