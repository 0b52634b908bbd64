package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/session"
)

// NewRouter wires middleware, the calculator endpoints backed by store,
// /health and /metrics.
func NewRouter(store *session.Store) (http.Handler, error) {

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)

	r.Get("/health", handlers.Health)

	reg := observability.NewRegistry()
	if err := calculator.RegisterCollectors(reg, store); err != nil {
		return nil, fmt.Errorf("register collectors: %w", err)
	}
	r.Handle("/metrics", observability.PrometheusHandler(reg))

	calculator.RegisterRoutes(r, calculator.NewHandler(store))

	return r, nil
}
