package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
	flowmw "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/middleware"
)

// RouterDeps are the collaborators of the operations router
type RouterDeps struct {
	Scenarios      ScenarioCatalog
	MetricsHandler http.Handler
	Logger         *slog.Logger
	Version        string
	// RequestTimeout bounds each request; zero means 30s.
	RequestTimeout time.Duration

	// Tracer and Meter instrument requests when both are set.
	Tracer trace.Tracer
	Meter  metric.Meter
	// RateLimit caps /scenarios requests per second; zero disables it.
	RateLimit float64
	RateBurst int
}

// NewRouter builds the operations router
func NewRouter(deps RouterDeps) (chi.Router, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	errHandler := apperrors.NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apperrors.RequestLogger(errHandler, logger))
	if deps.Tracer != nil && deps.Meter != nil {
		tel, err := flowmw.NewHTTPTelemetry(deps.Tracer, deps.Meter)
		if err != nil {
			return nil, err
		}
		r.Use(tel.Handler)
	}
	r.Use(middleware.Timeout(timeout))
	r.NotFound(errHandler.NotFound)
	r.MethodNotAllowed(errHandler.MethodNotAllowed)

	health := NewHealthHandler(deps.Version, logger)
	r.Get("/healthz", health.Health)
	r.Get("/version", health.Version)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	if deps.Scenarios != nil {
		scenarios := NewScenarioHandler(deps.Scenarios, errHandler)
		r.Route("/scenarios", func(r chi.Router) {
			if deps.RateLimit > 0 {
				burst := deps.RateBurst
				if burst <= 0 {
					burst = 1
				}
				r.Use(flowmw.NewRateLimiter(deps.RateLimit, burst, logger).Handler)
			}
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Get("/", scenarios.List)
			r.Get("/{id}", scenarios.Get)
		})
	}
	return r, nil
}
