// Package api exposes the submission boundary over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/models"
	submitapplication "loan-prequal/internal/workers/pipeline/submit-application"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ApplicationService is implemented by *submitapplication.Service.
type ApplicationService interface {
	CreateApplication(ctx context.Context, req *submitapplication.CreateRequest, idempotencyKey, correlationID string) (*submitapplication.CreateResponse, error)
	GetStatus(ctx context.Context, id string) (*submitapplication.StatusResponse, error)
	ListApplications(ctx context.Context, status models.ApplicationStatus, limit int) ([]submitapplication.ApplicationSummary, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	RequestTimeout time.Duration
	Version        string
	Checks         map[string]HealthCheck
}

// NewRouter serves health and metrics always and the /applications routes
// when svc is non-nil.
func NewRouter(svc ApplicationService, opts Options, log logger.Logger) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	h := &Handler{
		service: svc,
		checks:  opts.Checks,
		version: opts.Version,
		logger:  log.WithFields(map[string]interface{}{"component": "http-api"}),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CorrelationID)
	r.Use(PrometheusMetrics)

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	if svc == nil {
		return r
	}
	r.Route("/applications", func(ar chi.Router) {
		ar.Use(chimiddleware.Timeout(opts.RequestTimeout))
		ar.Post("/", h.CreateApplication)
		ar.Get("/", h.ListApplications)
		ar.Get("/{applicationID}/status", h.GetStatus)
	})

	return r
}
