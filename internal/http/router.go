// Package httpapi assembles the public HTTP surface: ambient middleware,
// operator routes and the tenant-scoped lending API.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"doccenter/internal/admin"
	lendinghandler "doccenter/internal/lending/handler"
	notificationhandler "doccenter/internal/notification/handler"
	"doccenter/internal/platform/metrics"
	"doccenter/internal/platform/middleware"
	"doccenter/pkg/platform/httputil"
	adminmw "doccenter/pkg/platform/middleware/admin"
	"doccenter/pkg/platform/middleware/metadata"
	"doccenter/pkg/platform/middleware/request"
	"doccenter/pkg/platform/middleware/requesttime"
)

const defaultRequestTimeout = 30 * time.Second

// Deps carries everything the router mounts. Metrics, Limiter and Admin are
// optional.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Validator      middleware.TokenValidator
	Limiter        *middleware.ActorRateLimiter
	AdminToken     string
	RequestTimeout time.Duration
	Health         func(ctx context.Context) error

	Lending       *lendinghandler.Handler
	Notifications *notificationhandler.Handler
	Admin         *admin.Handler
}

// NewRouter wires all public endpoints.
func NewRouter(d Deps) http.Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(request.Logger(d.Logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	if d.Metrics != nil {
		r.Use(d.Metrics.Instrument)
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.Health != nil {
			if err := d.Health(r.Context()); err != nil {
				d.Logger.ErrorContext(r.Context(), "health check failed", "error", err)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(timeout))
		r.Use(request.ContentTypeJSON)

		if d.Admin != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(adminmw.RequireAdminToken(d.AdminToken, d.Logger))
				d.Admin.Register(r)
			})
		}

		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Use(middleware.RequireActor(d.Validator, d.Logger))
			r.Use(middleware.RequireTenant("tenantID", d.Logger))
			if d.Limiter != nil {
				r.Use(d.Limiter.Middleware)
			}
			d.Lending.Register(r)
			d.Notifications.Register(r)
		})
	})
	return r
}
