// Package httpapi exposes the account, organization and project API over
// HTTP, running each route through the authorization pipeline stages it needs.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"taskhub.org/internal/auth"
	"taskhub.org/internal/obs"
	"taskhub.org/internal/tenancy"
)

const serviceName = "taskhub-api"

// ReadinessChecker reports whether dependencies are reachable.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

// Options tunes the HTTP surface.
type Options struct {
	Version      string
	CORSOrigins  []string
	MaxBodyBytes int64
	// RateLimit guards the anonymous credential endpoints. Nil disables it.
	RateLimit *RateLimiter
	Logger    *slog.Logger

	// TrustedProxies are the peers allowed to name the client through
	// forwarding headers. Requests from anyone else keep their TCP address.
	TrustedProxies []netip.Prefix
}

// API is the HTTP layer.
type API struct {
	accounts *auth.Service
	gate     *auth.Gate
	tenancy  *tenancy.Service
	ready    ReadinessChecker
	opts     Options
	logger   *slog.Logger
}

// New wires the API. ready may be nil, in which case /readyz always succeeds.
func New(accounts *auth.Service, gate *auth.Gate, ten *tenancy.Service, ready ReadinessChecker, opts Options) *API {
	return &API{
		accounts: accounts,
		gate:     gate,
		tenancy:  ten,
		ready:    ready,
		opts:     opts,
		logger:   obs.ResolveLogger(opts.Logger),
	}
}

// Handler builds the router.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RealIP(a.opts.TrustedProxies))
	r.Use(obs.Instrument)
	r.Use(Logging(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)
	if len(a.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Retry-After", "X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           600,
		}))
	}
	r.Use(MaxBodyBytes(a.opts.MaxBodyBytes))

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)
	r.Handle("/metrics", obs.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if a.opts.RateLimit != nil {
				r.Use(a.opts.RateLimit.Middleware)
			}
			r.Post("/register", a.handleRegister)
			r.Post("/login", a.handleLogin)
			r.Post("/refresh", a.handleRefresh)
			r.Post("/logout", a.handleLogout)
		})
		r.Group(func(r chi.Router) {
			r.Use(a.authenticate)
			r.Post("/logout-all", a.handleLogoutAll)
			r.Get("/me", a.handleMe)
		})
	})

	r.Route("/api/orgs", func(r chi.Router) {
		r.Use(a.authenticate)
		r.Get("/", a.handleListOrgs)
		r.Post("/", a.handleCreateOrg)

		r.Route("/{"+orgParam+"}", func(r chi.Router) {
			r.Use(a.orgMember)
			r.Get("/", a.handleGetOrg)
			r.With(a.orgCapability(auth.CapOrgUpdate)).Patch("/", a.handleRenameOrg)
			r.With(a.orgCapability(auth.CapOrgDelete)).Delete("/", a.handleDeleteOrg)

			r.Get("/members", a.handleListMembers)
			r.With(a.orgCapability(auth.CapMemberManage)).Patch("/members/{userID}", a.handleUpdateMemberRole)
			r.Delete("/members/{userID}", a.handleRemoveMember)

			r.Get("/projects", a.handleListProjects)
			r.With(a.orgCapability(auth.CapProjectCreate)).Post("/projects", a.handleCreateProject)

			r.Route("/projects/{"+projectParam+"}", func(r chi.Router) {
				r.Use(a.projectMember)
				r.Get("/", a.handleGetProject)
				r.With(a.projectCapability(auth.CapProjectUpdate)).Patch("/", a.handleUpdateProject)
				r.With(a.projectCapability(auth.CapProjectDelete)).Delete("/", a.handleDeleteProject)

				r.Group(func(r chi.Router) {
					r.Use(a.projectCapability(auth.CapProjectMemberManage))
					r.Post("/members", a.handleAddProjectMember)
					r.Patch("/members/{userID}", a.handleUpdateProjectMemberRole)
					r.Delete("/members/{userID}", a.handleRemoveProjectMember)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorCode(w, r, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorCode(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.opts.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ready.Ping(ctx); err != nil {
			a.logger.WarnContext(r.Context(), "readiness check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.opts.Version,
	})
}
