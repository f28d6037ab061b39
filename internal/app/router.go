package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/inkwell-blog/inkwell/internal/admin"
	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/observability"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/posts"
	"github.com/inkwell-blog/inkwell/internal/profiles"
	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
	"github.com/inkwell-blog/inkwell/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	Authenticate func(http.Handler) http.Handler
	RBAC         rbac.Middleware

	AuthHandler        *auth.Handler
	PermissionsHandler *rbac.PermissionsHandler
	ProfilesHandler    *profiles.Handler
	PostsHandler       *posts.Handler
	AdminHandler       *admin.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

var errRouteNotFound = shared.NewAuthError(shared.KindNotFound, "Route not found", nil)

// NewRouter constructs the chi.Router with Inkwell defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	health := func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok", "timestamp": time.Now().UTC()})
	}
	r.Get("/health", health)
	r.Get("/healthz", health)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, errRouteNotFound)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/rbac", params.PermissionsHandler.MountRoutes)
		}
		if params.ProfilesHandler != nil {
			r.Route("/profiles", params.ProfilesHandler.MountRoutes)
		}
		if params.PostsHandler != nil {
			r.Route("/posts", params.PostsHandler.MountRoutes)
		}
		if params.AdminHandler != nil {
			r.Route("/admin", params.AdminHandler.MountRoutes)
		}
		if params.JobHandler != nil && params.Authenticate != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.Authenticate)
				r.Use(params.RBAC.RequireMinimumRole(shared.RoleAdmin))
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	return r
}
