package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Handler exposes maintenance endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	authenticate func(http.Handler) http.Handler
	rbac         rbac.Middleware
	now          func() time.Time
}

// NewHandler constructs the admin handler.
func NewHandler(logger *slog.Logger, service *Service, authenticate func(http.Handler) http.Handler, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, authenticate: authenticate, rbac: rbac, now: time.Now}
}

// MountRoutes registers admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.With(h.rbac.RequireMinimumRole(shared.RoleAdmin)).Post("/reset", h.reset)
		r.With(h.rbac.RequirePermission(shared.PermAdminSeed)).Post("/seed", h.seed)
		r.With(h.rbac.RequirePermission(shared.PermAdminGenerate)).Post("/generate", h.generate)
		r.With(h.rbac.RequirePermission(shared.PermAdminDiagnostics)).Get("/diagnostics", h.diagnostics)
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, http.StatusOK, map[string]any{"status": "ok", "timestamp": h.now().UTC()})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	deleted, err := h.service.Reset(r.Context(), actor)
	if err != nil {
		h.fail(w, "reset demo data", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"reset":         true,
		"deletedCounts": deleted,
		"executedBy":    actor.Email,
		"timestamp":     h.now().UTC(),
	})
}

func (h *Handler) seed(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	created, err := h.service.Seed(r.Context(), actor)
	if err != nil {
		h.fail(w, "seed demo data", err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{
		"seeded":     true,
		"created":    created,
		"executedBy": actor.Email,
		"timestamp":  h.now().UTC(),
	})
}

type generateRequest struct {
	Count *int `json:"count"`
	Async bool `json:"async"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	count := DefaultGenerateCount
	if req.Count != nil {
		count = *req.Count
	}
	actor, _ := shared.IdentityFromContext(r.Context())

	if req.Async {
		taskID, err := h.service.GenerateAsync(r.Context(), actor.SubjectID, count)
		if err != nil {
			h.fail(w, "enqueue demo generation", err)
			return
		}
		httpx.OK(w, http.StatusAccepted, map[string]any{
			"queued":     true,
			"taskId":     taskID,
			"count":      count,
			"executedBy": actor.Email,
		})
		return
	}

	generated, err := h.service.Generate(r.Context(), actor.SubjectID, count)
	if err != nil {
		h.fail(w, "generate demo data", err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{
		"generated":  generated,
		"executedBy": actor.Email,
		"timestamp":  h.now().UTC(),
	})
}

func (h *Handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	report, err := h.service.Diagnostics(r.Context())
	if err != nil {
		h.fail(w, "diagnostics", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"database":    report.Database,
		"redis":       report.Redis,
		"sample":      report.Sample,
		"environment": report.Environment,
		"executedBy":  actor.Email,
		"timestamp":   h.now().UTC(),
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !errors.Is(err, shared.ErrValidation) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
