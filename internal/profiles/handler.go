package profiles

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Handler manages profile endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	authenticate func(http.Handler) http.Handler
	rbac         rbac.Middleware
	validator    *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authenticate func(http.Handler) http.Handler, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, authenticate: authenticate, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/me", h.me)
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireMinimumRole(shared.RoleAdmin))
			r.Get("/", h.list)
			r.Patch("/{subjectID}/role", h.setRole)
		})
	})
}

type setRoleRequest struct {
	NewRole string `json:"newRole" validate:"required"`
}

type roleChangeResponse struct {
	SubjectID string      `json:"subjectId"`
	Email     string      `json:"email"`
	Role      shared.Role `json:"role"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	p, err := h.service.Get(r.Context(), id.SubjectID)
	if err != nil {
		h.fail(w, "get own profile", err)
		return
	}
	httpx.OK(w, http.StatusOK, p)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.PaginationFromQuery(r.URL.Query())
	items, err := h.service.List(r.Context(), page)
	if err != nil {
		h.fail(w, "list profiles", err)
		return
	}
	if items == nil {
		items = []Profile{}
	}
	httpx.OK(w, http.StatusOK, map[string]any{"profiles": items, "pagination": page})
}

func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	p, err := h.service.SetRole(r.Context(), actor, chi.URLParam(r, "subjectID"), shared.ParseRole(req.NewRole))
	if err != nil {
		h.fail(w, "set role", err)
		return
	}
	httpx.OK(w, http.StatusOK, roleChangeResponse{SubjectID: p.SubjectID, Email: p.Email, Role: p.Role})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var authErr *shared.AuthError
	if !errors.As(err, &authErr) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
