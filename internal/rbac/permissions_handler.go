package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// PermissionsHandler serves the declarative role table and the caller's effective permissions.
type PermissionsHandler struct {
	logger   *slog.Logger
	registry *Registry
	optional func(http.Handler) http.Handler
}

// NewPermissionsHandler builds PermissionsHandler instance. optional resolves the
// caller identity without rejecting anonymous requests.
func NewPermissionsHandler(logger *slog.Logger, registry *Registry, optional func(http.Handler) http.Handler) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, registry: registry, optional: optional}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/table", h.table)
	r.Group(func(r chi.Router) {
		if h.optional != nil {
			r.Use(h.optional)
		}
		r.Get("/me", h.me)
	})
}

func (h *PermissionsHandler) table(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	httpx.JSON(w, http.StatusOK, h.registry.Table())
}

type effectivePermissions struct {
	Authenticated bool          `json:"authenticated"`
	UserID        string        `json:"userId,omitempty"`
	Role          shared.Role   `json:"role"`
	Rank          int           `json:"rank"`
	Permissions   []string      `json:"permissions"`
	Hierarchy     []shared.Role `json:"hierarchy"`
}

func (h *PermissionsHandler) me(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		id = shared.Anonymous()
	}
	perms := h.registry.PermissionsFor(id.Role)
	if perms == nil {
		perms = []string{}
	}
	httpx.OK(w, http.StatusOK, effectivePermissions{
		Authenticated: id.Authenticated(),
		UserID:        id.SubjectID,
		Role:          id.Role,
		Rank:          h.registry.Rank(id.Role),
		Permissions:   perms,
		Hierarchy:     h.registry.Roles(),
	})
}
