package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Gate names reported to the DecisionRecorder.
const (
	GateAuthenticated = "authenticated"
	GatePermission    = "permission"
	GateMinimumRole   = "minimum_role"
	GateAnyRole       = "any_role"
)

// DecisionRecorder observes gate outcomes.
type DecisionRecorder interface {
	RecordDecision(gate, outcome string)
}

// Middleware wires RBAC gates for HTTP handlers. Gates read the identity placed
// in the request context by the identity middleware and never consult ownership.
type Middleware struct {
	Registry *Registry
	Logger   *slog.Logger
	Recorder DecisionRecorder
}

// RequireAuthenticated rejects anonymous requests with AuthRequired.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.authenticated(w, r, GateAuthenticated); !ok {
				return
			}
			m.record(GateAuthenticated, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission ensures the current identity holds perm.
func (m Middleware) RequirePermission(perm string) func(http.Handler) http.Handler {
	perm = normalizePermission(perm)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := m.authenticated(w, r, GatePermission)
			if !ok {
				return
			}
			if !m.Registry.HasPermission(id.Role, perm) {
				m.deny(w, r, GatePermission, shared.NewAuthError(shared.KindPermissionDenied,
					"You do not have permission to perform this action",
					map[string]any{"userRole": id.Role, "requiredPermission": perm}))
				return
			}
			m.record(GatePermission, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireMinimumRole ensures the current identity ranks at or above minimum.
func (m Middleware) RequireMinimumRole(minimum shared.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := m.authenticated(w, r, GateMinimumRole)
			if !ok {
				return
			}
			if !m.Registry.HasMinimumRole(id.Role, minimum) {
				m.deny(w, r, GateMinimumRole, shared.NewAuthError(shared.KindInsufficientRole,
					"This action requires the "+minimum.String()+" role or higher",
					map[string]any{"userRole": id.Role, "requiredRole": minimum}))
				return
			}
			m.record(GateMinimumRole, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyRole ensures the current identity holds one of roles exactly.
func (m Middleware) RequireAnyRole(roles ...shared.Role) func(http.Handler) http.Handler {
	allowed := make(map[shared.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := m.authenticated(w, r, GateAnyRole)
			if !ok {
				return
			}
			if _, ok := allowed[id.Role]; !ok || !m.Registry.IsKnownRole(id.Role) {
				m.deny(w, r, GateAnyRole, shared.NewAuthError(shared.KindInsufficientRole,
					"This action is restricted to specific roles",
					map[string]any{"userRole": id.Role, "allowedRoles": roles}))
				return
			}
			m.record(GateAnyRole, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) authenticated(w http.ResponseWriter, r *http.Request, gate string) (shared.Identity, bool) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok || !id.Authenticated() {
		m.deny(w, r, gate, shared.NewAuthError(shared.KindAuthRequired, "Authentication required", nil))
		return shared.Identity{}, false
	}
	return id, true
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, gate string, err *shared.AuthError) {
	m.record(gate, "deny")
	if m.Logger != nil {
		m.Logger.Debug("rbac deny",
			slog.String("gate", gate),
			slog.String("code", err.Kind.Code()),
			slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

func (m Middleware) record(gate, outcome string) {
	if m.Recorder != nil {
		m.Recorder.RecordDecision(gate, outcome)
	}
}

func normalizePermission(p string) string {
	return strings.TrimSpace(strings.ToLower(p))
}
