package rbacclient

import (
	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Permissions answers UI affordance questions for one user.
type Permissions struct {
	registry *rbac.Registry
	role     shared.Role
	userID   string
}

// Role returns the user's role.
func (p Permissions) Role() shared.Role { return p.role }

// HasPermission reports whether the role grants permission.
func (p Permissions) HasPermission(permission string) bool {
	return p.registry.HasPermission(p.role, permission)
}

// HasMinimumRole reports whether the role ranks at or above minimum.
func (p Permissions) HasMinimumRole(minimum shared.Role) bool {
	return p.registry.HasMinimumRole(p.role, minimum)
}

// CanCreate reports whether the user may create resources of kind.
func (p Permissions) CanCreate(kind string) bool {
	return p.HasPermission(kind + ":create")
}

// CanUpdateOwn reports whether the user may update their own resources of kind.
func (p Permissions) CanUpdateOwn(kind string) bool {
	return p.HasPermission(shared.ScopedPermission(kind, shared.ActionUpdate, shared.ScopeOwn))
}

// CanDeleteOwn reports whether the user may delete their own resources of kind.
func (p Permissions) CanDeleteOwn(kind string) bool {
	return p.HasPermission(shared.ScopedPermission(kind, shared.ActionDelete, shared.ScopeOwn))
}

// CanUpdateAny reports whether the user may update anyone's resources of kind.
func (p Permissions) CanUpdateAny(kind string) bool {
	return p.HasPermission(shared.ScopedPermission(kind, shared.ActionUpdate, shared.ScopeAny))
}

// CanDeleteAny reports whether the user may delete anyone's resources of kind.
func (p Permissions) CanDeleteAny(kind string) bool {
	return p.HasPermission(shared.ScopedPermission(kind, shared.ActionDelete, shared.ScopeAny))
}

// CanPublish mirrors the publish route, which is gated by minimum role.
func (p Permissions) CanPublish() bool {
	return p.HasMinimumRole(shared.RoleModerator)
}

// IsModerator reports a role of moderator or above.
func (p Permissions) IsModerator() bool { return p.HasMinimumRole(shared.RoleModerator) }

// IsAdmin reports a role of admin or above.
func (p Permissions) IsAdmin() bool { return p.HasMinimumRole(shared.RoleAdmin) }

// CanModify reports whether the user may act on a resource owned by ownerID.
func (p Permissions) CanModify(ownerID, action, kind string) bool {
	return p.registry.CanModify(p.role, p.userID, ownerID, action, kind)
}
