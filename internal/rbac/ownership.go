package rbac

import "github.com/inkwell-blog/inkwell/internal/shared"

// CanModify decides whether an actor may perform action on a resource of kind
// owned by ownerID. Owners need kind:action:own; everyone else needs kind:action:any.
// An empty actorID never owns anything.
func (r *Registry) CanModify(role shared.Role, actorID, ownerID, action, kind string) bool {
	if r.HasPermission(role, shared.PermWildcard) {
		return true
	}
	isOwner := actorID != "" && actorID == ownerID
	if isOwner && r.HasPermission(role, shared.ScopedPermission(kind, action, shared.ScopeOwn)) {
		return true
	}
	return r.HasPermission(role, shared.ScopedPermission(kind, action, shared.ScopeAny))
}

// Authorize is CanModify for a resolved identity, returning PermissionDenied on refusal.
func (r *Registry) Authorize(id shared.Identity, ownerID, action, kind string) error {
	if r.CanModify(id.Role, id.SubjectID, ownerID, action, kind) {
		return nil
	}
	return shared.NewAuthError(shared.KindPermissionDenied, "You cannot "+action+" this resource", map[string]any{
		"userRole":           id.Role,
		"requiredPermission": shared.ScopedPermission(kind, action, shared.ScopeAny),
	})
}
