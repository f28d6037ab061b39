package rbac

import (
	"strings"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

// HasPermission reports whether role holds permission. Matching tries the exact
// permission, then the resource wildcard, then the global wildcard.
// Unknown roles and empty permissions never match.
func (r *Registry) HasPermission(role shared.Role, permission string) bool {
	set, ok := r.grants[role]
	if !ok || permission == "" {
		return false
	}
	if _, ok := set[permission]; ok {
		return true
	}
	if resource, _, found := strings.Cut(permission, ":"); found {
		if _, ok := set[resource+":*"]; ok {
			return true
		}
	}
	_, ok = set[shared.PermWildcard]
	return ok
}

// HasMinimumRole reports whether role ranks at or above minimum.
func (r *Registry) HasMinimumRole(role, minimum shared.Role) bool {
	have, ok := r.rank[role]
	if !ok {
		return false
	}
	want, ok := r.rank[minimum]
	if !ok {
		return false
	}
	return have >= want
}
