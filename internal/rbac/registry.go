package rbac

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

// ErrInvalidTable indicates a role table that cannot back a registry.
var ErrInvalidTable = errors.New("rbac: invalid role table")

// Registry is the immutable role hierarchy plus per-role permission sets.
// It is built once at startup and safe for concurrent use.
type Registry struct {
	table  Table
	rank   map[shared.Role]int
	grants map[shared.Role]map[string]struct{}
}

// NewRegistry validates the table and builds a Registry from it.
func NewRegistry(t Table) (*Registry, error) {
	t = t.clone()
	if len(t.Hierarchy) == 0 {
		return nil, fmt.Errorf("%w: empty hierarchy", ErrInvalidTable)
	}
	rank := make(map[shared.Role]int, len(t.Hierarchy))
	for i, role := range t.Hierarchy {
		if role == "" {
			return nil, fmt.Errorf("%w: blank role at position %d", ErrInvalidTable, i)
		}
		if _, dup := rank[role]; dup {
			return nil, fmt.Errorf("%w: duplicate role %q", ErrInvalidTable, role)
		}
		rank[role] = i
	}
	for role := range t.Permissions {
		if _, ok := rank[role]; !ok {
			return nil, fmt.Errorf("%w: permissions for unknown role %q", ErrInvalidTable, role)
		}
	}
	grants := make(map[shared.Role]map[string]struct{}, len(t.Hierarchy))
	for _, role := range t.Hierarchy {
		perms, ok := t.Permissions[role]
		if !ok {
			return nil, fmt.Errorf("%w: role %q has no permission entry", ErrInvalidTable, role)
		}
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			if err := validatePermission(p); err != nil {
				return nil, fmt.Errorf("%w: role %q: %v", ErrInvalidTable, role, err)
			}
			set[p] = struct{}{}
		}
		grants[role] = set
	}
	if t.DefaultRole == "" {
		t.DefaultRole = shared.RoleUser
	}
	if _, ok := rank[t.DefaultRole]; !ok {
		return nil, fmt.Errorf("%w: default role %q not in hierarchy", ErrInvalidTable, t.DefaultRole)
	}
	return &Registry{table: t, rank: rank, grants: grants}, nil
}

// MustNewRegistry panics when the table is invalid. Intended for built-in tables.
func MustNewRegistry(t Table) *Registry {
	r, err := NewRegistry(t)
	if err != nil {
		panic(err)
	}
	return r
}

// Roles returns the hierarchy ordered from least to most privileged.
func (r *Registry) Roles() []shared.Role {
	return append([]shared.Role(nil), r.table.Hierarchy...)
}

// IsKnownRole reports whether role belongs to the hierarchy.
func (r *Registry) IsKnownRole(role shared.Role) bool {
	_, ok := r.rank[role]
	return ok
}

// Rank returns the hierarchy position of role, or -1 when unknown.
func (r *Registry) Rank(role shared.Role) int {
	if i, ok := r.rank[role]; ok {
		return i
	}
	return -1
}

// PermissionsFor returns the permissions role holds directly. Unknown roles get nil.
func (r *Registry) PermissionsFor(role shared.Role) []string {
	perms, ok := r.table.Permissions[role]
	if !ok {
		return nil
	}
	return append([]string{}, perms...)
}

// TopRole is the most privileged role in the hierarchy.
func (r *Registry) TopRole() shared.Role {
	return r.table.Hierarchy[len(r.table.Hierarchy)-1]
}

// DefaultRole is assigned to auto-provisioned profiles.
func (r *Registry) DefaultRole() shared.Role {
	return r.table.DefaultRole
}

// Table exports a copy of the declarative table.
func (r *Registry) Table() Table {
	return r.table.clone()
}

func validatePermission(p string) error {
	if p == shared.PermWildcard {
		return nil
	}
	parts := strings.Split(p, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("permission %q must be resource:action[:scope]", p)
	}
	for i, part := range parts {
		if part == "*" && i == 1 && len(parts) == 2 {
			continue
		}
		if !isSegment(part) {
			return fmt.Errorf("permission %q has invalid segment %q", p, part)
		}
	}
	return nil
}

func isSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' && c != '-' {
			return false
		}
	}
	return true
}
