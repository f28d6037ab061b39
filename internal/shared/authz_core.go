package shared

import "strings"

// Role names a position in the role hierarchy.
type Role string

// Built-in roles ordered from least to most privileged.
const (
	RoleGuest      Role = "guest"
	RoleUser       Role = "user"
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// String implements fmt.Stringer.
func (r Role) String() string { return string(r) }

// ParseRole normalizes raw input into a Role. Membership is checked by the registry.
func ParseRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

// Blog permissions.
const (
	PermWildcard = "*"

	PermPostsRead      = "posts:read"
	PermPostsCreate    = "posts:create"
	PermPostsUpdateOwn = "posts:update:own"
	PermPostsDeleteOwn = "posts:delete:own"
	PermPostsUpdateAny = "posts:update:any"
	PermPostsDeleteAny = "posts:delete:any"
	PermPostsPublish   = "posts:publish:any"

	PermCommentsRead      = "comments:read"
	PermCommentsCreate    = "comments:create"
	PermCommentsDeleteOwn = "comments:delete:own"
	PermCommentsDeleteAny = "comments:delete:any"

	PermLikesRead      = "likes:read"
	PermLikesCreate    = "likes:create"
	PermLikesDeleteOwn = "likes:delete:own"
	PermLikesDeleteAny = "likes:delete:any"

	PermAdminSeed        = "admin:seed"
	PermAdminGenerate    = "admin:generate"
	PermAdminDiagnostics = "admin:diagnostics"
)

// Resource kinds subject to ownership checks.
const (
	KindPosts    = "posts"
	KindComments = "comments"
	KindLikes    = "likes"
)

// Mutating actions subject to ownership checks.
const (
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionPublish = "publish"
)

// Ownership scopes.
const (
	ScopeOwn = "own"
	ScopeAny = "any"
)

// ScopedPermission composes kind:action:scope.
func ScopedPermission(kind, action, scope string) string {
	return kind + ":" + action + ":" + scope
}
