package rbacclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

func newServer(t *testing.T) (*httptest.Server, *rbac.Registry) {
	t.Helper()
	reg, err := rbac.NewRegistry(rbac.DefaultTable())
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Route("/api/rbac", rbac.NewPermissionsHandler(nil, reg, nil).MountRoutes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, reg
}

func TestMirrorMatchesServer(t *testing.T) {
	srv, server := newServer(t)
	mirror, err := New(srv.URL+"/", srv.Client()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, server.Roles(), mirror.Roles())

	perms := []string{
		shared.PermPostsRead, shared.PermPostsCreate, shared.PermPostsUpdateOwn, shared.PermPostsDeleteAny,
		shared.PermPostsPublish, shared.PermCommentsDeleteAny, shared.PermLikesCreate,
		shared.PermAdminSeed, shared.PermAdminDiagnostics, "anything:at:all",
	}
	for _, role := range server.Roles() {
		view := mirror.For(role, "alice")
		for _, perm := range perms {
			assert.Equal(t, server.HasPermission(role, perm), view.HasPermission(perm), "%s %s", role, perm)
		}
		for _, owner := range []string{"alice", "bob"} {
			for _, kind := range []string{shared.KindPosts, shared.KindComments, shared.KindLikes} {
				for _, action := range []string{shared.ActionUpdate, shared.ActionDelete} {
					assert.Equal(t,
						server.CanModify(role, "alice", owner, action, kind),
						view.CanModify(owner, action, kind),
						"%s %s %s owned by %s", role, action, kind, owner)
				}
			}
		}
	}
}

func TestPermissionsHelpers(t *testing.T) {
	mirror, err := NewMirror(rbac.DefaultTable())
	require.NoError(t, err)

	guest := mirror.For(shared.RoleGuest, "")
	assert.False(t, guest.CanCreate(shared.KindPosts))
	assert.False(t, guest.CanPublish())

	user := mirror.For(shared.RoleUser, "u1")
	assert.True(t, user.CanCreate(shared.KindPosts))
	assert.True(t, user.CanUpdateOwn(shared.KindPosts))
	assert.True(t, user.CanDeleteOwn(shared.KindComments))
	assert.False(t, user.CanUpdateAny(shared.KindPosts))
	assert.False(t, user.CanModify("u2", shared.ActionDelete, shared.KindPosts))
	assert.True(t, user.CanModify("u1", shared.ActionDelete, shared.KindPosts))

	mod := mirror.For(shared.RoleModerator, "m1")
	assert.True(t, mod.CanDeleteAny(shared.KindLikes))
	assert.True(t, mod.CanPublish())
	assert.True(t, mod.IsModerator())
	assert.False(t, mod.IsAdmin())

	admin := mirror.For(shared.RoleAdmin, "a1")
	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.CanUpdateAny(shared.KindComments))

	unknown := mirror.For(shared.Role("root"), "x")
	assert.False(t, unknown.HasPermission(shared.PermPostsRead))
	assert.False(t, unknown.CanPublish())
}

func TestFetchTableErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	_, err := New(srv.URL, nil).FetchTable(context.Background())
	require.Error(t, err)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"defaultRole":"user","hierarchy":[],"permissions":{}}`))
	}))
	defer bad.Close()
	_, err = New(bad.URL, nil).Load(context.Background())
	require.Error(t, err)
}
