package posts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// newTestRouter mounts the handler with a stub authenticator that injects
// actor. A nil actor makes authenticated routes fail with AUTH_TOKEN_MISSING.
func newTestRouter(t *testing.T, repo *mockRepository, actor *shared.Identity) http.Handler {
	t.Helper()
	svc := newTestService(t, repo)
	reg, err := rbac.NewRegistry(rbac.DefaultTable())
	require.NoError(t, err)

	authenticate := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if actor == nil {
				writeFailure(w, shared.ErrCredentialMissing)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), *actor)))
		})
	}
	optional := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := shared.Anonymous()
			if actor != nil {
				id = *actor
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
		})
	}
	h := NewHandler(nil, svc, authenticate, optional, rbac.Middleware{Registry: reg})
	r := chi.NewRouter()
	r.Route("/api/posts", h.MountRoutes)
	return r
}

func writeFailure(w http.ResponseWriter, err *shared.AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Kind.Status())
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "code": err.Kind.Code()})
}

func do(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return rr, out
}

func identity(id shared.Identity) *shared.Identity { return &id }

func TestHandlerCreatePostGating(t *testing.T) {
	repo := newMockRepository()

	rr, body := do(t, newTestRouter(t, repo, nil), http.MethodPost, "/api/posts/", `{"title":"Hi","content":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "AUTH_TOKEN_MISSING", body["code"])

	guest := identity(shared.Identity{SubjectID: "g", Role: shared.RoleGuest})
	rr, body = do(t, newTestRouter(t, repo, guest), http.MethodPost, "/api/posts/", `{"title":"Hi","content":"x"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "PERMISSION_DENIED", body["code"])
	assert.Equal(t, "posts:create", body["requiredPermission"])
	assert.Equal(t, "guest", body["userRole"])

	rr, body = do(t, newTestRouter(t, repo, identity(alice)), http.MethodPost, "/api/posts/", `{"title":"  Hi  ","content":"x"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "Hi", data["title"])
	assert.Equal(t, "alice", data["authorId"])
	assert.Equal(t, false, data["is_published"])
}

func TestHandlerCreatePostValidation(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), identity(alice))

	rr, body := do(t, router, http.MethodPost, "/api/posts/", `{"title":"H","content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	rr, body = do(t, router, http.MethodPost, "/api/posts/", `{"title":"Hello","content":"x","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestHandlerPublishRequiresModerator(t *testing.T) {
	repo := newMockRepository()
	post := repo.seedPost("alice", false)
	path := "/api/posts/" + post.ID.String() + "/publish"

	rr, body := do(t, newTestRouter(t, repo, identity(alice)), http.MethodPatch, path, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "INSUFFICIENT_ROLE", body["code"])
	assert.Equal(t, "moderator", body["requiredRole"])
	assert.False(t, repo.posts[post.ID].IsPublished)

	rr, body = do(t, newTestRouter(t, repo, identity(moderator)), http.MethodPatch, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["is_published"])
	assert.NotNil(t, data["published_at"])
}

func TestHandlerUpdateNonOwnerDenied(t *testing.T) {
	repo := newMockRepository()
	post := repo.seedPost("alice", false)

	rr, body := do(t, newTestRouter(t, repo, identity(bob)), http.MethodPatch, "/api/posts/"+post.ID.String(), `{"title":"Mine now"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "PERMISSION_DENIED", body["code"])
	assert.Equal(t, "posts:update:any", body["requiredPermission"])
}

func TestHandlerUnknownAndMalformedIDs(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), identity(admin))

	for _, path := range []string{"/api/posts/not-a-uuid", "/api/posts/7f1d2c9e-0000-4000-8000-000000000000"} {
		rr, body := do(t, router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assert.Equal(t, "NOT_FOUND", body["code"], path)
	}

	rr, body := do(t, router, http.MethodDelete, "/api/posts/7f1d2c9e-0000-4000-8000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestHandlerDeleteCommentByNonOwner(t *testing.T) {
	repo := newMockRepository()
	post := repo.seedPost("alice", true)
	c := repo.seedComment(post.ID, "bob")
	path := "/api/posts/" + post.ID.String() + "/comments/" + c.ID.String()

	rr, body := do(t, newTestRouter(t, repo, identity(alice)), http.MethodDelete, path, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "PERMISSION_DENIED", body["code"])
	assert.Contains(t, repo.comments, c.ID)

	rr, body = do(t, newTestRouter(t, repo, identity(bob)), http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["success"])
	assert.NotContains(t, repo.comments, c.ID)
}

func TestHandlerListPublicAndFilters(t *testing.T) {
	repo := newMockRepository()
	repo.seedPost("alice", true)
	repo.seedPost("alice", false)
	router := newTestRouter(t, repo, nil)

	rr, body := do(t, router, http.MethodGet, "/api/posts/?is_published=true", "")
	require.Equal(t, http.StatusOK, rr.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["total"])

	rr, body = do(t, router, http.MethodGet, "/api/posts/?q=a", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	rr, _ = do(t, router, http.MethodGet, "/api/posts/?is_published=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerLikesFlow(t *testing.T) {
	repo := newMockRepository()
	post := repo.seedPost("alice", true)
	base := "/api/posts/" + post.ID.String()
	router := newTestRouter(t, repo, identity(bob))

	rr, _ := do(t, router, http.MethodPost, base+"/likes", "")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, body := do(t, router, http.MethodGet, base+"/likes-count", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["count"])

	rr, body = do(t, newTestRouter(t, repo, nil), http.MethodPost, base+"/likes", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "AUTH_TOKEN_MISSING", body["code"])
}
