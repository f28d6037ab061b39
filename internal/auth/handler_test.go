package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/identity"
	"github.com/inkwell-blog/inkwell/internal/profiles"
	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
	"github.com/inkwell-blog/inkwell/internal/token"
	_ "github.com/inkwell-blog/inkwell/testing"
)

type stubStore struct {
	mu       sync.Mutex
	profiles map[string]profiles.Profile
}

func newStubStore() *stubStore {
	return &stubStore{profiles: make(map[string]profiles.Profile)}
}

func (s *stubStore) FindBySubject(ctx context.Context, subjectID string) (profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[subjectID]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	return p, nil
}

func (s *stubStore) EnsureProfile(ctx context.Context, subjectID, email string, role shared.Role) (profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[subjectID]; ok {
		return p, nil
	}
	p := profiles.Profile{SubjectID: subjectID, Email: email, Role: role}
	s.profiles[subjectID] = p
	return p, nil
}

func (s *stubStore) UpdateRole(ctx context.Context, subjectID string, role shared.Role) (profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[subjectID]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	p.Role = role
	s.profiles[subjectID] = p
	return p, nil
}

func (s *stubStore) List(ctx context.Context, page shared.Pagination) ([]profiles.Profile, error) {
	return nil, nil
}

type fixture struct {
	router http.Handler
	store  *stubStore
	tokens *token.Service
}

func newFixture(t *testing.T, devTokens bool) fixture {
	t.Helper()
	reg, err := rbac.NewRegistry(rbac.DefaultTable())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	tokens, err := token.NewService(token.Config{Secret: []byte("test-secret"), Audience: "authenticated", TTL: time.Hour})
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	store := newStubStore()
	resolver := identity.NewResolver(tokens, store, identity.Options{})
	mw := identity.Middleware{Resolver: resolver}
	svc := auth.NewService(tokens, profiles.NewService(store, reg, nil), reg, nil)
	handler := auth.NewHandler(nil, svc, resolver, mw.Authenticate, devTokens)

	r := chi.NewRouter()
	r.Route("/api/auth", handler.MountRoutes)
	return fixture{router: r, store: store, tokens: tokens}
}

func (f fixture) call(t *testing.T, method, path, bearer, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", res.Body.String(), err)
	}
	return res.Code, out
}

func TestGenerateTokenProvisionsNewProfile(t *testing.T) {
	f := newFixture(t, true)

	code, body := f.call(t, http.MethodPost, "/api/auth/generate-token", "", `{"userId":"u1","email":"u1@example.com","role":"moderator"}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	data := body["data"].(map[string]any)
	if data["token_type"] != "Bearer" {
		t.Fatalf("unexpected token type %v", data["token_type"])
	}
	if f.store.profiles["u1"].Role != shared.RoleModerator {
		t.Fatalf("profile role not stored: %+v", f.store.profiles["u1"])
	}

	claims, err := f.tokens.Verify(data["access_token"].(string))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Role != "" {
		t.Fatalf("issued token must not carry a role claim, got %q", claims.Role)
	}
}

func TestGenerateTokenKeepsStoredRole(t *testing.T) {
	f := newFixture(t, true)
	f.store.profiles["root"] = profiles.Profile{SubjectID: "root", Email: "root@example.com", Role: shared.RoleSuperAdmin}
	f.store.profiles["mod"] = profiles.Profile{SubjectID: "mod", Email: "mod@example.com", Role: shared.RoleModerator}

	code, body := f.call(t, http.MethodPost, "/api/auth/generate-token", "", `{"userId":"root"}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	if f.store.profiles["root"].Role != shared.RoleSuperAdmin {
		t.Fatalf("stored super_admin was demoted to %s", f.store.profiles["root"].Role)
	}
	user := body["data"].(map[string]any)["user"].(map[string]any)
	if user["role"] != "super_admin" {
		t.Fatalf("response should report the stored role, got %v", user["role"])
	}

	code, body = f.call(t, http.MethodPost, "/api/auth/generate-token", "", `{"userId":"mod","role":"super_admin"}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	if f.store.profiles["mod"].Role != shared.RoleModerator {
		t.Fatalf("moderator escalated to %s", f.store.profiles["mod"].Role)
	}
	user = body["data"].(map[string]any)["user"].(map[string]any)
	if user["role"] != "moderator" {
		t.Fatalf("response should report the stored role, got %v", user["role"])
	}

	code, _ = f.call(t, http.MethodPost, "/api/auth/generate-admin-token", "", `{"userId":"mod"}`)
	if code != http.StatusOK || f.store.profiles["mod"].Role != shared.RoleModerator {
		t.Fatalf("admin token endpoint changed stored role: %d %s", code, f.store.profiles["mod"].Role)
	}
}

func TestGenerateTokenRejectsUnknownRole(t *testing.T) {
	f := newFixture(t, true)

	code, body := f.call(t, http.MethodPost, "/api/auth/generate-token", "", `{"role":"wizard"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if body["code"] != "INVALID_ROLE" {
		t.Fatalf("expected INVALID_ROLE, got %v", body["code"])
	}
	if roles, _ := body["allowedRoles"].([]any); len(roles) != 5 {
		t.Fatalf("expected 5 allowed roles, got %v", body["allowedRoles"])
	}
	if len(f.store.profiles) != 0 {
		t.Fatalf("no profile should be written")
	}
}

func TestGenerateAdminTokenWithoutBody(t *testing.T) {
	f := newFixture(t, true)

	code, body := f.call(t, http.MethodPost, "/api/auth/generate-admin-token", "", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	user := body["data"].(map[string]any)["user"].(map[string]any)
	if user["role"] != "admin" || user["id"] != "admin-dev" {
		t.Fatalf("unexpected user %v", user)
	}
}

func TestDevTokensDisabled(t *testing.T) {
	f := newFixture(t, false)

	for _, path := range []string{"/api/auth/generate-token", "/api/auth/generate-admin-token"} {
		code, body := f.call(t, http.MethodPost, path, "", `{}`)
		if code != http.StatusNotFound || body["code"] != "NOT_FOUND" {
			t.Fatalf("%s: expected NOT_FOUND, got %d %v", path, code, body)
		}
	}
}

func TestVerifyReflectsCurrentStoreRole(t *testing.T) {
	f := newFixture(t, true)
	issued, err := f.tokens.Issue("u2", "u2@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	code, body := f.call(t, http.MethodGet, "/api/auth/verify", issued.Token, "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	user := body["data"].(map[string]any)["user"].(map[string]any)
	if user["role"] != "user" {
		t.Fatalf("auto-provisioned profile should use default role, got %v", user["role"])
	}

	f.store.profiles["u2"] = profiles.Profile{SubjectID: "u2", Email: "u2@example.com", Role: shared.RoleAdmin}
	_, body = f.call(t, http.MethodGet, "/api/auth/verify", issued.Token, "")
	user = body["data"].(map[string]any)["user"].(map[string]any)
	if user["role"] != "admin" {
		t.Fatalf("role change should apply to existing token, got %v", user["role"])
	}

	code, body = f.call(t, http.MethodGet, "/api/auth/verify", "", "")
	if code != http.StatusUnauthorized || body["code"] != "AUTH_TOKEN_MISSING" {
		t.Fatalf("expected AUTH_TOKEN_MISSING, got %d %v", code, body)
	}
	code, body = f.call(t, http.MethodGet, "/api/auth/verify", "garbage", "")
	if code != http.StatusForbidden || body["code"] != "AUTH_TOKEN_INVALID" {
		t.Fatalf("expected AUTH_TOKEN_INVALID, got %d %v", code, body)
	}
}

func TestMeLogoutRefresh(t *testing.T) {
	f := newFixture(t, true)
	issued, err := f.tokens.Issue("u3", "u3@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	code, body := f.call(t, http.MethodGet, "/api/auth/me", issued.Token, "")
	if code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", code)
	}
	user := body["data"].(map[string]any)["user"].(map[string]any)
	if user["id"] != "u3" || user["authenticatedAt"] == nil {
		t.Fatalf("unexpected me payload %v", user)
	}

	code, _ = f.call(t, http.MethodPost, "/api/auth/logout", issued.Token, "")
	if code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", code)
	}

	code, body = f.call(t, http.MethodPost, "/api/auth/refresh", issued.Token, "")
	if code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", code)
	}
	fresh := body["data"].(map[string]any)["access_token"].(string)
	claims, err := f.tokens.Verify(fresh)
	if err != nil || claims.Subject != "u3" || claims.Role != "" {
		t.Fatalf("refreshed token invalid: %+v %v", claims, err)
	}

	code, body = f.call(t, http.MethodGet, "/api/auth/me", "", "")
	if code != http.StatusUnauthorized || body["code"] != "AUTH_TOKEN_MISSING" {
		t.Fatalf("expected AUTH_TOKEN_MISSING, got %d %v", code, body)
	}
}
