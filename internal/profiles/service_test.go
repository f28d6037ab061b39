package profiles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	mu       sync.Mutex
	profiles map[string]Profile
	updates  int
	listErr  error
}

func newMockRepository(seed ...Profile) *mockRepository {
	m := &mockRepository{profiles: make(map[string]Profile)}
	for _, p := range seed {
		m.profiles[p.SubjectID] = p
	}
	return m
}

func (m *mockRepository) FindBySubject(ctx context.Context, subjectID string) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[subjectID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) EnsureProfile(ctx context.Context, subjectID, email string, role shared.Role) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[subjectID]; ok {
		return p, nil
	}
	now := time.Now()
	p := Profile{SubjectID: subjectID, Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	m.profiles[subjectID] = p
	return p, nil
}

func (m *mockRepository) UpdateRole(ctx context.Context, subjectID string, role shared.Role) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[subjectID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	p.Role = role
	p.UpdatedAt = time.Now()
	m.profiles[subjectID] = p
	m.updates++
	return p, nil
}

func (m *mockRepository) List(ctx context.Context, page shared.Pagination) ([]Profile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, nil
}

func newTestService(t *testing.T, repo *mockRepository) *Service {
	t.Helper()
	reg, err := rbac.NewRegistry(rbac.DefaultTable())
	require.NoError(t, err)
	return NewService(repo, reg, nil)
}

// ============================================================================
// SET ROLE
// ============================================================================

func TestSetRolePromotesTarget(t *testing.T) {
	repo := newMockRepository(Profile{SubjectID: "bob", Email: "bob@example.com", Role: shared.RoleUser})
	svc := newTestService(t, repo)
	admin := shared.Identity{SubjectID: "alice", Role: shared.RoleAdmin}

	p, err := svc.SetRole(context.Background(), admin, "bob", shared.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, shared.RoleModerator, p.Role)
	assert.Equal(t, "bob@example.com", p.Email)
	assert.Equal(t, shared.RoleModerator, repo.profiles["bob"].Role)
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	repo := newMockRepository(Profile{SubjectID: "bob", Role: shared.RoleUser})
	svc := newTestService(t, repo)
	admin := shared.Identity{SubjectID: "alice", Role: shared.RoleAdmin}

	_, err := svc.SetRole(context.Background(), admin, "bob", "owner")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidRole)

	var authErr *shared.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Len(t, authErr.Context["allowedRoles"], 5)
	assert.Zero(t, repo.updates)
}

func TestSetRoleSelfEscalationGuard(t *testing.T) {
	repo := newMockRepository(
		Profile{SubjectID: "alice", Role: shared.RoleAdmin},
		Profile{SubjectID: "root", Role: shared.RoleSuperAdmin},
	)
	svc := newTestService(t, repo)

	admin := shared.Identity{SubjectID: "alice", Role: shared.RoleAdmin}
	_, err := svc.SetRole(context.Background(), admin, "alice", shared.RoleSuperAdmin)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	assert.Equal(t, shared.RoleAdmin, repo.profiles["alice"].Role)

	// Demoting yourself is also a self change.
	_, err = svc.SetRole(context.Background(), admin, "alice", shared.RoleUser)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	root := shared.Identity{SubjectID: "root", Role: shared.RoleSuperAdmin}
	p, err := svc.SetRole(context.Background(), root, "root", shared.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, shared.RoleAdmin, p.Role)
}

func TestSetRoleInvalidRoleCheckedBeforeSelfGuard(t *testing.T) {
	svc := newTestService(t, newMockRepository(Profile{SubjectID: "alice", Role: shared.RoleAdmin}))
	admin := shared.Identity{SubjectID: "alice", Role: shared.RoleAdmin}

	_, err := svc.SetRole(context.Background(), admin, "alice", "root")
	assert.ErrorIs(t, err, shared.ErrInvalidRole)
}

func TestSetRoleMissingTarget(t *testing.T) {
	svc := newTestService(t, newMockRepository())
	admin := shared.Identity{SubjectID: "alice", Role: shared.RoleAdmin}

	_, err := svc.SetRole(context.Background(), admin, "ghost", shared.RoleUser)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// ============================================================================
// GET / ASSIGN
// ============================================================================

func TestGetMapsNotFound(t *testing.T) {
	svc := newTestService(t, newMockRepository())
	_, err := svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestProvisionValidatesRole(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(t, repo)

	_, err := svc.Provision(context.Background(), "u1", "u1@example.com", "wizard")
	assert.ErrorIs(t, err, shared.ErrInvalidRole)
	assert.Empty(t, repo.profiles)

	p, err := svc.Provision(context.Background(), "u1", "u1@example.com", shared.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, shared.RoleModerator, p.Role)
}

func TestProvisionKeepsExistingRole(t *testing.T) {
	repo := newMockRepository(Profile{SubjectID: "root", Email: "root@example.com", Role: shared.RoleSuperAdmin})
	svc := newTestService(t, repo)

	p, err := svc.Provision(context.Background(), "root", "other@example.com", shared.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, shared.RoleSuperAdmin, p.Role)
	assert.Equal(t, "root@example.com", p.Email)
	assert.Equal(t, shared.RoleSuperAdmin, repo.profiles["root"].Role)
}
