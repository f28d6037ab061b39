package profiles

import (
	"context"
	"errors"
	"log/slog"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

// RepositoryPort defines data access methods for profiles.
type RepositoryPort interface {
	FindBySubject(ctx context.Context, subjectID string) (Profile, error)
	EnsureProfile(ctx context.Context, subjectID, email string, role shared.Role) (Profile, error)
	UpdateRole(ctx context.Context, subjectID string, role shared.Role) (Profile, error)
	List(ctx context.Context, page shared.Pagination) ([]Profile, error)
}

// RoleCatalog is the part of the role registry the service consults.
type RoleCatalog interface {
	IsKnownRole(role shared.Role) bool
	TopRole() shared.Role
	Roles() []shared.Role
}

// Service handles profile business logic.
type Service struct {
	repo   RepositoryPort
	roles  RoleCatalog
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roles RoleCatalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, roles: roles, logger: logger}
}

// Get returns the profile of subjectID.
func (s *Service) Get(ctx context.Context, subjectID string) (Profile, error) {
	p, err := s.repo.FindBySubject(ctx, subjectID)
	if errors.Is(err, ErrNotFound) {
		return Profile{}, shared.NewAuthError(shared.KindNotFound, "Profile not found", nil)
	}
	return p, err
}

// List returns a page of profiles.
func (s *Service) List(ctx context.Context, page shared.Pagination) ([]Profile, error) {
	return s.repo.List(ctx, page)
}

// SetRole changes the role of target. A caller below the top role may not
// change their own role.
func (s *Service) SetRole(ctx context.Context, actor shared.Identity, target string, newRole shared.Role) (Profile, error) {
	if !s.roles.IsKnownRole(newRole) {
		return Profile{}, s.invalidRole(newRole)
	}
	if actor.SubjectID == target && actor.Role != s.roles.TopRole() {
		return Profile{}, shared.NewAuthError(shared.KindPermissionDenied, "You cannot change your own role", map[string]any{
			"userRole": actor.Role,
		})
	}
	p, err := s.repo.UpdateRole(ctx, target, newRole)
	if errors.Is(err, ErrNotFound) {
		return Profile{}, shared.NewAuthError(shared.KindNotFound, "Profile not found", nil)
	}
	if err != nil {
		return Profile{}, err
	}
	s.logger.Info("profile role changed",
		slog.String("actor", actor.SubjectID),
		slog.String("target", target),
		slog.String("role", newRole.String()))
	return p, nil
}

// Provision creates the profile of subjectID with role when none exists. An
// existing profile is returned untouched, so only SetRole ever changes a
// stored role.
func (s *Service) Provision(ctx context.Context, subjectID, email string, role shared.Role) (Profile, error) {
	if !s.roles.IsKnownRole(role) {
		return Profile{}, s.invalidRole(role)
	}
	return s.repo.EnsureProfile(ctx, subjectID, email, role)
}

func (s *Service) invalidRole(role shared.Role) error {
	return shared.NewAuthError(shared.KindInvalidRole, "Unknown role "+role.String(), map[string]any{
		"allowedRoles": s.roles.Roles(),
	})
}
