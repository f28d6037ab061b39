package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/inkwell-blog/inkwell/internal/profiles"
	"github.com/inkwell-blog/inkwell/internal/shared"
	"github.com/inkwell-blog/inkwell/internal/token"
)

// Issuer signs role-less credentials.
type Issuer interface {
	Issue(subject, email string) (token.Issued, error)
}

// ProfileProvisioner creates a profile with a role unless one already exists.
type ProfileProvisioner interface {
	Provision(ctx context.Context, subjectID, email string, role shared.Role) (profiles.Profile, error)
}

// RoleCatalog reports the configured roles.
type RoleCatalog interface {
	IsKnownRole(role shared.Role) bool
	Roles() []shared.Role
}

// Service issues development credentials. The requested role seeds a new
// profile only; an existing subject keeps its stored role, and the credential
// itself never carries one.
type Service struct {
	issuer   Issuer
	profiles ProfileProvisioner
	roles    RoleCatalog
	logger   *slog.Logger
}

// NewService constructs a new Service.
func NewService(issuer Issuer, profiles ProfileProvisioner, roles RoleCatalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{issuer: issuer, profiles: profiles, roles: roles, logger: logger}
}

// TokenRequest is the body accepted by the dev token endpoints. Every field is optional.
type TokenRequest struct {
	UserID string `json:"userId" validate:"omitempty,max=128"`
	Email  string `json:"email" validate:"omitempty,email"`
	Role   string `json:"role"`
}

// Grant is an issued credential together with the identity it resolves to.
type Grant struct {
	Issued token.Issued
	User   shared.Identity
}

// GenerateToken provisions the requested profile and issues a credential for it.
func (s *Service) GenerateToken(ctx context.Context, req TokenRequest) (Grant, error) {
	role := shared.RoleUser
	if strings.TrimSpace(req.Role) != "" {
		role = shared.ParseRole(req.Role)
	}
	if !s.roles.IsKnownRole(role) {
		return Grant{}, shared.NewAuthError(shared.KindInvalidRole,
			"Role must be one of the configured roles",
			map[string]any{"allowedRoles": s.roles.Roles()})
	}
	subject := strings.TrimSpace(req.UserID)
	if subject == "" {
		subject = "dev-" + uuid.NewString()
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = subject + "@example.com"
	}
	return s.grant(ctx, subject, email, role)
}

// GenerateAdminToken is GenerateToken with the admin role.
func (s *Service) GenerateAdminToken(ctx context.Context, req TokenRequest) (Grant, error) {
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "admin-dev"
	}
	if strings.TrimSpace(req.Email) == "" {
		req.Email = "admin@example.com"
	}
	req.Role = string(shared.RoleAdmin)
	return s.GenerateToken(ctx, req)
}

// Refresh issues a new credential for an already resolved identity.
func (s *Service) Refresh(id shared.Identity) (Grant, error) {
	issued, err := s.issuer.Issue(id.SubjectID, id.Email)
	if err != nil {
		return Grant{}, err
	}
	id.IssuedAt = issued.IssuedAt
	id.ExpiresAt = issued.ExpiresAt
	return Grant{Issued: issued, User: id}, nil
}

func (s *Service) grant(ctx context.Context, subject, email string, role shared.Role) (Grant, error) {
	profile, err := s.profiles.Provision(ctx, subject, email, role)
	if err != nil {
		return Grant{}, err
	}
	if profile.Role != role {
		s.logger.Warn("dev token requested role ignored",
			slog.String("subject", profile.SubjectID),
			slog.String("requested", role.String()),
			slog.String("stored", profile.Role.String()))
	}
	issued, err := s.issuer.Issue(profile.SubjectID, profile.Email)
	if err != nil {
		return Grant{}, err
	}
	s.logger.Info("dev token issued", slog.String("subject", profile.SubjectID), slog.String("role", profile.Role.String()))
	return Grant{
		Issued: issued,
		User: shared.Identity{
			SubjectID: profile.SubjectID,
			Email:     profile.Email,
			Role:      profile.Role,
			IssuedAt:  issued.IssuedAt,
			ExpiresAt: issued.ExpiresAt,
		},
	}, nil
}
