// Package identity turns bearer credentials into request identities whose role
// is always read from the profile store.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/inkwell-blog/inkwell/internal/profiles"
	"github.com/inkwell-blog/inkwell/internal/shared"
	"github.com/inkwell-blog/inkwell/internal/token"
)

// Verifier validates a raw credential and returns its claims.
type Verifier interface {
	Verify(raw string) (token.Claims, error)
}

// ProfileStore is the subset of the profile repository the resolver needs.
type ProfileStore interface {
	FindBySubject(ctx context.Context, subjectID string) (profiles.Profile, error)
	EnsureProfile(ctx context.Context, subjectID, email string, role shared.Role) (profiles.Profile, error)
}

// Resolver resolves credentials into identities.
type Resolver struct {
	verifier     Verifier
	store        ProfileStore
	defaultRole  shared.Role
	storeTimeout time.Duration
	logger       *slog.Logger
	group        singleflight.Group
}

// Options tunes a Resolver.
type Options struct {
	DefaultRole  shared.Role
	StoreTimeout time.Duration
	Logger       *slog.Logger
}

// NewResolver builds a Resolver.
func NewResolver(verifier Verifier, store ProfileStore, opts Options) *Resolver {
	if opts.DefaultRole == "" {
		opts.DefaultRole = shared.RoleUser
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 3 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Resolver{
		verifier:     verifier,
		store:        store,
		defaultRole:  opts.DefaultRole,
		storeTimeout: opts.StoreTimeout,
		logger:       opts.Logger,
	}
}

// Resolve verifies raw and loads the subject's current role, provisioning a
// profile with the default role when none exists.
func (r *Resolver) Resolve(ctx context.Context, raw string) (shared.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return shared.Identity{}, shared.NewAuthError(shared.KindCredentialMissing, "Access token required", nil)
	}
	claims, err := r.verifier.Verify(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return shared.Identity{}, shared.NewAuthError(shared.KindCredentialExpired, "Access token has expired", nil)
		}
		return shared.Identity{}, shared.WrapAuthError(shared.KindCredentialInvalid, "Invalid access token", err)
	}

	profile, err := r.lookup(ctx, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, profiles.ErrNotFound):
		profile, err = r.provision(ctx, claims)
		if err != nil {
			return shared.Identity{}, err
		}
	default:
		r.logger.Error("identity profile lookup", slog.String("subject", claims.Subject), slog.Any("error", err))
		return shared.Identity{}, shared.WrapAuthError(shared.KindAuthUnavailable, "Profile store unavailable", err)
	}

	email := profile.Email
	if email == "" {
		email = claims.Email
	}
	id := shared.Identity{SubjectID: claims.Subject, Email: email, Role: profile.Role}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// ResolveOptional never fails: any resolution error yields the anonymous identity.
func (r *Resolver) ResolveOptional(ctx context.Context, raw string) shared.Identity {
	if strings.TrimSpace(raw) == "" {
		return shared.Anonymous()
	}
	id, err := r.Resolve(ctx, raw)
	if err != nil {
		r.logger.Debug("optional identity fell back to guest", slog.Any("error", err))
		return shared.Anonymous()
	}
	return id
}

func (r *Resolver) lookup(ctx context.Context, subject string) (profiles.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	return r.store.FindBySubject(ctx, subject)
}

func (r *Resolver) provision(ctx context.Context, claims token.Claims) (profiles.Profile, error) {
	email := claims.Email
	if email == "" {
		email = claims.Subject + "@users.invalid"
	}
	v, err, _ := r.group.Do(claims.Subject, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.storeTimeout)
		defer cancel()
		return r.store.EnsureProfile(ctx, claims.Subject, email, r.defaultRole)
	})
	if err != nil {
		r.logger.Error("identity provision profile", slog.String("subject", claims.Subject), slog.Any("error", err))
		return profiles.Profile{}, shared.WrapAuthError(shared.KindProfileProvisioningFailed,
			"User profile could not be created", fmt.Errorf("identity: provision: %w", err))
	}
	r.logger.Info("provisioned profile", slog.String("subject", claims.Subject), slog.String("role", r.defaultRole.String()))
	return v.(profiles.Profile), nil
}
