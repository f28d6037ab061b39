package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

const profileColumns = `subject_id, email, role, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for user_profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindBySubject loads a profile or returns ErrNotFound.
func (r *Repository) FindBySubject(ctx context.Context, subjectID string) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE subject_id = $1`, subjectID)
	p, err := scanProfile(row)
	if err != nil {
		return Profile{}, fmt.Errorf("profiles: find %s: %w", subjectID, err)
	}
	return p, nil
}

// EnsureProfile inserts a profile or returns the existing one untouched.
// Concurrent callers for the same subject observe a single row.
func (r *Repository) EnsureProfile(ctx context.Context, subjectID, email string, role shared.Role) (Profile, error) {
	const q = `INSERT INTO user_profiles (subject_id, email, role)
VALUES ($1, $2, $3)
ON CONFLICT (subject_id) DO UPDATE SET subject_id = EXCLUDED.subject_id
RETURNING ` + profileColumns
	p, err := scanProfile(r.pool.QueryRow(ctx, q, subjectID, email, string(role)))
	if err != nil {
		return Profile{}, fmt.Errorf("profiles: ensure %s: %w", subjectID, err)
	}
	return p, nil
}

// UpsertProfile writes email and role, creating the profile when needed.
func (r *Repository) UpsertProfile(ctx context.Context, subjectID, email string, role shared.Role) (Profile, error) {
	const q = `INSERT INTO user_profiles (subject_id, email, role)
VALUES ($1, $2, $3)
ON CONFLICT (subject_id) DO UPDATE SET email = EXCLUDED.email, role = EXCLUDED.role, updated_at = NOW()
RETURNING ` + profileColumns
	p, err := scanProfile(r.pool.QueryRow(ctx, q, subjectID, email, string(role)))
	if err != nil {
		return Profile{}, fmt.Errorf("profiles: upsert %s: %w", subjectID, err)
	}
	return p, nil
}

// UpdateRole changes the role of an existing profile.
func (r *Repository) UpdateRole(ctx context.Context, subjectID string, role shared.Role) (Profile, error) {
	const q = `UPDATE user_profiles SET role = $2, updated_at = NOW() WHERE subject_id = $1 RETURNING ` + profileColumns
	p, err := scanProfile(r.pool.QueryRow(ctx, q, subjectID, string(role)))
	if err != nil {
		return Profile{}, fmt.Errorf("profiles: update role %s: %w", subjectID, err)
	}
	return p, nil
}

// List returns profiles ordered by creation time.
func (r *Repository) List(ctx context.Context, page shared.Pagination) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM user_profiles ORDER BY created_at, subject_id LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("profiles: list: %w", err)
	}
	defer rows.Close()
	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("profiles: list scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profiles: list rows: %w", err)
	}
	return out, nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	var role string
	if err := row.Scan(&p.SubjectID, &p.Email, &role, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	p.Role = shared.Role(role)
	return p, nil
}
