package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/inkwell/internal/platform/db"
)

// Repository provides persistence for maintenance operations.
type Repository interface {
	CountRows(ctx context.Context, table string) (int64, error)
	DeleteAll(ctx context.Context) (map[string]int64, error)
	InsertDemo(ctx context.Context, posts []DemoPost) (Counts, error)
	LatestPost(ctx context.Context) (*SamplePost, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func knownTable(table string) bool {
	for _, t := range demoTables {
		if t == table {
			return true
		}
	}
	return false
}

func (r *pgRepository) CountRows(ctx context.Context, table string) (int64, error) {
	if !knownTable(table) {
		return 0, fmt.Errorf("admin: unknown table %q", table)
	}
	var n int64
	// table is restricted to demoTables above.
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("admin: count %s: %w", table, err)
	}
	return n, nil
}

// DeleteAll empties the demo tables in one transaction and reports the rows removed.
func (r *pgRepository) DeleteAll(ctx context.Context) (map[string]int64, error) {
	deleted := make(map[string]int64, len(demoTables))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, table := range demoTables {
			tag, err := tx.Exec(ctx, `DELETE FROM `+table)
			if err != nil {
				return fmt.Errorf("admin: delete %s: %w", table, err)
			}
			deleted[table] = tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *pgRepository) InsertDemo(ctx context.Context, posts []DemoPost) (Counts, error) {
	var counts Counts
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range posts {
			batch.Queue(`INSERT INTO demo_posts (id, author_id, title, content, is_published, published_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`, p.ID, p.AuthorID, p.Title, p.Content, p.PublishedAt != nil, p.PublishedAt, p.CreatedAt)
			for _, c := range p.Comments {
				batch.Queue(`INSERT INTO demo_comments (id, post_id, user_id, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
					uuid.New(), p.ID, c.UserID, c.Content, p.CreatedAt)
			}
			for _, userID := range p.LikedBy {
				batch.Queue(`INSERT INTO demo_likes (id, post_id, user_id, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (post_id, user_id) DO NOTHING`, uuid.New(), p.ID, userID, p.CreatedAt)
			}
		}
		results := tx.SendBatch(ctx, batch)
		for _, p := range posts {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("admin: insert post: %w", err)
			}
			counts.Posts++
			for range p.Comments {
				if _, err := results.Exec(); err != nil {
					_ = results.Close()
					return fmt.Errorf("admin: insert comment: %w", err)
				}
				counts.Comments++
			}
			for range p.LikedBy {
				tag, err := results.Exec()
				if err != nil {
					_ = results.Close()
					return fmt.Errorf("admin: insert like: %w", err)
				}
				counts.Likes += int(tag.RowsAffected())
			}
		}
		return results.Close()
	})
	if err != nil {
		return Counts{}, err
	}
	return counts, nil
}

func (r *pgRepository) LatestPost(ctx context.Context) (*SamplePost, error) {
	var s SamplePost
	err := r.pool.QueryRow(ctx, `SELECT id, title, created_at FROM demo_posts ORDER BY created_at DESC LIMIT 1`).
		Scan(&s.ID, &s.Title, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("admin: latest post: %w", err)
	}
	return &s, nil
}
