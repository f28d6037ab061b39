package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/inkwell/internal/platform/db"
)

// ErrNotFound indicates a missing post, comment or like.
var ErrNotFound = errors.New("posts: not found")

const foreignKeyViolation = "23503"

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
	ListPosts(ctx context.Context, req ListPostsRequest) ([]Post, int, error)
	CreatePost(ctx context.Context, post Post) error
	UpdatePost(ctx context.Context, id uuid.UUID, title, content *string, at time.Time) (*Post, error)
	PublishPost(ctx context.Context, id uuid.UUID, at time.Time) (*Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) (int64, error)

	ListComments(ctx context.Context, postID uuid.UUID) ([]Comment, error)
	GetComment(ctx context.Context, postID, id uuid.UUID) (*Comment, error)
	CreateComment(ctx context.Context, c Comment) error
	DeleteComment(ctx context.Context, id uuid.UUID) (int64, error)

	ListLikes(ctx context.Context, postID uuid.UUID) ([]Like, error)
	CountLikes(ctx context.Context, postID uuid.UUID) (int, error)
	GetLike(ctx context.Context, postID, id uuid.UUID) (*Like, error)
	CreateLike(ctx context.Context, l Like) (*Like, error)
	DeleteLike(ctx context.Context, id uuid.UUID) (int64, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const postColumns = `id, author_id, title, content, is_published, published_at, created_at, updated_at`

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.IsPublished, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	return scanPost(r.db.QueryRow(ctx, `SELECT `+postColumns+` FROM demo_posts WHERE id = $1`, id))
}

func (r *repository) ListPosts(ctx context.Context, req ListPostsRequest) ([]Post, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.PublishedOnly {
		conditions = append(conditions, "is_published = TRUE")
	}
	if req.Query != "" {
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", argPos))
		args = append(args, "%"+escapeLike(req.Query)+"%")
		argPos++
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM demo_posts "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("posts: count: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM demo_posts %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d",
		postColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Page.Limit, req.Page.Offset)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("posts: list: %w", err)
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("posts: list scan: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repository) CreatePost(ctx context.Context, p Post) error {
	_, err := r.db.Exec(ctx, `INSERT INTO demo_posts (id, author_id, title, content, is_published, published_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.AuthorID, p.Title, p.Content, p.IsPublished, p.PublishedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("posts: create: %w", err)
	}
	return nil
}

func (r *repository) UpdatePost(ctx context.Context, id uuid.UUID, title, content *string, at time.Time) (*Post, error) {
	return scanPost(r.db.QueryRow(ctx, `UPDATE demo_posts
SET title = COALESCE($2, title), content = COALESCE($3, content), updated_at = $4
WHERE id = $1
RETURNING `+postColumns, id, title, content, at))
}

func (r *repository) PublishPost(ctx context.Context, id uuid.UUID, at time.Time) (*Post, error) {
	return scanPost(r.db.QueryRow(ctx, `UPDATE demo_posts
SET is_published = TRUE, published_at = COALESCE(published_at, $2), updated_at = $2
WHERE id = $1
RETURNING `+postColumns, id, at))
}

// DeletePost removes likes, then comments, then the post. Callers wrap it in WithTx.
func (r *repository) DeletePost(ctx context.Context, id uuid.UUID) (int64, error) {
	if _, err := r.db.Exec(ctx, `DELETE FROM demo_likes WHERE post_id = $1`, id); err != nil {
		return 0, fmt.Errorf("posts: delete likes: %w", err)
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM demo_comments WHERE post_id = $1`, id); err != nil {
		return 0, fmt.Errorf("posts: delete comments: %w", err)
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM demo_posts WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("posts: delete post: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) ListComments(ctx context.Context, postID uuid.UUID) ([]Comment, error) {
	rows, err := r.db.Query(ctx, `SELECT id, post_id, user_id, content, created_at FROM demo_comments WHERE post_id = $1 ORDER BY created_at, id`, postID)
	if err != nil {
		return nil, fmt.Errorf("posts: list comments: %w", err)
	}
	defer rows.Close()
	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) GetComment(ctx context.Context, postID, id uuid.UUID) (*Comment, error) {
	var c Comment
	err := r.db.QueryRow(ctx, `SELECT id, post_id, user_id, content, created_at FROM demo_comments WHERE id = $1 AND post_id = $2`, id, postID).
		Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) CreateComment(ctx context.Context, c Comment) error {
	_, err := r.db.Exec(ctx, `INSERT INTO demo_comments (id, post_id, user_id, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.PostID, c.UserID, c.Content, c.CreatedAt)
	return mapWriteError("create comment", err)
}

func (r *repository) DeleteComment(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM demo_comments WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("posts: delete comment: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) ListLikes(ctx context.Context, postID uuid.UUID) ([]Like, error) {
	rows, err := r.db.Query(ctx, `SELECT id, post_id, user_id, created_at FROM demo_likes WHERE post_id = $1 ORDER BY created_at, id`, postID)
	if err != nil {
		return nil, fmt.Errorf("posts: list likes: %w", err)
	}
	defer rows.Close()
	var out []Like
	for rows.Next() {
		var l Like
		if err := rows.Scan(&l.ID, &l.PostID, &l.UserID, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) CountLikes(ctx context.Context, postID uuid.UUID) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM demo_likes WHERE post_id = $1`, postID).Scan(&n); err != nil {
		return 0, fmt.Errorf("posts: count likes: %w", err)
	}
	return n, nil
}

func (r *repository) GetLike(ctx context.Context, postID, id uuid.UUID) (*Like, error) {
	var l Like
	err := r.db.QueryRow(ctx, `SELECT id, post_id, user_id, created_at FROM demo_likes WHERE id = $1 AND post_id = $2`, id, postID).
		Scan(&l.ID, &l.PostID, &l.UserID, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLike is idempotent per (post, user): a repeated like returns the existing row.
func (r *repository) CreateLike(ctx context.Context, l Like) (*Like, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO demo_likes (id, post_id, user_id, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (post_id, user_id) DO UPDATE SET post_id = EXCLUDED.post_id
RETURNING id, created_at`, l.ID, l.PostID, l.UserID, l.CreatedAt).Scan(&l.ID, &l.CreatedAt)
	if err := mapWriteError("create like", err); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) DeleteLike(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM demo_likes WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("posts: delete like: %w", err)
	}
	return tag.RowsAffected(), nil
}

func mapWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return ErrNotFound
	}
	return fmt.Errorf("posts: %s: %w", op, err)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
