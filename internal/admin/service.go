package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Generation bounds for Generate.
const (
	MinGenerateCount     = 1
	MaxGenerateCount     = 20
	DefaultGenerateCount = 3
)

// Demo readers own the seeded comments and likes so that likes stay unique per user.
var demoReaders = []string{"demo-reader-1", "demo-reader-2"}

// Enqueuer schedules background demo generation.
type Enqueuer interface {
	EnqueueDemoGenerate(ctx context.Context, count int, requestedBy string) (string, error)
}

// Invalidator drops cached read models after bulk writes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Pinger probes a dependency.
type Pinger func(ctx context.Context) error

// Options wires optional collaborators.
type Options struct {
	Enqueuer    Enqueuer
	Invalidator Invalidator
	RedisPing   Pinger
	Environment map[string]bool
	Logger      *slog.Logger
}

// Service implements maintenance operations over the demo tables.
type Service struct {
	repo  Repository
	opts  Options
	now   func() time.Time
	newID func() uuid.UUID
}

// NewService builds a Service.
func NewService(repo Repository, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{repo: repo, opts: opts, now: time.Now, newID: uuid.New}
}

// Reset removes every demo like, comment and post.
func (s *Service) Reset(ctx context.Context, actor shared.Identity) (map[string]int64, error) {
	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.opts.Logger.Warn("demo data reset", slog.String("actor", actor.SubjectID), slog.Any("deleted", deleted))
	return deleted, nil
}

// Seed inserts one published post and one draft. The published post gets two
// comments and two likes.
func (s *Service) Seed(ctx context.Context, actor shared.Identity) (Counts, error) {
	now := s.now().UTC()
	published := s.post(actor.SubjectID, "Hello Inkwell", "First seeded article", now, true)
	published.Comments = []DemoComment{
		{UserID: demoReaders[0], Content: "Great article!"},
		{UserID: demoReaders[1], Content: "Thanks for the info"},
	}
	published.LikedBy = demoReaders
	draft := s.post(actor.SubjectID, "Draft awaiting review", "Content to publish later", now, false)

	counts, err := s.repo.InsertDemo(ctx, []DemoPost{published, draft})
	if err != nil {
		return Counts{}, err
	}
	s.invalidate(ctx)
	return counts, nil
}

// ValidateCount checks a requested generation size.
func ValidateCount(count int) error {
	if count < MinGenerateCount || count > MaxGenerateCount {
		return &shared.ValidationError{
			Code:    "INVALID_COUNT",
			Message: fmt.Sprintf("count must be between %d and %d", MinGenerateCount, MaxGenerateCount),
			Fields:  map[string]string{"count": fmt.Sprintf("provided %d", count)},
		}
	}
	return nil
}

// Generate inserts count posts, alternating published and draft, each with
// two comments and two likes.
func (s *Service) Generate(ctx context.Context, author string, count int) (Counts, error) {
	if err := ValidateCount(count); err != nil {
		return Counts{}, err
	}
	now := s.now().UTC()
	stamp := now.Unix()
	posts := make([]DemoPost, 0, count)
	for i := 0; i < count; i++ {
		p := s.post(author,
			fmt.Sprintf("Post %d - %d", i+1, stamp),
			fmt.Sprintf("Generated content #%d created at %s", i+1, now.Format(time.RFC1123)),
			now, i%2 == 0)
		p.Comments = []DemoComment{
			{UserID: demoReaders[0], Content: "Automatic comment 1"},
			{UserID: demoReaders[1], Content: "Automatic comment 2"},
		}
		p.LikedBy = demoReaders
		posts = append(posts, p)
	}
	counts, err := s.repo.InsertDemo(ctx, posts)
	if err != nil {
		return Counts{}, err
	}
	s.invalidate(ctx)
	return counts, nil
}

// GenerateAsync validates count and hands generation to the job queue.
func (s *Service) GenerateAsync(ctx context.Context, author string, count int) (string, error) {
	if err := ValidateCount(count); err != nil {
		return "", err
	}
	if s.opts.Enqueuer == nil {
		return "", fmt.Errorf("admin: job queue not configured")
	}
	return s.opts.Enqueuer.EnqueueDemoGenerate(ctx, count, author)
}

// Diagnostics gathers table counts, the newest post, redis reachability and
// configuration presence. Individual probe failures are reported, not returned.
func (s *Service) Diagnostics(ctx context.Context) (Diagnostics, error) {
	out := Diagnostics{
		Database:    DatabaseStatus{Connected: true, Tables: make(map[string]TableStat, len(demoTables))},
		Environment: s.opts.Environment,
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, table := range demoTables {
		table := table
		g.Go(func() error {
			n, err := s.repo.CountRows(gctx, table)
			stat := TableStat{Status: "ok"}
			if err != nil {
				stat = TableStat{Status: "error", Error: err.Error()}
			} else {
				stat.Count = &n
			}
			mu.Lock()
			out.Database.Tables[table] = stat
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		sample, err := s.repo.LatestPost(gctx)
		if err != nil {
			s.opts.Logger.Warn("diagnostics sample", slog.Any("error", err))
			return nil
		}
		mu.Lock()
		out.Sample = sample
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		state := DependencyState{}
		if s.opts.RedisPing == nil {
			state.Error = "not configured"
		} else if err := s.opts.RedisPing(gctx); err != nil {
			state.Error = err.Error()
		} else {
			state.Connected = true
		}
		mu.Lock()
		out.Redis = state
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return Diagnostics{}, err
	}
	for _, stat := range out.Database.Tables {
		if stat.Status != "ok" {
			out.Database.Connected = false
		}
	}
	return out, nil
}

func (s *Service) post(author, title, content string, at time.Time, published bool) DemoPost {
	p := DemoPost{ID: s.newID(), AuthorID: author, Title: title, Content: content, CreatedAt: at}
	if published {
		ts := at
		p.PublishedAt = &ts
	}
	return p
}

func (s *Service) invalidate(ctx context.Context) {
	if s.opts.Invalidator == nil {
		return
	}
	if err := s.opts.Invalidator.Bump(ctx); err != nil {
		s.opts.Logger.Warn("admin cache bump", slog.Any("error", err))
	}
}
