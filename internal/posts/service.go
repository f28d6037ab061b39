package posts

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-blog/inkwell/internal/platform/cache"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Authorizer decides ownership-aware mutations.
type Authorizer interface {
	CanModify(role shared.Role, actorID, ownerID, action, kind string) bool
	Authorize(id shared.Identity, ownerID, action, kind string) error
	HasMinimumRole(role, minimum shared.Role) bool
}

// Service implements post, comment and like use cases. Mutations on existing
// resources always fetch first, report NotFound, then authorize.
type Service struct {
	repo   Repository
	authz  Authorizer
	cache  *cache.Versioned
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the repository with an authorizer and an optional cache.
func NewService(repo Repository, authz Authorizer, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, authz: authz, cache: c, logger: logger, now: time.Now}
}

var (
	errPostNotFound    = shared.NewAuthError(shared.KindNotFound, "Post not found", nil)
	errCommentNotFound = shared.NewAuthError(shared.KindNotFound, "Comment not found", nil)
	errLikeNotFound    = shared.NewAuthError(shared.KindNotFound, "Like not found", nil)
)

type postPage struct {
	Posts []Post `json:"posts"`
	Total int    `json:"total"`
}

// List returns a page of posts matching req.
func (s *Service) List(ctx context.Context, req ListPostsRequest) ([]Post, int, error) {
	key, err := s.cache.BuildKey(ctx, "list", strconv.FormatBool(req.PublishedOnly), req.Query,
		strconv.Itoa(req.Page.Limit), strconv.Itoa(req.Page.Offset))
	if err != nil {
		s.logger.Warn("posts cache key", slog.Any("error", err))
		return s.repo.ListPosts(ctx, req)
	}
	var page postPage
	err = s.cache.FetchJSON(ctx, key, &page, func(ctx context.Context) (any, error) {
		items, total, err := s.repo.ListPosts(ctx, req)
		if err != nil {
			return nil, err
		}
		return postPage{Posts: items, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return page.Posts, page.Total, nil
}

// Get returns a post with the viewer's affordances.
func (s *Service) Get(ctx context.Context, viewer shared.Identity, id uuid.UUID) (PostView, error) {
	post, err := s.fetchPost(ctx, id)
	if err != nil {
		return PostView{}, err
	}
	return PostView{Post: *post, Viewer: s.affordances(viewer, post)}, nil
}

// Create stores a draft post owned by actor.
func (s *Service) Create(ctx context.Context, actor shared.Identity, req CreatePostRequest) (*Post, error) {
	now := s.now().UTC()
	post := Post{
		ID:        uuid.New(),
		AuthorID:  actor.SubjectID,
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &post, nil
}

// Update edits title and/or content subject to posts:update ownership rules.
func (s *Service) Update(ctx context.Context, actor shared.Identity, id uuid.UUID, req UpdatePostRequest) (*Post, error) {
	if req.Empty() {
		return nil, shared.NewValidationError("", "title or content must be provided")
	}
	post, err := s.fetchPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, post.AuthorID, shared.ActionUpdate, shared.KindPosts); err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdatePost(ctx, id, req.Title, req.Content, s.now().UTC())
	if errors.Is(err, ErrNotFound) {
		return nil, errPostNotFound
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Publish marks a post as published. Access is gated by minimum role, not ownership.
func (s *Service) Publish(ctx context.Context, id uuid.UUID) (*Post, error) {
	if _, err := s.fetchPost(ctx, id); err != nil {
		return nil, err
	}
	post, err := s.repo.PublishPost(ctx, id, s.now().UTC())
	if errors.Is(err, ErrNotFound) {
		return nil, errPostNotFound
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return post, nil
}

// Delete removes a post with its likes and comments. A post that vanished
// between fetch and delete counts as deleted.
func (s *Service) Delete(ctx context.Context, actor shared.Identity, id uuid.UUID) error {
	post, err := s.fetchPost(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(actor, post.AuthorID, shared.ActionDelete, shared.KindPosts); err != nil {
		return err
	}
	var affected int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		n, err := tx.DeletePost(ctx, id)
		affected = n
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		s.logger.Info("post already deleted", slog.String("post_id", id.String()))
	}
	s.invalidate(ctx)
	return nil
}

// ListComments returns the comments of an existing post.
func (s *Service) ListComments(ctx context.Context, postID uuid.UUID) ([]Comment, error) {
	if _, err := s.fetchPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, postID)
}

// CreateComment adds a comment owned by actor.
func (s *Service) CreateComment(ctx context.Context, actor shared.Identity, postID uuid.UUID, req CreateCommentRequest) (*Comment, error) {
	if _, err := s.fetchPost(ctx, postID); err != nil {
		return nil, err
	}
	c := Comment{ID: uuid.New(), PostID: postID, UserID: actor.SubjectID, Content: req.Content, CreatedAt: s.now().UTC()}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errPostNotFound
		}
		return nil, err
	}
	return &c, nil
}

// DeleteComment removes a comment subject to comments:delete ownership rules.
func (s *Service) DeleteComment(ctx context.Context, actor shared.Identity, postID, commentID uuid.UUID) error {
	c, err := s.repo.GetComment(ctx, postID, commentID)
	if errors.Is(err, ErrNotFound) {
		return errCommentNotFound
	}
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(actor, c.UserID, shared.ActionDelete, shared.KindComments); err != nil {
		return err
	}
	_, err = s.repo.DeleteComment(ctx, commentID)
	return err
}

// ListLikes returns the likes of an existing post.
func (s *Service) ListLikes(ctx context.Context, postID uuid.UUID) ([]Like, error) {
	if _, err := s.fetchPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.repo.ListLikes(ctx, postID)
}

// CountLikes returns the number of likes on an existing post.
func (s *Service) CountLikes(ctx context.Context, postID uuid.UUID) (int, error) {
	if _, err := s.fetchPost(ctx, postID); err != nil {
		return 0, err
	}
	key, err := s.cache.BuildKey(ctx, "likes", postID.String())
	if err != nil {
		s.logger.Warn("posts cache key", slog.Any("error", err))
		return s.repo.CountLikes(ctx, postID)
	}
	var count int
	err = s.cache.FetchJSON(ctx, key, &count, func(ctx context.Context) (any, error) {
		return s.repo.CountLikes(ctx, postID)
	})
	return count, err
}

// CreateLike records actor's like on a post.
func (s *Service) CreateLike(ctx context.Context, actor shared.Identity, postID uuid.UUID) (*Like, error) {
	if _, err := s.fetchPost(ctx, postID); err != nil {
		return nil, err
	}
	like, err := s.repo.CreateLike(ctx, Like{ID: uuid.New(), PostID: postID, UserID: actor.SubjectID, CreatedAt: s.now().UTC()})
	if errors.Is(err, ErrNotFound) {
		return nil, errPostNotFound
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return like, nil
}

// DeleteLike removes a like subject to likes:delete ownership rules.
func (s *Service) DeleteLike(ctx context.Context, actor shared.Identity, postID, likeID uuid.UUID) error {
	l, err := s.repo.GetLike(ctx, postID, likeID)
	if errors.Is(err, ErrNotFound) {
		return errLikeNotFound
	}
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(actor, l.UserID, shared.ActionDelete, shared.KindLikes); err != nil {
		return err
	}
	if _, err := s.repo.DeleteLike(ctx, likeID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) fetchPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	post, err := s.repo.GetPost(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, errPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Service) affordances(viewer shared.Identity, post *Post) Affordances {
	return Affordances{
		CanUpdate:  s.authz.CanModify(viewer.Role, viewer.SubjectID, post.AuthorID, shared.ActionUpdate, shared.KindPosts),
		CanDelete:  s.authz.CanModify(viewer.Role, viewer.SubjectID, post.AuthorID, shared.ActionDelete, shared.KindPosts),
		CanPublish: viewer.Authenticated() && !post.IsPublished && s.authz.HasMinimumRole(viewer.Role, shared.RoleModerator),
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("posts cache bump", slog.Any("error", err))
	}
}
