package posts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Handler exposes post, comment and like endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	authenticate func(http.Handler) http.Handler
	optional     func(http.Handler) http.Handler
	rbac         rbac.Middleware
	validator    *validator.Validate
}

// NewHandler constructs the posts handler.
func NewHandler(logger *slog.Logger, service *Service, authenticate, optional func(http.Handler) http.Handler, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:       logger,
		service:      service,
		authenticate: authenticate,
		optional:     optional,
		rbac:         rbac,
		validator:    validator.New(),
	}
}

// MountRoutes registers post routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.optional)
		r.Get("/", h.list)
		r.Get("/{postID}", h.get)
		r.Get("/{postID}/comments", h.listComments)
		r.Get("/{postID}/likes", h.listLikes)
		r.Get("/{postID}/likes-count", h.countLikes)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.With(h.rbac.RequirePermission(shared.PermPostsCreate)).Post("/", h.create)
		r.Patch("/{postID}", h.update)
		r.With(h.rbac.RequireMinimumRole(shared.RoleModerator)).Patch("/{postID}/publish", h.publish)
		r.Delete("/{postID}", h.delete)
		r.With(h.rbac.RequirePermission(shared.PermCommentsCreate)).Post("/{postID}/comments", h.createComment)
		r.Delete("/{postID}/comments/{commentID}", h.deleteComment)
		r.With(h.rbac.RequirePermission(shared.PermLikesCreate)).Post("/{postID}/likes", h.createLike)
		r.Delete("/{postID}/likes/{likeID}", h.deleteLike)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.fail(w, "list posts", err)
		return
	}
	if items == nil {
		items = []Post{}
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"posts":      items,
		"total":      total,
		"pagination": req.Page,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "postID", errPostNotFound)
	if !ok {
		return
	}
	view, err := h.service.Get(r.Context(), viewer(r), id)
	if err != nil {
		h.fail(w, "get post", err)
		return
	}
	httpx.OK(w, http.StatusOK, view)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	post, err := h.service.Create(r.Context(), viewer(r), req)
	if err != nil {
		h.fail(w, "create post", err)
		return
	}
	httpx.OK(w, http.StatusCreated, post)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "postID", errPostNotFound)
	if !ok {
		return
	}
	var req UpdatePostRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	post, err := h.service.Update(r.Context(), viewer(r), id, req)
	if err != nil {
		h.fail(w, "update post", err)
		return
	}
	httpx.OK(w, http.StatusOK, post)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "postID", errPostNotFound)
	if !ok {
		return
	}
	post, err := h.service.Publish(r.Context(), id)
	if err != nil {
		h.fail(w, "publish post", err)
		return
	}
	httpx.OK(w, http.StatusOK, post)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "postID", errPostNotFound)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), viewer(r), id); err != nil {
		h.fail(w, "delete post", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "postID", errPostNotFound)
	if !ok {
		return
	}
	items, err := h.service.ListComments(r.Context(), postID)
	if err != nil {
		h.fail(w, "list comments", err)
		return
	}
	if items == nil {
		items = []Comment{}
	}
	httpx.OK(w, http.StatusOK, items)
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "postID", errPostNotFound)
	if !ok {
		return
	}
	var req CreateCommentRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.CreateComment(r.Context(), viewer(r), postID, req)
	if err != nil {
		h.fail(w, "create comment", err)
		return
	}
	httpx.OK(w, http.StatusCreated, c)
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "postID", errPostNotFound)
	if !ok {
		return
	}
	commentID, ok := h.pathID(w, r, "commentID", errCommentNotFound)
	if !ok {
		return
	}
	if err := h.service.DeleteComment(r.Context(), viewer(r), postID, commentID); err != nil {
		h.fail(w, "delete comment", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": commentID, "deleted": true})
}

func (h *Handler) listLikes(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "postID", errPostNotFound)
	if !ok {
		return
	}
	items, err := h.service.ListLikes(r.Context(), postID)
	if err != nil {
		h.fail(w, "list likes", err)
		return
	}
	if items == nil {
		items = []Like{}
	}
	httpx.OK(w, http.StatusOK, items)
}

func (h *Handler) countLikes(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "postID", errPostNotFound)
	if !ok {
		return
	}
	n, err := h.service.CountLikes(r.Context(), postID)
	if err != nil {
		h.fail(w, "count likes", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"postId": postID, "count": n})
}

func (h *Handler) createLike(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "postID", errPostNotFound)
	if !ok {
		return
	}
	like, err := h.service.CreateLike(r.Context(), viewer(r), postID)
	if err != nil {
		h.fail(w, "create like", err)
		return
	}
	httpx.OK(w, http.StatusCreated, like)
}

func (h *Handler) deleteLike(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "postID", errPostNotFound)
	if !ok {
		return
	}
	likeID, ok := h.pathID(w, r, "likeID", errLikeNotFound)
	if !ok {
		return
	}
	if err := h.service.DeleteLike(r.Context(), viewer(r), postID, likeID); err != nil {
		h.fail(w, "delete like", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": likeID, "deleted": true})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := httpx.DecodeJSON(r, dest); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

// pathID parses a UUID path parameter. Malformed identifiers cannot name an
// existing resource, so they are reported as notFound.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string, notFound error) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.RespondError(w, notFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var authErr *shared.AuthError
	var validationErr *shared.ValidationError
	if !errors.As(err, &authErr) && !errors.As(err, &validationErr) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func viewer(r *http.Request) shared.Identity {
	if id, ok := shared.IdentityFromContext(r.Context()); ok {
		return id
	}
	return shared.Anonymous()
}

func parseListRequest(r *http.Request) (ListPostsRequest, error) {
	q := r.URL.Query()
	req := ListPostsRequest{Page: shared.PaginationFromQuery(q)}
	if raw := q.Get("is_published"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return req, shared.NewValidationError("VALIDATION_ERROR", "is_published must be a boolean")
		}
		req.PublishedOnly = v
	}
	if raw := strings.TrimSpace(q.Get("q")); raw != "" {
		if utf8.RuneCountInString(raw) < 2 {
			return req, shared.NewValidationError("VALIDATION_ERROR", "q must be at least 2 characters")
		}
		req.Query = cleanText(raw)
	}
	return req, nil
}
