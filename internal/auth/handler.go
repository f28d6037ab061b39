package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/inkwell-blog/inkwell/internal/identity"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Handler wires HTTP endpoints for credential flows.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	resolver     identity.Resolving
	authenticate func(http.Handler) http.Handler
	devTokens    bool
	validator    *validator.Validate
	now          func() time.Time
}

// NewHandler constructs a Handler instance. Token generation endpoints answer
// NOT_FOUND unless devTokens is set.
func NewHandler(logger *slog.Logger, service *Service, resolver identity.Resolving, authenticate func(http.Handler) http.Handler, devTokens bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:       logger,
		service:      service,
		resolver:     resolver,
		authenticate: authenticate,
		devTokens:    devTokens,
		validator:    validator.New(),
		now:          time.Now,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/generate-token", h.generateToken)
	r.Post("/generate-admin-token", h.generateAdminToken)
	r.Get("/verify", h.verify)
	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/me", h.me)
		r.Post("/logout", h.logout)
		r.Post("/refresh", h.refresh)
	})
}

type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
	ExpiresAt   time.Time       `json:"expires_at"`
	User        shared.Identity `json:"user"`
}

func newTokenResponse(g Grant) tokenResponse {
	return tokenResponse{
		AccessToken: g.Issued.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(g.Issued.ExpiresAt.Sub(g.Issued.IssuedAt) / time.Second),
		ExpiresAt:   g.Issued.ExpiresAt,
		User:        g.User,
	}
}

func (h *Handler) generateToken(w http.ResponseWriter, r *http.Request) {
	req, ok := h.tokenRequest(w, r)
	if !ok {
		return
	}
	grant, err := h.service.GenerateToken(r.Context(), req)
	if err != nil {
		h.fail(w, "generate token", err)
		return
	}
	httpx.OK(w, http.StatusOK, newTokenResponse(grant))
}

func (h *Handler) generateAdminToken(w http.ResponseWriter, r *http.Request) {
	req, ok := h.tokenRequest(w, r)
	if !ok {
		return
	}
	grant, err := h.service.GenerateAdminToken(r.Context(), req)
	if err != nil {
		h.fail(w, "generate admin token", err)
		return
	}
	httpx.OK(w, http.StatusOK, newTokenResponse(grant))
}

// tokenRequest gates dev issuance and decodes an optional body.
func (h *Handler) tokenRequest(w http.ResponseWriter, r *http.Request) (TokenRequest, bool) {
	var req TokenRequest
	if !h.devTokens {
		httpx.RespondError(w, shared.NewAuthError(shared.KindNotFound, "Development token issuance is disabled", nil))
		return req, false
	}
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return req, false
		}
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return req, false
	}
	return req, true
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolver.Resolve(r.Context(), identity.BearerToken(r))
	if err != nil {
		h.fail(w, "verify token", err)
		return
	}
	remaining := id.ExpiresAt.Sub(h.now())
	if remaining < 0 {
		remaining = 0
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"valid":     true,
		"user":      id,
		"expiresAt": id.ExpiresAt,
		"expiresIn": int64(remaining / time.Second),
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	httpx.OK(w, http.StatusOK, map[string]any{"user": id})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, http.StatusOK, map[string]any{
		"message":      "Logged out",
		"instructions": "The token stays valid until it expires. Remove it from client storage.",
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	grant, err := h.service.Refresh(id)
	if err != nil {
		h.fail(w, "refresh token", err)
		return
	}
	httpx.OK(w, http.StatusOK, newTokenResponse(grant))
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var authErr *shared.AuthError
	if !errors.As(err, &authErr) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
