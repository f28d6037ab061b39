package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Resolving is implemented by Resolver.
type Resolving interface {
	Resolve(ctx context.Context, raw string) (shared.Identity, error)
	ResolveOptional(ctx context.Context, raw string) shared.Identity
}

// Middleware attaches resolved identities to request contexts.
type Middleware struct {
	Resolver Resolving
}

// Authenticate requires a valid credential; failures end the request.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.Resolver.Resolve(r.Context(), BearerToken(r))
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
	})
}

// Optional attaches the caller identity when one resolves and the anonymous identity otherwise.
func (m Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.Resolver.ResolveOptional(r.Context(), BearerToken(r))
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
	})
}

// BearerToken extracts the credential from the Authorization header. A header
// without the Bearer scheme yields an empty string.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}
