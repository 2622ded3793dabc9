package httpapi

import (
	"context"
	"net/http"
	"slices"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/identity"
)

// Authenticator is satisfied by *identity.Authenticator.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Principal, error)
}

// requireAuth rejects requests without a valid bearer token.
func (h *handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.auth.Authenticate(r.Context(), identity.BearerToken(r.Header.Get("Authorization")))
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
	})
}

// optionalAuth attaches a principal when the token checks out and otherwise
// lets the request through anonymously.
func (h *handlers) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := identity.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			h.logger.Debug("continuing anonymously", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
	})
}

// authorize must run after requireAuth.
func (h *handlers) authorize(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := identity.PrincipalFrom(r.Context())
			if p == nil {
				h.writeErr(w, r, apperr.Unauthorized("authentication required"))
				return
			}
			if !slices.Contains(roles, p.Role) {
				h.writeErr(w, r, apperr.Forbidden("you do not have permission to perform this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// owner resolves whose cart the request targets. The session id may come
// from the body, the query string or the X-Session-ID header, in that order.
func owner(r *http.Request, bodySession, guestMsg string) (domain.Owner, error) {
	session := bodySession
	if session == "" {
		session = r.URL.Query().Get("sessionId")
	}
	if session == "" {
		session = r.Header.Get("X-Session-ID")
	}
	return identity.Resolve(identity.PrincipalFrom(r.Context()), session, guestMsg)
}
