package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

type Authenticator struct {
	verifier Verifier
	profiles store.ProfileRepository
	logger   *slog.Logger
}

func NewAuthenticator(verifier Verifier, profiles store.ProfileRepository, logger *slog.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, profiles: profiles, logger: logger}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate turns a bearer token into a principal. The caller's local
// profile supplies the role and must be active.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	if token == "" {
		return nil, apperr.Unauthorized("authentication required")
	}

	user, err := a.verifier.Verify(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrInvalidToken) {
			a.logger.Warn("token verification failed", "error", err)
		}
		return nil, apperr.Unauthorized("invalid or expired token")
	}

	profile, err := a.profiles.Get(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Forbidden("no profile exists for this account")
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile.Status != domain.ProfileActive {
		return nil, apperr.Forbidden("your account is not active")
	}

	email := user.Email
	if email == "" {
		email = profile.Email
	}
	return &domain.Principal{UserID: user.ID, Email: email, Role: profile.Role}, nil
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated caller, or nil for anonymous
// requests.
func PrincipalFrom(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalKey{}).(*domain.Principal)
	return p
}
