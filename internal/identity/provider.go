package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrInvalidToken is returned when the provider rejects a token.
var ErrInvalidToken = errors.New("invalid or expired token")

// User is the identity the provider reports for a valid token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verifier checks a bearer token with the identity provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// Provider verifies tokens against a Supabase-style auth endpoint. Calls go
// through a circuit breaker that opens after repeated transport or server
// failures. Rejected tokens do not count as failures.
type Provider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*User]
}

func NewProvider(baseURL, apiKey string, client *http.Client) *Provider {
	settings := gobreaker.Settings{
		Name:        "identity-provider",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrInvalidToken)
		},
	}

	return &Provider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[*User](settings),
	}
}

func (p *Provider) Verify(ctx context.Context, token string) (*User, error) {
	return p.breaker.Execute(func() (*User, error) {
		return p.fetchUser(ctx, token)
	})
}

func (p *Provider) fetchUser(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call identity provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if u.ID == "" {
		return nil, ErrInvalidToken
	}
	return &u, nil
}
