// Package identity decides whose cart a request acts on and verifies bearer
// tokens against the external identity provider.
package identity

import (
	"strings"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
)

const (
	GuestCartMessage     = "session ID is required for guest cart"
	GuestCheckoutMessage = "session ID is required for guest checkout"
)

// Resolve picks the cart owner for a request. An authenticated principal
// wins over any session ID. Without either, the call fails with guestMsg.
func Resolve(p *domain.Principal, sessionID, guestMsg string) (domain.Owner, error) {
	if p != nil && p.UserID != "" {
		return domain.Owner{UserID: p.UserID}, nil
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Owner{}, apperr.InvalidRequest("%s", guestMsg)
	}
	return domain.Owner{SessionID: sessionID}, nil
}
