package cache

import (
	"context"
	"errors"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
)

// CartCache stores rendered cart views keyed by owner.
//
// Every owner carries a generation that Delete advances. A reader takes the
// generation with Version before loading the cart and hands it back to Set;
// Set drops the write when the generation has moved in between, so a view
// loaded before a mutation never outlives that mutation's Delete.
type CartCache interface {
	Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	Version(ctx context.Context, owner domain.Owner) (int64, error)
	Set(ctx context.Context, owner domain.Owner, cart *domain.Cart, version int64) error
	Delete(ctx context.Context, owner domain.Owner) error
}

var ErrCacheMiss = errors.New("cache miss")

// Noop never hits. It is used when no Redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, domain.Owner) (*domain.Cart, error)      { return nil, ErrCacheMiss }
func (Noop) Version(context.Context, domain.Owner) (int64, error)         { return 0, nil }
func (Noop) Set(context.Context, domain.Owner, *domain.Cart, int64) error { return nil }
func (Noop) Delete(context.Context, domain.Owner) error                   { return nil }
