package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/cache"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/patch"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/pricing"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

var tracer = otel.Tracer("cart")

type Service struct {
	products store.ProductRepository
	carts    store.CartRepository
	coupons  store.AppliedCouponRepository
	pricing  *pricing.Engine
	cache    cache.CartCache
	logger   *slog.Logger

	sfg       singleflight.Group
	mutations metric.Int64Counter
}

func NewService(
	products store.ProductRepository,
	carts store.CartRepository,
	coupons store.AppliedCouponRepository,
	cartCache cache.CartCache,
	logger *slog.Logger,
) (*Service, error) {
	mutations, err := otel.Meter("cart").Int64Counter("cart.mutations",
		metric.WithDescription("Cart line item mutations by operation"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cart.mutations counter: %w", err)
	}

	if cartCache == nil {
		cartCache = cache.Noop{}
	}

	return &Service{
		products:  products,
		carts:     carts,
		coupons:   coupons,
		pricing:   pricing.NewEngine(carts, coupons),
		cache:     cartCache,
		logger:    logger,
		mutations: mutations,
	}, nil
}

type AddItemInput struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Quantity  int     `json:"quantity"`
}

type ItemPatch struct {
	Quantity      patch.Optional[int]  `json:"quantity"`
	SavedForLater patch.Optional[bool] `json:"savedForLater"`
}

// GetOrCreate returns the owner's cart, creating an empty one on first use.
// A concurrent creator winning the insert is resolved by re-reading.
func (s *Service) GetOrCreate(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	c, err := s.carts.FindByOwner(ctx, owner)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find cart: %w", err)
	}

	c = newCart(owner)
	err = s.carts.Create(ctx, c)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrDuplicate) {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	c, err = s.carts.FindByOwner(ctx, owner)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Conflict("cart was created concurrently, retry the request")
	}
	if err != nil {
		return nil, fmt.Errorf("find cart after conflict: %w", err)
	}
	return c, nil
}

func newCart(owner domain.Owner) *domain.Cart {
	c := &domain.Cart{}
	if owner.IsUser() {
		uid := owner.UserID
		c.UserID = &uid
	} else {
		sid := owner.SessionID
		c.SessionID = &sid
	}
	return c
}

// Find loads the owner's cart with its items and applied coupons.
func (s *Service) Find(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	c, err := s.carts.FindByOwner(ctx, owner)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("cart not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}
	return s.hydrate(ctx, c)
}

func (s *Service) hydrate(ctx context.Context, c *domain.Cart) (*domain.Cart, error) {
	items, err := s.carts.ListItems(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	applied, err := s.coupons.List(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list applied coupons: %w", err)
	}
	c.Items = items
	c.Coupons = applied
	return c, nil
}

// View returns the owner's cart for display. A missing cart yields an empty
// view rather than an error. Concurrent reads for one owner share a lookup;
// each caller still stops waiting when its own ctx is done.
func (s *Service) View(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	ch := s.sfg.DoChan(owner.Key(), func() (any, error) {
		return s.load(context.WithoutCancel(ctx), owner)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Cart), nil
	}
}

func (s *Service) load(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	c, err := s.cache.Get(ctx, owner)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cart cache get failed", "error", err, "owner", owner.Key())
	}

	version, verr := s.cache.Version(ctx, owner)
	if verr != nil {
		s.logger.Warn("cart cache version failed", "error", verr, "owner", owner.Key())
	}

	c, err = s.Find(ctx, owner)
	if apperr.Is(err, apperr.KindNotFound) {
		empty := newCart(owner)
		empty.Items = []domain.LineItem{}
		empty.Coupons = []domain.AppliedCoupon{}
		return empty, nil
	}
	if err != nil {
		return nil, err
	}

	if verr == nil {
		if err := s.cache.Set(ctx, owner, c, version); err != nil {
			s.logger.Warn("cart cache set failed", "error", err, "owner", owner.Key())
		}
	}
	return c, nil
}

// Invalidate drops the cached view for owner. Failures are logged only.
func (s *Service) Invalidate(ctx context.Context, owner domain.Owner) {
	if err := s.cache.Delete(ctx, owner); err != nil {
		s.logger.Error("cart cache invalidation failed", "error", err, "owner", owner.Key())
	}
}

func (s *Service) AddItem(ctx context.Context, owner domain.Owner, in AddItemInput) (*domain.Cart, error) {
	ctx, span := tracer.Start(ctx, "cart.AddItem")
	defer span.End()

	if in.ProductID == "" {
		return nil, apperr.Validation("productId is required")
	}
	if in.Quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}

	product, err := s.products.Get(ctx, in.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if in.VariantID != nil && !hasVariant(product, *in.VariantID) {
		return nil, apperr.NotFound("product variant not found")
	}
	if product.Stock < in.Quantity {
		return nil, apperr.InsufficientStock("not enough stock available")
	}

	c, err := s.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	existing, err := s.carts.FindItem(ctx, c.ID, in.ProductID, in.VariantID)
	switch {
	case err == nil:
		existing.Quantity += in.Quantity
		if err := s.carts.UpdateItem(ctx, existing); err != nil {
			return nil, fmt.Errorf("update cart item: %w", err)
		}
	case errors.Is(err, store.ErrNotFound):
		item := &domain.LineItem{
			CartID:    c.ID,
			ProductID: in.ProductID,
			VariantID: in.VariantID,
			Quantity:  in.Quantity,
			Price:     product.Price,
		}
		if err := s.carts.AddItem(ctx, item); err != nil {
			return nil, fmt.Errorf("add cart item: %w", err)
		}
	default:
		return nil, fmt.Errorf("find cart item: %w", err)
	}

	return s.afterMutation(ctx, c, "add")
}

func hasVariant(p *domain.Product, variantID string) bool {
	for _, v := range p.Variants {
		if v.ID == variantID {
			return true
		}
	}
	return false
}

// UpdateItem applies a partial update. A quantity of zero or less removes the
// item regardless of any savedForLater value in the same patch.
func (s *Service) UpdateItem(ctx context.Context, owner domain.Owner, itemID string, p ItemPatch) (*domain.Cart, error) {
	ctx, span := tracer.Start(ctx, "cart.UpdateItem")
	defer span.End()

	c, item, err := s.findItem(ctx, owner, itemID)
	if err != nil {
		return nil, err
	}

	if p.Quantity.Present() && p.Quantity.Value <= 0 {
		if err := s.carts.DeleteItem(ctx, c.ID, item.ID); err != nil {
			return nil, fmt.Errorf("delete cart item: %w", err)
		}
		return s.afterMutation(ctx, c, "remove")
	}

	if p.Quantity.Present() {
		product, err := s.products.Get(ctx, item.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product.Stock < p.Quantity.Value {
			return nil, apperr.InsufficientStock("not enough stock available")
		}
	}

	patch.Apply(&item.Quantity, p.Quantity)
	patch.Apply(&item.SavedForLater, p.SavedForLater)
	if err := s.carts.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}

	return s.afterMutation(ctx, c, "update")
}

func (s *Service) RemoveItem(ctx context.Context, owner domain.Owner, itemID string) (*domain.Cart, error) {
	c, item, err := s.findItem(ctx, owner, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.DeleteItem(ctx, c.ID, item.ID); err != nil {
		return nil, fmt.Errorf("delete cart item: %w", err)
	}
	return s.afterMutation(ctx, c, "remove")
}

// Clear empties the cart and zeroes its totals. Applied coupons are dropped
// too so that the discount total stays equal to the sum of applied coupons.
func (s *Service) Clear(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	c, err := s.carts.FindByOwner(ctx, owner)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("cart not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}

	if err := s.carts.ClearItems(ctx, c.ID); err != nil {
		return nil, fmt.Errorf("clear cart items: %w", err)
	}
	if err := s.coupons.DeleteAll(ctx, c.ID); err != nil {
		return nil, fmt.Errorf("clear applied coupons: %w", err)
	}

	var zero domain.Totals
	if err := s.carts.UpdateTotals(ctx, c.ID, zero); err != nil {
		return nil, fmt.Errorf("reset cart totals: %w", err)
	}
	s.Invalidate(ctx, owner)
	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "clear")))

	c.Totals = zero
	c.Items = []domain.LineItem{}
	c.Coupons = []domain.AppliedCoupon{}
	return c, nil
}

func (s *Service) findItem(ctx context.Context, owner domain.Owner, itemID string) (*domain.Cart, *domain.LineItem, error) {
	c, err := s.carts.FindByOwner(ctx, owner)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.NotFound("cart not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find cart: %w", err)
	}

	item, err := s.carts.GetItem(ctx, c.ID, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.NotFound("cart item not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get cart item: %w", err)
	}
	return c, item, nil
}

// afterMutation recalculates totals, drops the cached view and returns the
// refreshed cart.
func (s *Service) afterMutation(ctx context.Context, c *domain.Cart, op string) (*domain.Cart, error) {
	totals, err := s.pricing.Recalculate(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("recalculate cart: %w", err)
	}
	c.Totals = totals

	s.Invalidate(ctx, c.Owner())
	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))

	return s.hydrate(ctx, c)
}
