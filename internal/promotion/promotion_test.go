package promotion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/cart"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/patch"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store/memory"
)

var owner = domain.Owner{SessionID: "sess-promo"}

type fixture struct {
	st    *memory.Store
	carts *cart.Service
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	carts, err := cart.NewService(st.Products(), st.Carts(), st.AppliedCoupons(), nil, logger)
	require.NoError(t, err)

	svc, err := NewService(st.Promotions(), st.AppliedCoupons(), st.Carts(), carts, logger)
	require.NoError(t, err)

	return &fixture{st: st, carts: carts, svc: svc}
}

// fillCart adds one unit of a product priced at price.
func (f *fixture) fillCart(t *testing.T, price string) *domain.Cart {
	t.Helper()
	ctx := context.Background()
	p := &domain.Product{Name: "Item", Price: domain.Dollars(price), Stock: 100, Status: domain.ProductActive}
	require.NoError(t, f.st.Products().Create(ctx, p))
	c, err := f.carts.AddItem(ctx, owner, cart.AddItemInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	return c
}

func (f *fixture) promo(t *testing.T, mutate func(*domain.Promotion)) *domain.Promotion {
	t.Helper()
	code := "SAVE20"
	p := &domain.Promotion{
		Name:        "Twenty off",
		Code:        &code,
		Type:        domain.PromotionPercentage,
		Value:       domain.Dollars("20"),
		MinPurchase: domain.Zero,
		StartDate:   time.Now().Add(-time.Hour),
		EndDate:     time.Now().Add(time.Hour),
		IsActive:    true,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, f.st.Promotions().Create(context.Background(), p))
	return p
}

func money(s string) *domain.Money {
	m := domain.Dollars(s)
	return &m
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "unexpected error: %v", err)
}

func assertInvariant(t *testing.T, c *domain.Cart) {
	t.Helper()
	want := c.Subtotal.Sub(c.DiscountTotal).Add(c.TaxTotal).Add(c.ShippingTotal)
	assert.Truef(t, want.Equal(c.GrandTotal), "grand total %s, components give %s", c.GrandTotal, want)
}

func TestDiscount(t *testing.T) {
	totals := domain.Totals{Subtotal: domain.Dollars("100"), ShippingTotal: domain.Dollars("10")}

	tests := []struct {
		name  string
		promo domain.Promotion
		want  string
	}{
		{
			name:  "percentage capped by max discount",
			promo: domain.Promotion{Type: domain.PromotionPercentage, Value: domain.Dollars("20"), MaxDiscount: money("15")},
			want:  "15",
		},
		{
			name:  "percentage below cap",
			promo: domain.Promotion{Type: domain.PromotionPercentage, Value: domain.Dollars("10"), MaxDiscount: money("15")},
			want:  "10",
		},
		{
			name:  "fixed capped at subtotal",
			promo: domain.Promotion{Type: domain.PromotionFixed, Value: domain.Dollars("250")},
			want:  "100",
		},
		{
			name:  "fixed under subtotal",
			promo: domain.Promotion{Type: domain.PromotionFixed, Value: domain.Dollars("12.50")},
			want:  "12.50",
		},
		{
			name:  "free shipping takes shipping total",
			promo: domain.Promotion{Type: domain.PromotionFreeShipping},
			want:  "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Discount(&tt.promo, totals)
			require.NoError(t, err)
			assert.Truef(t, domain.Dollars(tt.want).Equal(got), "expected %s, got %s", tt.want, got)
		})
	}

	t.Run("buy x get y is rejected", func(t *testing.T) {
		_, err := Discount(&domain.Promotion{Type: domain.PromotionBuyXGetY}, totals)
		requireKind(t, err, apperr.KindPreconditionFailed)
	})
}

func TestApplyCoupon_PercentageWithCap(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "100")
	f.promo(t, func(p *domain.Promotion) { p.MaxDiscount = money("15") })

	res, err := f.svc.ApplyCoupon(context.Background(), owner, "save20")
	require.NoError(t, err)

	assert.False(t, res.Degraded)
	assert.Equal(t, "SAVE20", res.AppliedCoupon.Code)
	assert.True(t, res.AppliedCoupon.Discount.Equal(domain.Dollars("15")))
	assert.True(t, res.Cart.DiscountTotal.Equal(domain.Dollars("15")))
	assertInvariant(t, res.Cart)

	stored, err := f.st.Promotions().GetByCode(context.Background(), "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsageCount)
}

func TestApplyThenRemove_RestoresGrandTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	before := f.fillCart(t, "80")
	f.promo(t, nil)

	res, err := f.svc.ApplyCoupon(ctx, owner, "SAVE20")
	require.NoError(t, err)
	assert.True(t, res.Cart.GrandTotal.LessThan(before.GrandTotal))

	after, err := f.svc.RemoveCoupon(ctx, owner, res.AppliedCoupon.ID)
	require.NoError(t, err)
	assert.True(t, before.GrandTotal.Equal(after.GrandTotal), "expected %s, got %s", before.GrandTotal, after.GrandTotal)
	assert.True(t, after.DiscountTotal.IsZero())
	assert.Empty(t, after.Coupons)

	stored, err := f.st.Promotions().GetByCode(ctx, "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsageCount, "usage is not decremented on removal")
}

func TestApplyCoupon_DiscountSurvivesRecalculation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "50")
	f.promo(t, func(p *domain.Promotion) {
		p.Type = domain.PromotionFixed
		p.Value = domain.Dollars("5")
	})

	_, err := f.svc.ApplyCoupon(ctx, owner, "SAVE20")
	require.NoError(t, err)

	c := f.fillCart(t, "20")
	assert.True(t, c.DiscountTotal.Equal(domain.Dollars("5")))
	assertInvariant(t, c)
}

func TestApplyCoupon_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty code", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ApplyCoupon(ctx, owner, "  ")
		requireKind(t, err, apperr.KindInvalidRequest)
	})

	t.Run("unknown code", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(t, "10")
		_, err := f.svc.ApplyCoupon(ctx, owner, "NOPE")
		requireKind(t, err, apperr.KindNotFound)
	})

	t.Run("inactive", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(t, "10")
		f.promo(t, func(p *domain.Promotion) { p.IsActive = false })
		_, err := f.svc.ApplyCoupon(ctx, owner, "SAVE20")
		requireKind(t, err, apperr.KindExpired)
	})

	t.Run("outside window", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(t, "10")
		f.promo(t, func(p *domain.Promotion) {
			p.StartDate = time.Now().Add(-48 * time.Hour)
			p.EndDate = time.Now().Add(-24 * time.Hour)
		})
		_, err := f.svc.ApplyCoupon(ctx, owner, "SAVE20")
		requireKind(t, err, apperr.KindExpired)
	})

	t.Run("usage limit reached", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(t, "10")
		limit := 3
		f.promo(t, func(p *domain.Promotion) {
			p.UsageLimitTotal = &limit
			p.UsageCount = 3
		})
		_, err := f.svc.ApplyCoupon(ctx, owner, "SAVE20")
		requireKind(t, err, apperr.KindExpired)
	})

	t.Run("no cart", func(t *testing.T) {
		f := newFixture(t)
		f.promo(t, nil)
		_, err := f.svc.ApplyCoupon(ctx, owner, "SAVE20")
		requireKind(t, err, apperr.KindNotFound)
	})

	t.Run("applied twice", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(t, "10")
		f.promo(t, nil)
		_, err := f.svc.ApplyCoupon(ctx, owner, "SAVE20")
		require.NoError(t, err)
		_, err = f.svc.ApplyCoupon(ctx, owner, "SAVE20")
		requireKind(t, err, apperr.KindConflict)
	})

	t.Run("minimum purchase", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(t, "10")
		f.promo(t, func(p *domain.Promotion) { p.MinPurchase = domain.Dollars("50") })
		_, err := f.svc.ApplyCoupon(ctx, owner, "SAVE20")
		requireKind(t, err, apperr.KindPreconditionFailed)
		assert.Contains(t, err.Error(), "$50.00")
	})
}

type brokenUsage struct {
	store.PromotionRepository
}

func (brokenUsage) IncrementUsage(context.Context, string) error {
	return errors.New("connection refused")
}

func TestApplyCoupon_UsageIncrementFailureIsDegraded(t *testing.T) {
	f := newFixture(t)
	svc, err := NewService(brokenUsage{f.st.Promotions()}, f.st.AppliedCoupons(), f.st.Carts(), f.carts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	f.fillCart(t, "40")
	f.promo(t, nil)

	res, err := svc.ApplyCoupon(context.Background(), owner, "SAVE20")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.True(t, res.Cart.DiscountTotal.Equal(domain.Dollars("8")))
}

func TestRemoveCoupon_NotInCart(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "10")

	_, err := f.svc.RemoveCoupon(context.Background(), owner, "missing")
	requireKind(t, err, apperr.KindNotFound)
}

func TestAdmin_CreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	code := "summer"
	in := Input{
		Name:      "Summer",
		Code:      &code,
		Type:      domain.PromotionFixed,
		Value:     domain.Dollars("5"),
		StartDate: time.Now(),
		EndDate:   time.Now().Add(24 * time.Hour),
	}

	p, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, p.Code)
	assert.Equal(t, "SUMMER", *p.Code)
	assert.True(t, p.IsActive)
	assert.True(t, p.MinPurchase.IsZero())
	assert.Equal(t, 0, p.UsageCount)

	_, err = f.svc.Create(ctx, in)
	requireKind(t, err, apperr.KindConflict)

	updated, err := f.svc.Update(ctx, p.ID, Patch{
		Name:        patch.Some("Summer sale"),
		MaxDiscount: patch.Some(domain.Dollars("3")),
	})
	require.NoError(t, err)
	assert.Equal(t, "Summer sale", updated.Name)
	require.NotNil(t, updated.MaxDiscount)
	assert.Equal(t, "SUMMER", *updated.Code)

	updated, err = f.svc.Update(ctx, p.ID, Patch{MaxDiscount: patch.Null[domain.Money]()})
	require.NoError(t, err)
	assert.Nil(t, updated.MaxDiscount)

	other := "winter"
	in.Code = &other
	_, err = f.svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, p.ID, Patch{Code: patch.Some("WINTER")})
	requireKind(t, err, apperr.KindConflict)

	_, err = f.svc.Create(ctx, Input{Name: "", Type: "bogus"})
	requireKind(t, err, apperr.KindInvalidRequest)
}

func TestAdmin_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "10")
	used := f.promo(t, nil)
	f.promo(t, func(p *domain.Promotion) {
		code := "OLD"
		p.Code = &code
		p.IsActive = false
	})

	all, err := f.svc.List(ctx, false, store.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, all.Pagination.Total)
	assert.Equal(t, 1, all.Pagination.Pages)

	live, err := f.svc.List(ctx, true, store.NewPage(1, 10, 10))
	require.NoError(t, err)
	require.Len(t, live.Promotions, 1)
	assert.Equal(t, used.ID, live.Promotions[0].ID)

	_, err = f.svc.ApplyCoupon(ctx, owner, "SAVE20")
	require.NoError(t, err)

	err = f.svc.Delete(ctx, used.ID)
	requireKind(t, err, apperr.KindPreconditionFailed)

	err = f.svc.Delete(ctx, "missing")
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.svc.Get(ctx, "missing")
	requireKind(t, err, apperr.KindNotFound)
}
