// Package pricing derives cart totals from line items and applied coupons.
//
// The rules are flat: 10% tax on the subtotal, free shipping strictly above
// $100 and a $10 flat rate otherwise. Saved-for-later items never count.
// Discounts are the sum of the amounts stored on each applied coupon when it
// was applied; they are not re-derived from the promotion.
package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

var (
	TaxRate               = domain.Dollars("0.10")
	FreeShippingThreshold = domain.Dollars("100")
	FlatShipping          = domain.Dollars("10")
)

// Compute is the pure totals function.
func Compute(items []domain.LineItem, discountTotal domain.Money) domain.Totals {
	subtotal := domain.Zero
	for _, it := range items {
		if it.SavedForLater {
			continue
		}
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	tax := domain.Round2(subtotal.Mul(TaxRate))
	shipping := Shipping(subtotal)

	return domain.Totals{
		Subtotal:      subtotal,
		DiscountTotal: discountTotal,
		TaxTotal:      tax,
		ShippingTotal: shipping,
		GrandTotal:    subtotal.Sub(discountTotal).Add(tax).Add(shipping),
	}
}

// Shipping returns the shipping charge for a subtotal.
func Shipping(subtotal domain.Money) domain.Money {
	if subtotal.GreaterThan(FreeShippingThreshold) {
		return domain.Zero
	}
	return FlatShipping
}

// SumDiscounts adds up the stored discount of each applied coupon.
func SumDiscounts(coupons []domain.AppliedCoupon) domain.Money {
	total := domain.Zero
	for _, c := range coupons {
		total = total.Add(c.Discount)
	}
	return total
}

// Engine recalculates and persists the totals of a stored cart.
type Engine struct {
	carts   store.CartRepository
	coupons store.AppliedCouponRepository
}

func NewEngine(carts store.CartRepository, coupons store.AppliedCouponRepository) *Engine {
	return &Engine{carts: carts, coupons: coupons}
}

// Recalculate overwrites the cart's five money fields from its current items
// and applied coupons.
func (e *Engine) Recalculate(ctx context.Context, cartID string) (domain.Totals, error) {
	items, err := e.carts.ListItems(ctx, cartID)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("list cart items: %w", err)
	}

	applied, err := e.coupons.List(ctx, cartID)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("list applied coupons: %w", err)
	}

	totals := Compute(items, SumDiscounts(applied))
	if err := e.carts.UpdateTotals(ctx, cartID, totals); err != nil {
		return domain.Totals{}, fmt.Errorf("update cart totals: %w", err)
	}

	return totals, nil
}
