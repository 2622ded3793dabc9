// Package promotion validates discount codes against carts and manages the
// promotion catalogue.
package promotion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

var tracer = otel.Tracer("promotion")

// CartAccess is the part of the cart service the applier needs.
type CartAccess interface {
	Find(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	Invalidate(ctx context.Context, owner domain.Owner)
}

type Service struct {
	promotions store.PromotionRepository
	coupons    store.AppliedCouponRepository
	carts      store.CartRepository
	access     CartAccess
	logger     *slog.Logger
	now        func() time.Time

	applied  metric.Int64Counter
	failures metric.Int64Counter
}

func NewService(
	promotions store.PromotionRepository,
	coupons store.AppliedCouponRepository,
	carts store.CartRepository,
	access CartAccess,
	logger *slog.Logger,
) (*Service, error) {
	meter := otel.Meter("promotion")

	applied, err := meter.Int64Counter("coupons.applied",
		metric.WithDescription("Coupons applied to carts"),
	)
	if err != nil {
		return nil, fmt.Errorf("create coupons.applied counter: %w", err)
	}

	failures, err := meter.Int64Counter("side_effect.failures",
		metric.WithDescription("Best-effort steps that failed after the primary write"),
	)
	if err != nil {
		return nil, fmt.Errorf("create side_effect.failures counter: %w", err)
	}

	return &Service{
		promotions: promotions,
		coupons:    coupons,
		carts:      carts,
		access:     access,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		applied:    applied,
		failures:   failures,
	}, nil
}

// ApplyResult is returned by ApplyCoupon. Degraded is set when the coupon was
// applied but the promotion usage counter could not be incremented.
type ApplyResult struct {
	Cart          *domain.Cart          `json:"cart"`
	AppliedCoupon *domain.AppliedCoupon `json:"appliedCoupon"`
	Degraded      bool                  `json:"degraded,omitempty"`
}

var hundred = decimal.NewFromInt(100)

// Discount computes the amount a promotion takes off a cart with the given
// totals.
func Discount(p *domain.Promotion, totals domain.Totals) (domain.Money, error) {
	switch p.Type {
	case domain.PromotionPercentage:
		d := domain.Round2(totals.Subtotal.Mul(p.Value).Div(hundred))
		if p.MaxDiscount != nil && d.GreaterThan(*p.MaxDiscount) {
			d = *p.MaxDiscount
		}
		return d, nil
	case domain.PromotionFixed:
		return decimal.Min(p.Value, totals.Subtotal), nil
	case domain.PromotionFreeShipping:
		return totals.ShippingTotal, nil
	case domain.PromotionBuyXGetY:
		return domain.Zero, apperr.PreconditionFailed("promotion type %s is not supported", p.Type)
	default:
		return domain.Zero, apperr.PreconditionFailed("unknown promotion type %q", p.Type)
	}
}

func (s *Service) ApplyCoupon(ctx context.Context, owner domain.Owner, code string) (*ApplyResult, error) {
	ctx, span := tracer.Start(ctx, "promotion.ApplyCoupon")
	defer span.End()

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperr.InvalidRequest("coupon code is required")
	}

	promo, err := s.promotions.GetByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("invalid coupon code")
	}
	if err != nil {
		return nil, fmt.Errorf("get promotion by code: %w", err)
	}

	if !promo.Live(s.now()) {
		return nil, apperr.Expired("this coupon has expired or is not active")
	}
	if promo.Exhausted() {
		return nil, apperr.Expired("this coupon has reached its usage limit")
	}

	c, err := s.access.Find(ctx, owner)
	if err != nil {
		return nil, err
	}

	for _, ac := range c.Coupons {
		if ac.PromotionID == promo.ID {
			return nil, apperr.Conflict("this coupon has already been applied")
		}
	}

	if promo.MinPurchase.IsPositive() && c.Subtotal.LessThan(promo.MinPurchase) {
		return nil, apperr.PreconditionFailed("this coupon requires a minimum purchase of $%s", promo.MinPurchase.StringFixed(2))
	}

	discount, err := Discount(promo, c.Totals)
	if err != nil {
		return nil, err
	}

	applied := &domain.AppliedCoupon{
		CartID:      c.ID,
		PromotionID: promo.ID,
		Code:        code,
		Discount:    discount,
	}
	if err := s.coupons.Create(ctx, applied); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("this coupon has already been applied")
		}
		return nil, fmt.Errorf("insert applied coupon: %w", err)
	}

	totals := c.Totals
	totals.DiscountTotal = totals.DiscountTotal.Add(discount)
	totals.GrandTotal = totals.GrandTotal.Sub(discount)
	if err := s.carts.UpdateTotals(ctx, c.ID, totals); err != nil {
		return nil, fmt.Errorf("update cart totals: %w", err)
	}
	c.Totals = totals
	c.Coupons = append(c.Coupons, *applied)
	s.access.Invalidate(ctx, owner)

	result := &ApplyResult{Cart: c, AppliedCoupon: applied}
	if err := s.promotions.IncrementUsage(ctx, promo.ID); err != nil {
		s.logger.Error("failed to increment promotion usage", "error", err, "promotion_id", promo.ID)
		s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("step", "increment_usage")))
		result.Degraded = true
	}

	s.applied.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(promo.Type))))
	s.logger.Info("coupon applied", "cart_id", c.ID, "code", code, "discount", discount.String())
	return result, nil
}

// RemoveCoupon reverses exactly the discount stored when the coupon was
// applied. Promotion usage is not decremented.
func (s *Service) RemoveCoupon(ctx context.Context, owner domain.Owner, couponID string) (*domain.Cart, error) {
	c, err := s.access.Find(ctx, owner)
	if err != nil {
		return nil, err
	}

	applied, err := s.coupons.Get(ctx, c.ID, couponID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("coupon not found in cart")
	}
	if err != nil {
		return nil, fmt.Errorf("get applied coupon: %w", err)
	}

	if err := s.coupons.Delete(ctx, c.ID, applied.ID); err != nil {
		return nil, fmt.Errorf("delete applied coupon: %w", err)
	}

	totals := c.Totals
	totals.DiscountTotal = totals.DiscountTotal.Sub(applied.Discount)
	totals.GrandTotal = totals.GrandTotal.Add(applied.Discount)
	if err := s.carts.UpdateTotals(ctx, c.ID, totals); err != nil {
		return nil, fmt.Errorf("update cart totals: %w", err)
	}
	c.Totals = totals

	remaining := c.Coupons[:0]
	for _, ac := range c.Coupons {
		if ac.ID != applied.ID {
			remaining = append(remaining, ac)
		}
	}
	c.Coupons = remaining
	s.access.Invalidate(ctx, owner)

	s.logger.Info("coupon removed", "cart_id", c.ID, "code", applied.Code)
	return c, nil
}
