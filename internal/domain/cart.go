package domain

import "time"

// Totals are the five money fields persisted on carts and copied onto orders.
// GrandTotal always equals Subtotal - DiscountTotal + TaxTotal + ShippingTotal.
type Totals struct {
	Subtotal      Money `json:"subtotal"`
	DiscountTotal Money `json:"discount_total"`
	TaxTotal      Money `json:"tax_total"`
	ShippingTotal Money `json:"shipping_total"`
	GrandTotal    Money `json:"grand_total"`
}

type Cart struct {
	ID        string  `json:"id"`
	UserID    *string `json:"user_id,omitempty"`
	SessionID *string `json:"session_id,omitempty"`
	Totals
	Items     []LineItem      `json:"items"`
	Coupons   []AppliedCoupon `json:"applied_coupons"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Owner reports the identity the cart belongs to.
func (c *Cart) Owner() Owner {
	if c.UserID != nil {
		return Owner{UserID: *c.UserID}
	}
	if c.SessionID != nil {
		return Owner{SessionID: *c.SessionID}
	}
	return Owner{}
}

// EligibleItems returns the items that count toward totals and checkout.
func (c *Cart) EligibleItems() []LineItem {
	out := make([]LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		if !it.SavedForLater {
			out = append(out, it)
		}
	}
	return out
}

type LineItem struct {
	ID            string          `json:"id"`
	CartID        string          `json:"cart_id"`
	ProductID     string          `json:"product_id"`
	VariantID     *string         `json:"variant_id,omitempty"`
	Quantity      int             `json:"quantity"`
	Price         Money           `json:"price"`
	SavedForLater bool            `json:"saved_for_later"`
	Product       *ProductSummary `json:"product,omitempty"`
	Variant       *Variant        `json:"variant,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SameVariant matches variant ids with nil treated as its own value.
func SameVariant(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type AppliedCoupon struct {
	ID          string    `json:"id"`
	CartID      string    `json:"cart_id"`
	PromotionID string    `json:"promotion_id"`
	Code        string    `json:"code"`
	Discount    Money     `json:"discount"`
	CreatedAt   time.Time `json:"created_at"`
}
