package domain

import (
	"encoding/json"
	"time"
)

type PromotionType string

const (
	PromotionPercentage   PromotionType = "percentage"
	PromotionFixed        PromotionType = "fixed"
	PromotionFreeShipping PromotionType = "free_shipping"
	PromotionBuyXGetY     PromotionType = "buy_x_get_y"
)

func (t PromotionType) Valid() bool {
	switch t {
	case PromotionPercentage, PromotionFixed, PromotionFreeShipping, PromotionBuyXGetY:
		return true
	}
	return false
}

type Promotion struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Code              *string         `json:"code,omitempty"`
	Type              PromotionType   `json:"type"`
	Value             Money           `json:"value"`
	MinPurchase       Money           `json:"min_purchase"`
	MaxDiscount       *Money          `json:"max_discount,omitempty"`
	StartDate         time.Time       `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
	IsActive          bool            `json:"is_active"`
	UsageLimitPerUser *int            `json:"usage_limit_per_user,omitempty"`
	UsageLimitTotal   *int            `json:"usage_limit_total,omitempty"`
	UsageCount        int             `json:"usage_count"`
	Conditions        json.RawMessage `json:"conditions,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Live reports whether the promotion is active and inside its date window.
func (p *Promotion) Live(now time.Time) bool {
	return p.IsActive && !now.Before(p.StartDate) && !now.After(p.EndDate)
}

// Exhausted reports whether the total usage limit has been reached.
func (p *Promotion) Exhausted() bool {
	return p.UsageLimitTotal != nil && p.UsageCount >= *p.UsageLimitTotal
}
