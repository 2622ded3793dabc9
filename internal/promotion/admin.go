package promotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/patch"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

type Input struct {
	Name              string               `json:"name"`
	Description       string               `json:"description"`
	Code              *string              `json:"code"`
	Type              domain.PromotionType `json:"type"`
	Value             domain.Money         `json:"value"`
	MinPurchase       *domain.Money        `json:"minPurchase"`
	MaxDiscount       *domain.Money        `json:"maxDiscount"`
	StartDate         time.Time            `json:"startDate"`
	EndDate           time.Time            `json:"endDate"`
	IsActive          *bool                `json:"isActive"`
	UsageLimitPerUser *int                 `json:"usageLimitPerUser"`
	UsageLimitTotal   *int                 `json:"usageLimitTotal"`
	Conditions        json.RawMessage      `json:"conditions"`
}

type Patch struct {
	Name              patch.Optional[string]               `json:"name"`
	Description       patch.Optional[string]               `json:"description"`
	Code              patch.Optional[string]               `json:"code"`
	Type              patch.Optional[domain.PromotionType] `json:"type"`
	Value             patch.Optional[domain.Money]         `json:"value"`
	MinPurchase       patch.Optional[domain.Money]         `json:"minPurchase"`
	MaxDiscount       patch.Optional[domain.Money]         `json:"maxDiscount"`
	StartDate         patch.Optional[time.Time]            `json:"startDate"`
	EndDate           patch.Optional[time.Time]            `json:"endDate"`
	IsActive          patch.Optional[bool]                 `json:"isActive"`
	UsageLimitPerUser patch.Optional[int]                  `json:"usageLimitPerUser"`
	UsageLimitTotal   patch.Optional[int]                  `json:"usageLimitTotal"`
	Conditions        patch.Optional[json.RawMessage]      `json:"conditions"`
}

type Page struct {
	Promotions []domain.Promotion `json:"promotions"`
	Pagination store.Pagination   `json:"pagination"`
}

func validate(p *domain.Promotion) error {
	var details []string
	if strings.TrimSpace(p.Name) == "" {
		details = append(details, "name is required")
	}
	if !p.Type.Valid() {
		details = append(details, "type must be one of percentage, fixed, free_shipping, buy_x_get_y")
	}
	if p.Value.IsNegative() {
		details = append(details, "value must not be negative")
	}
	if p.Type == domain.PromotionPercentage && p.Value.GreaterThan(hundred) {
		details = append(details, "percentage value must not exceed 100")
	}
	if p.MinPurchase.IsNegative() {
		details = append(details, "minPurchase must not be negative")
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		details = append(details, "startDate and endDate are required")
	} else if p.EndDate.Before(p.StartDate) {
		details = append(details, "endDate must not be before startDate")
	}
	if len(details) > 0 {
		return apperr.Validation(details...)
	}
	return nil
}

func normalizeCode(code *string) *string {
	if code == nil {
		return nil
	}
	c := strings.ToUpper(strings.TrimSpace(*code))
	if c == "" {
		return nil
	}
	return &c
}

// List returns promotions newest first. With liveOnly set, only promotions
// that are active right now are included.
func (s *Service) List(ctx context.Context, liveOnly bool, page store.Page) (*Page, error) {
	var liveAt *time.Time
	if liveOnly {
		now := s.now()
		liveAt = &now
	}

	promos, total, err := s.promotions.List(ctx, liveAt, page)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	return &Page{Promotions: promos, Pagination: page.Of(total)}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Promotion, error) {
	p, err := s.promotions.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("promotion not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get promotion: %w", err)
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.Promotion, error) {
	p := &domain.Promotion{
		Name:              in.Name,
		Description:       in.Description,
		Code:              normalizeCode(in.Code),
		Type:              in.Type,
		Value:             in.Value,
		MinPurchase:       domain.Zero,
		MaxDiscount:       in.MaxDiscount,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		IsActive:          true,
		UsageLimitPerUser: in.UsageLimitPerUser,
		UsageLimitTotal:   in.UsageLimitTotal,
		Conditions:        in.Conditions,
	}
	if in.MinPurchase != nil {
		p.MinPurchase = *in.MinPurchase
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.promotions.Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("a promotion with this code already exists")
		}
		return nil, fmt.Errorf("create promotion: %w", err)
	}

	s.logger.Info("promotion created", "promotion_id", p.ID, "type", p.Type)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, in Patch) (*domain.Promotion, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(&p.Name, in.Name)
	patch.Apply(&p.Description, in.Description)
	if in.Code.Set {
		p.Code = normalizeCode(&in.Code.Value)
	}
	patch.Apply(&p.Type, in.Type)
	patch.Apply(&p.Value, in.Value)
	patch.Apply(&p.MinPurchase, in.MinPurchase)
	patch.ApplyPtr(&p.MaxDiscount, in.MaxDiscount)
	patch.Apply(&p.StartDate, in.StartDate)
	patch.Apply(&p.EndDate, in.EndDate)
	patch.Apply(&p.IsActive, in.IsActive)
	patch.ApplyPtr(&p.UsageLimitPerUser, in.UsageLimitPerUser)
	patch.ApplyPtr(&p.UsageLimitTotal, in.UsageLimitTotal)
	if in.Conditions.Set {
		p.Conditions = in.Conditions.Value
	}

	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.promotions.Update(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("a promotion with this code already exists")
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("promotion not found")
		}
		return nil, fmt.Errorf("update promotion: %w", err)
	}
	return p, nil
}

// Delete refuses to remove a promotion that is applied to any cart.
func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.coupons.CountByPromotion(ctx, id)
	if err != nil {
		return fmt.Errorf("count applied coupons: %w", err)
	}
	if n > 0 {
		return apperr.PreconditionFailed("cannot delete a promotion that is currently in use")
	}

	if err := s.promotions.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("promotion not found")
		}
		return fmt.Errorf("delete promotion: %w", err)
	}
	return nil
}
