// Package store declares the persistence contracts used by the storefront
// services. Implementations live in the postgres and memory subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

func NewPage(page, limit, defaultLimit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination describes a page of results out of Total.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func (p Page) Of(total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{Total: total, Page: p.Page, Limit: p.Limit, Pages: pages}
}

type ProductSort string

const (
	SortCreatedAt ProductSort = "created_at"
	SortPrice     ProductSort = "price"
	SortName      ProductSort = "name"
)

type ProductFilter struct {
	CategoryID string
	MinPrice   *domain.Money
	MaxPrice   *domain.Money
	Search     string
	Featured   *bool
	Status     domain.ProductStatus
	ExcludeID  string
	Sort       ProductSort
	Ascending  bool
}

type ProductRepository interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter, page Page) ([]domain.Product, int, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product, replaceVariants bool) error
	Delete(ctx context.Context, id string) error
	// IncrementStock adds delta (which may be negative) in a single statement.
	IncrementStock(ctx context.Context, id string, delta int) error
	CountByCategory(ctx context.Context, categoryID string) (int, error)
}

type CategoryRepository interface {
	Get(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Category, error)
	Children(ctx context.Context, parentID string) ([]domain.Category, error)
	Create(ctx context.Context, c *domain.Category) error
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id string) error
}

type CartRepository interface {
	FindByOwner(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	Create(ctx context.Context, c *domain.Cart) error
	UpdateTotals(ctx context.Context, cartID string, totals domain.Totals) error
	ListItems(ctx context.Context, cartID string) ([]domain.LineItem, error)
	GetItem(ctx context.Context, cartID, itemID string) (*domain.LineItem, error)
	FindItem(ctx context.Context, cartID, productID string, variantID *string) (*domain.LineItem, error)
	AddItem(ctx context.Context, item *domain.LineItem) error
	UpdateItem(ctx context.Context, item *domain.LineItem) error
	DeleteItem(ctx context.Context, cartID, itemID string) error
	ClearItems(ctx context.Context, cartID string) error
}

type AppliedCouponRepository interface {
	List(ctx context.Context, cartID string) ([]domain.AppliedCoupon, error)
	Get(ctx context.Context, cartID, id string) (*domain.AppliedCoupon, error)
	Create(ctx context.Context, c *domain.AppliedCoupon) error
	Delete(ctx context.Context, cartID, id string) error
	DeleteAll(ctx context.Context, cartID string) error
	CountByPromotion(ctx context.Context, promotionID string) (int, error)
}

type PromotionRepository interface {
	Get(ctx context.Context, id string) (*domain.Promotion, error)
	GetByCode(ctx context.Context, code string) (*domain.Promotion, error)
	// List returns promotions newest first. A non-nil liveAt restricts the
	// result to promotions that are active at that instant.
	List(ctx context.Context, liveAt *time.Time, page Page) ([]domain.Promotion, int, error)
	Create(ctx context.Context, p *domain.Promotion) error
	Update(ctx context.Context, p *domain.Promotion) error
	Delete(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, id string) error
}

type OrderRepository interface {
	// Create inserts the order with its items, addresses and status history.
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, page Page) ([]domain.Order, int, error)
	// SetStatus updates the status and appends entry to the history.
	SetStatus(ctx context.Context, id string, entry domain.StatusEntry) error
	// LatestNumber returns the greatest order number starting with prefix,
	// or "" when there is none.
	LatestNumber(ctx context.Context, prefix string) (string, error)
}

type WishlistRepository interface {
	FindByUser(ctx context.Context, userID string) (*domain.Wishlist, error)
	Create(ctx context.Context, w *domain.Wishlist) error
	// ListItems returns items whose product is active, newest first.
	ListItems(ctx context.Context, wishlistID string) ([]domain.WishlistItem, error)
	FindItem(ctx context.Context, wishlistID, productID string) (*domain.WishlistItem, error)
	AddItem(ctx context.Context, item *domain.WishlistItem) error
	DeleteItem(ctx context.Context, wishlistID, itemID string) error
	Clear(ctx context.Context, wishlistID string) error
}

type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
}

// Backend groups every repository a storefront process needs.
type Backend interface {
	Products() ProductRepository
	Categories() CategoryRepository
	Carts() CartRepository
	AppliedCoupons() AppliedCouponRepository
	Promotions() PromotionRepository
	Orders() OrderRepository
	Wishlists() WishlistRepository
	Profiles() ProfileRepository
}
