package domain

import "time"

type ProductStatus string

const (
	ProductDraft    ProductStatus = "draft"
	ProductActive   ProductStatus = "active"
	ProductArchived ProductStatus = "archived"
)

type Product struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Price          Money         `json:"price"`
	CompareAtPrice *Money        `json:"compare_at_price,omitempty"`
	CategoryID     *string       `json:"category_id,omitempty"`
	SubcategoryID  *string       `json:"subcategory_id,omitempty"`
	Stock          int           `json:"stock"`
	SKU            string        `json:"sku"`
	Featured       bool          `json:"featured"`
	Status         ProductStatus `json:"status"`
	Tags           []string      `json:"tags"`
	Images         []string      `json:"images"`
	Variants       []Variant     `json:"variants,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Summary is the subset of product fields embedded in cart and wishlist views.
func (p *Product) Summary() *ProductSummary {
	s := &ProductSummary{
		ID:     p.ID,
		Name:   p.Name,
		Price:  p.Price,
		Stock:  p.Stock,
		SKU:    p.SKU,
		Status: p.Status,
	}
	if len(p.Images) > 0 {
		s.Image = p.Images[0]
	}
	return s
}

type ProductSummary struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Price  Money         `json:"price"`
	Stock  int           `json:"stock"`
	SKU    string        `json:"sku"`
	Status ProductStatus `json:"status"`
	Image  string        `json:"image,omitempty"`
}

type Variant struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Price     *Money `json:"price,omitempty"`
	Stock     int    `json:"stock"`
	SKU       string `json:"sku"`
}

type Category struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	Slug          string      `json:"slug"`
	ParentID      *string     `json:"parent_id,omitempty"`
	Level         int         `json:"level"`
	Image         string      `json:"image,omitempty"`
	IsActive      bool        `json:"is_active"`
	Subcategories []*Category `json:"subcategories,omitempty"`
	Products      []Product   `json:"products,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type Wishlist struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Items     []WishlistItem `json:"items"`
	CreatedAt time.Time      `json:"created_at"`
}

type WishlistItem struct {
	ID         string          `json:"id"`
	WishlistID string          `json:"wishlist_id"`
	ProductID  string          `json:"product_id"`
	AddedAt    time.Time       `json:"added_at"`
	Product    *ProductSummary `json:"product,omitempty"`
}
