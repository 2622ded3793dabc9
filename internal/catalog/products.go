// Package catalog manages products and the category hierarchy.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/patch"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

var tracer = otel.Tracer("catalog")

const (
	relatedLimit = 4
	searchLimit  = 10
)

type ProductService struct {
	products   store.ProductRepository
	categories store.CategoryRepository
	logger     *slog.Logger
}

func NewProductService(products store.ProductRepository, categories store.CategoryRepository, logger *slog.Logger) *ProductService {
	return &ProductService{products: products, categories: categories, logger: logger}
}

type VariantInput struct {
	Size  string        `json:"size"`
	Color string        `json:"color"`
	Price *domain.Money `json:"price"`
	Stock int           `json:"stock"`
	SKU   string        `json:"sku"`
}

func (v VariantInput) toDomain() domain.Variant {
	return domain.Variant{Size: v.Size, Color: v.Color, Price: v.Price, Stock: v.Stock, SKU: v.SKU}
}

type ProductInput struct {
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	Price          domain.Money         `json:"price"`
	CompareAtPrice *domain.Money        `json:"compareAtPrice"`
	CategoryID     *string              `json:"categoryId"`
	SubcategoryID  *string              `json:"subcategoryId"`
	Stock          int                  `json:"stock"`
	SKU            string               `json:"sku"`
	Featured       bool                 `json:"featured"`
	Status         domain.ProductStatus `json:"status"`
	Tags           []string             `json:"tags"`
	Images         []string             `json:"images"`
	Variants       []VariantInput       `json:"variants"`
}

type ProductPatch struct {
	Name           patch.Optional[string]               `json:"name"`
	Description    patch.Optional[string]               `json:"description"`
	Price          patch.Optional[domain.Money]         `json:"price"`
	CompareAtPrice patch.Optional[domain.Money]         `json:"compareAtPrice"`
	CategoryID     patch.Optional[string]               `json:"categoryId"`
	SubcategoryID  patch.Optional[string]               `json:"subcategoryId"`
	Stock          patch.Optional[int]                  `json:"stock"`
	SKU            patch.Optional[string]               `json:"sku"`
	Featured       patch.Optional[bool]                 `json:"featured"`
	Status         patch.Optional[domain.ProductStatus] `json:"status"`
	Tags           patch.Optional[[]string]             `json:"tags"`
	Images         patch.Optional[[]string]             `json:"images"`
	Variants       patch.Optional[[]VariantInput]       `json:"variants"`
}

type ProductPage struct {
	Products   []domain.Product `json:"products"`
	Pagination store.Pagination `json:"pagination"`
}

func validStatus(s domain.ProductStatus) bool {
	switch s {
	case domain.ProductDraft, domain.ProductActive, domain.ProductArchived:
		return true
	}
	return false
}

func validateProduct(p *domain.Product) error {
	var details []string
	name := strings.TrimSpace(p.Name)
	if len(name) < 3 || len(name) > 100 {
		details = append(details, "name must be between 3 and 100 characters")
	}
	if p.Price.IsNegative() {
		details = append(details, "price must not be negative")
	}
	if p.CompareAtPrice != nil && p.CompareAtPrice.IsNegative() {
		details = append(details, "compareAtPrice must not be negative")
	}
	if p.Stock < 0 {
		details = append(details, "stock must not be negative")
	}
	if strings.TrimSpace(p.SKU) == "" {
		details = append(details, "sku is required")
	}
	if !validStatus(p.Status) {
		details = append(details, "status must be one of draft, active, archived")
	}
	for i, v := range p.Variants {
		if v.Price != nil && v.Price.IsNegative() {
			details = append(details, fmt.Sprintf("variants[%d].price must not be negative", i))
		}
		if v.Stock < 0 {
			details = append(details, fmt.Sprintf("variants[%d].stock must not be negative", i))
		}
		if strings.TrimSpace(v.SKU) == "" {
			details = append(details, fmt.Sprintf("variants[%d].sku is required", i))
		}
	}
	if len(details) > 0 {
		return apperr.Validation(details...)
	}
	return nil
}

// List returns a page of products. An empty status filter means active.
func (s *ProductService) List(ctx context.Context, f store.ProductFilter, page store.Page) (*ProductPage, error) {
	ctx, span := tracer.Start(ctx, "catalog.ListProducts")
	defer span.End()

	if f.Status == "" {
		f.Status = domain.ProductActive
	}
	products, total, err := s.products.List(ctx, f, page)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &ProductPage{Products: products, Pagination: page.Of(total)}, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *ProductService) checkCategory(ctx context.Context, id *string, field string) error {
	if id == nil {
		return nil
	}
	_, err := s.categories.Get(ctx, *id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("%s %s not found", field, *id)
	}
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p := &domain.Product{
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Price:          in.Price,
		CompareAtPrice: in.CompareAtPrice,
		CategoryID:     in.CategoryID,
		SubcategoryID:  in.SubcategoryID,
		Stock:          in.Stock,
		SKU:            in.SKU,
		Featured:       in.Featured,
		Status:         in.Status,
		Tags:           in.Tags,
		Images:         in.Images,
	}
	if p.Status == "" {
		p.Status = domain.ProductActive
	}
	for _, v := range in.Variants {
		p.Variants = append(p.Variants, v.toDomain())
	}

	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, p.CategoryID, "category"); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, p.SubcategoryID, "subcategory"); err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("a product with sku %s already exists", p.SKU)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.Info("product created", "product_id", p.ID, "sku", p.SKU)
	return p, nil
}

// Update applies a partial update. Variants are replaced wholesale when the
// patch carries them.
func (s *ProductService) Update(ctx context.Context, id string, in ProductPatch) (*domain.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(&p.Name, in.Name)
	patch.Apply(&p.Description, in.Description)
	patch.Apply(&p.Price, in.Price)
	patch.ApplyPtr(&p.CompareAtPrice, in.CompareAtPrice)
	patch.ApplyPtr(&p.CategoryID, in.CategoryID)
	patch.ApplyPtr(&p.SubcategoryID, in.SubcategoryID)
	patch.Apply(&p.Stock, in.Stock)
	patch.Apply(&p.SKU, in.SKU)
	patch.Apply(&p.Featured, in.Featured)
	patch.Apply(&p.Status, in.Status)
	patch.Apply(&p.Tags, in.Tags)
	patch.Apply(&p.Images, in.Images)

	replaceVariants := in.Variants.Present()
	if replaceVariants {
		p.Variants = p.Variants[:0]
		for _, v := range in.Variants.Value {
			p.Variants = append(p.Variants, v.toDomain())
		}
	}

	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if in.CategoryID.Present() {
		if err := s.checkCategory(ctx, p.CategoryID, "category"); err != nil {
			return nil, err
		}
	}
	if in.SubcategoryID.Present() {
		if err := s.checkCategory(ctx, p.SubcategoryID, "subcategory"); err != nil {
			return nil, err
		}
	}

	if err := s.products.Update(ctx, p, replaceVariants); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("a product with sku %s already exists", p.SKU)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("product not found")
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.Info("product deleted", "product_id", id)
	return nil
}

// Search matches active products by name or description.
func (s *ProductService) Search(ctx context.Context, q string, limit int) ([]domain.ProductSummary, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperr.InvalidRequest("search query is required")
	}
	if limit <= 0 {
		limit = searchLimit
	}

	products, _, err := s.products.List(ctx, store.ProductFilter{Search: q, Status: domain.ProductActive}, store.Page{Page: 1, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return summaries(products), nil
}

// Related returns up to four other active products from the same category.
func (s *ProductService) Related(ctx context.Context, id string) ([]domain.ProductSummary, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CategoryID == nil {
		return []domain.ProductSummary{}, nil
	}

	f := store.ProductFilter{CategoryID: *p.CategoryID, Status: domain.ProductActive, ExcludeID: p.ID}
	products, _, err := s.products.List(ctx, f, store.Page{Page: 1, Limit: relatedLimit})
	if err != nil {
		return nil, fmt.Errorf("list related products: %w", err)
	}
	return summaries(products), nil
}

func summaries(products []domain.Product) []domain.ProductSummary {
	out := make([]domain.ProductSummary, 0, len(products))
	for i := range products {
		out = append(out, *products[i].Summary())
	}
	return out
}
