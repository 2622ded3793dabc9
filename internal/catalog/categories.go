package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gosimple/slug"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/patch"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

const (
	// maxAncestorWalk bounds the parent chain followed during cycle detection.
	maxAncestorWalk  = 10
	categoryProducts = 10
)

type CategoryService struct {
	categories store.CategoryRepository
	products   store.ProductRepository
	logger     *slog.Logger
}

func NewCategoryService(categories store.CategoryRepository, products store.ProductRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{categories: categories, products: products, logger: logger}
}

type CategoryInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ParentID    *string `json:"parentId"`
	Image       string  `json:"image"`
	IsActive    *bool   `json:"isActive"`
}

type CategoryPatch struct {
	Name        patch.Optional[string] `json:"name"`
	Description patch.Optional[string] `json:"description"`
	ParentID    patch.Optional[string] `json:"parentId"`
	Image       patch.Optional[string] `json:"image"`
	IsActive    patch.Optional[bool]   `json:"isActive"`
}

// Tree returns active categories as a forest ordered by name.
func (s *CategoryService) Tree(ctx context.Context) ([]*domain.Category, error) {
	cats, err := s.categories.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	return BuildTree(cats,
		func(c *domain.Category) string { return c.ID },
		func(c *domain.Category) (string, bool) {
			if c.ParentID == nil {
				return "", false
			}
			return *c.ParentID, true
		},
		func(parent, child *domain.Category) {
			parent.Subcategories = append(parent.Subcategories, child)
		},
	), nil
}

// Get returns a category with its direct children and a sample of its
// active products. Failures loading either are logged and left empty.
func (s *CategoryService) Get(ctx context.Context, id string) (*domain.Category, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Subcategories = []*domain.Category{}
	children, err := s.categories.Children(ctx, id)
	if err != nil {
		s.logger.Error("failed to load subcategories", "error", err, "category_id", id)
	}
	for i := range children {
		c.Subcategories = append(c.Subcategories, &children[i])
	}

	c.Products = []domain.Product{}
	f := store.ProductFilter{CategoryID: id, Status: domain.ProductActive}
	products, _, err := s.products.List(ctx, f, store.Page{Page: 1, Limit: categoryProducts})
	if err != nil {
		s.logger.Error("failed to load category products", "error", err, "category_id", id)
	} else {
		c.Products = products
	}

	return c, nil
}

func (s *CategoryService) load(ctx context.Context, id string) (*domain.Category, error) {
	c, err := s.categories.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("category not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) parentLevel(ctx context.Context, parentID string) (int, error) {
	parent, err := s.categories.Get(ctx, parentID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, apperr.NotFound("parent category not found")
	}
	if err != nil {
		return 0, fmt.Errorf("get parent category: %w", err)
	}
	return parent.Level, nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	c := &domain.Category{
		Name:        name,
		Description: in.Description,
		Slug:        slug.Make(name),
		Level:       1,
		Image:       in.Image,
		IsActive:    true,
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.ParentID != nil && *in.ParentID != "" {
		level, err := s.parentLevel(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		pid := *in.ParentID
		c.ParentID = &pid
		c.Level = level + 1
	}

	if err := s.categories.Create(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("a category with this name already exists")
		}
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.Info("category created", "category_id", c.ID, "slug", c.Slug)
	return c, nil
}

// Update applies a partial update. Renaming regenerates the slug. Moving a
// category under itself or one of its descendants is rejected. Descendant
// levels are not recomputed on a move.
func (s *CategoryService) Update(ctx context.Context, id string, in CategoryPatch) (*domain.Category, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name.Present() {
		name := strings.TrimSpace(in.Name.Value)
		if name == "" {
			return nil, apperr.Validation("name must not be empty")
		}
		if name != c.Name {
			c.Name = name
			c.Slug = slug.Make(name)
		}
	}
	patch.Apply(&c.Description, in.Description)
	patch.Apply(&c.Image, in.Image)
	patch.Apply(&c.IsActive, in.IsActive)

	if in.ParentID.Set && !sameParent(c.ParentID, in.ParentID) {
		if err := s.reparent(ctx, c, in.ParentID); err != nil {
			return nil, err
		}
	}

	if err := s.categories.Update(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("a category with this name already exists")
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("category not found")
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

func sameParent(current *string, next patch.Optional[string]) bool {
	if !next.Present() || next.Value == "" {
		return current == nil
	}
	return current != nil && *current == next.Value
}

func (s *CategoryService) reparent(ctx context.Context, c *domain.Category, next patch.Optional[string]) error {
	if !next.Present() || next.Value == "" {
		c.ParentID = nil
		c.Level = 1
		return nil
	}

	parentID := next.Value
	if parentID == c.ID {
		return apperr.InvalidRequest("a category cannot be its own parent")
	}

	cur := parentID
	for depth := 0; depth < maxAncestorWalk && cur != ""; depth++ {
		ancestor, err := s.categories.Get(ctx, cur)
		if err != nil {
			break
		}
		if ancestor.ParentID == nil {
			break
		}
		if *ancestor.ParentID == c.ID {
			return apperr.InvalidRequest("this would create a circular reference in the category hierarchy")
		}
		cur = *ancestor.ParentID
	}

	level, err := s.parentLevel(ctx, parentID)
	if err != nil {
		return err
	}
	c.ParentID = &parentID
	c.Level = level + 1
	return nil
}

// Delete removes a leaf category that no product references.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	children, err := s.categories.Children(ctx, id)
	if err != nil {
		return fmt.Errorf("list subcategories: %w", err)
	}
	if len(children) > 0 {
		return apperr.PreconditionFailed("cannot delete a category that has subcategories")
	}

	n, err := s.products.CountByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("count category products: %w", err)
	}
	if n > 0 {
		return apperr.PreconditionFailed("cannot delete a category that has products")
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("category not found")
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
