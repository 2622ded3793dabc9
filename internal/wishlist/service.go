// Package wishlist keeps a per-user list of saved products.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

type Service struct {
	wishlists store.WishlistRepository
	products  store.ProductRepository
	logger    *slog.Logger
}

func NewService(wishlists store.WishlistRepository, products store.ProductRepository, logger *slog.Logger) *Service {
	return &Service{wishlists: wishlists, products: products, logger: logger}
}

// Get returns the user's wishlist, creating an empty one on first access.
// Items whose product is no longer active are left out.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Wishlist, error) {
	w, err := s.findOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.wishlists.ListItems(ctx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist items: %w", err)
	}
	w.Items = items
	return w, nil
}

func (s *Service) findOrCreate(ctx context.Context, userID string) (*domain.Wishlist, error) {
	w, err := s.wishlists.FindByUser(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find wishlist: %w", err)
	}

	w = &domain.Wishlist{UserID: userID}
	err = s.wishlists.Create(ctx, w)
	if errors.Is(err, store.ErrDuplicate) {
		return s.wishlists.FindByUser(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("create wishlist: %w", err)
	}
	return w, nil
}

// Add saves a product. Adding a product that is already saved returns the
// existing item with created set to false.
func (s *Service) Add(ctx context.Context, userID, productID string) (item *domain.WishlistItem, created bool, err error) {
	if productID == "" {
		return nil, false, apperr.Validation("productId is required")
	}

	if _, err := s.products.Get(ctx, productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, apperr.NotFound("product not found")
		}
		return nil, false, fmt.Errorf("get product: %w", err)
	}

	w, err := s.findOrCreate(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.wishlists.FindItem(ctx, w.ID, productID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("find wishlist item: %w", err)
	}

	item = &domain.WishlistItem{WishlistID: w.ID, ProductID: productID}
	if err := s.wishlists.AddItem(ctx, item); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			existing, err := s.wishlists.FindItem(ctx, w.ID, productID)
			if err != nil {
				return nil, false, fmt.Errorf("find wishlist item: %w", err)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("add wishlist item: %w", err)
	}

	s.logger.Info("product added to wishlist", "user_id", userID, "product_id", productID)
	return item, true, nil
}

// Remove deletes one item. Removing an item that is not in the wishlist is
// not an error.
func (s *Service) Remove(ctx context.Context, userID, itemID string) error {
	w, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.wishlists.DeleteItem(ctx, w.ID, itemID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	w, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.wishlists.Clear(ctx, w.ID); err != nil {
		return fmt.Errorf("clear wishlist: %w", err)
	}
	return nil
}

func (s *Service) find(ctx context.Context, userID string) (*domain.Wishlist, error) {
	w, err := s.wishlists.FindByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("wishlist not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find wishlist: %w", err)
	}
	return w, nil
}
