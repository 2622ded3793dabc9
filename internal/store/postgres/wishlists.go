package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
)

type WishlistRepository struct {
	db *sql.DB
}

func NewWishlistRepository(db *sql.DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

func (r *WishlistRepository) FindByUser(ctx context.Context, userID string) (*domain.Wishlist, error) {
	var w domain.Wishlist
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, created_at FROM wishlists WHERE user_id = $1
	`, userID).Scan(&w.ID, &w.UserID, &w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("find wishlist: %w", mapErr(err))
	}
	return &w, nil
}

func (r *WishlistRepository) Create(ctx context.Context, w *domain.Wishlist) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO wishlists (id, user_id) VALUES ($1, $2)
		RETURNING created_at
	`, w.ID, w.UserID).Scan(&w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert wishlist: %w", mapErr(err))
	}
	return nil
}

func (r *WishlistRepository) ListItems(ctx context.Context, wishlistID string) ([]domain.WishlistItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT wi.id, wi.wishlist_id, wi.product_id, wi.added_at,
			p.name, p.price, p.stock, p.sku, p.status, p.images
		FROM wishlist_items wi
		JOIN products p ON p.id = wi.product_id
		WHERE wi.wishlist_id = $1 AND p.status = $2
		ORDER BY wi.added_at DESC, wi.id
	`, wishlistID, domain.ProductActive)
	if err != nil {
		return nil, fmt.Errorf("list wishlist items: %w", mapErr(err))
	}
	defer func() { _ = rows.Close() }()

	out := []domain.WishlistItem{}
	for rows.Next() {
		var (
			it     domain.WishlistItem
			ps     domain.ProductSummary
			images []string
		)
		if err := rows.Scan(&it.ID, &it.WishlistID, &it.ProductID, &it.AddedAt,
			&ps.Name, &ps.Price, &ps.Stock, &ps.SKU, &ps.Status, pq.Array(&images)); err != nil {
			return nil, err
		}
		ps.ID = it.ProductID
		if len(images) > 0 {
			ps.Image = images[0]
		}
		it.Product = &ps
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *WishlistRepository) FindItem(ctx context.Context, wishlistID, productID string) (*domain.WishlistItem, error) {
	var it domain.WishlistItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, wishlist_id, product_id, added_at
		FROM wishlist_items WHERE wishlist_id = $1 AND product_id = $2
	`, wishlistID, productID).Scan(&it.ID, &it.WishlistID, &it.ProductID, &it.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("find wishlist item: %w", mapErr(err))
	}
	return &it, nil
}

func (r *WishlistRepository) AddItem(ctx context.Context, item *domain.WishlistItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO wishlist_items (id, wishlist_id, product_id) VALUES ($1, $2, $3)
		RETURNING added_at
	`, item.ID, item.WishlistID, item.ProductID).Scan(&item.AddedAt)
	if err != nil {
		return fmt.Errorf("insert wishlist item: %w", mapRefErr(err))
	}
	return nil
}

func (r *WishlistRepository) DeleteItem(ctx context.Context, wishlistID, itemID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM wishlist_items WHERE id = $1 AND wishlist_id = $2
	`, itemID, wishlistID)
	if err != nil {
		return fmt.Errorf("delete wishlist item %s: %w", itemID, mapErr(err))
	}
	return requireAffected(res)
}

func (r *WishlistRepository) Clear(ctx context.Context, wishlistID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE wishlist_id = $1`, wishlistID); err != nil {
		return fmt.Errorf("clear wishlist %s: %w", wishlistID, mapErr(err))
	}
	return nil
}

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, role, status
		FROM user_profiles WHERE id = $1
	`, userID).Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Role, &p.Status)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", userID, mapErr(err))
	}
	return &p, nil
}
