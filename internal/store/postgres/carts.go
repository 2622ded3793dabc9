package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
)

type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) FindByOwner(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	column, value := "session_id", owner.SessionID
	if owner.IsUser() {
		column, value = "user_id", owner.UserID
	}

	var (
		c         domain.Cart
		userID    sql.NullString
		sessionID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, session_id, subtotal, discount_total, tax_total, shipping_total, grand_total,
			created_at, updated_at
		FROM carts WHERE `+column+` = $1
	`, value).Scan(&c.ID, &userID, &sessionID, &c.Subtotal, &c.DiscountTotal, &c.TaxTotal,
		&c.ShippingTotal, &c.GrandTotal, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("find cart for %s: %w", owner.Key(), mapErr(err))
	}
	c.UserID = stringPtr(userID)
	c.SessionID = stringPtr(sessionID)
	return &c, nil
}

func (r *CartRepository) Create(ctx context.Context, c *domain.Cart) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO carts (id, user_id, session_id, subtotal, discount_total, tax_total, shipping_total, grand_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, c.ID, nullString(c.UserID), nullString(c.SessionID), c.Subtotal, c.DiscountTotal, c.TaxTotal,
		c.ShippingTotal, c.GrandTotal,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert cart: %w", mapErr(err))
	}
	return nil
}

func (r *CartRepository) UpdateTotals(ctx context.Context, cartID string, t domain.Totals) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE carts SET subtotal = $2, discount_total = $3, tax_total = $4, shipping_total = $5,
			grand_total = $6, updated_at = NOW()
		WHERE id = $1
	`, cartID, t.Subtotal, t.DiscountTotal, t.TaxTotal, t.ShippingTotal, t.GrandTotal)
	if err != nil {
		return fmt.Errorf("update cart totals %s: %w", cartID, mapErr(err))
	}
	return requireAffected(res)
}

const itemWithProduct = `
	SELECT ci.id, ci.cart_id, ci.product_id, ci.variant_id, ci.quantity, ci.price, ci.saved_for_later, ci.created_at,
		p.name, p.price, p.stock, p.sku, p.status, p.images,
		v.id, v.size, v.color, v.price, v.stock, v.sku
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	LEFT JOIN product_variants v ON v.id = ci.variant_id
`

func scanItemWithProduct(row scanner) (*domain.LineItem, error) {
	var (
		it        domain.LineItem
		variantID sql.NullString
		ps        domain.ProductSummary
		images    []string

		vID    sql.NullString
		vSize  sql.NullString
		vColor sql.NullString
		vPrice decimal.NullDecimal
		vStock sql.NullInt64
		vSKU   sql.NullString
	)
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &variantID, &it.Quantity, &it.Price,
		&it.SavedForLater, &it.CreatedAt,
		&ps.Name, &ps.Price, &ps.Stock, &ps.SKU, &ps.Status, pq.Array(&images),
		&vID, &vSize, &vColor, &vPrice, &vStock, &vSKU)
	if err != nil {
		return nil, err
	}

	it.VariantID = stringPtr(variantID)
	ps.ID = it.ProductID
	if len(images) > 0 {
		ps.Image = images[0]
	}
	it.Product = &ps

	if vID.Valid {
		it.Variant = &domain.Variant{
			ID:        vID.String,
			ProductID: it.ProductID,
			Size:      vSize.String,
			Color:     vColor.String,
			Price:     moneyPtr(vPrice),
			Stock:     int(vStock.Int64),
			SKU:       vSKU.String,
		}
	}
	return &it, nil
}

func (r *CartRepository) ListItems(ctx context.Context, cartID string) ([]domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, itemWithProduct+`
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items %s: %w", cartID, mapErr(err))
	}
	defer func() { _ = rows.Close() }()

	items := []domain.LineItem{}
	for rows.Next() {
		it, err := scanItemWithProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *CartRepository) GetItem(ctx context.Context, cartID, itemID string) (*domain.LineItem, error) {
	it, err := scanItemWithProduct(r.db.QueryRowContext(ctx, itemWithProduct+`
		WHERE ci.cart_id = $1 AND ci.id = $2
	`, cartID, itemID))
	if err != nil {
		return nil, fmt.Errorf("get cart item %s: %w", itemID, mapErr(err))
	}
	return it, nil
}

func (r *CartRepository) FindItem(ctx context.Context, cartID, productID string, variantID *string) (*domain.LineItem, error) {
	var (
		it      domain.LineItem
		variant sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, cart_id, product_id, variant_id, quantity, price, saved_for_later, created_at
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2 AND variant_id IS NOT DISTINCT FROM $3::uuid
	`, cartID, productID, nullString(variantID)).Scan(&it.ID, &it.CartID, &it.ProductID, &variant,
		&it.Quantity, &it.Price, &it.SavedForLater, &it.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("find cart item: %w", mapErr(err))
	}
	it.VariantID = stringPtr(variant)
	return &it, nil
}

func (r *CartRepository) AddItem(ctx context.Context, item *domain.LineItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, variant_id, quantity, price, saved_for_later)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, item.ID, item.CartID, item.ProductID, nullString(item.VariantID), item.Quantity, item.Price,
		item.SavedForLater).Scan(&item.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", mapRefErr(err))
	}
	return nil
}

func (r *CartRepository) UpdateItem(ctx context.Context, item *domain.LineItem) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = $3, saved_for_later = $4
		WHERE id = $1 AND cart_id = $2
	`, item.ID, item.CartID, item.Quantity, item.SavedForLater)
	if err != nil {
		return fmt.Errorf("update cart item %s: %w", item.ID, mapErr(err))
	}
	return requireAffected(res)
}

func (r *CartRepository) DeleteItem(ctx context.Context, cartID, itemID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return fmt.Errorf("delete cart item %s: %w", itemID, mapErr(err))
	}
	return requireAffected(res)
}

func (r *CartRepository) ClearItems(ctx context.Context, cartID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart %s: %w", cartID, mapErr(err))
	}
	return nil
}

type AppliedCouponRepository struct {
	db *sql.DB
}

func NewAppliedCouponRepository(db *sql.DB) *AppliedCouponRepository {
	return &AppliedCouponRepository{db: db}
}

func scanCoupon(row scanner) (*domain.AppliedCoupon, error) {
	var c domain.AppliedCoupon
	if err := row.Scan(&c.ID, &c.CartID, &c.PromotionID, &c.Code, &c.Discount, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *AppliedCouponRepository) List(ctx context.Context, cartID string) ([]domain.AppliedCoupon, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, cart_id, promotion_id, code, discount, created_at
		FROM applied_coupons WHERE cart_id = $1
		ORDER BY created_at, id
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list coupons %s: %w", cartID, mapErr(err))
	}
	defer func() { _ = rows.Close() }()

	out := []domain.AppliedCoupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *AppliedCouponRepository) Get(ctx context.Context, cartID, id string) (*domain.AppliedCoupon, error) {
	c, err := scanCoupon(r.db.QueryRowContext(ctx, `
		SELECT id, cart_id, promotion_id, code, discount, created_at
		FROM applied_coupons WHERE cart_id = $1 AND id = $2
	`, cartID, id))
	if err != nil {
		return nil, fmt.Errorf("get coupon %s: %w", id, mapErr(err))
	}
	return c, nil
}

func (r *AppliedCouponRepository) Create(ctx context.Context, c *domain.AppliedCoupon) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO applied_coupons (id, cart_id, promotion_id, code, discount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, c.ID, c.CartID, c.PromotionID, c.Code, c.Discount).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert coupon: %w", mapRefErr(err))
	}
	return nil
}

func (r *AppliedCouponRepository) Delete(ctx context.Context, cartID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM applied_coupons WHERE id = $1 AND cart_id = $2`, id, cartID)
	if err != nil {
		return fmt.Errorf("delete coupon %s: %w", id, mapErr(err))
	}
	return requireAffected(res)
}

func (r *AppliedCouponRepository) DeleteAll(ctx context.Context, cartID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM applied_coupons WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("delete coupons %s: %w", cartID, mapErr(err))
	}
	return nil
}

func (r *AppliedCouponRepository) CountByPromotion(ctx context.Context, promotionID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applied_coupons WHERE promotion_id = $1`, promotionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count coupons for %s: %w", promotionID, mapErr(err))
	}
	return n, nil
}
