package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

const orderColumns = `id, order_number, user_id, email, status, payment_method, shipping_method,
	subtotal, discount_total, tax_total, shipping_total, grand_total, notes, created_at, updated_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create writes the order and all of its children in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if o.ID == "" {
		o.ID = uuid.New().String()
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (id, order_number, user_id, email, status, payment_method, shipping_method,
			subtotal, discount_total, tax_total, shipping_total, grand_total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`, o.ID, o.OrderNumber, nullString(o.UserID), o.Email, o.Status, o.PaymentMethod, o.ShippingMethod,
		o.Subtotal, o.DiscountTotal, o.TaxTotal, o.ShippingTotal, o.GrandTotal, o.Notes,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", mapErr(err))
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.ID = uuid.New().String()
		item.OrderID = o.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, variant_id, name, sku, price, quantity, subtotal, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, item.ID, item.OrderID, item.ProductID, nullString(item.VariantID), item.Name, item.SKU,
			item.Price, item.Quantity, item.Subtotal, i)
		if err != nil {
			return fmt.Errorf("insert order item: %w", mapErr(err))
		}
	}

	for i := range o.Addresses {
		a := &o.Addresses[i]
		a.ID = uuid.New().String()
		a.OrderID = o.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_addresses (id, order_id, type, first_name, last_name, address_line1, address_line2,
				city, state, postal_code, country, phone)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, a.ID, a.OrderID, a.Type, a.FirstName, a.LastName, a.AddressLine1, a.AddressLine2,
			a.City, a.State, a.PostalCode, a.Country, a.Phone)
		if err != nil {
			return fmt.Errorf("insert %s address: %w", a.Type, mapErr(err))
		}
	}

	for i := range o.StatusHistory {
		h := &o.StatusHistory[i]
		h.ID = uuid.New().String()
		h.OrderID = o.ID
		h.CreatedAt = o.CreatedAt
		if err := insertHistory(ctx, tx, h); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertHistory(ctx context.Context, q querier, h *domain.StatusEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO order_status_history (id, order_id, status, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, h.ID, h.OrderID, h.Status, h.Note, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert status history: %w", mapErr(err))
	}
	return nil
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		o      domain.Order
		userID sql.NullString
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &userID, &o.Email, &o.Status, &o.PaymentMethod, &o.ShippingMethod,
		&o.Subtotal, &o.DiscountTotal, &o.TaxTotal, &o.ShippingTotal, &o.GrandTotal, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.UserID = stringPtr(userID)
	return &o, nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, mapErr(err))
	}
	if err := r.loadChildren(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) loadChildren(ctx context.Context, o *domain.Order) error {
	items, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, variant_id, name, sku, price, quantity, subtotal
		FROM order_items WHERE order_id = $1
		ORDER BY position
	`, o.ID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer func() { _ = items.Close() }()

	o.Items = []domain.OrderItem{}
	for items.Next() {
		var (
			it      domain.OrderItem
			variant sql.NullString
		)
		if err := items.Scan(&it.ID, &it.OrderID, &it.ProductID, &variant, &it.Name, &it.SKU,
			&it.Price, &it.Quantity, &it.Subtotal); err != nil {
			return err
		}
		it.VariantID = stringPtr(variant)
		o.Items = append(o.Items, it)
	}
	if err := items.Err(); err != nil {
		return err
	}

	addresses, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, type, first_name, last_name, address_line1, address_line2,
			city, state, postal_code, country, phone
		FROM order_addresses WHERE order_id = $1
		ORDER BY CASE type WHEN 'shipping' THEN 0 ELSE 1 END
	`, o.ID)
	if err != nil {
		return fmt.Errorf("list order addresses: %w", err)
	}
	defer func() { _ = addresses.Close() }()

	o.Addresses = []domain.Address{}
	for addresses.Next() {
		var a domain.Address
		if err := addresses.Scan(&a.ID, &a.OrderID, &a.Type, &a.FirstName, &a.LastName, &a.AddressLine1,
			&a.AddressLine2, &a.City, &a.State, &a.PostalCode, &a.Country, &a.Phone); err != nil {
			return err
		}
		o.Addresses = append(o.Addresses, a)
	}
	if err := addresses.Err(); err != nil {
		return err
	}

	history, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, status, note, created_at
		FROM order_status_history WHERE order_id = $1
		ORDER BY created_at, id
	`, o.ID)
	if err != nil {
		return fmt.Errorf("list status history: %w", err)
	}
	defer func() { _ = history.Close() }()

	o.StatusHistory = []domain.StatusEntry{}
	for history.Next() {
		var h domain.StatusEntry
		if err := history.Scan(&h.ID, &h.OrderID, &h.Status, &h.Note, &h.CreatedAt); err != nil {
			return err
		}
		o.StatusHistory = append(o.StatusHistory, h)
	}
	return history.Err()
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string, page store.Page) ([]domain.Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		if mapErr(err) == store.ErrNotFound {
			return []domain.Order{}, 0, nil
		}
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, 0, err
	}
	_ = rows.Close()

	for i := range orders {
		if err := r.loadChildren(ctx, &orders[i]); err != nil {
			return nil, 0, err
		}
	}
	return orders, total, nil
}

// SetStatus updates the order and appends the history entry atomically.
func (r *OrderRepository) SetStatus(ctx context.Context, id string, entry domain.StatusEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, id, entry.Status).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("update order status %s: %w", id, mapErr(err))
	}

	entry.ID = uuid.New().String()
	entry.OrderID = id
	if err := insertHistory(ctx, tx, &entry); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *OrderRepository) LatestNumber(ctx context.Context, prefix string) (string, error) {
	var latest string
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(order_number), '') FROM orders WHERE order_number LIKE $1
	`, likeEscaper.Replace(prefix)+"%").Scan(&latest)
	if err != nil {
		return "", fmt.Errorf("latest order number: %w", err)
	}
	return latest, nil
}
