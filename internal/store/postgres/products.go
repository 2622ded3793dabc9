package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

const productColumns = `id, name, description, price, compare_at_price, category_id, subcategory_id,
	stock, sku, featured, status, tags, images, created_at, updated_at`

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row scanner) (*domain.Product, error) {
	var (
		p           domain.Product
		compareAt   decimal.NullDecimal
		category    sql.NullString
		subcategory sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &compareAt, &category, &subcategory,
		&p.Stock, &p.SKU, &p.Featured, &p.Status, pq.Array(&p.Tags), pq.Array(&p.Images),
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.CompareAtPrice = moneyPtr(compareAt)
	p.CategoryID = stringPtr(category)
	p.SubcategoryID = stringPtr(subcategory)
	return &p, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, mapErr(err))
	}

	variants, err := r.variants(ctx, r.db, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Variants = variants[p.ID]
	return p, nil
}

func (r *ProductRepository) variants(ctx context.Context, q querier, productIDs []string) (map[string][]domain.Variant, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, size, color, price, stock, sku
		FROM product_variants
		WHERE product_id = ANY($1)
		ORDER BY product_id, position
	`, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := map[string][]domain.Variant{}
	for rows.Next() {
		var (
			v     domain.Variant
			price decimal.NullDecimal
		)
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Size, &v.Color, &price, &v.Stock, &v.SKU); err != nil {
			return nil, err
		}
		v.Price = moneyPtr(price)
		out[v.ProductID] = append(out[v.ProductID], v)
	}
	return out, rows.Err()
}

var sortColumns = map[store.ProductSort]string{
	store.SortCreatedAt: "created_at",
	store.SortPrice:     "price",
	store.SortName:      "name",
}

func productWhere(f store.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.ExcludeID != "" {
		add("id <> $%d", f.ExcludeID)
	}
	if f.CategoryID != "" {
		add("category_id = $%d", f.CategoryID)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if f.Featured != nil {
		add("featured = $%d", *f.Featured)
	}
	if f.Search != "" {
		args = append(args, containsPattern(f.Search))
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *ProductRepository) List(ctx context.Context, f store.ProductFilter, page store.Page) ([]domain.Product, int, error) {
	where, args := productWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", mapErr(err))
	}

	column, ok := sortColumns[f.Sort]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if f.Ascending {
		direction = "ASC"
	}

	query := `SELECT ` + productColumns + ` FROM products` + where +
		fmt.Sprintf(" ORDER BY %s %s, id LIMIT $%d OFFSET $%d", column, direction, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", mapErr(err))
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	ids := []string{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		variants, err := r.variants(ctx, r.db, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range products {
			products[i].Variants = variants[products[i].ID]
		}
	}

	return products, total, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO products (id, name, description, price, compare_at_price, category_id, subcategory_id,
			stock, sku, featured, status, tags, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Description, p.Price, nullMoney(p.CompareAtPrice), nullString(p.CategoryID),
		nullString(p.SubcategoryID), p.Stock, p.SKU, p.Featured, p.Status, textArray(p.Tags), textArray(p.Images),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", mapRefErr(err))
	}

	if err := insertVariants(ctx, tx, p); err != nil {
		return err
	}

	return tx.Commit()
}

func insertVariants(ctx context.Context, tx *sql.Tx, p *domain.Product) error {
	for i := range p.Variants {
		v := &p.Variants[i]
		v.ID = uuid.New().String()
		v.ProductID = p.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_variants (id, product_id, size, color, price, stock, sku, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, v.ID, v.ProductID, v.Size, v.Color, nullMoney(v.Price), v.Stock, v.SKU, i)
		if err != nil {
			return fmt.Errorf("insert variant %s: %w", v.SKU, mapErr(err))
		}
	}
	return nil
}

// Update overwrites the product row. Variants are replaced only when
// replaceVariants is set; otherwise p.Variants is refreshed from storage.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product, replaceVariants bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		UPDATE products SET name = $2, description = $3, price = $4, compare_at_price = $5,
			category_id = $6, subcategory_id = $7, stock = $8, sku = $9, featured = $10,
			status = $11, tags = $12, images = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Description, p.Price, nullMoney(p.CompareAtPrice), nullString(p.CategoryID),
		nullString(p.SubcategoryID), p.Stock, p.SKU, p.Featured, p.Status, textArray(p.Tags), textArray(p.Images),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product %s: %w", p.ID, mapRefErr(err))
	}

	if replaceVariants {
		if _, err := tx.ExecContext(ctx, `DELETE FROM product_variants WHERE product_id = $1`, p.ID); err != nil {
			return fmt.Errorf("delete variants: %w", err)
		}
		if err := insertVariants(ctx, tx, p); err != nil {
			return err
		}
	} else {
		variants, err := r.variants(ctx, tx, []string{p.ID})
		if err != nil {
			return err
		}
		p.Variants = variants[p.ID]
	}

	return tx.Commit()
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, mapErr(err))
	}
	return requireAffected(res)
}

func (r *ProductRepository) IncrementStock(ctx context.Context, id string, delta int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust stock %s: %w", id, mapErr(err))
	}
	return requireAffected(res)
}

func (r *ProductRepository) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM products WHERE category_id = $1 OR subcategory_id = $1
	`, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count products in %s: %w", categoryID, mapErr(err))
	}
	return n, nil
}
