package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
)

const categoryColumns = `id, name, description, slug, parent_id, level, image, is_active, created_at, updated_at`

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func scanCategory(row scanner) (*domain.Category, error) {
	var (
		c      domain.Category
		parent sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Slug, &parent, &c.Level, &c.Image,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ParentID = stringPtr(parent)
	return &c, nil
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (*domain.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get category %s: %w", id, mapErr(err))
	}
	return c, nil
}

func (r *CategoryRepository) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	return r.query(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE is_active OR NOT $1
		ORDER BY name, id
	`, activeOnly)
}

func (r *CategoryRepository) Children(ctx context.Context, parentID string) ([]domain.Category, error) {
	return r.query(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE parent_id = $1
		ORDER BY name, id
	`, parentID)
}

func (r *CategoryRepository) query(ctx context.Context, query string, args ...any) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", mapErr(err))
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO categories (id, name, description, slug, parent_id, level, image, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.Description, c.Slug, nullString(c.ParentID), c.Level, c.Image, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert category: %w", mapRefErr(err))
	}
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE categories SET name = $2, description = $3, slug = $4, parent_id = $5,
			level = $6, image = $7, is_active = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.Description, c.Slug, nullString(c.ParentID), c.Level, c.Image, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update category %s: %w", c.ID, mapRefErr(err))
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category %s: %w", id, mapErr(err))
	}
	return requireAffected(res)
}
