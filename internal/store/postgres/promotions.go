package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

const promotionColumns = `id, name, description, code, type, value, min_purchase, max_discount,
	start_date, end_date, is_active, usage_limit_per_user, usage_limit_total, usage_count, conditions,
	created_at, updated_at`

type PromotionRepository struct {
	db *sql.DB
}

func NewPromotionRepository(db *sql.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

func scanPromotion(row scanner) (*domain.Promotion, error) {
	var (
		p           domain.Promotion
		code        sql.NullString
		maxDiscount decimal.NullDecimal
		perUser     sql.NullInt64
		total       sql.NullInt64
		conditions  []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &code, &p.Type, &p.Value, &p.MinPurchase, &maxDiscount,
		&p.StartDate, &p.EndDate, &p.IsActive, &perUser, &total, &p.UsageCount, &conditions,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Code = stringPtr(code)
	p.MaxDiscount = moneyPtr(maxDiscount)
	p.UsageLimitPerUser = intPtr(perUser)
	p.UsageLimitTotal = intPtr(total)
	if conditions != nil {
		p.Conditions = json.RawMessage(conditions)
	}
	return &p, nil
}

func (r *PromotionRepository) Get(ctx context.Context, id string) (*domain.Promotion, error) {
	p, err := scanPromotion(r.db.QueryRowContext(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get promotion %s: %w", id, mapErr(err))
	}
	return p, nil
}

func (r *PromotionRepository) GetByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	p, err := scanPromotion(r.db.QueryRowContext(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE code = $1`, code))
	if err != nil {
		return nil, fmt.Errorf("get promotion by code: %w", mapErr(err))
	}
	return p, nil
}

func (r *PromotionRepository) List(ctx context.Context, liveAt *time.Time, page store.Page) ([]domain.Promotion, int, error) {
	where := ""
	args := []any{}
	if liveAt != nil {
		where = ` WHERE is_active AND start_date <= $1 AND end_date >= $1`
		args = append(args, *liveAt)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM promotions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count promotions: %w", err)
	}

	query := `SELECT ` + promotionColumns + ` FROM promotions` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list promotions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PromotionRepository) Create(ctx context.Context, p *domain.Promotion) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO promotions (id, name, description, code, type, value, min_purchase, max_discount,
			start_date, end_date, is_active, usage_limit_per_user, usage_limit_total, conditions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING usage_count, created_at, updated_at
	`, p.ID, p.Name, p.Description, nullString(p.Code), p.Type, p.Value, p.MinPurchase, nullMoney(p.MaxDiscount),
		p.StartDate, p.EndDate, p.IsActive, nullInt(p.UsageLimitPerUser), nullInt(p.UsageLimitTotal),
		nullJSON(p.Conditions),
	).Scan(&p.UsageCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert promotion: %w", mapErr(err))
	}
	return nil
}

// Update leaves usage_count alone; it only moves through IncrementUsage.
func (r *PromotionRepository) Update(ctx context.Context, p *domain.Promotion) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE promotions SET name = $2, description = $3, code = $4, type = $5, value = $6,
			min_purchase = $7, max_discount = $8, start_date = $9, end_date = $10, is_active = $11,
			usage_limit_per_user = $12, usage_limit_total = $13, conditions = $14, updated_at = NOW()
		WHERE id = $1
		RETURNING usage_count, created_at, updated_at
	`, p.ID, p.Name, p.Description, nullString(p.Code), p.Type, p.Value, p.MinPurchase, nullMoney(p.MaxDiscount),
		p.StartDate, p.EndDate, p.IsActive, nullInt(p.UsageLimitPerUser), nullInt(p.UsageLimitTotal),
		nullJSON(p.Conditions),
	).Scan(&p.UsageCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update promotion %s: %w", p.ID, mapErr(err))
	}
	return nil
}

func (r *PromotionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promotion %s: %w", id, mapErr(err))
	}
	return requireAffected(res)
}

func (r *PromotionRepository) IncrementUsage(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE promotions SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("increment usage %s: %w", id, mapErr(err))
	}
	return requireAffected(res)
}
