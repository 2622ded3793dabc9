// Package postgres implements the store repositories on PostgreSQL using
// database/sql with the lib/pq driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

// Store hands out repositories sharing one connection pool.
type Store struct {
	db *sql.DB
}

var _ store.Backend = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Products() store.ProductRepository {
	return NewProductRepository(s.db)
}

func (s *Store) Categories() store.CategoryRepository {
	return NewCategoryRepository(s.db)
}

func (s *Store) Carts() store.CartRepository {
	return NewCartRepository(s.db)
}

func (s *Store) AppliedCoupons() store.AppliedCouponRepository {
	return NewAppliedCouponRepository(s.db)
}

func (s *Store) Promotions() store.PromotionRepository {
	return NewPromotionRepository(s.db)
}

func (s *Store) Orders() store.OrderRepository {
	return NewOrderRepository(s.db)
}

func (s *Store) Wishlists() store.WishlistRepository {
	return NewWishlistRepository(s.db)
}

func (s *Store) Profiles() store.ProfileRepository {
	return NewProfileRepository(s.db)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// mapErr translates driver errors into store sentinels. Malformed ids can
// never match a row, so they read as not found.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return store.ErrDuplicate
		case codeInvalidText:
			return store.ErrNotFound
		}
	}
	return err
}

// mapRefErr is mapErr for inserts whose foreign keys come from the caller.
func mapRefErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation {
		return store.ErrNotFound
	}
	return mapErr(err)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullMoney(m *domain.Money) any {
	if m == nil {
		return nil
	}
	return *m
}

func moneyPtr(nd decimal.NullDecimal) *domain.Money {
	if !nd.Valid {
		return nil
	}
	m := nd.Decimal
	return &m
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return int64(*i)
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	i := int(ni.Int64)
	return &i
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// textArray never yields NULL so NOT NULL array columns accept empty input.
func textArray(s []string) any {
	if s == nil {
		s = []string{}
	}
	return pq.Array(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
