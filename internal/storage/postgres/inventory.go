package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirmartinez1984/EventFlow/internal/domain"
)

// InventoryLedger is the sole writer of ticket_categories.available. Both
// operations are single conditional statements, so concurrent callers against
// the same category serialize on the row without a read-modify-write window.
type InventoryLedger struct {
	pool *pgxpool.Pool
}

func NewInventoryLedger(pool *pgxpool.Pool) *InventoryLedger {
	return &InventoryLedger{pool: pool}
}

// Reserve decrements available by qty if and only if enough stock remains.
// ErrInsufficientStock is an expected business outcome, distinguishable from
// ErrCategoryNotFound.
func (l *InventoryLedger) Reserve(ctx context.Context, categoryID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	const stmt = `
UPDATE ticket_categories
SET available = available - $2
WHERE id = $1 AND available >= $2`

	tag, err := l.exec(ctx, stmt, categoryID, qty)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("reserve stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		exists, err := l.categoryExists(ctx, categoryID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrCategoryNotFound
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

// Release restores qty previously reserved for a purchase being amended or
// deleted.
func (l *InventoryLedger) Release(ctx context.Context, categoryID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	const stmt = `UPDATE ticket_categories SET available = available + $2 WHERE id = $1`

	tag, err := l.exec(ctx, stmt, categoryID, qty)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("release stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (l *InventoryLedger) categoryExists(ctx context.Context, categoryID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM ticket_categories WHERE id = $1)`

	var exists bool
	if err := l.queryRow(ctx, query, categoryID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return exists, nil
}

func (l *InventoryLedger) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return l.pool.Exec(ctx, sql, args...)
}

func (l *InventoryLedger) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return l.pool.QueryRow(ctx, sql, args...)
}
