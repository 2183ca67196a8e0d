package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirmartinez1984/EventFlow/internal/domain"
)

// CatalogRepository persists events and ticket categories. It never touches
// the available counter on existing rows; stock movement belongs to the
// inventory ledger.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `INSERT INTO events (id, name, starts_at) VALUES ($1, $2, $3)`

	_, err := r.exec(ctx, stmt, event.ID, event.Name, event.StartsAt)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	const query = `SELECT id, name, starts_at FROM events ORDER BY starts_at`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.StartsAt); err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, c domain.TicketCategory) error {
	const stmt = `
INSERT INTO ticket_categories (id, event_id, name, price, available)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, c.ID, c.EventID, c.Name, c.Price, c.Available)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetCategory(ctx context.Context, categoryID string) (domain.TicketCategory, error) {
	const query = `SELECT id, event_id, name, price, available FROM ticket_categories WHERE id = $1`

	var c domain.TicketCategory
	err := r.queryRow(ctx, query, categoryID).Scan(&c.ID, &c.EventID, &c.Name, &c.Price, &c.Available)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.TicketCategory{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.TicketCategory{}, domain.ErrCategoryNotFound
		}
		return domain.TicketCategory{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *CatalogRepository) ListCategoriesByEvent(ctx context.Context, eventID string) ([]domain.TicketCategory, error) {
	const query = `
SELECT id, event_id, name, price, available
FROM ticket_categories
WHERE event_id = $1
ORDER BY name`

	rows, err := r.query(ctx, query, eventID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.TicketCategory, 0)
	for rows.Next() {
		var c domain.TicketCategory
		if err := rows.Scan(&c.ID, &c.EventID, &c.Name, &c.Price, &c.Available); err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *CatalogRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *CatalogRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *CatalogRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
