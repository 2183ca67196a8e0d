package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirmartinez1984/EventFlow/internal/domain"
)

// PurchaseRepository persists purchase rows and exposes the inventory ledger
// operations tx-scoped through the context, so the purchase service can run
// stock movement and row writes as one atomic unit.
type PurchaseRepository struct {
	pool   *pgxpool.Pool
	ledger *InventoryLedger
}

func NewPurchaseRepository(pool *pgxpool.Pool) *PurchaseRepository {
	return &PurchaseRepository{pool: pool, ledger: NewInventoryLedger(pool)}
}

func (r *PurchaseRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *PurchaseRepository) ReserveStock(ctx context.Context, categoryID string, qty int) error {
	return r.ledger.Reserve(ctx, categoryID, qty)
}

func (r *PurchaseRepository) ReleaseStock(ctx context.Context, categoryID string, qty int) error {
	return r.ledger.Release(ctx, categoryID, qty)
}

func (r *PurchaseRepository) GetCategory(ctx context.Context, categoryID string) (domain.TicketCategory, error) {
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

func (r *PurchaseRepository) GetCustomer(ctx context.Context, customerID string) (domain.Customer, error) {
	const query = `SELECT id, full_name, email, identity_document FROM customers WHERE id = $1`

	var c domain.Customer
	err := r.queryRow(ctx, query, customerID).Scan(&c.ID, &c.FullName, &c.Email, &c.IdentityDocument)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Customer{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *PurchaseRepository) CreatePurchase(ctx context.Context, p domain.Purchase) error {
	const stmt = `
INSERT INTO purchases (id, customer_id, category_id, quantity, total, purchased_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, p.ID, p.CustomerID, p.CategoryID, p.Quantity, p.Total, p.PurchasedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create purchase: %w", err)
	}
	return nil
}

func (r *PurchaseRepository) GetPurchase(ctx context.Context, purchaseID string) (domain.Purchase, error) {
	const query = `
SELECT id, customer_id, category_id, quantity, total, purchased_at, invoice_url
FROM purchases
WHERE id = $1`

	return r.scanPurchase(r.queryRow(ctx, query, purchaseID))
}

// GetPurchaseForUpdate locks the purchase row so concurrent updates or
// deletes of the same purchase serialize.
func (r *PurchaseRepository) GetPurchaseForUpdate(ctx context.Context, purchaseID string) (domain.Purchase, error) {
	const query = `
SELECT id, customer_id, category_id, quantity, total, purchased_at, invoice_url
FROM purchases
WHERE id = $1
FOR UPDATE`

	return r.scanPurchase(r.queryRow(ctx, query, purchaseID))
}

func (r *PurchaseRepository) UpdatePurchase(ctx context.Context, p domain.Purchase) error {
	const stmt = `
UPDATE purchases
SET category_id = $2, quantity = $3, total = $4, purchased_at = $5
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, p.ID, p.CategoryID, p.Quantity, p.Total, p.PurchasedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update purchase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPurchaseNotFound
	}
	return nil
}

func (r *PurchaseRepository) DeletePurchase(ctx context.Context, purchaseID string) error {
	const stmt = `DELETE FROM purchases WHERE id = $1`

	tag, err := r.exec(ctx, stmt, purchaseID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete purchase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPurchaseNotFound
	}
	return nil
}

func (r *PurchaseRepository) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	const query = `
SELECT id, customer_id, category_id, quantity, total, purchased_at, invoice_url
FROM purchases
ORDER BY purchased_at DESC`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	purchases := make([]domain.Purchase, 0)
	for rows.Next() {
		p, err := r.scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return purchases, nil
}

// SetInvoiceURL attaches the billing document reference. It is the only
// purchase mutation the invoicing workflow performs.
func (r *PurchaseRepository) SetInvoiceURL(ctx context.Context, purchaseID, url string) error {
	const stmt = `UPDATE purchases SET invoice_url = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, purchaseID, url)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set invoice url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPurchaseNotFound
	}
	return nil
}

// ListPendingInvoiceIDs returns purchases still waiting for an invoice,
// oldest first. The backfill sweep uses it as its work queue.
func (r *PurchaseRepository) ListPendingInvoiceIDs(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	const query = `
SELECT id
FROM purchases
WHERE invoice_url IS NULL AND purchased_at < $1
ORDER BY purchased_at
LIMIT $2`

	rows, err := r.query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending invoices: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list pending invoices: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending invoices: %w", err)
	}
	return ids, nil
}

func (r *PurchaseRepository) scanPurchase(row pgx.Row) (domain.Purchase, error) {
	var p domain.Purchase
	var invoiceURL *string
	err := row.Scan(&p.ID, &p.CustomerID, &p.CategoryID, &p.Quantity, &p.Total, &p.PurchasedAt, &invoiceURL)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Purchase{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Purchase{}, domain.ErrPurchaseNotFound
		}
		return domain.Purchase{}, fmt.Errorf("scan purchase: %w", err)
	}
	if invoiceURL != nil {
		p.InvoiceURL = *invoiceURL
	}
	return p, nil
}

func (r *PurchaseRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *PurchaseRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *PurchaseRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
