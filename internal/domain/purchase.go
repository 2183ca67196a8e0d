package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is a committed transaction of N tickets of one category by one
// customer. Total is the unit price snapshot times quantity, computed inside
// the same transaction that reserved the stock. InvoiceURL stays empty until
// the invoicing workflow attaches a billing document; its absence is a valid
// terminal state.
type Purchase struct {
	ID          string
	CustomerID  string
	CategoryID  string
	Quantity    int
	Total       decimal.Decimal
	PurchasedAt time.Time
	InvoiceURL  string
}

// Invoiced reports whether a billing document has been attached.
func (p Purchase) Invoiced() bool {
	return p.InvoiceURL != ""
}

// PurchaseCommitted is published after a purchase creation transaction has
// durably committed. It carries the id only; consumers re-read the purchase
// from the system of record.
type PurchaseCommitted struct {
	PurchaseID string `json:"purchase_id"`
}
