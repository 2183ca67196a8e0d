package domain

import "github.com/shopspring/decimal"

// TicketCategory is a priced class of tickets for one event with a finite
// stock count. Available is mutated only through the inventory ledger's
// reserve/release statements and never goes negative.
type TicketCategory struct {
	ID        string
	EventID   string
	Name      string
	Price     decimal.Decimal
	Available int
}
