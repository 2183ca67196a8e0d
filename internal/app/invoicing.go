package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/samirmartinez1984/EventFlow/internal/billing/factus"
	"github.com/samirmartinez1984/EventFlow/internal/clock"
	"github.com/samirmartinez1984/EventFlow/internal/domain"
)

type InvoicingRepository interface {
	GetPurchase(ctx context.Context, purchaseID string) (domain.Purchase, error)
	GetCategory(ctx context.Context, categoryID string) (domain.TicketCategory, error)
	GetCustomer(ctx context.Context, customerID string) (domain.Customer, error)
	SetInvoiceURL(ctx context.Context, purchaseID, url string) error
	ListPendingInvoiceIDs(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

type BillingClient interface {
	CreateInvoice(ctx context.Context, req factus.InvoiceRequest) (string, error)
}

// InvoicingWorkflow obtains billing documents for committed purchases. It
// runs outside the purchase transaction: every failure is logged and
// swallowed, so a purchase is complete with or without an invoice.
type InvoicingWorkflow struct {
	repo             InvoicingRepository
	billing          BillingClient
	clock            clock.Clock
	log              zerolog.Logger
	numberingRangeID int
	callTimeout      time.Duration
}

// Factus catalog constants for a natural-person ticket sale, carried over
// from the provider integration this replaces.
const (
	customerDocumentTypeID = 3
	customerLegalOrgID     = "2"
	customerTributeID      = "21"
	customerMunicipalityID = 980
	itemTaxRate            = "0.00"
	itemUnitMeasureID      = 70
	itemStandardCodeID     = 1
	itemIsExcluded         = 1
	itemTributeID          = 1
)

const defaultBillingTimeout = 10 * time.Second

func NewInvoicingWorkflow(repo InvoicingRepository, billing BillingClient, clk clock.Clock, log zerolog.Logger, opts ...InvoicingOption) *InvoicingWorkflow {
	w := &InvoicingWorkflow{
		repo:             repo,
		billing:          billing,
		clock:            clk,
		log:              log,
		numberingRangeID: 8,
		callTimeout:      defaultBillingTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type InvoicingOption func(*InvoicingWorkflow)

// WithNumberingRange sets the provider numbering range used on invoice
// requests.
func WithNumberingRange(id int) InvoicingOption {
	return func(w *InvoicingWorkflow) {
		if id > 0 {
			w.numberingRangeID = id
		}
	}
}

// WithBillingTimeout bounds the provider call so a hung provider cannot hold
// a worker indefinitely.
func WithBillingTimeout(d time.Duration) InvoicingOption {
	return func(w *InvoicingWorkflow) {
		if d > 0 {
			w.callTimeout = d
		}
	}
}

// HandlePurchaseCommitted re-reads the purchase from the system of record,
// builds an invoice request and attaches the returned document URL. It is
// safe to invoke more than once per purchase: an already invoiced purchase is
// a no-op, and a failed attempt leaves the purchase untouched.
func (w *InvoicingWorkflow) HandlePurchaseCommitted(ctx context.Context, purchaseID string) {
	log := w.log.With().Str("purchase_id", purchaseID).Logger()

	purchase, err := w.repo.GetPurchase(ctx, purchaseID)
	if err != nil {
		log.Error().Err(err).Msg("invoicing: load purchase failed")
		return
	}
	if purchase.Invoiced() {
		log.Debug().Msg("invoicing: purchase already invoiced, skipping")
		return
	}

	customer, err := w.repo.GetCustomer(ctx, purchase.CustomerID)
	if err != nil {
		log.Error().Err(err).Msg("invoicing: load customer failed")
		return
	}
	category, err := w.repo.GetCategory(ctx, purchase.CategoryID)
	if err != nil {
		log.Error().Err(err).Msg("invoicing: load category failed")
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	defer cancel()

	invoiceURL, err := w.billing.CreateInvoice(callCtx, w.buildRequest(purchase, customer, category))
	if err != nil {
		log.Error().Err(err).Msg("invoicing: provider call failed, purchase remains valid without invoice")
		return
	}

	if err := w.repo.SetInvoiceURL(ctx, purchase.ID, invoiceURL); err != nil {
		log.Error().Err(err).Msg("invoicing: attach invoice url failed")
		return
	}
	log.Info().Str("invoice_url", invoiceURL).Msg("invoicing: invoice attached")
}

// RunBackfill periodically re-submits purchases that still have no invoice
// after minAge. Together with the idempotent short-circuit above this gives
// the at-least-once behavior the in-process bus cannot provide on its own.
func (w *InvoicingWorkflow) RunBackfill(ctx context.Context, interval, minAge time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("invoicing backfill stopping")
			return
		case <-ticker.C:
			ids, err := w.repo.ListPendingInvoiceIDs(ctx, w.clock.Now().Add(-minAge), batchSize)
			if err != nil {
				w.log.Error().Err(err).Msg("invoicing backfill: list pending failed")
				continue
			}
			for _, id := range ids {
				w.HandlePurchaseCommitted(ctx, id)
			}
		}
	}
}

func (w *InvoicingWorkflow) buildRequest(p domain.Purchase, customer domain.Customer, category domain.TicketCategory) factus.InvoiceRequest {
	return factus.InvoiceRequest{
		NumberingRangeID: w.numberingRangeID,
		ReferenceCode:    w.referenceCode(p),
		Customer: factus.Customer{
			IdentificationDocumentID: customerDocumentTypeID,
			Identification:           customer.IdentityDocument,
			Names:                    customer.FullName,
			Email:                    customer.Email,
			LegalOrganizationID:      customerLegalOrgID,
			TributeID:                customerTributeID,
			MunicipalityID:           customerMunicipalityID,
		},
		Items: []factus.Item{{
			CodeReference:  "TICKET-" + category.ID,
			Name:           category.Name,
			Quantity:       p.Quantity,
			DiscountRate:   0,
			Price:          category.Price,
			TaxRate:        itemTaxRate,
			UnitMeasureID:  itemUnitMeasureID,
			StandardCodeID: itemStandardCodeID,
			IsExcluded:     itemIsExcluded,
			TributeID:      itemTributeID,
		}},
	}
}

// referenceCode is unique per attempt; retries of the same purchase produce
// distinct codes.
func (w *InvoicingWorkflow) referenceCode(p domain.Purchase) string {
	id := p.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("FACT-%d-%s", w.clock.Now().UnixMilli(), id)
}
