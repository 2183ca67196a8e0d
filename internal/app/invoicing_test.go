package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/samirmartinez1984/EventFlow/internal/billing/factus"
	"github.com/samirmartinez1984/EventFlow/internal/clock"
	"github.com/samirmartinez1984/EventFlow/internal/domain"
)

type fakeInvoicingRepo struct {
	mu         sync.Mutex
	purchases  map[string]domain.Purchase
	customers  map[string]domain.Customer
	categories map[string]domain.TicketCategory
}

func (r *fakeInvoicingRepo) GetPurchase(ctx context.Context, id string) (domain.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[id]
	if !ok {
		return domain.Purchase{}, domain.ErrPurchaseNotFound
	}
	return p, nil
}

func (r *fakeInvoicingRepo) GetCategory(ctx context.Context, id string) (domain.TicketCategory, error) {
	c, ok := r.categories[id]
	if !ok {
		return domain.TicketCategory{}, domain.ErrCategoryNotFound
	}
	return c, nil
}

func (r *fakeInvoicingRepo) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return c, nil
}

func (r *fakeInvoicingRepo) SetInvoiceURL(ctx context.Context, id, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[id]
	if !ok {
		return domain.ErrPurchaseNotFound
	}
	p.InvoiceURL = url
	r.purchases[id] = p
	return nil
}

func (r *fakeInvoicingRepo) ListPendingInvoiceIDs(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, p := range r.purchases {
		if !p.Invoiced() && p.PurchasedAt.Before(olderThan) {
			ids = append(ids, id)
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (r *fakeInvoicingRepo) purchase(id string) domain.Purchase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.purchases[id]
}

type fakeBilling struct {
	mu       sync.Mutex
	requests []factus.InvoiceRequest
	url      string
	err      error
}

func (b *fakeBilling) CreateInvoice(ctx context.Context, req factus.InvoiceRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if b.err != nil {
		return "", b.err
	}
	return b.url, nil
}

func (b *fakeBilling) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func seedInvoicingRepo() *fakeInvoicingRepo {
	return &fakeInvoicingRepo{
		purchases: map[string]domain.Purchase{
			"pur-12345678": {
				ID:          "pur-12345678",
				CustomerID:  "cust-1",
				CategoryID:  "cat-1",
				Quantity:    2,
				Total:       decimal.RequireFromString("100.00"),
				PurchasedAt: testNow.Add(-10 * time.Minute),
			},
		},
		customers: map[string]domain.Customer{
			"cust-1": {ID: "cust-1", FullName: "Ana Gomez", Email: "ana@example.com", IdentityDocument: "1012345678"},
		},
		categories: map[string]domain.TicketCategory{
			"cat-1": {ID: "cat-1", EventID: "event-1", Name: "General", Price: decimal.RequireFromString("50.00"), Available: 10},
		},
	}
}

func newTestWorkflow(repo InvoicingRepository, billing BillingClient) *InvoicingWorkflow {
	return NewInvoicingWorkflow(repo, billing, clock.NewFixed(testNow), zerolog.Nop())
}

func TestInvoicingWorkflow_HandlePurchaseCommitted(t *testing.T) {
	t.Parallel()

	t.Run("attaches the provider document url", func(t *testing.T) {
		repo := seedInvoicingRepo()
		billing := &fakeBilling{url: "https://provider.example/qr/abc"}
		w := newTestWorkflow(repo, billing)

		w.HandlePurchaseCommitted(context.Background(), "pur-12345678")

		p := repo.purchase("pur-12345678")
		if p.InvoiceURL != "https://provider.example/qr/abc" {
			t.Fatalf("expected invoice url attached, got %q", p.InvoiceURL)
		}
		if billing.calls() != 1 {
			t.Fatalf("expected one provider call, got %d", billing.calls())
		}

		req := billing.requests[0]
		if req.NumberingRangeID != 8 {
			t.Fatalf("expected default numbering range 8, got %d", req.NumberingRangeID)
		}
		if !strings.HasPrefix(req.ReferenceCode, "FACT-") || !strings.HasSuffix(req.ReferenceCode, "pur-1234") {
			t.Fatalf("unexpected reference code %q", req.ReferenceCode)
		}
		if req.Customer.Identification != "1012345678" || req.Customer.Names != "Ana Gomez" {
			t.Fatalf("unexpected customer payload %+v", req.Customer)
		}
		if len(req.Items) != 1 {
			t.Fatalf("expected a single item, got %d", len(req.Items))
		}
		item := req.Items[0]
		if item.CodeReference != "TICKET-cat-1" || item.Quantity != 2 || !item.Price.Equal(decimal.RequireFromString("50.00")) {
			t.Fatalf("unexpected item payload %+v", item)
		}
	})

	t.Run("already invoiced purchase is a no-op", func(t *testing.T) {
		repo := seedInvoicingRepo()
		const existing = "https://provider.example/qr/old"
		p := repo.purchases["pur-12345678"]
		p.InvoiceURL = existing
		repo.purchases["pur-12345678"] = p

		billing := &fakeBilling{url: "https://provider.example/qr/new"}
		w := newTestWorkflow(repo, billing)

		w.HandlePurchaseCommitted(context.Background(), "pur-12345678")

		if billing.calls() != 0 {
			t.Fatalf("expected no provider call, got %d", billing.calls())
		}
		if got := repo.purchase("pur-12345678"); got.InvoiceURL != existing {
			t.Fatalf("expected invoice url unchanged, got %q", got.InvoiceURL)
		}
	})

	t.Run("provider failure leaves the purchase untouched", func(t *testing.T) {
		repo := seedInvoicingRepo()
		billing := &fakeBilling{err: errors.New("provider unreachable")}
		w := newTestWorkflow(repo, billing)

		w.HandlePurchaseCommitted(context.Background(), "pur-12345678")

		p := repo.purchase("pur-12345678")
		if p.Invoiced() {
			t.Fatalf("expected no invoice url, got %q", p.InvoiceURL)
		}
		if p.Quantity != 2 || !p.Total.Equal(decimal.RequireFromString("100.00")) {
			t.Fatalf("expected purchase unchanged, got %+v", p)
		}
	})

	t.Run("retry after failure succeeds", func(t *testing.T) {
		repo := seedInvoicingRepo()
		billing := &fakeBilling{err: errors.New("provider unreachable")}
		w := newTestWorkflow(repo, billing)

		w.HandlePurchaseCommitted(context.Background(), "pur-12345678")

		billing.mu.Lock()
		billing.err = nil
		billing.url = "https://provider.example/qr/retry"
		billing.mu.Unlock()

		w.HandlePurchaseCommitted(context.Background(), "pur-12345678")

		p := repo.purchase("pur-12345678")
		if p.InvoiceURL != "https://provider.example/qr/retry" {
			t.Fatalf("expected invoice url after retry, got %q", p.InvoiceURL)
		}
	})

	t.Run("unknown purchase is logged and swallowed", func(t *testing.T) {
		repo := seedInvoicingRepo()
		billing := &fakeBilling{url: "https://provider.example/qr/abc"}
		w := newTestWorkflow(repo, billing)

		w.HandlePurchaseCommitted(context.Background(), "missing")

		if billing.calls() != 0 {
			t.Fatalf("expected no provider call, got %d", billing.calls())
		}
	})
}

func TestInvoicingWorkflow_RunBackfill(t *testing.T) {
	t.Parallel()

	repo := seedInvoicingRepo()
	billing := &fakeBilling{url: "https://provider.example/qr/backfill"}
	w := newTestWorkflow(repo, billing)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.RunBackfill(ctx, time.Millisecond, time.Minute, 10)
	}()

	deadline := time.After(2 * time.Second)
	for !repo.purchase("pur-12345678").Invoiced() {
		select {
		case <-deadline:
			cancel()
			t.Fatal("backfill never invoiced the pending purchase")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if got := repo.purchase("pur-12345678").InvoiceURL; got != "https://provider.example/qr/backfill" {
		t.Fatalf("unexpected invoice url %q", got)
	}
}
