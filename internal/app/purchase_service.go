package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/samirmartinez1984/EventFlow/internal/clock"
	"github.com/samirmartinez1984/EventFlow/internal/domain"
)

type PurchaseRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetCategory(ctx context.Context, categoryID string) (domain.TicketCategory, error)
	ReserveStock(ctx context.Context, categoryID string, qty int) error
	ReleaseStock(ctx context.Context, categoryID string, qty int) error
	CreatePurchase(ctx context.Context, p domain.Purchase) error
	GetPurchase(ctx context.Context, purchaseID string) (domain.Purchase, error)
	GetPurchaseForUpdate(ctx context.Context, purchaseID string) (domain.Purchase, error)
	UpdatePurchase(ctx context.Context, p domain.Purchase) error
	DeletePurchase(ctx context.Context, purchaseID string) error
	ListPurchases(ctx context.Context) ([]domain.Purchase, error)
}

// CommitPublisher notifies subscribers that a purchase has committed.
// Publishing is fire-and-forget; the purchase transaction never depends on
// subscriber outcomes.
type CommitPublisher interface {
	PublishPurchaseCommitted(ctx context.Context, purchaseID string) error
}

// PurchaseService orchestrates purchase mutations as atomic units of work
// against the purchase store and the inventory ledger.
type PurchaseService struct {
	repo            PurchaseRepository
	publisher       CommitPublisher
	clock           clock.Clock
	log             zerolog.Logger
	opTimeout       time.Duration
	conflictRetries int
}

const (
	defaultOpTimeout       = 5 * time.Second
	defaultConflictRetries = 3
)

func NewPurchaseService(repo PurchaseRepository, publisher CommitPublisher, clk clock.Clock, log zerolog.Logger, opts ...PurchaseServiceOption) *PurchaseService {
	svc := &PurchaseService{
		repo:            repo,
		publisher:       publisher,
		clock:           clk,
		log:             log,
		opTimeout:       defaultOpTimeout,
		conflictRetries: defaultConflictRetries,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type PurchaseServiceOption func(*PurchaseService)

// WithOperationTimeout bounds how long a mutating operation may block on
// locks and durability before surfacing a retryable error.
func WithOperationTimeout(d time.Duration) PurchaseServiceOption {
	return func(s *PurchaseService) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithConflictRetries overrides how many times a transaction is retried
// after a serialization conflict before the conflict reaches the caller.
func WithConflictRetries(n int) PurchaseServiceOption {
	return func(s *PurchaseService) {
		if n >= 0 {
			s.conflictRetries = n
		}
	}
}

type CreatePurchaseInput struct {
	CustomerID string
	CategoryID string
	Quantity   int
}

func (s *PurchaseService) Create(ctx context.Context, in CreatePurchaseInput) (domain.Purchase, error) {
	if in.CustomerID == "" {
		return domain.Purchase{}, domain.ErrCustomerRequired
	}
	if in.Quantity < 1 {
		return domain.Purchase{}, domain.ErrInvalidQuantity
	}

	var result domain.Purchase
	err := s.inTx(ctx, func(txCtx context.Context) error {
		category, err := s.repo.GetCategory(txCtx, in.CategoryID)
		if err != nil {
			return err
		}
		if err := s.repo.ReserveStock(txCtx, category.ID, in.Quantity); err != nil {
			return err
		}

		purchase := domain.Purchase{
			ID:          newID(),
			CustomerID:  in.CustomerID,
			CategoryID:  category.ID,
			Quantity:    in.Quantity,
			Total:       category.Price.Mul(decimal.NewFromInt(int64(in.Quantity))),
			PurchasedAt: s.clock.Now(),
		}
		if err := s.repo.CreatePurchase(txCtx, purchase); err != nil {
			return err
		}

		result = purchase
		return nil
	})
	if err != nil {
		return domain.Purchase{}, err
	}

	// The transaction is durable at this point; the notification fires
	// after commit and its outcome never affects the purchase.
	if err := s.publisher.PublishPurchaseCommitted(ctx, result.ID); err != nil {
		s.log.Warn().Err(err).Str("purchase_id", result.ID).Msg("publish purchase committed failed")
	}

	return result, nil
}

type UpdatePurchaseInput struct {
	PurchaseID string
	CategoryID string
	Quantity   int
}

// Update amends a purchase's category and quantity. The old reservation is
// released before the new one is taken so a same-category quantity change can
// reuse the freed stock; both movements roll back together if the reserve
// fails.
func (s *PurchaseService) Update(ctx context.Context, in UpdatePurchaseInput) (domain.Purchase, error) {
	if in.Quantity < 1 {
		return domain.Purchase{}, domain.ErrInvalidQuantity
	}

	var result domain.Purchase
	err := s.inTx(ctx, func(txCtx context.Context) error {
		purchase, err := s.repo.GetPurchaseForUpdate(txCtx, in.PurchaseID)
		if err != nil {
			return err
		}
		category, err := s.repo.GetCategory(txCtx, in.CategoryID)
		if err != nil {
			return err
		}

		if err := s.repo.ReleaseStock(txCtx, purchase.CategoryID, purchase.Quantity); err != nil {
			return err
		}
		if err := s.repo.ReserveStock(txCtx, category.ID, in.Quantity); err != nil {
			return err
		}

		purchase.CategoryID = category.ID
		purchase.Quantity = in.Quantity
		purchase.Total = category.Price.Mul(decimal.NewFromInt(int64(in.Quantity)))
		purchase.PurchasedAt = s.clock.Now()

		if err := s.repo.UpdatePurchase(txCtx, purchase); err != nil {
			return err
		}

		result = purchase
		return nil
	})
	if err != nil {
		return domain.Purchase{}, err
	}
	return result, nil
}

// Delete removes a purchase and returns its tickets to the category's stock.
func (s *PurchaseService) Delete(ctx context.Context, purchaseID string) error {
	return s.inTx(ctx, func(txCtx context.Context) error {
		purchase, err := s.repo.GetPurchaseForUpdate(txCtx, purchaseID)
		if err != nil {
			return err
		}
		if err := s.repo.ReleaseStock(txCtx, purchase.CategoryID, purchase.Quantity); err != nil {
			return err
		}
		return s.repo.DeletePurchase(txCtx, purchase.ID)
	})
}

func (s *PurchaseService) Get(ctx context.Context, purchaseID string) (domain.Purchase, error) {
	return s.repo.GetPurchase(ctx, purchaseID)
}

// List returns all purchases; an empty store yields an empty slice.
func (s *PurchaseService) List(ctx context.Context) ([]domain.Purchase, error) {
	return s.repo.ListPurchases(ctx)
}

// inTx runs fn in a transaction with a bounded operation timeout, retrying a
// small number of times when the database aborts on a serialization conflict
// or deadlock.
func (s *PurchaseService) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var err error
	for attempt := 0; ; attempt++ {
		err = s.repo.WithTx(ctx, fn)
		if !errors.Is(err, domain.ErrConcurrencyConflict) || attempt >= s.conflictRetries {
			return err
		}
		s.log.Debug().Int("attempt", attempt+1).Msg("retrying after concurrency conflict")
	}
}
