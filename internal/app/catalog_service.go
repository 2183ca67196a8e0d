package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/samirmartinez1984/EventFlow/internal/clock"
	"github.com/samirmartinez1984/EventFlow/internal/domain"
)

type CatalogRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateCategory(ctx context.Context, c domain.TicketCategory) error
	GetCategory(ctx context.Context, categoryID string) (domain.TicketCategory, error)
	ListCategoriesByEvent(ctx context.Context, eventID string) ([]domain.TicketCategory, error)
}

// CatalogService manages events and their ticket categories. Stock on
// existing categories is owned by the inventory ledger and is not editable
// here.
type CatalogService struct {
	repo  CatalogRepository
	clock clock.Clock
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{
		repo:  repo,
		clock: clk,
	}
}

type CreateEventInput struct {
	Name     string
	StartsAt *time.Time
}

func (s *CatalogService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if in.Name == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}
	startsAt := s.clock.Now()
	if in.StartsAt != nil {
		startsAt = *in.StartsAt
	}

	event := domain.Event{
		ID:       newID(),
		Name:     in.Name,
		StartsAt: startsAt,
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *CatalogService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}

type CreateCategoryInput struct {
	EventID   string
	Name      string
	Price     decimal.Decimal
	Available int
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CreateCategoryInput) (domain.TicketCategory, error) {
	if in.EventID == "" {
		return domain.TicketCategory{}, domain.ErrInvalidID
	}
	if in.Name == "" {
		return domain.TicketCategory{}, domain.ErrCategoryNameRequired
	}
	if !in.Price.IsPositive() {
		return domain.TicketCategory{}, domain.ErrInvalidPrice
	}
	if in.Available < 0 {
		return domain.TicketCategory{}, domain.ErrInvalidStock
	}

	category := domain.TicketCategory{
		ID:        newID(),
		EventID:   in.EventID,
		Name:      in.Name,
		Price:     in.Price,
		Available: in.Available,
	}

	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return domain.TicketCategory{}, err
	}
	return category, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, categoryID string) (domain.TicketCategory, error) {
	if categoryID == "" {
		return domain.TicketCategory{}, domain.ErrInvalidID
	}
	return s.repo.GetCategory(ctx, categoryID)
}

func (s *CatalogService) ListCategories(ctx context.Context, eventID string) ([]domain.TicketCategory, error) {
	if eventID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListCategoriesByEvent(ctx, eventID)
}
