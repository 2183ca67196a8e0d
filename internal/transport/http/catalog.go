package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/samirmartinez1984/EventFlow/internal/app"
	"github.com/samirmartinez1984/EventFlow/internal/domain"
)

// CatalogService is the surface the catalog handlers need.
type CatalogService interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateCategory(ctx context.Context, in app.CreateCategoryInput) (domain.TicketCategory, error)
	ListCategories(ctx context.Context, eventID string) ([]domain.TicketCategory, error)
}

type CatalogHandler struct {
	svc CatalogService
}

func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

type createEventRequest struct {
	Name     string `json:"name"`
	StartsAt string `json:"starts_at"`
}

type eventResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
}

func (h *CatalogHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	in := app.CreateEventInput{Name: req.Name}
	if req.StartsAt != "" {
		startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "starts_at must be RFC3339")
			return
		}
		in.StartsAt = &startsAt
	}

	event, err := h.svc.CreateEvent(r.Context(), in)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, eventResponse{ID: event.ID, Name: event.Name, StartsAt: event.StartsAt})
}

func (h *CatalogHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{ID: e.ID, Name: e.Name, StartsAt: e.StartsAt})
	}
	writeJSON(w, http.StatusOK, out)
}

type createCategoryRequest struct {
	Name      string `json:"name"`
	Price     string `json:"price"`
	Available int    `json:"available"`
}

type categoryResponse struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Available int    `json:"available"`
}

func toCategoryResponse(c domain.TicketCategory) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		EventID:   c.EventID,
		Name:      c.Name,
		Price:     c.Price.StringFixed(2),
		Available: c.Available,
	}
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidPrice, "price must be a decimal string")
		return
	}

	category, err := h.svc.CreateCategory(r.Context(), app.CreateCategoryInput{
		EventID:   chi.URLParam(r, "id"),
		Name:      req.Name,
		Price:     price,
		Available: req.Available,
	})
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEventNameRequired):
		writeError(w, http.StatusBadRequest, codeEventNameRequired, err.Error())
	case errors.Is(err, domain.ErrCategoryNameRequired):
		writeError(w, http.StatusBadRequest, codeCategoryNameRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, codeInvalidPrice, err.Error())
	case errors.Is(err, domain.ErrInvalidStock):
		writeError(w, http.StatusBadRequest, codeInvalidStock, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, codeCategoryNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
