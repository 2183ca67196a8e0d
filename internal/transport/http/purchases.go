package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/samirmartinez1984/EventFlow/internal/app"
	"github.com/samirmartinez1984/EventFlow/internal/domain"
)

// customerHeader carries the verified customer identifier supplied by the
// identity collaborator in front of this service.
const customerHeader = "X-Customer-ID"

// PurchaseService is the surface the purchase handlers need.
type PurchaseService interface {
	Create(ctx context.Context, in app.CreatePurchaseInput) (domain.Purchase, error)
	Update(ctx context.Context, in app.UpdatePurchaseInput) (domain.Purchase, error)
	Delete(ctx context.Context, purchaseID string) error
	Get(ctx context.Context, purchaseID string) (domain.Purchase, error)
	List(ctx context.Context) ([]domain.Purchase, error)
}

type PurchaseHandler struct {
	svc PurchaseService
}

func NewPurchaseHandler(svc PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{svc: svc}
}

type purchaseRequest struct {
	CategoryID string `json:"category_id"`
	Quantity   int    `json:"quantity"`
}

type purchaseResponse struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	CategoryID  string    `json:"category_id"`
	Quantity    int       `json:"quantity"`
	Total       string    `json:"total"`
	PurchasedAt time.Time `json:"purchased_at"`
	InvoiceURL  string    `json:"invoice_url,omitempty"`
}

func toPurchaseResponse(p domain.Purchase) purchaseResponse {
	return purchaseResponse{
		ID:          p.ID,
		CustomerID:  p.CustomerID,
		CategoryID:  p.CategoryID,
		Quantity:    p.Quantity,
		Total:       p.Total.StringFixed(2),
		PurchasedAt: p.PurchasedAt,
		InvoiceURL:  p.InvoiceURL,
	}
}

func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	customerID := r.Header.Get(customerHeader)
	if customerID == "" {
		writeError(w, http.StatusBadRequest, codeCustomerRequired, "missing "+customerHeader+" header")
		return
	}

	var req purchaseRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	purchase, err := h.svc.Create(r.Context(), app.CreatePurchaseInput{
		CustomerID: customerID,
		CategoryID: req.CategoryID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		writePurchaseError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPurchaseResponse(purchase))
}

func (h *PurchaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	purchase, err := h.svc.Update(r.Context(), app.UpdatePurchaseInput{
		PurchaseID: chi.URLParam(r, "id"),
		CategoryID: req.CategoryID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		writePurchaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPurchaseResponse(purchase))
}

func (h *PurchaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writePurchaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PurchaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	purchase, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writePurchaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPurchaseResponse(purchase))
}

func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.svc.List(r.Context())
	if err != nil {
		writePurchaseError(w, err)
		return
	}
	out := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, toPurchaseResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func writePurchaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrCustomerRequired):
		writeError(w, http.StatusBadRequest, codeCustomerRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, codeCategoryNotFound, err.Error())
	case errors.Is(err, domain.ErrPurchaseNotFound):
		writeError(w, http.StatusNotFound, codePurchaseNotFound, err.Error())
	case errors.Is(err, domain.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, codeCustomerNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, codeInsufficientStock, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		writeError(w, http.StatusServiceUnavailable, codeConflict, "transient conflict, retry")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, codeTimeout, "operation timed out, retry")
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
