package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/samirmartinez1984/EventFlow/internal/domain"
)

func TestCatalogHandler_CreateEvent(t *testing.T) {
	t.Parallel()

	startsAt := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"name":"Rock Night","starts_at":"2025-06-01T20:00:00Z"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"name":"Rock Night"`,
		},
		{
			name:           "invalid starts_at",
			body:           `{"name":"Rock Night","starts_at":"tomorrow"}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: `"code":"invalid_starts_at"`,
		},
		{
			name:           "missing name",
			body:           `{"starts_at":"2025-06-01T20:00:00Z"}`,
			serviceErr:     domain.ErrEventNameRequired,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid json",
			body:           `{"name":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubCatalogService{
				event: domain.Event{ID: "event-1", Name: "Rock Night", StartsAt: startsAt},
				err:   tt.serviceErr,
			}
			router := testRouter(&stubPurchaseService{}, svc)

			req := httptest.NewRequest(http.MethodPost, "/admin/events", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestCatalogHandler_CreateCategory(t *testing.T) {
	t.Parallel()

	category := domain.TicketCategory{
		ID:        "cat-1",
		EventID:   "event-1",
		Name:      "VIP",
		Price:     decimal.RequireFromString("150.00"),
		Available: 20,
	}

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"name":"VIP","price":"150.00","available":20}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"price":"150.00"`,
		},
		{
			name:           "price is not a decimal",
			body:           `{"name":"VIP","price":"lots","available":20}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: `"code":"invalid_price"`,
		},
		{
			name:           "negative stock",
			body:           `{"name":"VIP","price":"150.00","available":-1}`,
			serviceErr:     domain.ErrInvalidStock,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "event not found",
			body:           `{"name":"VIP","price":"150.00","available":20}`,
			serviceErr:     domain.ErrEventNotFound,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubCatalogService{category: category, err: tt.serviceErr}
			router := testRouter(&stubPurchaseService{}, svc)

			req := httptest.NewRequest(http.MethodPost, "/admin/events/event-1/categories", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestCatalogHandler_Lists(t *testing.T) {
	t.Parallel()

	t.Run("empty events list", func(t *testing.T) {
		t.Parallel()
		router := testRouter(&stubPurchaseService{}, &stubCatalogService{events: []domain.Event{}})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/events", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
			t.Fatalf("expected empty array, got %q", got)
		}
	})

	t.Run("categories of an event", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{categories: []domain.TicketCategory{{
			ID:        "cat-1",
			EventID:   "event-1",
			Name:      "General",
			Price:     decimal.RequireFromString("50.00"),
			Available: 5,
		}}}
		router := testRouter(&stubPurchaseService{}, svc)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/events/event-1/categories", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"available":5`) {
			t.Fatalf("expected category in body, got %q", rec.Body.String())
		}
	})
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	t.Parallel()

	router := testRouter(&stubPurchaseService{}, &stubCatalogService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"code":"not_found"`) {
		t.Fatalf("expected JSON 404, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/purchases", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
