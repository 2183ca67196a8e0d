package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// NewRouter assembles the service's HTTP surface.
func NewRouter(purchases *PurchaseHandler, catalog *CatalogHandler, corsOrigins []string, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", HealthHandler)

	r.Route("/purchases", func(r chi.Router) {
		r.Post("/", purchases.Create)
		r.Get("/", purchases.List)
		r.Get("/{id}", purchases.Get)
		r.Put("/{id}", purchases.Update)
		r.Delete("/{id}", purchases.Delete)
	})

	r.Route("/admin/events", func(r chi.Router) {
		r.Post("/", catalog.CreateEvent)
		r.Get("/", catalog.ListEvents)
		r.Post("/{id}/categories", catalog.CreateCategory)
		r.Get("/{id}/categories", catalog.ListCategories)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	return RequestLogger(CORS(corsOrigins, r), log)
}
