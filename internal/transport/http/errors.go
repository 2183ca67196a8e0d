package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeInvalidID            = "invalid_id"
	codeInvalidQuantity      = "invalid_quantity"
	codeInvalidPrice         = "invalid_price"
	codeInvalidStock         = "invalid_stock"
	codeEventNameRequired    = "event_name_required"
	codeCategoryNameRequired = "category_name_required"
	codeCustomerRequired     = "customer_required"
	codeInvalidStartsAt      = "invalid_starts_at"
	codeEventNotFound        = "event_not_found"
	codeCategoryNotFound     = "category_not_found"
	codePurchaseNotFound     = "purchase_not_found"
	codeCustomerNotFound     = "customer_not_found"
	codeInsufficientStock    = "insufficient_stock"
	codeConflict             = "conflict"
	codeTimeout              = "timeout"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
