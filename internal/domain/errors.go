package domain

import "errors"

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrCategoryNotFound     = errors.New("ticket category not found")
	ErrPurchaseNotFound     = errors.New("purchase not found")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrConcurrencyConflict  = errors.New("concurrency conflict")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrInvalidStock         = errors.New("invalid stock")
	ErrEventNameRequired    = errors.New("event name required")
	ErrCategoryNameRequired = errors.New("category name required")
	ErrCustomerRequired     = errors.New("customer id required")
	ErrInvalidID            = errors.New("invalid id")
)
