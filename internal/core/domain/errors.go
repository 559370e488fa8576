// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors forming the failure taxonomy of the ledger core.
// Callers branch on these with errors.Is; the structured variants below
// carry the offending entity.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrNoOpenPeriod        = errors.New("no open tax period covers the sale date")
	ErrPeriodClosed        = errors.New("tax period already closed")
	ErrPeriodOverlap       = errors.New("tax period overlaps an existing period")
	ErrConcurrencyConflict = errors.New("concurrent modification, retries exhausted")
	ErrInvalidTransition   = errors.New("invalid delivery status transition")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// InsufficientStockError identifies the first cart line that could not be
// satisfied. No stock mutation from the sale is retained when it is returned.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InvalidProductError reports a cart line referencing a missing or inactive product.
type InvalidProductError struct {
	ProductID uuid.UUID
	Reason    string
}

func (e *InvalidProductError) Error() string {
	return fmt.Sprintf("invalid product %s: %s", e.ProductID, e.Reason)
}

func (e *InvalidProductError) Unwrap() error { return ErrNotFound }
