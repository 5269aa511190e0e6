// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brandgrid/licensing-backend/internal/models"
)

// ValidationError covers malformed input: inverted intervals, out-of-range
// basis points, unknown strategies. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError rejects a candidate license and carries the full result so
// callers can display every conflicting grant.
type ConflictError struct {
	Result models.ConflictResult
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("license conflicts detected: %d conflict(s)", len(e.Result.Conflicts))
}

// IneligibleError accumulates every blocking factor, not just the first.
type IneligibleError struct {
	Reasons []string
}

func (e *IneligibleError) Error() string {
	return "renewal not permitted: " + strings.Join(e.Reasons, "; ")
}

// StaleOfferError signals an offer id mismatch or an expired offer at
// acceptance time. Callers must re-fetch the current offer and retry
// explicitly; the current offer is never silently substituted.
type StaleOfferError struct {
	Message string
}

func (e *StaleOfferError) Error() string {
	return "stale offer: " + e.Message
}

// ConcurrencyAbortError reports lock or transaction contention. No partial
// state was committed, so the operation is safe to retry with backoff.
type ConcurrencyAbortError struct {
	Err error
}

func (e *ConcurrencyAbortError) Error() string {
	return "operation aborted due to concurrent update: " + e.Err.Error()
}

func (e *ConcurrencyAbortError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsIneligible(err error) bool {
	var target *IneligibleError
	return errors.As(err, &target)
}

func IsStaleOffer(err error) bool {
	var target *StaleOfferError
	return errors.As(err, &target)
}

func IsConcurrencyAbort(err error) bool {
	var target *ConcurrencyAbortError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
