package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ValidationError rejects bad input before any write happens.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// LedgerWriteError means the atomic append+adjust failed as a whole. No
// partial state was left behind, so retrying the entire charge is safe.
type LedgerWriteError struct {
	Err error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("ledger write failed: %v", e.Err)
}

func (e *LedgerWriteError) Unwrap() error {
	return e.Err
}

// DuplicateEventError marks a replayed purchase confirmation. Webhook delivery
// is at-least-once, so callers treat this as success, not failure.
type DuplicateEventError struct {
	OrderId uuid.UUID
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("purchase order %s already settled", e.OrderId)
}

func IsDuplicateEvent(err error) bool {
	var dup *DuplicateEventError
	return errors.As(err, &dup)
}
