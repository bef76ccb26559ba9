package inventory

import (
	"errors"
	"fmt"
)

// ErrConflict is returned by the store when a guarded quantity update
// matched no row, meaning the available quantity changed underneath us.
var ErrConflict = errors.New("available quantity changed concurrently")

// ValidationError reports malformed input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing tenant-scoped record.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// CapacityExceededError reports a check-in that would overflow a lot's
// configured maximum.
type CapacityExceededError struct {
	LotID     string
	Current   int64
	Attempted int64
	Available int64
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("lot %s capacity exceeded: current %d, attempted %d, available %d",
		e.LotID, e.Current, e.Attempted, e.Available)
}

// InsufficientQuantityError reports a checkout larger than the stock on hand.
type InsufficientQuantityError struct {
	Requested int64
	Available int64
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity: requested %d, available %d", e.Requested, e.Available)
}

// AllocationFailedError reports a storage failure partway through a FEFO
// walk, after compensation was attempted.
type AllocationFailedError struct {
	Err error
}

func (e *AllocationFailedError) Error() string {
	return fmt.Sprintf("allocation failed: %v", e.Err)
}

func (e *AllocationFailedError) Unwrap() error { return e.Err }

// PersistenceError wraps a generic storage-layer failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistence(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}
