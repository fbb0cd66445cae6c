package service

import (
	"fmt"
	"strings"

	"github.com/iliyamo/court-reservation/internal/model"
)

// ValidationError reports malformed input.  It is always returned before
// any storage is touched.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg) }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports requested slots that are already occupied.  Callers
// should re-fetch availability before retrying.
type ConflictError struct {
	Slots []model.SlotRef
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Slots))
	for i, s := range e.Slots {
		parts[i] = s.String()
	}
	return "slots already booked: " + strings.Join(parts, ", ")
}

// InsufficientCreditError reports that a member's balance does not cover
// the requested number of slots.
type InsufficientCreditError struct {
	Required uint32
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credits: %d required", e.Required)
}

// NotFoundError reports an unknown reservation identity.
type NotFoundError struct {
	ID uint64
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("reservation %d not found", e.ID) }

// InvalidStateError reports an illegal pay or refund transition.
type InvalidStateError struct {
	ID     uint64
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("reservation %d: %s", e.ID, e.Reason)
}

// InfrastructureError wraps a storage failure.  It is retryable by the
// caller; in particular an availability query that fails this way says
// nothing about which slots are free.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *InfrastructureError) Unwrap() error { return e.Err }

func infra(op string, err error) error { return &InfrastructureError{Op: op, Err: err} }
