package types

import (
	"errors"
	"fmt"
	"time"
)

// Error categories. Every error surfaced by the engine wraps exactly one of
// these; the HTTP layer maps categories to status codes with errors.Is.
var (
	// ErrValidation covers malformed input: bad order identifiers,
	// unparseable line items, bad request bodies.
	ErrValidation = errors.New("validation error")
	// ErrNotFound covers absent products, orders and users.
	ErrNotFound = errors.New("not found")
	// ErrConflict covers requests that are well-formed but collide with
	// current state: insufficient stock, taken delivery slots.
	ErrConflict = errors.New("conflict")
	// ErrStorage wraps any underlying persistence failure, including
	// storage timeouts.
	ErrStorage = errors.New("storage error")
	// ErrNotification marks a failed notification send. It is logged and
	// swallowed; the operation that triggered it has already succeeded.
	ErrNotification = errors.New("notification error")
)

var (
	ErrInvalidOrderID  = fmt.Errorf("%w: invalid order id", ErrValidation)
	ErrInvalidLineItem = fmt.Errorf("%w: invalid line item", ErrValidation)

	ErrProductNotFound = fmt.Errorf("%w: product", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("%w: order", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)

	ErrInsufficientStock     = fmt.Errorf("%w: insufficient stock", ErrConflict)
	ErrDeliverySlotConflict  = fmt.Errorf("%w: delivery slot taken", ErrConflict)
	ErrOutsideDeliveryWindow = fmt.Errorf("%w: outside delivery window", ErrConflict)
	ErrDeliveryInPast        = fmt.Errorf("%w: delivery date in the past", ErrConflict)
	ErrEmailTaken            = fmt.Errorf("%w: email already registered", ErrConflict)

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

// SlotError reports a rejected delivery date together with the nearest
// acceptable alternative computed by the allocator.
type SlotError struct {
	Requested time.Time
	Suggested time.Time
	Reason    error // one of ErrDeliverySlotConflict, ErrOutsideDeliveryWindow, ErrDeliveryInPast
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("%v: requested %s, suggested %s",
		e.Reason, e.Requested.Format(time.RFC3339), e.Suggested.Format(time.RFC3339))
}

func (e *SlotError) Unwrap() error { return e.Reason }
