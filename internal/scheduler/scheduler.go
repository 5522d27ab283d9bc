package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/cestlavie/bakery/pkg/types"
)

// OrderTimes is the slice of the order store the allocator reads.
type OrderTimes interface {
	LatestDeliveryDate(ctx context.Context) (time.Time, bool, error)
	DeliveryDateTaken(ctx context.Context, t time.Time) (bool, error)
}

// Window describes the daily delivery window and slot granularity.
// Deliveries happen in [OpenHour, CloseHour) local time, packed on
// SlotInterval boundaries.
type Window struct {
	OpenHour     int
	CloseHour    int
	SlotInterval time.Duration
}

// DefaultWindow is the bakery's business delivery window: 14:00-18:00,
// 10-minute slots.
var DefaultWindow = Window{
	OpenHour:     14,
	CloseHour:    18,
	SlotInterval: 10 * time.Minute,
}

// Allocator computes non-conflicting delivery timestamps within the
// business window. Allocation is advisory slot-packing: callers that need
// it race-free run it inside the same storage transaction that persists
// the order.
type Allocator struct {
	store  OrderTimes
	window Window
	now    func() time.Time
}

// New creates an allocator over the given order store.
func New(store OrderTimes, window Window) *Allocator {
	if window.SlotInterval <= 0 {
		window = DefaultWindow
	}
	return &Allocator{store: store, window: window, now: time.Now}
}

// Allocate adjusts the proposed timestamp to the earliest acceptable slot:
// never earlier than the latest existing delivery plus one slot interval,
// aligned to the slot grid, inside the delivery window.
func (a *Allocator) Allocate(ctx context.Context, proposed time.Time) (time.Time, error) {
	latest, ok, err := a.store.LatestDeliveryDate(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read latest delivery date: %w", err)
	}
	if ok {
		floor := latest.Add(a.window.SlotInterval)
		if proposed.Before(floor) {
			proposed = floor
		}
	}
	return a.clamp(a.ceilSlot(proposed)), nil
}

// Validate checks a caller-supplied delivery timestamp. On rejection the
// returned *types.SlotError carries the nearest acceptable alternative.
func (a *Allocator) Validate(ctx context.Context, requested time.Time) error {
	if requested.Before(a.now()) {
		return a.slotError(ctx, requested, types.ErrDeliveryInPast)
	}
	if !a.inWindow(requested) {
		return a.slotError(ctx, requested, types.ErrOutsideDeliveryWindow)
	}
	taken, err := a.store.DeliveryDateTaken(ctx, requested)
	if err != nil {
		return fmt.Errorf("failed to check delivery slot: %w", err)
	}
	if taken {
		return a.slotError(ctx, requested, types.ErrDeliverySlotConflict)
	}
	return nil
}

func (a *Allocator) slotError(ctx context.Context, requested time.Time, reason error) error {
	suggested, err := a.Allocate(ctx, requested)
	if err != nil {
		// The rejection stands even when no suggestion could be computed.
		suggested = time.Time{}
	}
	return &types.SlotError{Requested: requested, Suggested: suggested, Reason: reason}
}

// ceilSlot rounds a timestamp up to the next slot boundary. The result is
// never earlier than the input.
func (a *Allocator) ceilSlot(t time.Time) time.Time {
	aligned := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	if aligned.Before(t) {
		aligned = aligned.Add(time.Minute)
	}
	slotMinutes := int(a.window.SlotInterval / time.Minute)
	if rem := aligned.Minute() % slotMinutes; rem != 0 {
		aligned = aligned.Add(time.Duration(slotMinutes-rem) * time.Minute)
	}
	return aligned
}

// clamp rolls a timestamp forward into the delivery window: before opening
// it moves to today's opening, at or after closing to tomorrow's opening.
func (a *Allocator) clamp(t time.Time) time.Time {
	switch {
	case t.Hour() < a.window.OpenHour:
		return time.Date(t.Year(), t.Month(), t.Day(), a.window.OpenHour, 0, 0, 0, t.Location())
	case t.Hour() >= a.window.CloseHour:
		next := t.AddDate(0, 0, 1)
		return time.Date(next.Year(), next.Month(), next.Day(), a.window.OpenHour, 0, 0, 0, t.Location())
	}
	return t
}

func (a *Allocator) inWindow(t time.Time) bool {
	return t.Hour() >= a.window.OpenHour && t.Hour() < a.window.CloseHour
}
