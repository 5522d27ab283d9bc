package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cestlavie/bakery/pkg/types"
)

type fakeOrderTimes struct {
	latest    time.Time
	hasLatest bool
	taken     map[int64]bool
}

func (f *fakeOrderTimes) LatestDeliveryDate(ctx context.Context) (time.Time, bool, error) {
	return f.latest, f.hasLatest, nil
}

func (f *fakeOrderTimes) DeliveryDateTaken(ctx context.Context, t time.Time) (bool, error) {
	return f.taken[t.Unix()], nil
}

func newTestAllocator(store *fakeOrderTimes, now time.Time) *Allocator {
	a := New(store, DefaultWindow)
	a.now = func() time.Time { return now }
	return a
}

func day(hour, min int) time.Time {
	return time.Date(2026, 9, 3, hour, min, 0, 0, time.Local)
}

func TestAllocateAlignsToSlotGrid(t *testing.T) {
	a := newTestAllocator(&fakeOrderTimes{}, day(9, 0))
	ctx := context.Background()

	got, err := a.Allocate(ctx, day(14, 33))
	require.NoError(t, err)
	assert.Equal(t, day(14, 40), got)

	// Already aligned: unchanged
	got, err = a.Allocate(ctx, day(15, 20))
	require.NoError(t, err)
	assert.Equal(t, day(15, 20), got)
}

func TestAllocateBeforeOpeningRollsToOpening(t *testing.T) {
	a := newTestAllocator(&fakeOrderTimes{}, day(7, 0))
	ctx := context.Background()

	got, err := a.Allocate(ctx, day(9, 12))
	require.NoError(t, err)
	assert.Equal(t, day(14, 0), got)
}

func TestAllocateAfterClosingRollsToNextDay(t *testing.T) {
	a := newTestAllocator(&fakeOrderTimes{}, day(7, 0))
	ctx := context.Background()

	got, err := a.Allocate(ctx, day(19, 45))
	require.NoError(t, err)
	assert.Equal(t, day(14, 0).AddDate(0, 0, 1), got)

	// 17:55 rounds up to 18:00, which is already outside the window
	got, err = a.Allocate(ctx, day(17, 55))
	require.NoError(t, err)
	assert.Equal(t, day(14, 0).AddDate(0, 0, 1), got)
}

func TestAllocateRespectsLatestDeliveryFloor(t *testing.T) {
	store := &fakeOrderTimes{latest: day(15, 0), hasLatest: true}
	a := newTestAllocator(store, day(9, 0))
	ctx := context.Background()

	// Proposal before the floor is raised to latest + one slot
	got, err := a.Allocate(ctx, day(14, 0))
	require.NoError(t, err)
	assert.Equal(t, day(15, 10), got)

	// Proposal after the floor stands
	got, err = a.Allocate(ctx, day(16, 30))
	require.NoError(t, err)
	assert.Equal(t, day(16, 30), got)
}

func TestValidateAcceptsFreeSlot(t *testing.T) {
	a := newTestAllocator(&fakeOrderTimes{taken: map[int64]bool{}}, day(9, 0))
	assert.NoError(t, a.Validate(context.Background(), day(15, 0)))
}

func TestValidateRejectsPast(t *testing.T) {
	a := newTestAllocator(&fakeOrderTimes{}, day(16, 0))
	err := a.Validate(context.Background(), day(15, 0))
	assert.ErrorIs(t, err, types.ErrDeliveryInPast)
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestValidateRejectsOutsideWindow(t *testing.T) {
	a := newTestAllocator(&fakeOrderTimes{}, day(7, 0))

	err := a.Validate(context.Background(), day(11, 0))
	assert.ErrorIs(t, err, types.ErrOutsideDeliveryWindow)

	var slotErr *types.SlotError
	require.ErrorAs(t, err, &slotErr)
	assert.Equal(t, day(14, 0), slotErr.Suggested)

	// 18:00 exactly is outside [14:00, 18:00)
	err = a.Validate(context.Background(), day(18, 0))
	assert.ErrorIs(t, err, types.ErrOutsideDeliveryWindow)
}

func TestValidateRejectsTakenSlot(t *testing.T) {
	store := &fakeOrderTimes{
		latest:    day(15, 0),
		hasLatest: true,
		taken:     map[int64]bool{day(15, 0).Unix(): true},
	}
	a := newTestAllocator(store, day(9, 0))

	err := a.Validate(context.Background(), day(15, 0))
	assert.ErrorIs(t, err, types.ErrDeliverySlotConflict)

	var slotErr *types.SlotError
	require.ErrorAs(t, err, &slotErr)
	// Suggested slot sits after the conflicting delivery
	assert.Equal(t, day(15, 10), slotErr.Suggested)
	assert.True(t, slotErr.Suggested.After(slotErr.Requested))
}

func TestValidateErrorCategories(t *testing.T) {
	a := newTestAllocator(&fakeOrderTimes{}, day(16, 0))
	err := a.Validate(context.Background(), day(15, 0))
	require.Error(t, err)
	assert.False(t, errors.Is(err, types.ErrValidation))
	assert.True(t, errors.Is(err, types.ErrConflict))
}

// Property: Allocate never returns a timestamp outside the delivery window
// or off the slot grid, and never undercuts the latest delivery + one slot.
func TestAllocateProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local)

		proposedOffset := rapid.Int64Range(0, 14*24*3600).Draw(t, "proposedOffset")
		proposed := base.Add(time.Duration(proposedOffset) * time.Second)

		store := &fakeOrderTimes{}
		if rapid.Bool().Draw(t, "hasLatest") {
			latestOffset := rapid.Int64Range(0, 14*24*3600).Draw(t, "latestOffset")
			store.latest = base.Add(time.Duration(latestOffset) * time.Second)
			store.hasLatest = true
		}

		a := newTestAllocator(store, base)
		got, err := a.Allocate(context.Background(), proposed)
		if err != nil {
			t.Fatalf("allocate failed: %v", err)
		}

		if got.Hour() < 14 || got.Hour() >= 18 {
			t.Fatalf("allocated %v outside delivery window", got)
		}
		if got.Minute()%10 != 0 || got.Second() != 0 {
			t.Fatalf("allocated %v off the 10-minute grid", got)
		}
		if store.hasLatest && got.Before(store.latest.Add(10*time.Minute)) {
			t.Fatalf("allocated %v before floor %v", got, store.latest.Add(10*time.Minute))
		}
	})
}
