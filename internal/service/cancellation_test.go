package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/queue"
)

func bookMember(t *testing.T, h *harness, memberID uint64, slots ...model.SlotRef) []model.Reservation {
	t.Helper()
	res, err := h.svc.CreateReservation(context.Background(), CreateRequest{
		IsMember: true, MemberID: u64(memberID), Date: day, Slots: slots,
	})
	require.NoError(t, err)
	return res.Reservations
}

func TestMemberBookAndCancelScenario(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(7, "Mia", 3)

	rs := bookMember(t, h, 7, ref(model.Court1, "18:00"), ref(model.Court1, "19:00"))
	assert.Equal(t, uint32(1), h.store.credits(7))

	res, err := h.svc.CancelReservation(context.Background(), rs[0].ID)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, rs[0].ID, res.Booking.OriginalReservationID)
	assert.Equal(t, fixedNow, res.Booking.CancelledAt)
	require.NotNil(t, res.UpdatedMember)
	assert.Equal(t, uint32(2), res.UpdatedMember.Credits)

	assert.Equal(t, uint32(2), h.store.credits(7))
	active, cancelled := h.store.counts()
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, cancelled)
}

func TestCancelIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(7, "Mia", 2)
	rs := bookMember(t, h, 7, ref(model.Court2, "06:00"))

	first, err := h.svc.CancelReservation(context.Background(), rs[0].ID)
	require.NoError(t, err)
	second, err := h.svc.CancelReservation(context.Background(), rs[0].ID)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Booking, second.Booking)
	assert.Equal(t, uint32(2), h.store.credits(7), "credit restored exactly once")
	assert.Equal(t, uint32(2), second.UpdatedMember.Credits)
	assert.Equal(t, []string{queue.EventBookingCreated, queue.EventBookingCancelled}, h.events.types())
}

func TestCancelFreesSlotForRebooking(t *testing.T) {
	h := newHarness(t)
	r, err := h.svc.CreateReservation(context.Background(), CreateRequest{
		Name: "Ana", Date: day, Slots: []model.SlotRef{ref(model.Court3, "21:00")},
	})
	require.NoError(t, err)

	_, err = h.svc.CancelReservation(context.Background(), r.Reservations[0].ID)
	require.NoError(t, err)
	_, stillActive := h.store.reservation(r.Reservations[0].ID)
	assert.False(t, stillActive, "a cancelled reservation is never also active")

	_, err = h.svc.CreateReservation(context.Background(), CreateRequest{
		Name: "Bo", Date: day, Slots: []model.SlotRef{ref(model.Court3, "21:00")},
	})
	assert.NoError(t, err)
}

func TestCancelUnknownReservation(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CancelReservation(context.Background(), 999)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, uint64(999), nf.ID)
}

func TestCancelRollsBackOnFailure(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(7, "Mia", 2)
	rs := bookMember(t, h, 7, ref(model.Court1, "12:00"))
	h.store.cancelTxErr = errStorageDown

	_, err := h.svc.CancelReservation(context.Background(), rs[0].ID)

	var ierr *InfrastructureError
	require.ErrorAs(t, err, &ierr)
	_, stillActive := h.store.reservation(rs[0].ID)
	assert.True(t, stillActive)
	_, cancelled := h.store.counts()
	assert.Zero(t, cancelled)
	assert.Equal(t, uint32(1), h.store.credits(7))
}

func TestConcurrentCancelsRestoreOnce(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(7, "Mia", 1)
	rs := bookMember(t, h, 7, ref(model.Court1, "13:00"))

	const workers = 12
	results := make([]CancelResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.svc.CancelReservation(context.Background(), rs[0].ID)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	fresh := 0
	for _, res := range results {
		assert.Equal(t, results[0].Booking, res.Booking)
		if !res.Replayed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, uint32(1), h.store.credits(7))
}

func TestCreditConservation(t *testing.T) {
	h := newHarness(t)
	const initial = 20
	h.store.addMember(7, "Mia", initial)
	rng := rand.New(rand.NewSource(42))
	labels := model.SlotLabels()

	var live []uint64
	for step := 0; step < 200; step++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			i := rng.Intn(len(live))
			_, err := h.svc.CancelReservation(context.Background(), live[i])
			require.NoError(t, err)
			live = append(live[:i], live[i+1:]...)
		} else {
			slot := ref(model.Courts[rng.Intn(len(model.Courts))], labels[rng.Intn(len(labels))])
			res, err := h.svc.CreateReservation(context.Background(), CreateRequest{
				IsMember: true, MemberID: u64(7), Date: day, Slots: []model.SlotRef{slot},
			})
			var cerr *ConflictError
			var ierr *InsufficientCreditError
			switch {
			case err == nil:
				live = append(live, res.Reservations[0].ID)
			case errors.As(err, &cerr), errors.As(err, &ierr):
			default:
				t.Fatalf("step %d: %v", step, err)
			}
		}
		active, _ := h.store.counts()
		require.Equal(t, len(live), active)
		require.Equal(t, uint32(initial-len(live)), h.store.credits(7), "step %d", step)
	}
}
