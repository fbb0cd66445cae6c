package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/repository"
)

func TestListBookingsMergesActiveAndCancelled(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(7, "Mia", 2)
	guest := bookGuest(t, h, ref(model.Court1, "06:00"))
	member := bookMember(t, h, 7, ref(model.Court2, "06:00"))[0]
	_, err := h.svc.CancelReservation(context.Background(), guest.ID)
	require.NoError(t, err)

	all, err := h.svc.ListBookings(context.Background(), repository.ListFilter{Desc: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
	// ordered by booking time: the cancellation is stamped later than both
	// bookings but the guest booked first
	assert.Equal(t, OriginBooking, all[0].Origin)
	assert.Equal(t, member.ID, all[0].ID)
	assert.Equal(t, OriginCancellation, all[1].Origin)
	assert.True(t, all[1].Cancelled)
	assert.Equal(t, guest.ID, all[1].ID)
	require.NotNil(t, all[1].CancelledAt)
	assert.True(t, all[1].CreatedAt.Before(*all[1].CancelledAt))

	asc, err := h.svc.ListBookings(context.Background(), repository.ListFilter{})
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.Equal(t, guest.ID, asc[0].ID)
	assert.Equal(t, member.ID, asc[1].ID)

	yes := true
	members, err := h.svc.ListBookings(context.Background(), repository.ListFilter{IsMember: &yes})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Mia", members[0].Name)
}

func TestListBookingsRejectsBadDate(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.ListBookings(context.Background(), repository.ListFilter{Date: "yesterday"})

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestBookingEntrySortTimeFallsBackToCancellation(t *testing.T) {
	booked := fixedNow.Add(-time.Hour)
	active := BookingEntry{Reservation: model.Reservation{CreatedAt: booked}}
	assert.Equal(t, booked, active.sortTime())

	cancelledAt := fixedNow
	withBooking := BookingEntry{Reservation: model.Reservation{CreatedAt: booked}, CancelledAt: &cancelledAt}
	assert.Equal(t, booked, withBooking.sortTime())

	withoutBooking := BookingEntry{CancelledAt: &cancelledAt}
	assert.Equal(t, cancelledAt, withoutBooking.sortTime())
}
