package service

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/repository"
)

// Origins of a BookingEntry.
const (
	OriginBooking      = "booking"
	OriginCancellation = "cancellation"
)

// BookingEntry is one line of the merged booking listing.  Cancelled
// entries keep the original reservation ID so the desk can still act on
// them.
type BookingEntry struct {
	model.Reservation
	Cancelled      bool       `json:"cancelled"`
	CancellationID uint64     `json:"cancellationId,omitempty"`
	CancelledAt    *time.Time `json:"cancelledAt,omitempty"`
	Origin         string     `json:"origin"`
}

// sortTime is the original booking time, falling back to the cancellation
// time for snapshots that carry no booking time.
func (e BookingEntry) sortTime() time.Time {
	if e.CreatedAt.IsZero() && e.CancelledAt != nil {
		return *e.CancelledAt
	}
	return e.CreatedAt
}

// ListBookings returns active and cancelled bookings matching f as a single
// list ordered by the original booking time, so a cancelled booking keeps
// its place among the active ones.
func (b *Booking) ListBookings(ctx context.Context, f repository.ListFilter) ([]BookingEntry, error) {
	if f.Date != "" {
		if _, err := model.ParseDate(f.Date); err != nil {
			return nil, invalid("date", "%v", err)
		}
	}
	active, err := b.store.ListReservations(ctx, f)
	if err != nil {
		return nil, infra("list reservations", err)
	}
	cancelled, err := b.store.ListCancellations(ctx, f)
	if err != nil {
		return nil, infra("list cancellations", err)
	}

	out := make([]BookingEntry, 0, len(active)+len(cancelled))
	for _, r := range active {
		out = append(out, BookingEntry{Reservation: r, Origin: OriginBooking})
	}
	for _, c := range cancelled {
		at := c.CancelledAt
		out = append(out, BookingEntry{
			Reservation: model.Reservation{
				ID:             c.OriginalReservationID,
				Name:           c.Name,
				IsMember:       c.IsMember,
				MemberID:       c.MemberID,
				Date:           c.Date,
				Court:          c.Court,
				Slot:           c.Slot,
				AmountDue:      c.AmountDue,
				Paid:           c.Paid,
				Refunded:       c.Refunded,
				CreditsCharged: c.CreditsCharged,
				CreatedAt:      c.BookedAt,
				UpdatedAt:      c.CancelledAt,
			},
			Cancelled:      true,
			CancellationID: c.ID,
			CancelledAt:    &at,
			Origin:         OriginCancellation,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].sortTime(), out[j].sortTime()
		if f.Desc {
			return ti.After(tj)
		}
		return ti.Before(tj)
	})
	return out, nil
}
