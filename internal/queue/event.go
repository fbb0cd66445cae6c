// Package queue defines the booking events published to RabbitMQ and the
// background consumer that keeps an audit trail of them.
package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/court-reservation/internal/model"
)

// Routing keys on the topic exchange.
const (
	EventBookingCreated           = "booking.created"
	EventBookingCancelled         = "booking.cancelled"
	EventBookingPaid              = "booking.paid"
	EventBookingRefunded          = "booking.refunded"
	EventCreditCompensationFailed = "credit.compensation_failed"
)

// BookingEvent is the single payload shape for every booking event.  It
// carries enough for downstream consumers to log, notify or reconcile
// without querying the primary database.  EventID is unique per event and
// lets consumers drop redeliveries.
type BookingEvent struct {
	EventID        string   `json:"event_id"`
	Type           string   `json:"type"`
	OccurredAt     string   `json:"occurred_at"`
	ReservationIDs []uint64 `json:"reservation_ids,omitempty"`
	Name           string   `json:"name,omitempty"`
	IsMember       bool     `json:"is_member"`
	MemberID       *uint64  `json:"member_id,omitempty"`
	Date           string   `json:"date,omitempty"`
	Slots          []string `json:"slots,omitempty"`
	AmountDue      uint32   `json:"amount_due"`
	Credits        uint32   `json:"credits,omitempty"` // credits debited, restored or owed
	Detail         string   `json:"detail,omitempty"`
}

// NewBookingEvent stamps a fresh event of the given type.
func NewBookingEvent(typ string, at time.Time) BookingEvent {
	return BookingEvent{
		EventID:    uuid.NewString(),
		Type:       typ,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}

// ReservationEvent describes one or more reservations created together.
func ReservationEvent(typ string, at time.Time, rs ...model.Reservation) BookingEvent {
	ev := NewBookingEvent(typ, at)
	for i, r := range rs {
		if i == 0 {
			ev.Name = r.Name
			ev.IsMember = r.IsMember
			ev.MemberID = r.MemberID
			ev.Date = r.Date
		}
		ev.ReservationIDs = append(ev.ReservationIDs, r.ID)
		ev.Slots = append(ev.Slots, r.Ref().String())
		ev.AmountDue += r.AmountDue
		ev.Credits += r.CreditsCharged
	}
	return ev
}

// CancellationEvent describes an archived reservation.
func CancellationEvent(at time.Time, c model.Cancellation) BookingEvent {
	ev := NewBookingEvent(EventBookingCancelled, at)
	ev.ReservationIDs = []uint64{c.OriginalReservationID}
	ev.Name = c.Name
	ev.IsMember = c.IsMember
	ev.MemberID = c.MemberID
	ev.Date = c.Date
	ev.Slots = []string{model.SlotRef{Court: c.Court, Slot: c.Slot}.String()}
	ev.AmountDue = c.AmountDue
	ev.Credits = c.CreditsCharged
	return ev
}

// LogLine renders the event as one human-friendly audit line.
func (e BookingEvent) LogLine() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | event_id=%s", e.OccurredAt, e.Type, e.EventID)
	if len(e.ReservationIDs) > 0 {
		ids := make([]string, len(e.ReservationIDs))
		for i, id := range e.ReservationIDs {
			ids[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(&b, " | reservation_ids=[%s]", strings.Join(ids, ","))
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " | name=%q", e.Name)
	}
	if e.MemberID != nil {
		fmt.Fprintf(&b, " | member_id=%d", *e.MemberID)
	}
	if e.Date != "" {
		fmt.Fprintf(&b, " | date=%s", e.Date)
	}
	if len(e.Slots) > 0 {
		fmt.Fprintf(&b, " | slots=[%s]", strings.Join(e.Slots, ","))
	}
	fmt.Fprintf(&b, " | amount_due=%d | credits=%d", e.AmountDue, e.Credits)
	if e.Detail != "" {
		fmt.Fprintf(&b, " | detail=%q", e.Detail)
	}
	b.WriteString("\n")
	return b.String()
}
