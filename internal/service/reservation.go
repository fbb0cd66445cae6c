package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/queue"
	"github.com/iliyamo/court-reservation/internal/repository"
)

// compensationTimeout bounds the credit restore after a failed insert.  The
// restore runs detached from the request context so a client disconnect
// cannot skip it.
const compensationTimeout = 5 * time.Second

// CreateRequest asks for one or more slots on a single day.
type CreateRequest struct {
	Name     string
	IsMember bool
	MemberID *uint64
	Date     string
	Slots    []model.SlotRef
}

// CreateResult is returned by a successful CreateReservation.  Member is
// set for member bookings and holds the balance right after the debit.
type CreateResult struct {
	Reservations []model.Reservation `json:"reservations"`
	Member       *model.MemberBalance `json:"member,omitempty"`
}

// CreateReservation books every requested slot or none of them.
//
// Members pay with credits: the balance is debited by one conditional
// update before the rows are inserted, and restored if the insert fails.
// The unique key on (date, court, slot) decides races; the pre-check only
// narrows the window, and the loser gets a ConflictError rather than a
// retry.
func (b *Booking) CreateReservation(ctx context.Context, req CreateRequest) (CreateResult, error) {
	slots, err := b.validateCreate(&req)
	if err != nil {
		return CreateResult{}, err
	}
	ctx, span := tracer.Start(ctx, "booking.create", trace.WithAttributes(
		attribute.String("date", req.Date),
		attribute.Int("slots", len(slots)),
		attribute.Bool("member", req.IsMember),
	))
	defer span.End()

	conflicts, err := b.store.FindConflicts(ctx, req.Date, slots)
	if err != nil {
		span.RecordError(err)
		return CreateResult{}, infra("check conflicts", err)
	}
	if len(conflicts) > 0 {
		b.metrics.Conflicts.Inc()
		return CreateResult{}, &ConflictError{Slots: conflicts}
	}

	n := uint32(len(slots))
	var member *model.Member
	if req.IsMember {
		m, err := b.store.DebitCredits(ctx, *req.MemberID, n)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return CreateResult{}, invalid("memberId", "member %d does not exist", *req.MemberID)
		case errors.Is(err, repository.ErrInsufficientCredits):
			b.metrics.InsufficientCredit.Inc()
			return CreateResult{}, &InsufficientCreditError{Required: n}
		case err != nil:
			span.RecordError(err)
			return CreateResult{}, infra("debit credits", err)
		}
		member = &m
		req.Name = m.Name
	}

	rows := make([]model.Reservation, len(slots))
	for i, s := range slots {
		r := model.Reservation{Name: req.Name, IsMember: req.IsMember, Date: req.Date, Court: s.Court, Slot: s.Slot}
		if member != nil {
			id := member.ID
			r.MemberID = &id
			r.Paid = true
			r.CreditsCharged = 1
		} else {
			r.AmountDue = b.price
		}
		rows[i] = r
	}

	created, err := b.store.InsertReservations(ctx, rows)
	if err != nil {
		span.RecordError(err)
		if member != nil {
			b.compensate(ctx, member.ID, n, req.Date, err)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			b.metrics.Conflicts.Inc()
			return CreateResult{}, &ConflictError{Slots: b.raceConflicts(ctx, req.Date, slots)}
		}
		return CreateResult{}, infra("insert reservations", err)
	}

	kind := "guest"
	if member != nil {
		kind = "member"
	}
	b.metrics.Created.WithLabelValues(kind).Add(float64(len(created)))
	b.invalidate(ctx, req.Date)
	b.publish(ctx, queue.ReservationEvent(queue.EventBookingCreated, b.now(), created...))

	return CreateResult{Reservations: created, Member: balanceOf(member)}, nil
}

// validateCreate checks req and returns its slots with duplicates removed,
// keeping the first occurrence of each pair.
func (b *Booking) validateCreate(req *CreateRequest) ([]model.SlotRef, error) {
	if len(req.Slots) == 0 {
		return nil, invalid("slots", "select at least one slot")
	}
	req.Date = strings.TrimSpace(req.Date)
	if _, err := model.ParseDate(req.Date); err != nil {
		return nil, invalid("date", "%v", err)
	}

	unique := make([]model.SlotRef, 0, len(req.Slots))
	seen := make(map[model.SlotRef]struct{}, len(req.Slots))
	for _, s := range req.Slots {
		if !s.Court.Valid() {
			return nil, invalid("court", "unknown court %q", s.Court)
		}
		if !model.ValidSlot(s.Slot) {
			return nil, invalid("slot", "%q is not an hourly slot between %02d:00 and %02d:00", s.Slot, model.SlotStartHour, model.SlotEndHour)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.IsMember {
		if req.MemberID == nil || *req.MemberID == 0 {
			return nil, invalid("memberId", "select a valid member")
		}
	} else {
		req.MemberID = nil
		if len([]rune(req.Name)) < 2 {
			return nil, invalid("name", "must be at least 2 characters")
		}
	}
	return unique, nil
}

// compensate gives back credits debited for a booking whose insert failed.
// A failed restore is not returned to the caller, whose error stays the
// insert failure; it is logged, counted and published so the discrepancy
// can be reconciled.
func (b *Booking) compensate(ctx context.Context, memberID uint64, n uint32, date string, cause error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	err := b.store.RestoreCredits(cctx, memberID, n)
	if err == nil {
		b.log.Info("restored credits after failed booking",
			zap.Uint64("member_id", memberID), zap.Uint32("credits", n), zap.NamedError("cause", cause))
		return
	}

	b.metrics.CompensationFailures.Inc()
	b.log.Error("credit compensation failed",
		zap.Uint64("member_id", memberID),
		zap.Uint32("credits", n),
		zap.String("date", date),
		zap.NamedError("cause", cause),
		zap.Error(err),
	)
	ev := queue.NewBookingEvent(queue.EventCreditCompensationFailed, b.now())
	id := memberID
	ev.MemberID = &id
	ev.IsMember = true
	ev.Date = date
	ev.Credits = n
	ev.Detail = fmt.Sprintf("insert failed: %v; restore failed: %v", cause, err)
	b.publish(cctx, ev)
}

// raceConflicts names the requested slots that are now taken after an
// insert lost a race.  If they cannot be determined every requested slot
// is reported, so the caller still re-fetches availability.
func (b *Booking) raceConflicts(ctx context.Context, date string, slots []model.SlotRef) []model.SlotRef {
	taken, err := b.store.FindConflicts(ctx, date, slots)
	if err != nil || len(taken) == 0 {
		return slots
	}
	return taken
}
