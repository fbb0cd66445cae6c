package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/queue"
	"github.com/iliyamo/court-reservation/internal/repository"
)

type ledgerOp string

const (
	opPay    ledgerOp = "pay"
	opRefund ledgerOp = "refund"
)

// SetPaid records that a non-member paid.  It sets paid and clears the
// amount due.  Paying twice, or paying a member reservation (which is
// settled in credits), changes nothing and succeeds.  A cancelled
// reservation cannot be paid.
func (b *Booking) SetPaid(ctx context.Context, id uint64) (model.Reservation, error) {
	return b.transition(ctx, id, opPay)
}

// SetRefunded records that a payment was returned.  Only an active,
// paid, not yet refunded non-member reservation can be refunded.
func (b *Booking) SetRefunded(ctx context.Context, id uint64) (model.Reservation, error) {
	return b.transition(ctx, id, opRefund)
}

// transition applies op while holding the reservation's row lock, so it
// serialises with cancellation of the same reservation.
func (b *Booking) transition(ctx context.Context, id uint64, op ledgerOp) (model.Reservation, error) {
	if id == 0 {
		return model.Reservation{}, invalid("id", "reservation id is required")
	}
	ctx, span := tracer.Start(ctx, "booking."+string(op), trace.WithAttributes(attribute.Int64("reservation_id", int64(id))))
	defer span.End()

	var (
		out     model.Reservation
		changed bool
	)
	err := b.store.WithTx(ctx, func(tx repository.Tx) error {
		changed = false
		_, err := tx.CancellationByReservation(ctx, id)
		if err == nil {
			return &InvalidStateError{ID: id, Reason: "reservation is cancelled"}
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		r, err := tx.ReservationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch op {
		case opPay:
			if r.IsMember || (r.Paid && r.AmountDue == 0) {
				out = r
				return nil
			}
			r.Paid, r.AmountDue = true, 0
		case opRefund:
			switch {
			case r.IsMember:
				return &InvalidStateError{ID: id, Reason: "member reservations are settled in credits"}
			case !r.Paid:
				return &InvalidStateError{ID: id, Reason: "reservation is not paid"}
			case r.Refunded:
				return &InvalidStateError{ID: id, Reason: "reservation is already refunded"}
			}
			r.Refunded = true
		}
		if err := tx.UpdatePayment(ctx, r.ID, r.Paid, r.Refunded, r.AmountDue); err != nil {
			return err
		}
		r.UpdatedAt = b.now()
		out, changed = r, true
		return nil
	})
	if err != nil {
		var stateErr *InvalidStateError
		if errors.As(err, &stateErr) {
			return model.Reservation{}, err
		}
		if errors.Is(err, repository.ErrNotFound) {
			// cancelled between the archive check and the row lock
			if _, cerr := b.store.CancellationByReservation(ctx, id); cerr == nil {
				return model.Reservation{}, &InvalidStateError{ID: id, Reason: "reservation is cancelled"}
			} else if !errors.Is(cerr, repository.ErrNotFound) {
				return model.Reservation{}, infra("load cancellation", cerr)
			}
			return model.Reservation{}, &NotFoundError{ID: id}
		}
		span.RecordError(err)
		return model.Reservation{}, infra(string(op)+" reservation", err)
	}

	if changed {
		b.metrics.Ledger.WithLabelValues(string(op)).Inc()
		typ := queue.EventBookingPaid
		if op == opRefund {
			typ = queue.EventBookingRefunded
		}
		b.publish(ctx, queue.ReservationEvent(typ, b.now(), out))
	}
	return out, nil
}
