package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/queue"
	"github.com/iliyamo/court-reservation/internal/repository"
)

// CancelResult is the outcome of CancelReservation.  UpdatedMember is set
// when the reservation belonged to a member and holds the balance after the
// restore (or the current balance on a replay).
type CancelResult struct {
	Booking       model.Cancellation   `json:"booking"`
	UpdatedMember *model.MemberBalance `json:"updatedMember"`
	// Replayed is true when the reservation had already been cancelled
	// and nothing changed.
	Replayed bool `json:"-"`
}

// CancelReservation moves a reservation into the cancellation archive and
// gives back the credits it consumed.  The check, snapshot, delete and
// credit restore run in one transaction.  Cancelling the same reservation
// again returns the existing snapshot without restoring anything.
func (b *Booking) CancelReservation(ctx context.Context, id uint64) (CancelResult, error) {
	if id == 0 {
		return CancelResult{}, invalid("id", "reservation id is required")
	}
	ctx, span := tracer.Start(ctx, "booking.cancel", trace.WithAttributes(attribute.Int64("reservation_id", int64(id))))
	defer span.End()

	var res CancelResult
	err := b.store.WithTx(ctx, func(tx repository.Tx) error {
		res = CancelResult{}

		existing, err := tx.CancellationByReservation(ctx, id)
		if err == nil {
			res.Booking, res.Replayed = existing, true
			res.UpdatedMember, err = memberInTx(ctx, tx, existing.MemberID)
			return err
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		r, err := tx.ReservationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		snap := model.SnapshotOf(r, b.now())
		if err := tx.InsertCancellation(ctx, &snap); err != nil {
			return err
		}
		if err := tx.DeleteReservation(ctx, r.ID); err != nil {
			return err
		}
		// restore what was charged, not a fixed 1
		if r.IsMember && r.MemberID != nil && r.CreditsCharged > 0 {
			if err := tx.IncrementCredits(ctx, *r.MemberID, r.CreditsCharged); err != nil {
				return err
			}
		}
		res.Booking = snap
		res.UpdatedMember, err = memberInTx(ctx, tx, snap.MemberID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrDuplicate) {
			// Either the id is unknown, or a concurrent cancel committed
			// first (we found the row gone after the lock, or tripped the
			// unique key on the archive).  The archive decides which.
			return b.replayCancellation(ctx, id)
		}
		span.RecordError(err)
		return CancelResult{}, infra("cancel reservation", err)
	}

	if res.Replayed {
		b.metrics.Cancelled.WithLabelValues("replayed").Inc()
		return res, nil
	}
	b.metrics.Cancelled.WithLabelValues("cancelled").Inc()
	b.invalidate(ctx, res.Booking.Date)
	b.publish(ctx, queue.CancellationEvent(b.now(), res.Booking))
	b.log.Info("reservation cancelled",
		zap.Uint64("reservation_id", id),
		zap.Uint64("cancellation_id", res.Booking.ID),
		zap.Uint32("credits_restored", res.Booking.CreditsCharged))
	return res, nil
}

func (b *Booking) replayCancellation(ctx context.Context, id uint64) (CancelResult, error) {
	c, err := b.store.CancellationByReservation(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return CancelResult{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return CancelResult{}, infra("load cancellation", err)
	}
	res := CancelResult{Booking: c, Replayed: true}
	if c.MemberID != nil {
		m, err := b.store.Member(ctx, *c.MemberID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return CancelResult{}, infra("load member", err)
		}
		if err == nil {
			res.UpdatedMember = balanceOf(&m)
		}
	}
	b.metrics.Cancelled.WithLabelValues("replayed").Inc()
	return res, nil
}

// memberInTx loads the member balance inside tx.  A member that no longer
// exists is reported as nil rather than failing the cancellation.
func memberInTx(ctx context.Context, tx repository.Tx, memberID *uint64) (*model.MemberBalance, error) {
	if memberID == nil {
		return nil, nil
	}
	m, err := tx.MemberByID(ctx, *memberID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return balanceOf(&m), nil
}
