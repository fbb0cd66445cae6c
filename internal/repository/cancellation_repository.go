package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/court-reservation/internal/model"
)

// CancellationRepo provides access to the append-only cancellations table.
// Rows are never updated or deleted.  The unique key on
// original_reservation_id guarantees one snapshot per reservation.
type CancellationRepo struct {
	db dbtx
}

func NewCancellationRepo(db dbtx) *CancellationRepo { return &CancellationRepo{db: db} }

const cancellationColumns = `id, original_reservation_id, name, is_member, member_id, res_date, court, slot, amount_due, paid, refunded, credits_charged, booked_at, cancelled_at`

func scanCancellation(s rowScanner) (model.Cancellation, error) {
	var (
		c        model.Cancellation
		memberID sql.NullInt64
		day      time.Time
		court    string
	)
	err := s.Scan(&c.ID, &c.OriginalReservationID, &c.Name, &c.IsMember, &memberID, &day, &court, &c.Slot,
		&c.AmountDue, &c.Paid, &c.Refunded, &c.CreditsCharged, &c.BookedAt, &c.CancelledAt)
	if err != nil {
		return model.Cancellation{}, err
	}
	if memberID.Valid {
		id := uint64(memberID.Int64)
		c.MemberID = &id
	}
	c.Date = day.Format(model.DateLayout)
	c.Court = model.Court(court)
	return c, nil
}

// GetByReservation returns the snapshot archived for the given reservation
// ID, or ErrNotFound when it has not been cancelled.
func (r *CancellationRepo) GetByReservation(ctx context.Context, reservationID uint64) (model.Cancellation, error) {
	c, err := scanCancellation(r.db.QueryRowContext(ctx,
		`SELECT `+cancellationColumns+` FROM cancellations WHERE original_reservation_id = ?`, reservationID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Cancellation{}, ErrNotFound
	}
	return c, err
}

// Insert writes a snapshot and sets its generated ID.  A second snapshot for
// the same reservation yields ErrDuplicate.
func (r *CancellationRepo) Insert(ctx context.Context, c *model.Cancellation) error {
	var memberID any
	if c.MemberID != nil {
		memberID = *c.MemberID
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO cancellations (original_reservation_id, name, is_member, member_id, res_date, court, slot, amount_due, paid, refunded, credits_charged, booked_at, cancelled_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.OriginalReservationID, c.Name, c.IsMember, memberID, c.Date, string(c.Court), c.Slot,
		c.AmountDue, c.Paid, c.Refunded, c.CreditsCharged, c.BookedAt, c.CancelledAt)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("insert cancellation %d: %w", c.OriginalReservationID, ErrDuplicate)
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// List returns snapshots matching f ordered by cancellation time.
func (r *CancellationRepo) List(ctx context.Context, f ListFilter) ([]model.Cancellation, error) {
	where, args := listWhere(f)
	dir := orderDir(f.Desc)
	q := `SELECT ` + cancellationColumns + ` FROM cancellations` + where + ` ORDER BY cancelled_at ` + dir + `, id ` + dir
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Cancellation
	for rows.Next() {
		c, err := scanCancellation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
