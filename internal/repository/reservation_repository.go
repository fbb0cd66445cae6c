package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/court-reservation/internal/model"
)

// ReservationRepo provides access to the reservations table.  Each row
// occupies exactly one (res_date, court, slot) triple; the unique key on
// that triple is the only thing standing between two concurrent bookings of
// the same slot, so inserts surface its violation as ErrDuplicate rather
// than as a raw driver error.
type ReservationRepo struct {
	db dbtx
}

// NewReservationRepo returns a ReservationRepo bound to db, which may be a
// *sql.DB or a *sql.Tx.
func NewReservationRepo(db dbtx) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, name, is_member, member_id, res_date, court, slot, amount_due, paid, refunded, credits_charged, created_at, updated_at`

// ListFilter narrows the booking listing.  Zero values mean "no filter".
type ListFilter struct {
	Query    string // case-insensitive substring of the requester name
	Date     string // exact YYYY-MM-DD day
	IsMember *bool  // nil = all
	Desc     bool   // newest first
}

func scanReservation(s rowScanner) (model.Reservation, error) {
	var (
		r        model.Reservation
		memberID sql.NullInt64
		day      time.Time
		court    string
	)
	err := s.Scan(&r.ID, &r.Name, &r.IsMember, &memberID, &day, &court, &r.Slot,
		&r.AmountDue, &r.Paid, &r.Refunded, &r.CreditsCharged, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.Reservation{}, err
	}
	if memberID.Valid {
		id := uint64(memberID.Int64)
		r.MemberID = &id
	}
	r.Date = day.Format(model.DateLayout)
	r.Court = model.Court(court)
	return r, nil
}

// slotTuples renders "(?, ?),(?, ?)..." for a row-constructor IN list and
// appends the court/slot arguments.
func slotTuples(refs []model.SlotRef, args []any) (string, []any) {
	var b strings.Builder
	for i, ref := range refs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?)")
		args = append(args, string(ref.Court), ref.Slot)
	}
	return b.String(), args
}

// FindConflicts returns those refs already occupied on date.  It is an
// optimistic pre-check only; InsertBatch remains the authoritative guard.
func (r *ReservationRepo) FindConflicts(ctx context.Context, date string, refs []model.SlotRef) ([]model.SlotRef, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	tuples, args := slotTuples(refs, []any{date})
	q := `SELECT court, slot FROM reservations WHERE res_date = ? AND (court, slot) IN (` + tuples + `) ORDER BY court, slot`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlotRefs(rows)
}

// SlotsByDate returns every occupied (court, slot) pair on date.
func (r *ReservationRepo) SlotsByDate(ctx context.Context, date string) ([]model.SlotRef, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT court, slot FROM reservations WHERE res_date = ?`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlotRefs(rows)
}

func scanSlotRefs(rows *sql.Rows) ([]model.SlotRef, error) {
	var out []model.SlotRef
	for rows.Next() {
		var court, slot string
		if err := rows.Scan(&court, &slot); err != nil {
			return nil, err
		}
		out = append(out, model.SlotRef{Court: model.Court(court), Slot: slot})
	}
	return out, rows.Err()
}

// InsertBatch inserts every reservation in a single multi-row statement, so
// either all rows are written or none are.  A unique-key violation is
// reported as ErrDuplicate.  All rows must share one date.  The stored rows
// (with generated IDs and timestamps) are read back by their unique
// (res_date, court, slot) key and returned in input order; IDs are not
// assumed to be consecutive.
//
// Run it inside a transaction (Store.InsertReservations does): a failed
// read-back must undo the insert, or the caller cannot tell a stored
// booking from a failed one.
func (r *ReservationRepo) InsertBatch(ctx context.Context, rs []model.Reservation) ([]model.Reservation, error) {
	if len(rs) == 0 {
		return nil, nil
	}
	date := rs[0].Date
	query := `INSERT INTO reservations (name, is_member, member_id, res_date, court, slot, amount_due, paid, refunded, credits_charged) VALUES `
	args := make([]any, 0, len(rs)*10)
	refs := make([]model.SlotRef, len(rs))
	for i, res := range rs {
		if res.Date != date {
			return nil, fmt.Errorf("insert reservations: mixed dates %s and %s", date, res.Date)
		}
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		var memberID any
		if res.MemberID != nil {
			memberID = *res.MemberID
		}
		args = append(args, res.Name, res.IsMember, memberID, res.Date, string(res.Court), res.Slot,
			res.AmountDue, res.Paid, res.Refunded, res.CreditsCharged)
		refs[i] = res.Ref()
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("insert reservations: %w", ErrDuplicate)
		}
		return nil, err
	}

	tuples, qargs := slotTuples(refs, []any{date})
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE res_date = ? AND (court, slot) IN (`+tuples+`)`, qargs...)
	if err != nil {
		return nil, fmt.Errorf("read back reservations: %w", err)
	}
	defer rows.Close()
	stored := make(map[model.SlotRef]model.Reservation, len(rs))
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("read back reservations: %w", err)
		}
		stored[res.Ref()] = res
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read back reservations: %w", err)
	}
	out := make([]model.Reservation, 0, len(rs))
	for _, ref := range refs {
		res, ok := stored[ref]
		if !ok {
			return nil, fmt.Errorf("read back reservations: %s missing", ref)
		}
		out = append(out, res)
	}
	return out, nil
}

// GetByID loads a single active reservation.  ErrNotFound is returned when
// no row exists, which includes reservations that have been cancelled.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	return res, err
}

// GetForUpdate is GetByID with a row lock.  It must run inside a
// transaction; concurrent cancel/pay/refund calls on the same reservation
// queue up behind the lock.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	return res, err
}

// Delete removes an active reservation, freeing its slot.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePayment writes the ledger flags of a reservation.  Callers decide
// the transition while holding the row lock from GetForUpdate.
func (r *ReservationRepo) UpdatePayment(ctx context.Context, id uint64, paid, refunded bool, amountDue uint32) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET paid = ?, refunded = ?, amount_due = ? WHERE id = ?`,
		paid, refunded, amountDue, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotUpdated
	}
	return nil
}

// listWhere builds the WHERE clause shared by the reservation and
// cancellation listings; both tables carry name, res_date and is_member.
func listWhere(f ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		conds = append(conds, "name LIKE ?")
		args = append(args, "%"+q+"%")
	}
	if f.Date != "" {
		conds = append(conds, "res_date = ?")
		args = append(args, f.Date)
	}
	if f.IsMember != nil {
		conds = append(conds, "is_member = ?")
		args = append(args, *f.IsMember)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderDir(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

// List returns active reservations matching f ordered by creation time.
func (r *ReservationRepo) List(ctx context.Context, f ListFilter) ([]model.Reservation, error) {
	where, args := listWhere(f)
	dir := orderDir(f.Desc)
	q := `SELECT ` + reservationColumns + ` FROM reservations` + where + ` ORDER BY created_at ` + dir + `, id ` + dir
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
