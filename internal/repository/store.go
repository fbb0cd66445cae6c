package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/court-reservation/internal/model"
)

// dbtx is the subset shared by *sql.DB and *sql.Tx.  Repositories are
// written against it so the same SQL runs inside and outside transactions.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Tx is the set of operations available inside a Store transaction.  It
// covers the cancellation protocol and the payment ledger, both of which
// lock the reservation row before deciding.
type Tx interface {
	CancellationByReservation(ctx context.Context, reservationID uint64) (model.Cancellation, error)
	ReservationForUpdate(ctx context.Context, id uint64) (model.Reservation, error)
	InsertCancellation(ctx context.Context, c *model.Cancellation) error
	DeleteReservation(ctx context.Context, id uint64) error
	UpdatePayment(ctx context.Context, id uint64, paid, refunded bool, amountDue uint32) error
	IncrementCredits(ctx context.Context, memberID uint64, n uint32) error
	MemberByID(ctx context.Context, id uint64) (model.Member, error)
}

// Store bundles the repositories behind one *sql.DB.  Its methods are the
// storage operations used by the booking service; WithTx scopes a group of
// them in a single transaction.
type Store struct {
	db            *sql.DB
	Reservations  *ReservationRepo
	Cancellations *CancellationRepo
	Members       *MemberRepo
	Legacy        *LegacyBookingRepo
}

// NewStore binds every repository to db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:            db,
		Reservations:  NewReservationRepo(db),
		Cancellations: NewCancellationRepo(db),
		Members:       NewMemberRepo(db),
		Legacy:        NewLegacyBookingRepo(db),
	}
}

// WithTx runs fn inside a transaction.  The transaction commits when fn
// returns nil and rolls back otherwise; fn's error is returned unchanged so
// callers can still match sentinel errors.
func (s *Store) WithTx(ctx context.Context, fn func(Tx) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(txScope{
			res:     NewReservationRepo(tx),
			canc:    NewCancellationRepo(tx),
			members: NewMemberRepo(tx),
		})
	})
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func (s *Store) FindConflicts(ctx context.Context, date string, refs []model.SlotRef) ([]model.SlotRef, error) {
	return s.Reservations.FindConflicts(ctx, date, refs)
}

// InsertReservations inserts rs and reads them back in one transaction.
// Any error before the commit leaves nothing stored.
func (s *Store) InsertReservations(ctx context.Context, rs []model.Reservation) ([]model.Reservation, error) {
	var out []model.Reservation
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = NewReservationRepo(tx).InsertBatch(ctx, rs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ActiveSlots(ctx context.Context, date string) ([]model.SlotRef, error) {
	return s.Reservations.SlotsByDate(ctx, date)
}

func (s *Store) LegacySlots(ctx context.Context, date string) ([]model.SlotRef, error) {
	return s.Legacy.SlotsByDate(ctx, date)
}

func (s *Store) ListReservations(ctx context.Context, f ListFilter) ([]model.Reservation, error) {
	return s.Reservations.List(ctx, f)
}

func (s *Store) ListCancellations(ctx context.Context, f ListFilter) ([]model.Cancellation, error) {
	return s.Cancellations.List(ctx, f)
}

func (s *Store) CancellationByReservation(ctx context.Context, reservationID uint64) (model.Cancellation, error) {
	return s.Cancellations.GetByReservation(ctx, reservationID)
}

func (s *Store) DebitCredits(ctx context.Context, memberID uint64, n uint32) (model.Member, error) {
	return s.Members.DebitCredits(ctx, memberID, n)
}

func (s *Store) RestoreCredits(ctx context.Context, memberID uint64, n uint32) error {
	return s.Members.IncrementCredits(ctx, memberID, n)
}

func (s *Store) Member(ctx context.Context, id uint64) (model.Member, error) {
	return s.Members.GetByID(ctx, id)
}

// txScope adapts the transaction-bound repositories to Tx.
type txScope struct {
	res     *ReservationRepo
	canc    *CancellationRepo
	members *MemberRepo
}

func (t txScope) CancellationByReservation(ctx context.Context, reservationID uint64) (model.Cancellation, error) {
	return t.canc.GetByReservation(ctx, reservationID)
}

func (t txScope) ReservationForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	return t.res.GetForUpdate(ctx, id)
}

func (t txScope) InsertCancellation(ctx context.Context, c *model.Cancellation) error {
	return t.canc.Insert(ctx, c)
}

func (t txScope) DeleteReservation(ctx context.Context, id uint64) error {
	return t.res.Delete(ctx, id)
}

func (t txScope) UpdatePayment(ctx context.Context, id uint64, paid, refunded bool, amountDue uint32) error {
	return t.res.UpdatePayment(ctx, id, paid, refunded, amountDue)
}

func (t txScope) IncrementCredits(ctx context.Context, memberID uint64, n uint32) error {
	return t.members.IncrementCredits(ctx, memberID, n)
}

func (t txScope) MemberByID(ctx context.Context, id uint64) (model.Member, error) {
	return t.members.GetByID(ctx, id)
}
