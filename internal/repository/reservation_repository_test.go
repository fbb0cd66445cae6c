package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/court-reservation/internal/model"
)

func TestFindConflictsUsesRowConstructor(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT court, slot FROM reservations WHERE res_date = ? AND (court, slot) IN ((?, ?),(?, ?))")).
		WithArgs("2025-01-10", "court1", "18:00", "court2", "19:00").
		WillReturnRows(sqlmock.NewRows([]string{"court", "slot"}).AddRow("court1", "18:00"))

	got, err := store.FindConflicts(context.Background(), "2025-01-10", []model.SlotRef{
		{Court: model.Court1, Slot: "18:00"},
		{Court: model.Court2, Slot: "19:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.SlotRef{{Court: model.Court1, Slot: "18:00"}}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatchReadsBackRows(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WithArgs("Ana", false, nil, "2025-01-10", "court1", "06:00", 500, false, false, 0,
			"Ana", false, nil, "2025-01-10", "court2", "06:00", 500, false, false, 0).
		WillReturnResult(sqlmock.NewResult(10, 2))
	// ids with a gap, returned out of order: auto_increment_increment > 1
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE res_date = ? AND (court, slot) IN ((?, ?),(?, ?))")).
		WithArgs("2025-01-10", "court1", "06:00", "court2", "06:00").
		WillReturnRows(reservationRows().
			AddRow(12, "Ana", false, nil, day("2025-01-10"), "court2", "06:00", 500, false, false, 0, testNow, testNow).
			AddRow(10, "Ana", false, nil, day("2025-01-10"), "court1", "06:00", 500, false, false, 0, testNow, testNow))
	mock.ExpectCommit()

	in := []model.Reservation{
		{Name: "Ana", Date: "2025-01-10", Court: model.Court1, Slot: "06:00", AmountDue: 500},
		{Name: "Ana", Date: "2025-01-10", Court: model.Court2, Slot: "06:00", AmountDue: 500},
	}
	out, err := store.InsertReservations(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, uint64(10), out[0].ID)
	assert.Equal(t, model.Court1, out[0].Court)
	assert.Equal(t, uint64(12), out[1].ID)
	assert.Equal(t, model.Court2, out[1].Court)
	assert.Nil(t, out[0].MemberID)
	assert.Equal(t, uint32(500), out[1].AmountDue)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatchReadBackFailureRollsBack(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE res_date = ? AND (court, slot) IN ((?, ?))")).
		WillReturnError(errors.New("i/o timeout"))
	mock.ExpectRollback()

	out, err := store.InsertReservations(context.Background(), []model.Reservation{
		{Name: "Ana", Date: "2025-01-10", Court: model.Court1, Slot: "18:00", AmountDue: 500},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read back reservations")
	assert.Nil(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatchMissingRowRollsBack(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE res_date = ?")).
		WillReturnRows(reservationRows())
	mock.ExpectRollback()

	_, err := store.InsertReservations(context.Background(), []model.Reservation{
		{Name: "Ana", Date: "2025-01-10", Court: model.Court1, Slot: "18:00", AmountDue: 500},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "court1@18:00 missing")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatchRejectsMixedDates(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := store.InsertReservations(context.Background(), []model.Reservation{
		{Name: "Ana", Date: "2025-01-10", Court: model.Court1, Slot: "18:00"},
		{Name: "Ana", Date: "2025-01-11", Court: model.Court1, Slot: "18:00"},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatchMapsDuplicateEntry(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '2025-01-10-court1-18:00'"})
	mock.ExpectRollback()

	_, err := store.InsertReservations(context.Background(), []model.Reservation{
		{Name: "Ana", Date: "2025-01-10", Court: model.Court1, Slot: "18:00", AmountDue: 500},
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForUpdateMissingRow(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ? FOR UPDATE")).
		WithArgs(42).
		WillReturnRows(reservationRows())
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx Tx) error {
		_, err := tx.ReservationForUpdate(context.Background(), 42)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancellationInsertDuplicate(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cancellations")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '9' for key 'uq_cancellation_orig'"})

	c := model.Cancellation{OriginalReservationID: 9, Date: "2025-01-10", Court: model.Court1, Slot: "18:00"}
	err := store.Cancellations.Insert(context.Background(), &c)
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListWhere(t *testing.T) {
	yes := true
	where, args := listWhere(ListFilter{Query: " ann ", Date: "2025-01-10", IsMember: &yes})
	assert.Equal(t, " WHERE name LIKE ? AND res_date = ? AND is_member = ?", where)
	assert.Equal(t, []any{"%ann%", "2025-01-10", true}, args)

	where, args = listWhere(ListFilter{})
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestListReservationsOrdersByCreation(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE res_date = ? ORDER BY created_at DESC, id DESC")).
		WithArgs("2025-01-10").
		WillReturnRows(reservationRows().
			AddRow(2, "Bo", false, nil, day("2025-01-10"), "court3", "07:00", 500, true, false, 0, testNow, testNow))

	out, err := store.ListReservations(context.Background(), ListFilter{Date: "2025-01-10", Desc: true})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Paid)
	require.NoError(t, mock.ExpectationsWereMet())
}
