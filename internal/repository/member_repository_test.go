package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const debitSQL = "UPDATE members SET credits = credits - ? WHERE id = ? AND credits >= ?"

func TestDebitCreditsReturnsUpdatedBalance(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(debitSQL)).
		WithArgs(2, 7, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM members WHERE id = ?")).
		WithArgs(7).
		WillReturnRows(memberRows().AddRow(7, "Mia", "mia@example.com", "0912", "3M", 1, 0, true, testNow, testNow))

	m, err := store.DebitCredits(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), m.Credits)
	assert.Equal(t, "Mia", m.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitCreditsInsufficient(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(debitSQL)).
		WithArgs(4, 7, 4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM members WHERE id = ?")).
		WithArgs(7).
		WillReturnRows(memberRows().AddRow(7, "Mia", "mia@example.com", "0912", "3M", 3, 0, true, testNow, testNow))

	_, err := store.DebitCredits(context.Background(), 7, 4)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitCreditsUnknownMember(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(debitSQL)).
		WithArgs(1, 99, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM members WHERE id = ?")).
		WithArgs(99).
		WillReturnRows(memberRows())

	_, err := store.DebitCredits(context.Background(), 99, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRestoreCreditsUnknownMember(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE members SET credits = credits + ? WHERE id = ?")).
		WithArgs(2, 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.RestoreCredits(context.Background(), 99, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberListFilters(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM members WHERE (name LIKE ? OR email LIKE ? OR phone LIKE ?) AND membership = ? ORDER BY created_at DESC, id DESC")).
		WithArgs("%mia%", "%mia%", "%mia%", "3M").
		WillReturnRows(memberRows().AddRow(7, "Mia", "mia@example.com", "0912", "3M", 2, 0, true, testNow, testNow))

	out, err := store.Members.List(context.Background(), MemberFilter{Query: "mia", Membership: "3M", Desc: true})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, uint32(2), out[0].Credits)
	require.NoError(t, mock.ExpectationsWereMet())
}
