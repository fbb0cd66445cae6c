// Package repository holds the MySQL-backed stores for reservations,
// cancellations, members and admins.  Repositories return the sentinel
// errors below (possibly wrapped) so that higher layers can distinguish
// failure scenarios with errors.Is without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by identity matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert trips a unique key.  For
// reservations it means another request won the race for a slot; for
// cancellations it means the reservation was already archived.
var ErrDuplicate = errors.New("duplicate key")

// ErrInsufficientCredits is returned by DebitCredits when the member exists
// but its balance is lower than the requested amount.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrNotUpdated is returned when a conditional UPDATE matched no row.
var ErrNotUpdated = errors.New("no rows updated")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
