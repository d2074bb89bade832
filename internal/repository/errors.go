// Package repository implements data access over the MySQL durable
// store.  This file holds sentinel errors shared by the repositories
// plus the duplicate-key detection used by the reservation uniqueness
// guard.  Higher layers compare against these values with errors.Is to
// translate storage failures into stable API error codes.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// ErrUserNotFound is returned when a user lookup yields no rows.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when registering an email that is already
// taken.
var ErrEmailExists = errors.New("email already exists")

// ErrActiveConflict is returned when inserting a reservation violates
// the one-active-per-seat or one-active-per-user unique index.  This is
// the storage-level arbiter behind the application's double checks.
var ErrActiveConflict = errors.New("active reservation conflict")

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (code 1062) raised by a unique index.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
