// Package service orchestrates the reservation workflow: provisional
// seat claims against the lock store, durable confirmation against
// MySQL, user-initiated checkout and the merged seat status board.
//
// This file defines the stable error taxonomy reported to API callers.
// Every recoverable failure carries a machine-readable code and an HTTP
// status; anything unclassified is reported as INTERNAL_ERROR without
// leaking detail.
package service

import "net/http"

// ServiceError is a recoverable business failure with a stable code.
// Handlers translate it into a {code, message} JSON body at the mapped
// HTTP status.  The core never retries on these; retry policy belongs
// to the caller.
type ServiceError struct {
	Code    string // stable machine-readable identifier
	Status  int    // HTTP status the handler should respond with
	Message string // human-readable description, safe to expose
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Message }

var (
	// ErrSeatAlreadyOccupied covers both sides of the occupancy rule:
	// the user already has an active reservation, or the seat already
	// has a confirmed reservation by someone else.
	ErrSeatAlreadyOccupied = &ServiceError{
		Code:    "SEAT_ALREADY_OCCUPIED",
		Status:  http.StatusConflict,
		Message: "seat is already in use",
	}

	// ErrSeatAlreadyLocked means the claim lost the race: another user
	// holds the provisional lock on this seat.
	ErrSeatAlreadyLocked = &ServiceError{
		Code:    "SEAT_ALREADY_LOCKED",
		Status:  http.StatusConflict,
		Message: "another user is currently claiming this seat",
	}

	// ErrLockInvalid means a confirm was attempted after the seat lock
	// expired or by a user who never held it.
	ErrLockInvalid = &ServiceError{
		Code:    "INVALID_LOCK",
		Status:  http.StatusBadRequest,
		Message: "seat claim expired or belongs to another user",
	}

	// ErrUserNotFound means the referenced user does not exist.
	ErrUserNotFound = &ServiceError{
		Code:    "USER_NOT_FOUND",
		Status:  http.StatusNotFound,
		Message: "user not found",
	}

	// ErrSeatNotFound means the referenced seat does not exist.
	ErrSeatNotFound = &ServiceError{
		Code:    "SEAT_NOT_FOUND",
		Status:  http.StatusNotFound,
		Message: "seat not found",
	}

	// ErrNoActiveReservation means checkout or a current-seat query
	// found nothing active for the user.
	ErrNoActiveReservation = &ServiceError{
		Code:    "NO_ACTIVE_RESERVATION",
		Status:  http.StatusNotFound,
		Message: "no active reservation",
	}

	// ErrDuplicateEmail means registration hit an already-taken email.
	ErrDuplicateEmail = &ServiceError{
		Code:    "DUPLICATE_EMAIL",
		Status:  http.StatusConflict,
		Message: "email is already registered",
	}

	// ErrInvalidCredentials means login failed; the message does not
	// reveal whether the email or the password was wrong.
	ErrInvalidCredentials = &ServiceError{
		Code:    "INVALID_CREDENTIALS",
		Status:  http.StatusUnauthorized,
		Message: "invalid email or password",
	}

	// ErrInternal is the generic fallback for unclassified faults.
	ErrInternal = &ServiceError{
		Code:    "INTERNAL_ERROR",
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
	}
)
