// Package repository defines the data-access layer and the error values
// shared by its repositories.  Every precondition failure has its own
// sentinel so that handlers can translate it with errors.Is; a lookup miss
// is never an error and is reported as a nil entity instead.  Driver errors
// are returned unchanged.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict signals that the operation cannot proceed because of the
// current state of related rows.  Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// Base repository misuse.
var (
	ErrUnknownFilter         = errors.New("filter column is not allowed")
	ErrSoftDeleteUnsupported = errors.New("table has no active flag")
)

// Loan preconditions, checked before any row is written.
var (
	ErrItemNotFound       = errors.New("item not found")
	ErrItemUnavailable    = errors.New("item is not available")
	ErrOwnItem            = errors.New("cannot borrow your own item")
	ErrInvalidDateRange   = errors.New("end date must not be before start date")
	ErrConflictingLoan    = errors.New("item already booked for these dates")
	ErrLoanNotFound       = errors.New("loan not found")
	ErrInvalidTransition  = errors.New("loan status transition not allowed")
	ErrNotLoanParticipant = errors.New("user is not a participant of this loan")
	ErrLoanNotCompleted   = errors.New("loan is not completed")
)

// Review and message preconditions.
var (
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrDuplicateReview = errors.New("review already submitted")
	ErrSelfMessage     = errors.New("cannot send a message to yourself")
	ErrImageNotFound   = errors.New("image not found")
)
