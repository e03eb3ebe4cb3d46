package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound       = errors.New("record not found")
	ErrShowNotFound         = fmt.Errorf("show %w", ErrRecordNotFound)
	ErrBookingNotFound      = fmt.Errorf("booking %w", ErrRecordNotFound)
	ErrSeatConflict         = errors.New("seat(s) are not available")
	ErrTransactionAborted   = errors.New("transaction aborted, please try again")
	ErrPaymentStateConflict = errors.New("payment outcome conflicts with booking state")
	ErrInvalidSeat          = errors.New("seat does not exist for this show")
	ErrForbidden            = errors.New("booking does not belong to the current user")
	ErrBookingNotPayable    = errors.New("booking is not awaiting payment")
	ErrInvalidOutcome       = errors.New("unknown payment outcome")

	// ErrNoChange is returned from a store callback to leave the stored state
	// untouched. Stores translate it into a successful, write-free transaction.
	ErrNoChange = errors.New("no change")
)

// SeatsUnavailableError lists the seats that made a finalization fail.
type SeatsUnavailableError struct {
	Seats []SeatID
}

func (e *SeatsUnavailableError) Error() string {
	ids := make([]string, len(e.Seats))
	for i, s := range e.Seats {
		ids[i] = string(s)
	}

	return fmt.Sprintf("seats unavailable: %s", strings.Join(ids, ","))
}

func (e *SeatsUnavailableError) Unwrap() error {
	return ErrSeatConflict
}
