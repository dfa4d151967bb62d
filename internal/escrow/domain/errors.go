package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID        = errors.New("payment hold id is invalid")
	ErrNotFound         = errors.New("payment hold not found")
	ErrNotOwner         = errors.New("payment hold does not belong to this homeowner")
	ErrNotParticipant   = errors.New("user is not a party to this payment hold")
	ErrInvalidUserType  = errors.New("user type must be homeowner or contractor")
	ErrInvalidAmount    = errors.New("bid amount is below the minimum charge")
	ErrBidNotFundable   = errors.New("bid is not open for funding")
	ErrHoldExists       = errors.New("a payment hold already exists for this bid")
	ErrAlreadyConfirmed = errors.New("completion already confirmed by this party")
	ErrNotConfirmed     = errors.New("both parties must confirm completion before release")
	ErrAlreadyReleased  = errors.New("payment hold is already released")
	ErrNoPayoutAccount  = errors.New("contractor has no payout account")
	ErrPayoutsDisabled  = errors.New("contractor payouts are not enabled yet")

	// ErrInvalidStatus is the errors.Is target for StatusError.
	ErrInvalidStatus = errors.New("payment hold is in the wrong status")
)

// StatusError reports a state-machine violation together with the hold's
// current status.
type StatusError struct {
	Current string
	Wanted  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("payment hold is %s, expected %s", e.Current, e.Wanted)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrInvalidStatus
}
