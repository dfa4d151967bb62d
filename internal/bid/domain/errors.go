package domain

import "errors"

var (
	ErrInvalidID       = errors.New("bid id is invalid")
	ErrNotFound        = errors.New("bid not found")
	ErrNotOwner        = errors.New("bid does not belong to this homeowner")
	ErrAlreadyRejected = errors.New("bid is already rejected")
	ErrNotPending      = errors.New("bid is not pending")
)
