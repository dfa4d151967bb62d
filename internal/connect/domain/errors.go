package domain

import "errors"

var (
	ErrInvalidContractor = errors.New("contractor id is invalid")
	ErrNoAccount         = errors.New("contractor has no payout account")
)
