package domain

import "errors"

var (
	ErrInvalidID      = errors.New("job id is invalid")
	ErrNotFound       = errors.New("job not found")
	ErrNotOwner       = errors.New("job does not belong to this homeowner")
	ErrNotConfirmed   = errors.New("job has no confirmed contractor yet")
	ErrAlreadyArrived = errors.New("contractor arrival already confirmed")
)
