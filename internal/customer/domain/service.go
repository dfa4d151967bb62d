package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidHomeowner = errors.New("homeowner id is required")
)

type Service interface {
	// ResolveOrCreate returns the homeowner's processor customer, creating
	// one on first use. Safe under concurrent first use.
	ResolveOrCreate(ctx context.Context, homeownerID snowflake.ID, email string) (StripeCustomer, error)
}
