package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *StripeConnectAccount) error
	FindByContractor(ctx context.Context, db *gorm.DB, contractorID snowflake.ID) (*StripeConnectAccount, error)
	UpdateFlags(ctx context.Context, db *gorm.DB, account *StripeConnectAccount) error

	// ListStale returns accounts still short of completed KYC whose last
	// refresh is older than the cutoff. Used by the scheduler.
	ListStale(ctx context.Context, db *gorm.DB, updatedBefore time.Time, limit int) ([]*StripeConnectAccount, error)
}
