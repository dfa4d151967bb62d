package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, hold *PaymentHold) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentHold, error)
	FindByIntent(ctx context.Context, db *gorm.DB, intentID string) (*PaymentHold, error)
	FindByJob(ctx context.Context, db *gorm.DB, jobID snowflake.ID) (*PaymentHold, error)

	// Guarded transitions. Each returns rows affected so callers can
	// tell a lost race from a successful transition.
	MarkAuthorized(ctx context.Context, db *gorm.DB, intentID string, now time.Time) (int64, error)
	MarkCaptured(ctx context.Context, db *gorm.DB, id snowflake.ID, chargeID string, now time.Time) (int64, error)
	SetConfirmed(ctx context.Context, db *gorm.DB, id snowflake.ID, role string, now time.Time) (int64, error)
	MarkReleased(ctx context.Context, db *gorm.DB, id snowflake.ID, transferID string, now time.Time) (int64, error)

	// ListReleaseDue returns captured, fully-confirmed holds whose last
	// update is older than the cutoff. Under postgres the rows are
	// claimed with FOR UPDATE SKIP LOCKED so concurrent reconcilers do
	// not double-process.
	ListReleaseDue(ctx context.Context, db *gorm.DB, updatedBefore time.Time, limit int) ([]*PaymentHold, error)
}
