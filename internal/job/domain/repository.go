package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*HomeownerJob, error)
	// ListByHomeowner returns jobs newest first. afterID is an exclusive
	// cursor; zero lists from the newest.
	ListByHomeowner(ctx context.Context, db *gorm.DB, homeownerID snowflake.ID, afterID snowflake.ID, limit int) ([]*HomeownerJob, error)

	// UpdatePaymentStatus sets payment_status and, when capturedAt is
	// non-nil, payment_captured_at.
	UpdatePaymentStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentStatus string, capturedAt *time.Time, now time.Time) error

	// MarkConfirmed records the accepted bid. Guarded on status so a
	// second accept for the same job affects zero rows.
	MarkConfirmed(ctx context.Context, db *gorm.DB, id, acceptedBidID snowflake.ID, now time.Time) (int64, error)

	// MarkArrived transitions confirmed -> in_progress. Returns rows
	// affected so callers can distinguish repeats from missing rows.
	MarkArrived(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)

	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
}
