package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*JobBid, error)

	// MarkAccepted and MarkRejected are guarded on status pending and
	// return rows affected.
	MarkAccepted(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)
	MarkRejected(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)

	// RejectSiblings rejects every other pending bid on the job and
	// returns the affected bids for notification fan-out.
	RejectSiblings(ctx context.Context, db *gorm.DB, jobID, acceptedBidID snowflake.ID, now time.Time) ([]*JobBid, error)
}
