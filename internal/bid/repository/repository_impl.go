package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/bid/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.JobBid, error) {
	var bid domain.JobBid
	err := db.WithContext(ctx).Raw(
		`SELECT id, job_id, contractor_id, homeowner_id, amount, message, status,
		        accepted_at, rejected_at, created_at, updated_at
		 FROM job_bids WHERE id = ?`,
		id,
	).Scan(&bid).Error
	if err != nil {
		return nil, err
	}
	if bid.ID == 0 {
		return nil, nil
	}
	return &bid, nil
}

func (r *repo) MarkAccepted(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE job_bids SET status = ?, accepted_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusAccepted,
		now,
		now,
		id,
		domain.StatusPending,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) MarkRejected(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE job_bids SET status = ?, rejected_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusRejected,
		now,
		now,
		id,
		domain.StatusPending,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) RejectSiblings(ctx context.Context, db *gorm.DB, jobID, acceptedBidID snowflake.ID, now time.Time) ([]*domain.JobBid, error) {
	var siblings []*domain.JobBid
	err := db.WithContext(ctx).Raw(
		`SELECT id, job_id, contractor_id, homeowner_id, amount, message, status,
		        accepted_at, rejected_at, created_at, updated_at
		 FROM job_bids WHERE job_id = ? AND id <> ? AND status = ?`,
		jobID,
		acceptedBidID,
		domain.StatusPending,
	).Scan(&siblings).Error
	if err != nil {
		return nil, err
	}
	if len(siblings) == 0 {
		return nil, nil
	}

	err = db.WithContext(ctx).Exec(
		`UPDATE job_bids SET status = ?, rejected_at = ?, updated_at = ?
		 WHERE job_id = ? AND id <> ? AND status = ?`,
		domain.StatusRejected,
		now,
		now,
		jobID,
		acceptedBidID,
		domain.StatusPending,
	).Error
	if err != nil {
		return nil, err
	}
	return siblings, nil
}
