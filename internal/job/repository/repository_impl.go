package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/job/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.HomeownerJob, error) {
	var job domain.HomeownerJob
	err := db.WithContext(ctx).Raw(
		`SELECT id, homeowner_id, title, status, accepted_bid_id, payment_status,
		        payment_captured_at, contractor_arrived_at, created_at, updated_at
		 FROM homeowner_jobs WHERE id = ?`,
		id,
	).Scan(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *repo) ListByHomeowner(ctx context.Context, db *gorm.DB, homeownerID snowflake.ID, afterID snowflake.ID, limit int) ([]*domain.HomeownerJob, error) {
	query := `SELECT id, homeowner_id, title, status, accepted_bid_id, payment_status,
	                 payment_captured_at, contractor_arrived_at, created_at, updated_at
	          FROM homeowner_jobs WHERE homeowner_id = ?`
	args := []any{homeownerID}

	// Snowflake ids order by creation time, so the id doubles as the
	// pagination cursor.
	if afterID != 0 {
		query += ` AND id < ?`
		args = append(args, afterID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	var jobs []*domain.HomeownerJob
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) UpdatePaymentStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentStatus string, capturedAt *time.Time, now time.Time) error {
	if capturedAt != nil {
		return db.WithContext(ctx).Exec(
			`UPDATE homeowner_jobs SET payment_status = ?, payment_captured_at = ?, updated_at = ? WHERE id = ?`,
			paymentStatus,
			capturedAt,
			now,
			id,
		).Error
	}
	return db.WithContext(ctx).Exec(
		`UPDATE homeowner_jobs SET payment_status = ?, updated_at = ? WHERE id = ?`,
		paymentStatus,
		now,
		id,
	).Error
}

func (r *repo) MarkConfirmed(ctx context.Context, db *gorm.DB, id, acceptedBidID snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE homeowner_jobs SET status = ?, accepted_bid_id = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusConfirmed,
		acceptedBidID,
		now,
		id,
		domain.StatusPending,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) MarkArrived(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE homeowner_jobs SET status = ?, contractor_arrived_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND contractor_arrived_at IS NULL`,
		domain.StatusInProgress,
		now,
		now,
		id,
		domain.StatusConfirmed,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE homeowner_jobs SET status = ?, updated_at = ? WHERE id = ?`,
		domain.StatusCompleted,
		now,
		id,
	).Error
}
