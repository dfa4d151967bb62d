package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/escrow/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const holdColumns = `id, job_id, bid_id, homeowner_id, contractor_id, stripe_payment_intent_id,
	stripe_customer_id, amount, platform_fee, contractor_payout, processor_fee_estimate,
	currency, status, homeowner_confirmed_complete, homeowner_confirmed_at,
	contractor_confirmed_complete, contractor_confirmed_at, stripe_charge_id,
	stripe_transfer_id, released_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, hold *domain.PaymentHold) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_holds (`+holdColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		hold.ID,
		hold.JobID,
		hold.BidID,
		hold.HomeownerID,
		hold.ContractorID,
		hold.StripePaymentIntentID,
		hold.StripeCustomerID,
		hold.Amount,
		hold.PlatformFee,
		hold.ContractorPayout,
		hold.ProcessorFeeEstimate,
		hold.Currency,
		hold.Status,
		hold.HomeownerConfirmedComplete,
		hold.HomeownerConfirmedAt,
		hold.ContractorConfirmedComplete,
		hold.ContractorConfirmedAt,
		hold.StripeChargeID,
		hold.StripeTransferID,
		hold.ReleasedAt,
		hold.CreatedAt,
		hold.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentHold, error) {
	return r.findOne(ctx, db, `id = ?`, id)
}

func (r *repo) FindByIntent(ctx context.Context, db *gorm.DB, intentID string) (*domain.PaymentHold, error) {
	return r.findOne(ctx, db, `stripe_payment_intent_id = ?`, intentID)
}

func (r *repo) FindByJob(ctx context.Context, db *gorm.DB, jobID snowflake.ID) (*domain.PaymentHold, error) {
	return r.findOne(ctx, db, `job_id = ?`, jobID)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.PaymentHold, error) {
	var hold domain.PaymentHold
	err := db.WithContext(ctx).Raw(
		`SELECT `+holdColumns+` FROM payment_holds WHERE `+where+` ORDER BY created_at DESC LIMIT 1`,
		arg,
	).Scan(&hold).Error
	if err != nil {
		return nil, err
	}
	if hold.ID == 0 {
		return nil, nil
	}
	return &hold, nil
}

func (r *repo) MarkAuthorized(ctx context.Context, db *gorm.DB, intentID string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payment_holds SET status = ?, updated_at = ?
		 WHERE stripe_payment_intent_id = ? AND status = ?`,
		domain.StatusAuthorized,
		now,
		intentID,
		domain.StatusPending,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) MarkCaptured(ctx context.Context, db *gorm.DB, id snowflake.ID, chargeID string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payment_holds SET status = ?, stripe_charge_id = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusCaptured,
		chargeID,
		now,
		id,
		domain.StatusAuthorized,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) SetConfirmed(ctx context.Context, db *gorm.DB, id snowflake.ID, role string, now time.Time) (int64, error) {
	var result *gorm.DB
	switch role {
	case domain.RoleHomeowner:
		result = db.WithContext(ctx).Exec(
			`UPDATE payment_holds
			 SET homeowner_confirmed_complete = ?, homeowner_confirmed_at = ?, updated_at = ?
			 WHERE id = ? AND status = ? AND homeowner_confirmed_complete = ?`,
			true, now, now, id, domain.StatusCaptured, false,
		)
	case domain.RoleContractor:
		result = db.WithContext(ctx).Exec(
			`UPDATE payment_holds
			 SET contractor_confirmed_complete = ?, contractor_confirmed_at = ?, updated_at = ?
			 WHERE id = ? AND status = ? AND contractor_confirmed_complete = ?`,
			true, now, now, id, domain.StatusCaptured, false,
		)
	default:
		return 0, domain.ErrInvalidUserType
	}
	return result.RowsAffected, result.Error
}

func (r *repo) MarkReleased(ctx context.Context, db *gorm.DB, id snowflake.ID, transferID string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payment_holds SET status = ?, stripe_transfer_id = ?, released_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?
		   AND homeowner_confirmed_complete = ? AND contractor_confirmed_complete = ?`,
		domain.StatusReleased,
		transferID,
		now,
		now,
		id,
		domain.StatusCaptured,
		true,
		true,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ListReleaseDue(ctx context.Context, db *gorm.DB, updatedBefore time.Time, limit int) ([]*domain.PaymentHold, error) {
	query := `SELECT ` + holdColumns + ` FROM payment_holds
		 WHERE status = ? AND homeowner_confirmed_complete = ? AND contractor_confirmed_complete = ?
		   AND updated_at < ?
		 ORDER BY updated_at ASC LIMIT ?`
	if db.Dialector.Name() == "postgres" {
		query += ` FOR UPDATE SKIP LOCKED`
	}

	var holds []*domain.PaymentHold
	err := db.WithContext(ctx).Raw(
		query,
		domain.StatusCaptured,
		true,
		true,
		updatedBefore,
		limit,
	).Scan(&holds).Error
	if err != nil {
		return nil, err
	}
	return holds, nil
}
