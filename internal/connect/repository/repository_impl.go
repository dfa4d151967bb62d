package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/connect/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.StripeConnectAccount) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stripe_connect_accounts
		 (contractor_id, stripe_account_id, details_submitted, charges_enabled, payouts_enabled,
		  kyc_status, requirements_due, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ContractorID,
		account.StripeAccountID,
		account.DetailsSubmitted,
		account.ChargesEnabled,
		account.PayoutsEnabled,
		account.KYCStatus,
		account.RequirementsDue,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) FindByContractor(ctx context.Context, db *gorm.DB, contractorID snowflake.ID) (*domain.StripeConnectAccount, error) {
	var account domain.StripeConnectAccount
	err := db.WithContext(ctx).Raw(
		`SELECT contractor_id, stripe_account_id, details_submitted, charges_enabled, payouts_enabled,
		        kyc_status, requirements_due, created_at, updated_at
		 FROM stripe_connect_accounts WHERE contractor_id = ?`,
		contractorID,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ContractorID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) UpdateFlags(ctx context.Context, db *gorm.DB, account *domain.StripeConnectAccount) error {
	return db.WithContext(ctx).Exec(
		`UPDATE stripe_connect_accounts
		 SET details_submitted = ?, charges_enabled = ?, payouts_enabled = ?,
		     kyc_status = ?, requirements_due = ?, updated_at = ?
		 WHERE contractor_id = ?`,
		account.DetailsSubmitted,
		account.ChargesEnabled,
		account.PayoutsEnabled,
		account.KYCStatus,
		account.RequirementsDue,
		account.UpdatedAt,
		account.ContractorID,
	).Error
}

func (r *repo) ListStale(ctx context.Context, db *gorm.DB, updatedBefore time.Time, limit int) ([]*domain.StripeConnectAccount, error) {
	var accounts []*domain.StripeConnectAccount
	err := db.WithContext(ctx).Raw(
		`SELECT contractor_id, stripe_account_id, details_submitted, charges_enabled, payouts_enabled,
		        kyc_status, requirements_due, created_at, updated_at
		 FROM stripe_connect_accounts
		 WHERE kyc_status <> ? AND updated_at < ?
		 ORDER BY updated_at ASC LIMIT ?`,
		domain.KYCStatusCompleted,
		updatedBefore,
		limit,
	).Scan(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
