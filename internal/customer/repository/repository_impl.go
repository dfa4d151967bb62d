package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.StripeCustomer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stripe_customers (homeowner_id, stripe_customer_id, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		customer.HomeownerID,
		customer.StripeCustomerID,
		customer.Email,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByHomeowner(ctx context.Context, db *gorm.DB, homeownerID snowflake.ID) (*domain.StripeCustomer, error) {
	var customer domain.StripeCustomer
	err := db.WithContext(ctx).Raw(
		`SELECT homeowner_id, stripe_customer_id, email, created_at, updated_at
		 FROM stripe_customers WHERE homeowner_id = ?`,
		homeownerID,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.HomeownerID == 0 {
		return nil, nil
	}
	return &customer, nil
}
