package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *StripeCustomer) error
	FindByHomeowner(ctx context.Context, db *gorm.DB, homeownerID snowflake.ID) (*StripeCustomer, error)
}
