package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// StripeCustomer maps a homeowner to their processor-side customer object.
type StripeCustomer struct {
	HomeownerID      snowflake.ID `gorm:"column:homeowner_id;primaryKey" json:"homeownerId"`
	StripeCustomerID string       `gorm:"column:stripe_customer_id" json:"stripeCustomerId"`
	Email            string       `gorm:"column:email" json:"email"`
	CreatedAt        time.Time    `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt        time.Time    `gorm:"column:updated_at" json:"updatedAt"`
}

func (StripeCustomer) TableName() string {
	return "stripe_customers"
}
