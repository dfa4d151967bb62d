package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	KYCStatusPending   = "pending"
	KYCStatusInReview  = "in_review"
	KYCStatusCompleted = "completed"
)

// StripeConnectAccount mirrors the processor-side express account flags
// for a contractor. The row is refreshed on demand and by the scheduler.
type StripeConnectAccount struct {
	ContractorID     snowflake.ID   `gorm:"column:contractor_id;primaryKey" json:"contractorId"`
	StripeAccountID  string         `gorm:"column:stripe_account_id" json:"stripeAccountId"`
	DetailsSubmitted bool           `gorm:"column:details_submitted" json:"detailsSubmitted"`
	ChargesEnabled   bool           `gorm:"column:charges_enabled" json:"chargesEnabled"`
	PayoutsEnabled   bool           `gorm:"column:payouts_enabled" json:"payoutsEnabled"`
	KYCStatus        string         `gorm:"column:kyc_status" json:"kycStatus"`
	RequirementsDue  datatypes.JSON `gorm:"column:requirements_due" json:"requirementsDue"`
	CreatedAt        time.Time      `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"column:updated_at" json:"updatedAt"`
}

func (StripeConnectAccount) TableName() string {
	return "stripe_connect_accounts"
}

// OnboardingComplete reports whether the contractor can be paid out:
// identity details submitted and payouts enabled on the processor side.
func (a StripeConnectAccount) OnboardingComplete() bool {
	return a.DetailsSubmitted && a.PayoutsEnabled
}
