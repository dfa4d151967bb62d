package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	// StatusPending: intent created, card not yet authorized.
	StatusPending = "pending"
	// StatusAuthorized: funds held on the card, not yet captured.
	StatusAuthorized = "authorized"
	// StatusCaptured: money collected, sitting in the platform balance.
	StatusCaptured = "captured"
	// StatusReleased: contractor payout transferred.
	StatusReleased = "released"
	// StatusCanceled: intent canceled before capture.
	StatusCanceled = "canceled"
)

const (
	RoleHomeowner  = "homeowner"
	RoleContractor = "contractor"
)

// PaymentHold is the escrow record for one funded job. Amounts are cents.
type PaymentHold struct {
	ID                          snowflake.ID  `gorm:"column:id;primaryKey" json:"id"`
	JobID                       snowflake.ID  `gorm:"column:job_id" json:"jobId"`
	BidID                       *snowflake.ID `gorm:"column:bid_id" json:"bidId,omitempty"`
	HomeownerID                 snowflake.ID  `gorm:"column:homeowner_id" json:"homeownerId"`
	ContractorID                snowflake.ID  `gorm:"column:contractor_id" json:"contractorId"`
	StripePaymentIntentID       string        `gorm:"column:stripe_payment_intent_id" json:"stripePaymentIntentId"`
	StripeCustomerID            string        `gorm:"column:stripe_customer_id" json:"stripeCustomerId"`
	Amount                      int64         `gorm:"column:amount" json:"amount"`
	PlatformFee                 int64         `gorm:"column:platform_fee" json:"platformFee"`
	ContractorPayout            int64         `gorm:"column:contractor_payout" json:"contractorPayout"`
	ProcessorFeeEstimate        int64         `gorm:"column:processor_fee_estimate" json:"processorFeeEstimate"`
	Currency                    string        `gorm:"column:currency" json:"currency"`
	Status                      string        `gorm:"column:status" json:"status"`
	HomeownerConfirmedComplete  bool          `gorm:"column:homeowner_confirmed_complete" json:"homeownerConfirmedComplete"`
	HomeownerConfirmedAt        *time.Time    `gorm:"column:homeowner_confirmed_at" json:"homeownerConfirmedAt,omitempty"`
	ContractorConfirmedComplete bool          `gorm:"column:contractor_confirmed_complete" json:"contractorConfirmedComplete"`
	ContractorConfirmedAt       *time.Time    `gorm:"column:contractor_confirmed_at" json:"contractorConfirmedAt,omitempty"`
	StripeChargeID              *string       `gorm:"column:stripe_charge_id" json:"stripeChargeId,omitempty"`
	StripeTransferID            *string       `gorm:"column:stripe_transfer_id" json:"stripeTransferId,omitempty"`
	ReleasedAt                  *time.Time    `gorm:"column:released_at" json:"releasedAt,omitempty"`
	CreatedAt                   time.Time     `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt                   time.Time     `gorm:"column:updated_at" json:"updatedAt"`
}

func (PaymentHold) TableName() string {
	return "payment_holds"
}

// BothConfirmed reports whether homeowner and contractor have both signed
// off on the completed work.
func (h PaymentHold) BothConfirmed() bool {
	return h.HomeownerConfirmedComplete && h.ContractorConfirmedComplete
}
