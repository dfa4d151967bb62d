package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	PaymentStatusNone       = "none"
	PaymentStatusPending    = "pending"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusPaid       = "paid"
	PaymentStatusReleased   = "released"
	PaymentStatusRefunded   = "refunded"
)

type HomeownerJob struct {
	ID                  snowflake.ID  `gorm:"column:id;primaryKey" json:"id"`
	HomeownerID         snowflake.ID  `gorm:"column:homeowner_id" json:"homeownerId"`
	Title               string        `gorm:"column:title" json:"title"`
	Status              string        `gorm:"column:status" json:"status"`
	AcceptedBidID       *snowflake.ID `gorm:"column:accepted_bid_id" json:"acceptedBidId,omitempty"`
	PaymentStatus       string        `gorm:"column:payment_status" json:"paymentStatus"`
	PaymentCapturedAt   *time.Time    `gorm:"column:payment_captured_at" json:"paymentCapturedAt,omitempty"`
	ContractorArrivedAt *time.Time    `gorm:"column:contractor_arrived_at" json:"contractorArrivedAt,omitempty"`
	CreatedAt           time.Time     `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt           time.Time     `gorm:"column:updated_at" json:"updatedAt"`
}

func (HomeownerJob) TableName() string {
	return "homeowner_jobs"
}
