package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

type JobBid struct {
	ID           snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	JobID        snowflake.ID `gorm:"column:job_id" json:"jobId"`
	ContractorID snowflake.ID `gorm:"column:contractor_id" json:"contractorId"`
	HomeownerID  snowflake.ID `gorm:"column:homeowner_id" json:"homeownerId"`
	Amount       int64        `gorm:"column:amount" json:"amount"`
	Message      string       `gorm:"column:message" json:"message"`
	Status       string       `gorm:"column:status" json:"status"`
	AcceptedAt   *time.Time   `gorm:"column:accepted_at" json:"acceptedAt,omitempty"`
	RejectedAt   *time.Time   `gorm:"column:rejected_at" json:"rejectedAt,omitempty"`
	CreatedAt    time.Time    `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time    `gorm:"column:updated_at" json:"updatedAt"`
}

func (JobBid) TableName() string {
	return "job_bids"
}
