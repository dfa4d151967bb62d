package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

// Notification is an in-app notification row.
type Notification struct {
	ID        snowflake.ID  `gorm:"column:id;primaryKey" json:"id"`
	UserID    snowflake.ID  `gorm:"column:user_id" json:"userId"`
	Kind      string        `gorm:"column:kind" json:"kind"`
	Title     string        `gorm:"column:title" json:"title"`
	Body      string        `gorm:"column:body" json:"body"`
	JobID     *snowflake.ID `gorm:"column:job_id" json:"jobId,omitempty"`
	ReadAt    *time.Time    `gorm:"column:read_at" json:"readAt,omitempty"`
	CreatedAt time.Time     `gorm:"column:created_at" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

// OutboxMessage is one queued email or SMS delivery. Rows are drained by
// the dispatcher; delivery failures never reach the enqueuing caller.
type OutboxMessage struct {
	ID        snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	Channel   string       `gorm:"column:channel" json:"channel"`
	Recipient string       `gorm:"column:recipient" json:"recipient"`
	Subject   string       `gorm:"column:subject" json:"subject"`
	Body      string       `gorm:"column:body" json:"body"`
	Status    string       `gorm:"column:status" json:"status"`
	Attempts  int          `gorm:"column:attempts" json:"attempts"`
	LastError *string      `gorm:"column:last_error" json:"lastError,omitempty"`
	CreatedAt time.Time    `gorm:"column:created_at" json:"createdAt"`
	SentAt    *time.Time   `gorm:"column:sent_at" json:"sentAt,omitempty"`
}

func (OutboxMessage) TableName() string {
	return "notification_outbox"
}

type NotifyRequest struct {
	UserID snowflake.ID
	Kind   string
	Title  string
	Body   string
	JobID  *snowflake.ID
}

type EnqueueRequest struct {
	Channel   string
	Recipient string
	Subject   string
	Body      string
}
