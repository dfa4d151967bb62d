package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, notification *Notification) error
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]*Notification, error)

	InsertOutbox(ctx context.Context, db *gorm.DB, message *OutboxMessage) error
	ListPendingOutbox(ctx context.Context, db *gorm.DB, limit int) ([]*OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, db *gorm.DB, id snowflake.ID, sentAt time.Time) error
	MarkOutboxFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, attempts int, lastError string, terminal bool) error
}
