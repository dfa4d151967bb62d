package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, notification *domain.Notification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notifications (id, user_id, kind, title, body, job_id, read_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		notification.ID,
		notification.UserID,
		notification.Kind,
		notification.Title,
		notification.Body,
		notification.JobID,
		notification.ReadAt,
		notification.CreatedAt,
	).Error
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]*domain.Notification, error) {
	var notifications []*domain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, kind, title, body, job_id, read_at, created_at
		 FROM notifications WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID,
		limit,
	).Scan(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *repo) InsertOutbox(ctx context.Context, db *gorm.DB, message *domain.OutboxMessage) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notification_outbox (id, channel, recipient, subject, body, status, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		message.ID,
		message.Channel,
		message.Recipient,
		message.Subject,
		message.Body,
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Error
}

func (r *repo) ListPendingOutbox(ctx context.Context, db *gorm.DB, limit int) ([]*domain.OutboxMessage, error) {
	var messages []*domain.OutboxMessage
	err := db.WithContext(ctx).Raw(
		`SELECT id, channel, recipient, subject, body, status, attempts, last_error, created_at, sent_at
		 FROM notification_outbox WHERE status = ?
		 ORDER BY created_at ASC, id ASC LIMIT ?`,
		domain.OutboxStatusPending,
		limit,
	).Scan(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *repo) MarkOutboxSent(ctx context.Context, db *gorm.DB, id snowflake.ID, sentAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notification_outbox
		 SET status = ?, attempts = attempts + 1, last_error = NULL, sent_at = ?
		 WHERE id = ? AND status = ?`,
		domain.OutboxStatusSent,
		sentAt,
		id,
		domain.OutboxStatusPending,
	).Error
}

func (r *repo) MarkOutboxFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, attempts int, lastError string, terminal bool) error {
	status := domain.OutboxStatusPending
	if terminal {
		status = domain.OutboxStatusFailed
	}
	return db.WithContext(ctx).Exec(
		`UPDATE notification_outbox
		 SET status = ?, attempts = ?, last_error = ?
		 WHERE id = ? AND status = ?`,
		status,
		attempts,
		lastError,
		id,
		domain.OutboxStatusPending,
	).Error
}
