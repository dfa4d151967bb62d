package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/clock"
	"github.com/rushr-app/rushr/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("notification.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Notify(ctx context.Context, req domain.NotifyRequest) {
	if req.UserID == 0 {
		return
	}

	notification := domain.Notification{
		ID:        s.genID.Generate(),
		UserID:    req.UserID,
		Kind:      strings.TrimSpace(req.Kind),
		Title:     strings.TrimSpace(req.Title),
		Body:      req.Body,
		JobID:     req.JobID,
		CreatedAt: s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &notification); err != nil {
		s.log.Warn("in-app notification insert failed",
			zap.Int64("user_id", int64(req.UserID)),
			zap.String("kind", notification.Kind),
			zap.Error(err),
		)
	}
}

func (s *Service) Enqueue(ctx context.Context, req domain.EnqueueRequest) {
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		return
	}
	channel := strings.TrimSpace(req.Channel)
	if channel != domain.ChannelEmail && channel != domain.ChannelSMS {
		s.log.Warn("dropping outbox message with unknown channel", zap.String("channel", req.Channel))
		return
	}

	message := domain.OutboxMessage{
		ID:        s.genID.Generate(),
		Channel:   channel,
		Recipient: recipient,
		Subject:   strings.TrimSpace(req.Subject),
		Body:      req.Body,
		Status:    domain.OutboxStatusPending,
		CreatedAt: s.clock.Now().UTC(),
	}

	if err := s.repo.InsertOutbox(ctx, s.db, &message); err != nil {
		s.log.Warn("outbox enqueue failed",
			zap.String("channel", channel),
			zap.Error(err),
		)
	}
}

func (s *Service) List(ctx context.Context, userID snowflake.ID, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	items, err := s.repo.ListByUser(ctx, s.db, userID, limit)
	if err != nil {
		return nil, err
	}

	notifications := make([]domain.Notification, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		notifications = append(notifications, *item)
	}
	return notifications, nil
}
