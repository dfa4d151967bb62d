package dispatch

import (
	"context"
	"time"

	"github.com/rushr-app/rushr/internal/clock"
	"github.com/rushr-app/rushr/internal/notification/domain"
	"github.com/rushr-app/rushr/internal/observability/metrics"
	"github.com/rushr-app/rushr/internal/providers/email"
	"github.com/rushr-app/rushr/internal/providers/sms"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	pollInterval = 5 * time.Second
	batchSize    = 25
	maxAttempts  = 5
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    domain.Repository
	Email   email.Provider
	SMS     sms.Provider
	Metrics *metrics.Metrics `optional:"true"`
}

// Dispatcher drains the notification outbox in the background. A send
// failure bumps attempts and leaves the row pending until maxAttempts.
type Dispatcher struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	email   email.Provider
	sms     sms.Provider
	metrics *metrics.Metrics

	cancel context.CancelFunc
	done   chan struct{}
}

func New(p Params) *Dispatcher {
	return &Dispatcher{
		db:      p.DB,
		log:     p.Log.Named("notification.dispatch"),
		clock:   p.Clock,
		repo:    p.Repo,
		email:   p.Email,
		sms:     p.SMS,
		metrics: p.Metrics,
		done:    make(chan struct{}),
	}
}

func Register(lc fx.Lifecycle, d *Dispatcher) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			d.cancel = cancel
			go d.run(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if d.cancel != nil {
				d.cancel()
			}
			select {
			case <-d.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DrainOnce(ctx)
		}
	}
}

// DrainOnce processes one batch of pending outbox rows. Exported so tests
// drive the dispatcher without the ticker.
func (d *Dispatcher) DrainOnce(ctx context.Context) {
	messages, err := d.repo.ListPendingOutbox(ctx, d.db, batchSize)
	if err != nil {
		d.log.Warn("outbox poll failed", zap.Error(err))
		return
	}

	for _, message := range messages {
		if message == nil {
			continue
		}
		d.deliver(ctx, message)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, message *domain.OutboxMessage) {
	var sendErr error
	switch message.Channel {
	case domain.ChannelEmail:
		sendErr = d.email.Send(ctx, []string{message.Recipient}, message.Subject, message.Body)
	case domain.ChannelSMS:
		sendErr = d.sms.Send(ctx, message.Recipient, message.Body)
	default:
		sendErr = d.repo.MarkOutboxFailure(ctx, d.db, message.ID, message.Attempts+1, "unknown channel", true)
		if sendErr != nil {
			d.log.Warn("outbox update failed", zap.Int64("id", int64(message.ID)), zap.Error(sendErr))
		}
		return
	}

	d.metrics.RecordNotification(ctx, message.Channel, sendErr == nil)

	if sendErr == nil {
		if err := d.repo.MarkOutboxSent(ctx, d.db, message.ID, d.clock.Now().UTC()); err != nil {
			d.log.Warn("outbox update failed", zap.Int64("id", int64(message.ID)), zap.Error(err))
		}
		return
	}

	attempts := message.Attempts + 1
	terminal := attempts >= maxAttempts
	d.log.Warn("outbox delivery failed",
		zap.Int64("id", int64(message.ID)),
		zap.String("channel", message.Channel),
		zap.Int("attempts", attempts),
		zap.Bool("terminal", terminal),
		zap.Error(sendErr),
	)
	if err := d.repo.MarkOutboxFailure(ctx, d.db, message.ID, attempts, sendErr.Error(), terminal); err != nil {
		d.log.Warn("outbox update failed", zap.Int64("id", int64(message.ID)), zap.Error(err))
	}
}
