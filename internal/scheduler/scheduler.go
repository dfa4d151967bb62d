package scheduler

import (
	"context"
	"time"

	"github.com/rushr-app/rushr/internal/clock"
	"github.com/rushr-app/rushr/internal/config"
	connectdomain "github.com/rushr-app/rushr/internal/connect/domain"
	escrowdomain "github.com/rushr-app/rushr/internal/escrow/domain"
	"github.com/rushr-app/rushr/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Config  config.Config
	Escrow  escrowdomain.Service
	Connect connectdomain.Service
	Accts   connectdomain.Repository
	Locker  *ratelimit.Locker `optional:"true"`
}

// Scheduler reconciles state the request path could not finish: payouts
// stuck after both confirmations and Connect accounts awaiting KYC.
type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	cfg     config.SchedulerConfig
	escrow  escrowdomain.Service
	connect connectdomain.Service
	accts   connectdomain.Repository
	locker  *ratelimit.Locker

	cancel context.CancelFunc
	done   chan struct{}
}

func New(p Params) *Scheduler {
	return &Scheduler{
		db:      p.DB,
		log:     p.Log.Named("scheduler"),
		clock:   p.Clock,
		cfg:     p.Config.Scheduler,
		escrow:  p.Escrow,
		connect: p.Connect,
		accts:   p.Accts,
		locker:  p.Locker,
		done:    make(chan struct{}),
	}
}

func Register(lc fx.Lifecycle, s *Scheduler) {
	if !s.cfg.Enabled {
		close(s.done)
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			s.cancel = cancel
			go s.run(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if s.cancel != nil {
				s.cancel()
			}
			select {
			case <-s.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runJob(ctx, "release_retry", s.releaseRetry)
			s.runJob(ctx, "connect_refresh", s.connectRefresh)
		}
	}
}

// runJob takes a redis lock per job so only one instance works a tick.
// Without redis the jobs still run; the guarded SQL keeps them safe.
func (s *Scheduler) runJob(ctx context.Context, name string, job func(context.Context) error) {
	if s.locker != nil {
		key := ratelimit.JobLockKey(name)
		token, ok, err := s.locker.TryLock(ctx, key, s.cfg.Interval)
		if err != nil {
			s.log.Warn("scheduler lock failed", zap.String("job", name), zap.Error(err))
			return
		}
		if !ok {
			return
		}
		defer func() {
			if err := s.locker.Release(ctx, key, token); err != nil {
				s.log.Warn("scheduler lock release failed", zap.String("job", name), zap.Error(err))
			}
		}()
	}

	if err := job(ctx); err != nil {
		s.log.Warn("scheduler job failed", zap.String("job", name), zap.Error(err))
	}
}

func (s *Scheduler) releaseRetry(ctx context.Context) error {
	cutoff := s.clock.Now().UTC().Add(-s.cfg.ReleaseRetryAfter)
	released, err := s.escrow.ReleaseDue(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	if released > 0 {
		s.log.Info("retried stuck releases", zap.Int("released", released))
	}
	return nil
}

func (s *Scheduler) connectRefresh(ctx context.Context) error {
	cutoff := s.clock.Now().UTC().Add(-s.cfg.ConnectRefreshAfter)
	accounts, err := s.accts.ListStale(ctx, s.db, cutoff, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if account == nil {
			continue
		}
		if _, err := s.connect.CheckStatus(ctx, account.ContractorID.String()); err != nil {
			s.log.Warn("connect status refresh failed",
				zap.Int64("contractor_id", int64(account.ContractorID)),
				zap.Error(err),
			)
		}
	}
	return nil
}
