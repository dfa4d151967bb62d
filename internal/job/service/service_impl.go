package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/clock"
	"github.com/rushr-app/rushr/internal/job/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("job.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, req domain.GetJobRequest) (domain.HomeownerJob, error) {
	job, err := s.loadOwned(ctx, req.ID, req.HomeownerID)
	if err != nil {
		return domain.HomeownerJob{}, err
	}
	return *job, nil
}

func (s *Service) List(ctx context.Context, req domain.ListJobsRequest) ([]domain.HomeownerJob, error) {
	homeownerID, err := parseID(req.HomeownerID)
	if err != nil {
		return nil, err
	}

	var afterID snowflake.ID
	if strings.TrimSpace(req.AfterID) != "" {
		if afterID, err = parseID(req.AfterID); err != nil {
			return nil, err
		}
	}

	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	items, err := s.repo.ListByHomeowner(ctx, s.db, homeownerID, afterID, limit)
	if err != nil {
		return nil, err
	}

	jobs := make([]domain.HomeownerJob, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		jobs = append(jobs, *item)
	}
	return jobs, nil
}

func (s *Service) ConfirmArrival(ctx context.Context, req domain.ConfirmArrivalRequest) (domain.HomeownerJob, error) {
	job, err := s.loadOwned(ctx, req.JobID, req.HomeownerID)
	if err != nil {
		return domain.HomeownerJob{}, err
	}

	if job.ContractorArrivedAt != nil {
		return domain.HomeownerJob{}, domain.ErrAlreadyArrived
	}
	if job.Status != domain.StatusConfirmed {
		return domain.HomeownerJob{}, domain.ErrNotConfirmed
	}

	now := s.clock.Now().UTC()
	affected, err := s.repo.MarkArrived(ctx, s.db, job.ID, now)
	if err != nil {
		return domain.HomeownerJob{}, err
	}
	if affected == 0 {
		// Lost a race with another confirmation.
		return domain.HomeownerJob{}, domain.ErrAlreadyArrived
	}

	updated, err := s.repo.FindByID(ctx, s.db, job.ID)
	if err != nil {
		return domain.HomeownerJob{}, err
	}
	if updated == nil {
		return domain.HomeownerJob{}, domain.ErrNotFound
	}
	return *updated, nil
}

func (s *Service) loadOwned(ctx context.Context, rawJobID, rawHomeownerID string) (*domain.HomeownerJob, error) {
	jobID, err := parseID(rawJobID)
	if err != nil {
		return nil, err
	}
	homeownerID, err := parseID(rawHomeownerID)
	if err != nil {
		return nil, err
	}

	job, err := s.repo.FindByID(ctx, s.db, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrNotFound
	}
	if job.HomeownerID != homeownerID {
		return nil, domain.ErrNotOwner
	}
	return job, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
