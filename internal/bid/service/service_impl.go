package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/bid/domain"
	"github.com/rushr-app/rushr/internal/clock"
	jobdomain "github.com/rushr-app/rushr/internal/job/domain"
	notificationdomain "github.com/rushr-app/rushr/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Repo          domain.Repository
	Jobs          jobdomain.Repository
	Notifications notificationdomain.Service
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	repo          domain.Repository
	jobs          jobdomain.Repository
	notifications notificationdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("bid.service"),
		clock:         p.Clock,
		repo:          p.Repo,
		jobs:          p.Jobs,
		notifications: p.Notifications,
	}
}

func (s *Service) Reject(ctx context.Context, req domain.RejectBidRequest) (domain.JobBid, error) {
	bid, err := s.loadOwned(ctx, req.BidID, req.HomeownerID)
	if err != nil {
		return domain.JobBid{}, err
	}

	if bid.Status == domain.StatusRejected {
		return domain.JobBid{}, domain.ErrAlreadyRejected
	}
	if bid.Status != domain.StatusPending {
		return domain.JobBid{}, domain.ErrNotPending
	}

	now := s.clock.Now().UTC()
	affected, err := s.repo.MarkRejected(ctx, s.db, bid.ID, now)
	if err != nil {
		return domain.JobBid{}, err
	}
	if affected == 0 {
		return domain.JobBid{}, domain.ErrAlreadyRejected
	}

	bid.Status = domain.StatusRejected
	bid.RejectedAt = &now
	bid.UpdatedAt = now

	jobTitle := strings.TrimSpace(req.JobTitle)
	if jobTitle == "" {
		jobTitle = "your job"
	}
	jobID := bid.JobID
	s.notifications.Notify(ctx, notificationdomain.NotifyRequest{
		UserID: bid.ContractorID,
		Kind:   "bid_rejected",
		Title:  "Bid not selected",
		Body:   fmt.Sprintf("Your bid on %s was not selected.", jobTitle),
		JobID:  &jobID,
	})
	s.enqueueContact(ctx, req.ContractorEmail, req.ContractorPhone,
		"Update on your Rushr bid",
		fmt.Sprintf("Your bid on %s was not selected this time.", jobTitle),
	)

	return *bid, nil
}

func (s *Service) Accept(ctx context.Context, req domain.AcceptBidRequest) (domain.AcceptBidResult, error) {
	bid, err := s.loadOwned(ctx, req.BidID, req.HomeownerID)
	if err != nil {
		return domain.AcceptBidResult{}, err
	}

	if bid.Status != domain.StatusPending {
		return domain.AcceptBidResult{}, domain.ErrNotPending
	}

	now := s.clock.Now().UTC()
	affected, err := s.repo.MarkAccepted(ctx, s.db, bid.ID, now)
	if err != nil {
		return domain.AcceptBidResult{}, err
	}
	if affected == 0 {
		return domain.AcceptBidResult{}, domain.ErrNotPending
	}

	if _, err := s.jobs.MarkConfirmed(ctx, s.db, bid.JobID, bid.ID, now); err != nil {
		return domain.AcceptBidResult{}, err
	}

	siblings, err := s.repo.RejectSiblings(ctx, s.db, bid.JobID, bid.ID, now)
	if err != nil {
		return domain.AcceptBidResult{}, err
	}

	bid.Status = domain.StatusAccepted
	bid.AcceptedAt = &now
	bid.UpdatedAt = now

	jobTitle := strings.TrimSpace(req.JobTitle)
	if jobTitle == "" {
		jobTitle = "a job"
	}
	jobID := bid.JobID
	s.notifications.Notify(ctx, notificationdomain.NotifyRequest{
		UserID: bid.ContractorID,
		Kind:   "bid_accepted",
		Title:  "Bid accepted",
		Body:   fmt.Sprintf("Your bid on %s was accepted.", jobTitle),
		JobID:  &jobID,
	})
	s.enqueueContact(ctx, req.ContractorEmail, req.ContractorPhone,
		"Your Rushr bid was accepted",
		fmt.Sprintf("Your bid on %s was accepted. The homeowner will fund the job next.", jobTitle),
	)
	for _, sibling := range siblings {
		if sibling == nil {
			continue
		}
		siblingJobID := sibling.JobID
		s.notifications.Notify(ctx, notificationdomain.NotifyRequest{
			UserID: sibling.ContractorID,
			Kind:   "bid_rejected",
			Title:  "Bid not selected",
			Body:   fmt.Sprintf("Another bid on %s was accepted.", jobTitle),
			JobID:  &siblingJobID,
		})
	}

	return domain.AcceptBidResult{Bid: *bid, RejectedSiblings: len(siblings)}, nil
}

func (s *Service) enqueueContact(ctx context.Context, email, phone, subject, body string) {
	if strings.TrimSpace(email) != "" {
		s.notifications.Enqueue(ctx, notificationdomain.EnqueueRequest{
			Channel:   notificationdomain.ChannelEmail,
			Recipient: email,
			Subject:   subject,
			Body:      body,
		})
	}
	if strings.TrimSpace(phone) != "" {
		s.notifications.Enqueue(ctx, notificationdomain.EnqueueRequest{
			Channel:   notificationdomain.ChannelSMS,
			Recipient: phone,
			Body:      body,
		})
	}
}

func (s *Service) loadOwned(ctx context.Context, rawBidID, rawHomeownerID string) (*domain.JobBid, error) {
	bidID, err := parseID(rawBidID)
	if err != nil {
		return nil, err
	}
	homeownerID, err := parseID(rawHomeownerID)
	if err != nil {
		return nil, err
	}

	bid, err := s.repo.FindByID(ctx, s.db, bidID)
	if err != nil {
		return nil, err
	}
	if bid == nil {
		return nil, domain.ErrNotFound
	}
	if bid.HomeownerID != homeownerID {
		return nil, domain.ErrNotOwner
	}
	return bid, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
