package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	biddomain "github.com/rushr-app/rushr/internal/bid/domain"
	"github.com/rushr-app/rushr/internal/clock"
	"github.com/rushr-app/rushr/internal/config"
	connectdomain "github.com/rushr-app/rushr/internal/connect/domain"
	customerdomain "github.com/rushr-app/rushr/internal/customer/domain"
	"github.com/rushr-app/rushr/internal/escrow/domain"
	jobdomain "github.com/rushr-app/rushr/internal/job/domain"
	notificationdomain "github.com/rushr-app/rushr/internal/notification/domain"
	"github.com/rushr-app/rushr/internal/observability/metrics"
	"github.com/rushr-app/rushr/internal/stripe"
	pkgdb "github.com/rushr-app/rushr/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Stripe rejects card charges below 50 cents.
const minChargeCents = 50

const defaultCurrency = "usd"

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Config        config.Config
	Repo          domain.Repository
	Bids          biddomain.Repository
	Jobs          jobdomain.Repository
	Connect       connectdomain.Repository
	Customers     customerdomain.Service
	Stripe        stripe.Client
	Notifications notificationdomain.Service
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	feeBps        int64
	repo          domain.Repository
	bids          biddomain.Repository
	jobs          jobdomain.Repository
	connect       connectdomain.Repository
	customers     customerdomain.Service
	stripe        stripe.Client
	notifications notificationdomain.Service
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("escrow.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		feeBps:        p.Config.Stripe.PlatformFeeBps,
		repo:          p.Repo,
		bids:          p.Bids,
		jobs:          p.Jobs,
		connect:       p.Connect,
		customers:     p.Customers,
		stripe:        p.Stripe,
		notifications: p.Notifications,
		metrics:       p.Metrics,
	}
}

func (s *Service) CreateHold(ctx context.Context, req domain.CreateHoldRequest) (domain.CreateHoldResult, error) {
	bidID, err := parseID(req.BidID)
	if err != nil {
		return domain.CreateHoldResult{}, err
	}
	homeownerID, err := parseID(req.HomeownerID)
	if err != nil {
		return domain.CreateHoldResult{}, err
	}

	bid, err := s.bids.FindByID(ctx, s.db, bidID)
	if err != nil {
		return domain.CreateHoldResult{}, err
	}
	if bid == nil {
		return domain.CreateHoldResult{}, biddomain.ErrNotFound
	}
	if bid.HomeownerID != homeownerID {
		return domain.CreateHoldResult{}, biddomain.ErrNotOwner
	}
	if bid.Status != biddomain.StatusPending && bid.Status != biddomain.StatusAccepted {
		return domain.CreateHoldResult{}, domain.ErrBidNotFundable
	}
	if bid.Amount < minChargeCents {
		return domain.CreateHoldResult{}, domain.ErrInvalidAmount
	}

	fees := domain.ComputeFees(bid.Amount, s.feeBps)

	customer, err := s.customers.ResolveOrCreate(ctx, homeownerID, req.HomeownerEmail)
	if err != nil {
		return domain.CreateHoldResult{}, err
	}

	started := s.clock.Now()
	intent, err := s.stripe.CreatePaymentIntent(ctx, stripe.CreatePaymentIntentParams{
		Amount:     bid.Amount,
		Currency:   defaultCurrency,
		CustomerID: customer.StripeCustomerID,
		Metadata: map[string]string{
			"job_id":        bid.JobID.String(),
			"bid_id":        bid.ID.String(),
			"homeowner_id":  homeownerID.String(),
			"contractor_id": bid.ContractorID.String(),
		},
		IdempotencyKey: "hold:bid:" + bid.ID.String(),
	})
	s.metrics.RecordProcessorCall(ctx, "payment_intent.create", s.clock.Now().Sub(started), err)
	if err != nil {
		return domain.CreateHoldResult{}, err
	}

	now := s.clock.Now().UTC()
	hold := domain.PaymentHold{
		ID:                    s.genID.Generate(),
		JobID:                 bid.JobID,
		BidID:                 &bid.ID,
		HomeownerID:           homeownerID,
		ContractorID:          bid.ContractorID,
		StripePaymentIntentID: intent.ID,
		StripeCustomerID:      customer.StripeCustomerID,
		Amount:                fees.Amount,
		PlatformFee:           fees.PlatformFee,
		ContractorPayout:      fees.ContractorPayout,
		ProcessorFeeEstimate:  fees.ProcessorFeeEstimate,
		Currency:              defaultCurrency,
		Status:                domain.StatusPending,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.repo.Insert(ctx, s.db, &hold); err != nil {
		s.cancelIntent(ctx, intent.ID, "duplicate")
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.CreateHoldResult{}, domain.ErrHoldExists
		}
		return domain.CreateHoldResult{}, err
	}

	if err := s.jobs.UpdatePaymentStatus(ctx, s.db, bid.JobID, jobdomain.PaymentStatusPending, nil, now); err != nil {
		s.log.Warn("job payment status update failed",
			zap.Int64("job_id", int64(bid.JobID)),
			zap.Error(err),
		)
	}

	s.metrics.RecordHoldTransition(ctx, domain.StatusPending)
	return domain.CreateHoldResult{
		Hold:         hold,
		ClientSecret: intent.ClientSecret,
		Fees:         fees,
	}, nil
}

func (s *Service) MarkAuthorized(ctx context.Context, paymentIntentID string) error {
	intentID := strings.TrimSpace(paymentIntentID)
	if intentID == "" {
		return domain.ErrInvalidID
	}

	hold, err := s.repo.FindByIntent(ctx, s.db, intentID)
	if err != nil {
		return err
	}
	if hold == nil {
		return domain.ErrNotFound
	}

	now := s.clock.Now().UTC()
	affected, err := s.repo.MarkAuthorized(ctx, s.db, intentID, now)
	if err != nil {
		return err
	}
	if affected == 0 {
		// Already past pending; webhook retries land here.
		return nil
	}

	if err := s.jobs.UpdatePaymentStatus(ctx, s.db, hold.JobID, jobdomain.PaymentStatusAuthorized, nil, now); err != nil {
		s.log.Warn("job payment status update failed",
			zap.Int64("job_id", int64(hold.JobID)),
			zap.Error(err),
		)
	}

	s.metrics.RecordHoldTransition(ctx, domain.StatusAuthorized)
	return nil
}

func (s *Service) Capture(ctx context.Context, req domain.CaptureRequest) (domain.PaymentHold, error) {
	holdID, err := parseID(req.PaymentHoldID)
	if err != nil {
		return domain.PaymentHold{}, err
	}
	homeownerID, err := parseID(req.HomeownerID)
	if err != nil {
		return domain.PaymentHold{}, err
	}

	hold, err := s.repo.FindByID(ctx, s.db, holdID)
	if err != nil {
		return domain.PaymentHold{}, err
	}
	if hold == nil {
		return domain.PaymentHold{}, domain.ErrNotFound
	}
	if hold.HomeownerID != homeownerID {
		return domain.PaymentHold{}, domain.ErrNotOwner
	}
	if hold.Status != domain.StatusAuthorized {
		return domain.PaymentHold{}, &domain.StatusError{Current: hold.Status, Wanted: domain.StatusAuthorized}
	}

	started := s.clock.Now()
	intent, err := s.stripe.CapturePaymentIntent(ctx, hold.StripePaymentIntentID)
	s.metrics.RecordProcessorCall(ctx, "payment_intent.capture", s.clock.Now().Sub(started), err)
	if err != nil {
		// Capture is retryable at the processor; the hold stays authorized.
		return domain.PaymentHold{}, err
	}

	now := s.clock.Now().UTC()
	affected, err := s.repo.MarkCaptured(ctx, s.db, hold.ID, intent.LatestCharge, now)
	if err != nil {
		return domain.PaymentHold{}, err
	}
	if affected == 0 {
		fresh, findErr := s.repo.FindByID(ctx, s.db, hold.ID)
		if findErr == nil && fresh != nil && fresh.Status == domain.StatusCaptured {
			return *fresh, nil
		}
		return domain.PaymentHold{}, &domain.StatusError{Current: hold.Status, Wanted: domain.StatusAuthorized}
	}

	capturedAt := now
	if err := s.jobs.UpdatePaymentStatus(ctx, s.db, hold.JobID, jobdomain.PaymentStatusPaid, &capturedAt, now); err != nil {
		s.log.Warn("job payment status update failed",
			zap.Int64("job_id", int64(hold.JobID)),
			zap.Error(err),
		)
	}

	jobID := hold.JobID
	s.notifications.Notify(ctx, notificationdomain.NotifyRequest{
		UserID: hold.ContractorID,
		Kind:   "payment_captured",
		Title:  "Payment secured",
		Body:   fmt.Sprintf("The homeowner funded %s. You can start the work.", formatCents(hold.Amount)),
		JobID:  &jobID,
	})
	s.enqueueContact(ctx, req.Contact.ContractorEmail, req.Contact.ContractorPhone,
		"Payment secured",
		fmt.Sprintf("The homeowner funded %s. You can start the work.", formatCents(hold.Amount)),
	)
	s.enqueueContact(ctx, req.Contact.HomeownerEmail, req.Contact.HomeownerPhone,
		"Payment captured",
		fmt.Sprintf("You funded %s. It stays in escrow until both sides confirm completion.", formatCents(hold.Amount)),
	)

	s.metrics.RecordHoldTransition(ctx, domain.StatusCaptured)

	hold.Status = domain.StatusCaptured
	hold.StripeChargeID = &intent.LatestCharge
	hold.UpdatedAt = now
	return *hold, nil
}

func (s *Service) ConfirmComplete(ctx context.Context, req domain.ConfirmCompleteRequest) (domain.ConfirmCompleteResult, error) {
	role := strings.ToLower(strings.TrimSpace(req.UserType))
	if role != domain.RoleHomeowner && role != domain.RoleContractor {
		return domain.ConfirmCompleteResult{}, domain.ErrInvalidUserType
	}

	userID, err := parseID(req.UserID)
	if err != nil {
		return domain.ConfirmCompleteResult{}, err
	}

	hold, err := s.resolveHold(ctx, req.PaymentHoldID, req.JobID)
	if err != nil {
		return domain.ConfirmCompleteResult{}, err
	}

	switch role {
	case domain.RoleHomeowner:
		if hold.HomeownerID != userID {
			return domain.ConfirmCompleteResult{}, domain.ErrNotParticipant
		}
		if hold.HomeownerConfirmedComplete {
			return domain.ConfirmCompleteResult{}, domain.ErrAlreadyConfirmed
		}
	case domain.RoleContractor:
		if hold.ContractorID != userID {
			return domain.ConfirmCompleteResult{}, domain.ErrNotParticipant
		}
		if hold.ContractorConfirmedComplete {
			return domain.ConfirmCompleteResult{}, domain.ErrAlreadyConfirmed
		}
	}
	if hold.Status != domain.StatusCaptured {
		return domain.ConfirmCompleteResult{}, &domain.StatusError{Current: hold.Status, Wanted: domain.StatusCaptured}
	}

	now := s.clock.Now().UTC()
	affected, err := s.repo.SetConfirmed(ctx, s.db, hold.ID, role, now)
	if err != nil {
		return domain.ConfirmCompleteResult{}, err
	}
	if affected == 0 {
		// Lost a race: either this role just confirmed elsewhere or the
		// hold left captured. Re-read to report the right conflict.
		fresh, findErr := s.repo.FindByID(ctx, s.db, hold.ID)
		if findErr != nil {
			return domain.ConfirmCompleteResult{}, findErr
		}
		if fresh != nil && fresh.Status != domain.StatusCaptured {
			return domain.ConfirmCompleteResult{}, &domain.StatusError{Current: fresh.Status, Wanted: domain.StatusCaptured}
		}
		return domain.ConfirmCompleteResult{}, domain.ErrAlreadyConfirmed
	}

	fresh, err := s.repo.FindByID(ctx, s.db, hold.ID)
	if err != nil {
		return domain.ConfirmCompleteResult{}, err
	}
	if fresh == nil {
		return domain.ConfirmCompleteResult{}, domain.ErrNotFound
	}

	result := domain.ConfirmCompleteResult{Hold: *fresh, BothConfirmed: fresh.BothConfirmed()}
	if !result.BothConfirmed {
		return result, nil
	}

	if err := s.jobs.MarkCompleted(ctx, s.db, fresh.JobID, now); err != nil {
		s.log.Warn("job completion update failed",
			zap.Int64("job_id", int64(fresh.JobID)),
			zap.Error(err),
		)
	}

	jobID := fresh.JobID
	s.notifications.Notify(ctx, notificationdomain.NotifyRequest{
		UserID: fresh.HomeownerID,
		Kind:   "job_completed",
		Title:  "Job complete",
		Body:   "Both parties confirmed completion. Payment is being released.",
		JobID:  &jobID,
	})
	s.notifications.Notify(ctx, notificationdomain.NotifyRequest{
		UserID: fresh.ContractorID,
		Kind:   "job_completed",
		Title:  "Job complete",
		Body:   "Both parties confirmed completion. Your payout is on the way.",
		JobID:  &jobID,
	})
	s.enqueueContact(ctx, req.Contact.HomeownerEmail, req.Contact.HomeownerPhone,
		"Job complete",
		"Both parties confirmed completion. Payment is being released.",
	)
	s.enqueueContact(ctx, req.Contact.ContractorEmail, req.Contact.ContractorPhone,
		"Job complete",
		"Both parties confirmed completion. Your payout is on the way.",
	)

	released, err := s.release(ctx, s.db, fresh)
	if err != nil {
		// The reconciler retries; confirmations are never rolled back.
		s.log.Warn("release after confirmation failed",
			zap.Int64("payment_hold_id", int64(fresh.ID)),
			zap.Error(err),
		)
		return result, nil
	}

	result.Hold = released
	result.PaymentReleased = true
	return result, nil
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

func (s *Service) Release(ctx context.Context, paymentHoldID string) (domain.PaymentHold, error) {
	holdID, err := parseID(paymentHoldID)
	if err != nil {
		return domain.PaymentHold{}, err
	}

	hold, err := s.repo.FindByID(ctx, s.db, holdID)
	if err != nil {
		return domain.PaymentHold{}, err
	}
	if hold == nil {
		return domain.PaymentHold{}, domain.ErrNotFound
	}

	return s.release(ctx, s.db, hold)
}

// release runs the payout for a hold already loaded by the caller.
func (s *Service) release(ctx context.Context, db *gorm.DB, hold *domain.PaymentHold) (domain.PaymentHold, error) {
	if hold.Status == domain.StatusReleased {
		return domain.PaymentHold{}, domain.ErrAlreadyReleased
	}
	if hold.Status != domain.StatusCaptured {
		return domain.PaymentHold{}, &domain.StatusError{Current: hold.Status, Wanted: domain.StatusCaptured}
	}
	if !hold.BothConfirmed() {
		return domain.PaymentHold{}, domain.ErrNotConfirmed
	}

	account, err := s.connect.FindByContractor(ctx, db, hold.ContractorID)
	if err != nil {
		return domain.PaymentHold{}, err
	}
	if account == nil {
		return domain.PaymentHold{}, domain.ErrNoPayoutAccount
	}
	if !account.PayoutsEnabled {
		return domain.PaymentHold{}, domain.ErrPayoutsDisabled
	}

	sourceCharge := ""
	if hold.StripeChargeID != nil {
		sourceCharge = *hold.StripeChargeID
	}

	started := s.clock.Now()
	transfer, err := s.stripe.CreateTransfer(ctx, stripe.CreateTransferParams{
		Amount:       hold.ContractorPayout,
		Currency:     hold.Currency,
		Destination:  account.StripeAccountID,
		SourceCharge: sourceCharge,
		Metadata: map[string]string{
			"payment_hold_id": hold.ID.String(),
			"job_id":          hold.JobID.String(),
		},
		// Stripe dedupes retries, so a crash between transfer and the
		// status update below is safe to replay.
		IdempotencyKey: "hold:" + hold.ID.String() + ":release",
	})
	s.metrics.RecordProcessorCall(ctx, "transfer.create", s.clock.Now().Sub(started), err)
	if err != nil {
		s.metrics.RecordTransfer(ctx, "error")
		return domain.PaymentHold{}, err
	}

	now := s.clock.Now().UTC()
	affected, err := s.repo.MarkReleased(ctx, db, hold.ID, transfer.ID, now)
	if err != nil {
		return domain.PaymentHold{}, err
	}
	if affected == 0 {
		fresh, findErr := s.repo.FindByID(ctx, db, hold.ID)
		if findErr == nil && fresh != nil && fresh.Status == domain.StatusReleased {
			return *fresh, nil
		}
		return domain.PaymentHold{}, domain.ErrAlreadyReleased
	}

	if err := s.jobs.UpdatePaymentStatus(ctx, db, hold.JobID, jobdomain.PaymentStatusReleased, nil, now); err != nil {
		s.log.Warn("job payment status update failed",
			zap.Int64("job_id", int64(hold.JobID)),
			zap.Error(err),
		)
	}

	jobID := hold.JobID
	s.notifications.Notify(ctx, notificationdomain.NotifyRequest{
		UserID: hold.ContractorID,
		Kind:   "payment_released",
		Title:  "Payout sent",
		Body:   fmt.Sprintf("%s is on its way to your bank account.", formatCents(hold.ContractorPayout)),
		JobID:  &jobID,
	})

	s.metrics.RecordTransfer(ctx, "ok")
	s.metrics.RecordHoldTransition(ctx, domain.StatusReleased)

	hold.Status = domain.StatusReleased
	hold.StripeTransferID = &transfer.ID
	hold.ReleasedAt = &now
	hold.UpdatedAt = now
	return *hold, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetHoldRequest) (domain.PaymentHold, error) {
	holdID, err := parseID(req.ID)
	if err != nil {
		return domain.PaymentHold{}, err
	}
	hold, err := s.repo.FindByID(ctx, s.db, holdID)
	if err != nil {
		return domain.PaymentHold{}, err
	}
	if hold == nil {
		return domain.PaymentHold{}, domain.ErrNotFound
	}
	return *hold, nil
}

func (s *Service) ReleaseDue(ctx context.Context, updatedBefore time.Time, limit int) (int, error) {
	released := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		holds, err := s.repo.ListReleaseDue(ctx, tx, updatedBefore, limit)
		if err != nil {
			return err
		}
		for _, hold := range holds {
			if hold == nil {
				continue
			}
			if _, err := s.release(ctx, tx, hold); err != nil {
				s.log.Warn("release retry failed",
					zap.Int64("payment_hold_id", int64(hold.ID)),
					zap.Error(err),
				)
				continue
			}
			released++
		}
		return nil
	})
	return released, err
}

func (s *Service) resolveHold(ctx context.Context, rawHoldID, rawJobID string) (*domain.PaymentHold, error) {
	if strings.TrimSpace(rawHoldID) != "" {
		holdID, err := parseID(rawHoldID)
		if err != nil {
			return nil, err
		}
		hold, err := s.repo.FindByID(ctx, s.db, holdID)
		if err != nil {
			return nil, err
		}
		if hold == nil {
			return nil, domain.ErrNotFound
		}
		return hold, nil
	}

	jobID, err := parseID(rawJobID)
	if err != nil {
		return nil, err
	}
	hold, err := s.repo.FindByJob(ctx, s.db, jobID)
	if err != nil {
		return nil, err
	}
	if hold == nil {
		return nil, domain.ErrNotFound
	}
	return hold, nil
}

func (s *Service) cancelIntent(ctx context.Context, intentID, reason string) {
	started := s.clock.Now()
	_, err := s.stripe.CancelPaymentIntent(ctx, intentID, reason)
	s.metrics.RecordProcessorCall(ctx, "payment_intent.cancel", s.clock.Now().Sub(started), err)
	if err != nil {
		s.log.Warn("compensating intent cancel failed",
			zap.String("payment_intent_id", intentID),
			zap.Error(err),
		)
	}
}

func formatCents(amount int64) string {
	return "$" + strconv.FormatFloat(float64(amount)/100, 'f', 2, 64)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
