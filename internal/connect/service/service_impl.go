package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/clock"
	"github.com/rushr-app/rushr/internal/config"
	"github.com/rushr-app/rushr/internal/connect/domain"
	"github.com/rushr-app/rushr/internal/stripe"
	pkgdb "github.com/rushr-app/rushr/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Config config.Config
	Repo   domain.Repository
	Stripe stripe.Client
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	cfg    config.StripeConfig
	repo   domain.Repository
	stripe stripe.Client
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("connect.service"),
		clock:  p.Clock,
		cfg:    p.Config.Stripe,
		repo:   p.Repo,
		stripe: p.Stripe,
	}
}

func (s *Service) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (domain.CreateAccountResult, error) {
	contractorID, err := parseContractorID(req.ContractorID)
	if err != nil {
		return domain.CreateAccountResult{}, err
	}

	existing, err := s.repo.FindByContractor(ctx, s.db, contractorID)
	if err != nil {
		return domain.CreateAccountResult{}, err
	}
	if existing != nil {
		return domain.CreateAccountResult{Account: *existing, AlreadyExists: true}, nil
	}

	created, err := s.stripe.CreateAccount(ctx, stripe.CreateAccountParams{
		Email:   strings.TrimSpace(req.Email),
		Country: "US",
		Metadata: map[string]string{
			"contractor_id": strconv.FormatInt(int64(contractorID), 10),
			"business_name": strings.TrimSpace(req.BusinessName),
		},
	})
	if err != nil {
		return domain.CreateAccountResult{}, err
	}

	now := s.clock.Now().UTC()
	account := domain.StripeConnectAccount{
		ContractorID:    contractorID,
		StripeAccountID: created.ID,
		KYCStatus:       domain.KYCStatusPending,
		RequirementsDue: datatypes.JSON([]byte("[]")),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, &account); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			winner, findErr := s.repo.FindByContractor(ctx, s.db, contractorID)
			if findErr == nil && winner != nil {
				return domain.CreateAccountResult{Account: *winner, AlreadyExists: true}, nil
			}
		}
		return domain.CreateAccountResult{}, err
	}

	return domain.CreateAccountResult{Account: account}, nil
}

func (s *Service) OnboardingLink(ctx context.Context, req domain.OnboardingLinkRequest) (domain.OnboardingLinkResult, error) {
	contractorID, err := parseContractorID(req.ContractorID)
	if err != nil {
		return domain.OnboardingLinkResult{}, err
	}

	account, err := s.repo.FindByContractor(ctx, s.db, contractorID)
	if err != nil {
		return domain.OnboardingLinkResult{}, err
	}
	if account == nil {
		return domain.OnboardingLinkResult{}, domain.ErrNoAccount
	}

	link, err := s.stripe.CreateAccountLink(ctx, stripe.CreateAccountLinkParams{
		AccountID:  account.StripeAccountID,
		RefreshURL: s.cfg.ConnectRefreshURL,
		ReturnURL:  s.cfg.ConnectReturnURL,
	})
	if err != nil {
		return domain.OnboardingLinkResult{}, err
	}

	return domain.OnboardingLinkResult{URL: link.URL, ExpiresAt: link.ExpiresAt}, nil
}

func (s *Service) CheckStatus(ctx context.Context, rawContractorID string) (domain.StripeConnectAccount, error) {
	contractorID, err := parseContractorID(rawContractorID)
	if err != nil {
		return domain.StripeConnectAccount{}, err
	}

	account, err := s.repo.FindByContractor(ctx, s.db, contractorID)
	if err != nil {
		return domain.StripeConnectAccount{}, err
	}
	if account == nil {
		return domain.StripeConnectAccount{}, domain.ErrNoAccount
	}

	remote, err := s.stripe.RetrieveAccount(ctx, account.StripeAccountID)
	if err != nil {
		return domain.StripeConnectAccount{}, err
	}

	account.DetailsSubmitted = remote.DetailsSubmitted
	account.ChargesEnabled = remote.ChargesEnabled
	account.PayoutsEnabled = remote.PayoutsEnabled
	account.KYCStatus = kycStatusFor(remote)
	account.RequirementsDue = encodeRequirements(remote.Requirements.CurrentlyDue)
	account.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.UpdateFlags(ctx, s.db, account); err != nil {
		return domain.StripeConnectAccount{}, err
	}
	return *account, nil
}

func kycStatusFor(remote stripe.Account) string {
	switch {
	case remote.DetailsSubmitted && remote.PayoutsEnabled:
		return domain.KYCStatusCompleted
	case remote.DetailsSubmitted:
		return domain.KYCStatusInReview
	default:
		return domain.KYCStatusPending
	}
}

func encodeRequirements(due []string) datatypes.JSON {
	if len(due) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	raw, err := json.Marshal(due)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

func parseContractorID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidContractor
	}
	return id, nil
}
