package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/clock"
	"github.com/rushr-app/rushr/internal/customer/domain"
	"github.com/rushr-app/rushr/internal/stripe"
	pkgdb "github.com/rushr-app/rushr/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   domain.Repository
	Stripe stripe.Client
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   domain.Repository
	stripe stripe.Client
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("customer.service"),
		clock:  p.Clock,
		repo:   p.Repo,
		stripe: p.Stripe,
	}
}

func (s *Service) ResolveOrCreate(ctx context.Context, homeownerID snowflake.ID, email string) (domain.StripeCustomer, error) {
	if homeownerID == 0 {
		return domain.StripeCustomer{}, domain.ErrInvalidHomeowner
	}

	existing, err := s.repo.FindByHomeowner(ctx, s.db, homeownerID)
	if err != nil {
		return domain.StripeCustomer{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	created, err := s.stripe.CreateCustomer(ctx, stripe.CreateCustomerParams{
		Email: strings.TrimSpace(email),
		Metadata: map[string]string{
			"homeowner_id": strconv.FormatInt(int64(homeownerID), 10),
		},
	})
	if err != nil {
		return domain.StripeCustomer{}, err
	}

	now := s.clock.Now().UTC()
	customer := domain.StripeCustomer{
		HomeownerID:      homeownerID,
		StripeCustomerID: created.ID,
		Email:            strings.TrimSpace(email),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			// Concurrent first use; the winner's row is authoritative.
			winner, findErr := s.repo.FindByHomeowner(ctx, s.db, homeownerID)
			if findErr == nil && winner != nil {
				return *winner, nil
			}
		}
		return domain.StripeCustomer{}, err
	}

	return customer, nil
}
