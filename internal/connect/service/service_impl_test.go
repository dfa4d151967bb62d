package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/clock"
	"github.com/rushr-app/rushr/internal/config"
	connectdomain "github.com/rushr-app/rushr/internal/connect/domain"
	connectrepo "github.com/rushr-app/rushr/internal/connect/repository"
	connectservice "github.com/rushr-app/rushr/internal/connect/service"
	"github.com/rushr-app/rushr/internal/stripe"
	"github.com/rushr-app/rushr/internal/stripe/stripetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	err = db.Exec(`CREATE TABLE stripe_connect_accounts (
		contractor_id BIGINT PRIMARY KEY,
		stripe_account_id TEXT NOT NULL,
		details_submitted BOOLEAN NOT NULL DEFAULT FALSE,
		charges_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		payouts_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		kyc_status TEXT NOT NULL DEFAULT 'pending',
		requirements_due TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`).Error
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}

	return db
}

type connectFixture struct {
	db   *gorm.DB
	node *snowflake.Node
	fake *stripetest.Fake
	svc  connectdomain.Service
}

func newConnectFixture(t *testing.T) *connectFixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	fake := stripetest.New()
	svc := connectservice.New(connectservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewSystemClock(),
		Config: config.Config{Stripe: config.StripeConfig{
			ConnectRefreshURL: "https://rushr.test/refresh",
			ConnectReturnURL:  "https://rushr.test/return",
		}},
		Repo:   connectrepo.Provide(),
		Stripe: fake,
	})

	return &connectFixture{db: db, node: node, fake: fake, svc: svc}
}

func TestCreateAccountIsIdempotentPerContractor(t *testing.T) {
	f := newConnectFixture(t)
	contractorID := f.node.Generate()
	req := connectdomain.CreateAccountRequest{
		ContractorID: contractorID.String(),
		Email:        "pro@example.com",
		BusinessName: "Ace Plumbing",
	}
	ctx := context.Background()

	first, err := f.svc.CreateAccount(ctx, req)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if first.AlreadyExists {
		t.Fatal("first create must not report an existing account")
	}
	if first.Account.KYCStatus != connectdomain.KYCStatusPending {
		t.Fatalf("kyc status = %s, want pending", first.Account.KYCStatus)
	}

	second, err := f.svc.CreateAccount(ctx, req)
	if err != nil {
		t.Fatalf("repeat create: %v", err)
	}
	if !second.AlreadyExists {
		t.Fatal("repeat create must report the existing account")
	}
	if second.Account.StripeAccountID != first.Account.StripeAccountID {
		t.Fatalf("account id changed: %s vs %s", second.Account.StripeAccountID, first.Account.StripeAccountID)
	}
	if len(f.fake.AccountCalls) != 1 {
		t.Fatalf("processor account calls = %d, want 1", len(f.fake.AccountCalls))
	}
}

func TestCreateAccountRejectsInvalidContractor(t *testing.T) {
	f := newConnectFixture(t)

	_, err := f.svc.CreateAccount(context.Background(), connectdomain.CreateAccountRequest{
		ContractorID: "abc",
	})
	if !errors.Is(err, connectdomain.ErrInvalidContractor) {
		t.Fatalf("err = %v, want ErrInvalidContractor", err)
	}
}

func TestOnboardingLinkRequiresAccount(t *testing.T) {
	f := newConnectFixture(t)

	_, err := f.svc.OnboardingLink(context.Background(), connectdomain.OnboardingLinkRequest{
		ContractorID: f.node.Generate().String(),
	})
	if !errors.Is(err, connectdomain.ErrNoAccount) {
		t.Fatalf("err = %v, want ErrNoAccount", err)
	}
}

func TestOnboardingLinkUsesConfiguredRedirects(t *testing.T) {
	f := newConnectFixture(t)
	contractorID := f.node.Generate()
	ctx := context.Background()

	created, err := f.svc.CreateAccount(ctx, connectdomain.CreateAccountRequest{
		ContractorID: contractorID.String(),
		Email:        "pro@example.com",
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	link, err := f.svc.OnboardingLink(ctx, connectdomain.OnboardingLinkRequest{
		ContractorID: contractorID.String(),
	})
	if err != nil {
		t.Fatalf("onboarding link: %v", err)
	}
	if link.URL == "" {
		t.Fatal("expected a link url")
	}

	if len(f.fake.AccountLinkCalls) != 1 {
		t.Fatalf("account link calls = %d, want 1", len(f.fake.AccountLinkCalls))
	}
	params := f.fake.AccountLinkCalls[0]
	if params.AccountID != created.Account.StripeAccountID {
		t.Fatalf("account id = %q, want %q", params.AccountID, created.Account.StripeAccountID)
	}
	if params.RefreshURL != "https://rushr.test/refresh" || params.ReturnURL != "https://rushr.test/return" {
		t.Fatalf("redirects = %q / %q", params.RefreshURL, params.ReturnURL)
	}
}

func TestCheckStatusMirrorsProcessorFlags(t *testing.T) {
	f := newConnectFixture(t)
	contractorID := f.node.Generate()
	ctx := context.Background()

	if _, err := f.svc.CreateAccount(ctx, connectdomain.CreateAccountRequest{
		ContractorID: contractorID.String(),
	}); err != nil {
		t.Fatalf("create account: %v", err)
	}

	f.fake.RetrieveAccountFn = func(accountID string) (stripe.Account, error) {
		return stripe.Account{
			ID:               accountID,
			DetailsSubmitted: true,
			ChargesEnabled:   true,
			PayoutsEnabled:   true,
		}, nil
	}

	account, err := f.svc.CheckStatus(ctx, contractorID.String())
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if account.KYCStatus != connectdomain.KYCStatusCompleted {
		t.Fatalf("kyc status = %s, want completed", account.KYCStatus)
	}
	if !account.PayoutsEnabled {
		t.Fatal("expected payouts enabled")
	}

	// The flags must be persisted, not just returned.
	var persisted connectdomain.StripeConnectAccount
	if err := f.db.Raw(`SELECT * FROM stripe_connect_accounts WHERE contractor_id = ?`, contractorID).Scan(&persisted).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	if !persisted.PayoutsEnabled || persisted.KYCStatus != connectdomain.KYCStatusCompleted {
		t.Fatalf("persisted = %+v", persisted)
	}
}

func TestCheckStatusReportsRequirementsDue(t *testing.T) {
	f := newConnectFixture(t)
	contractorID := f.node.Generate()
	ctx := context.Background()

	if _, err := f.svc.CreateAccount(ctx, connectdomain.CreateAccountRequest{
		ContractorID: contractorID.String(),
	}); err != nil {
		t.Fatalf("create account: %v", err)
	}

	f.fake.RetrieveAccountFn = func(accountID string) (stripe.Account, error) {
		return stripe.Account{
			ID:               accountID,
			DetailsSubmitted: true,
			Requirements: stripe.AccountRequirements{
				CurrentlyDue: []string{"external_account", "individual.ssn_last_4"},
			},
		}, nil
	}

	account, err := f.svc.CheckStatus(ctx, contractorID.String())
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if account.KYCStatus != connectdomain.KYCStatusInReview {
		t.Fatalf("kyc status = %s, want in_review", account.KYCStatus)
	}
	if string(account.RequirementsDue) != `["external_account","individual.ssn_last_4"]` {
		t.Fatalf("requirements due = %s", account.RequirementsDue)
	}
}
