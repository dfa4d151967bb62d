package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	biddomain "github.com/rushr-app/rushr/internal/bid/domain"
	bidrepo "github.com/rushr-app/rushr/internal/bid/repository"
	"github.com/rushr-app/rushr/internal/clock"
	"github.com/rushr-app/rushr/internal/config"
	connectdomain "github.com/rushr-app/rushr/internal/connect/domain"
	connectrepo "github.com/rushr-app/rushr/internal/connect/repository"
	customerrepo "github.com/rushr-app/rushr/internal/customer/repository"
	customerservice "github.com/rushr-app/rushr/internal/customer/service"
	escrowdomain "github.com/rushr-app/rushr/internal/escrow/domain"
	escrowrepo "github.com/rushr-app/rushr/internal/escrow/repository"
	escrowservice "github.com/rushr-app/rushr/internal/escrow/service"
	jobdomain "github.com/rushr-app/rushr/internal/job/domain"
	jobrepo "github.com/rushr-app/rushr/internal/job/repository"
	notificationdomain "github.com/rushr-app/rushr/internal/notification/domain"
	notificationrepo "github.com/rushr-app/rushr/internal/notification/repository"
	notificationservice "github.com/rushr-app/rushr/internal/notification/service"
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

	schema := []string{
		`CREATE TABLE homeowner_jobs (
			id BIGINT PRIMARY KEY,
			homeowner_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			accepted_bid_id BIGINT,
			payment_status TEXT NOT NULL DEFAULT 'none',
			payment_captured_at TIMESTAMPTZ,
			contractor_arrived_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE job_bids (
			id BIGINT PRIMARY KEY,
			job_id BIGINT NOT NULL,
			contractor_id BIGINT NOT NULL,
			homeowner_id BIGINT NOT NULL,
			amount BIGINT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			accepted_at TIMESTAMPTZ,
			rejected_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE payment_holds (
			id BIGINT PRIMARY KEY,
			job_id BIGINT NOT NULL,
			bid_id BIGINT,
			homeowner_id BIGINT NOT NULL,
			contractor_id BIGINT NOT NULL,
			stripe_payment_intent_id TEXT NOT NULL,
			stripe_customer_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			platform_fee BIGINT NOT NULL,
			contractor_payout BIGINT NOT NULL,
			processor_fee_estimate BIGINT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'usd',
			status TEXT NOT NULL DEFAULT 'pending',
			homeowner_confirmed_complete BOOLEAN NOT NULL DEFAULT FALSE,
			homeowner_confirmed_at TIMESTAMPTZ,
			contractor_confirmed_complete BOOLEAN NOT NULL DEFAULT FALSE,
			contractor_confirmed_at TIMESTAMPTZ,
			stripe_charge_id TEXT,
			stripe_transfer_id TEXT,
			released_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_payment_holds_bid ON payment_holds(bid_id)`,
		`CREATE TABLE stripe_customers (
			homeowner_id BIGINT PRIMARY KEY,
			stripe_customer_id TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE stripe_connect_accounts (
			contractor_id BIGINT PRIMARY KEY,
			stripe_account_id TEXT NOT NULL,
			details_submitted BOOLEAN NOT NULL DEFAULT FALSE,
			charges_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			payouts_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			kyc_status TEXT NOT NULL DEFAULT 'pending',
			requirements_due TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE notifications (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			job_id BIGINT,
			read_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE notification_outbox (
			id BIGINT PRIMARY KEY,
			channel TEXT NOT NULL,
			recipient TEXT NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			sent_at TIMESTAMPTZ
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	return db
}

type escrowFixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	fake   *stripetest.Fake
	svc    escrowdomain.Service
	repo   escrowdomain.Repository
	clock  clock.Clock
	hoID   snowflake.ID
	coID   snowflake.ID
	jobID  snowflake.ID
	bidID  snowflake.ID
	amount int64
}

func newEscrowFixture(t *testing.T) *escrowFixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	fake := stripetest.New()
	clk := clock.NewSystemClock()

	customerSvc := customerservice.New(customerservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clk,
		Repo:   customerrepo.Provide(),
		Stripe: fake,
	})
	notificationSvc := notificationservice.New(notificationservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  notificationrepo.Provide(),
	})

	repo := escrowrepo.Provide()
	svc := escrowservice.New(escrowservice.Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clk,
		Config:        config.Config{Stripe: config.StripeConfig{PlatformFeeBps: 1000}},
		Repo:          repo,
		Bids:          bidrepo.Provide(),
		Jobs:          jobrepo.Provide(),
		Connect:       connectrepo.Provide(),
		Customers:     customerSvc,
		Stripe:        fake,
		Notifications: notificationSvc,
	})

	f := &escrowFixture{
		db:     db,
		node:   node,
		fake:   fake,
		svc:    svc,
		repo:   repo,
		clock:  clk,
		hoID:   node.Generate(),
		coID:   node.Generate(),
		amount: 10000,
	}
	f.jobID = f.seedJob(t, f.hoID)
	f.bidID = f.seedBid(t, f.jobID, f.coID, f.hoID, f.amount, biddomain.StatusAccepted)
	return f
}

func (f *escrowFixture) seedJob(t *testing.T, homeownerID snowflake.ID) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	job := jobdomain.HomeownerJob{
		ID:            f.node.Generate(),
		HomeownerID:   homeownerID,
		Title:         "Burst pipe repair",
		Status:        jobdomain.StatusConfirmed,
		PaymentStatus: jobdomain.PaymentStatusNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.db.Create(&job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job.ID
}

func (f *escrowFixture) seedBid(t *testing.T, jobID, contractorID, homeownerID snowflake.ID, amount int64, status string) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	bid := biddomain.JobBid{
		ID:           f.node.Generate(),
		JobID:        jobID,
		ContractorID: contractorID,
		HomeownerID:  homeownerID,
		Amount:       amount,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := f.db.Create(&bid).Error; err != nil {
		t.Fatalf("seed bid: %v", err)
	}
	return bid.ID
}

func (f *escrowFixture) seedConnectAccount(t *testing.T, contractorID snowflake.ID, payoutsEnabled bool) {
	t.Helper()
	now := time.Now().UTC()
	account := connectdomain.StripeConnectAccount{
		ContractorID:     contractorID,
		StripeAccountID:  "acct_seeded",
		DetailsSubmitted: true,
		ChargesEnabled:   payoutsEnabled,
		PayoutsEnabled:   payoutsEnabled,
		KYCStatus:        connectdomain.KYCStatusCompleted,
		RequirementsDue:  []byte(`[]`),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := f.db.Create(&account).Error; err != nil {
		t.Fatalf("seed connect account: %v", err)
	}
}

func (f *escrowFixture) createHold(t *testing.T) escrowdomain.PaymentHold {
	t.Helper()
	result, err := f.svc.CreateHold(context.Background(), escrowdomain.CreateHoldRequest{
		BidID:          f.bidID.String(),
		HomeownerID:    f.hoID.String(),
		HomeownerEmail: "homeowner@example.com",
	})
	if err != nil {
		t.Fatalf("create hold: %v", err)
	}
	return result.Hold
}

func (f *escrowFixture) authorizedHold(t *testing.T) escrowdomain.PaymentHold {
	t.Helper()
	hold := f.createHold(t)
	if err := f.svc.MarkAuthorized(context.Background(), hold.StripePaymentIntentID); err != nil {
		t.Fatalf("mark authorized: %v", err)
	}
	return hold
}

func (f *escrowFixture) capturedHold(t *testing.T) escrowdomain.PaymentHold {
	t.Helper()
	hold := f.authorizedHold(t)
	captured, err := f.svc.Capture(context.Background(), escrowdomain.CaptureRequest{
		PaymentHoldID: hold.ID.String(),
		HomeownerID:   f.hoID.String(),
	})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	return captured
}

func (f *escrowFixture) loadJob(t *testing.T) jobdomain.HomeownerJob {
	t.Helper()
	var job jobdomain.HomeownerJob
	if err := f.db.Raw(`SELECT * FROM homeowner_jobs WHERE id = ?`, f.jobID).Scan(&job).Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	return job
}

func (f *escrowFixture) notificationCount(t *testing.T, userID snowflake.ID, kind string) int64 {
	t.Helper()
	var count int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND kind = ?`, userID, kind).Scan(&count).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return count
}

func (f *escrowFixture) outboxCount(t *testing.T, channel, recipient string) int64 {
	t.Helper()
	var count int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM notification_outbox WHERE channel = ? AND recipient = ?`, channel, recipient).Scan(&count).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	return count
}

func TestCreateHoldCreatesManualCaptureIntent(t *testing.T) {
	f := newEscrowFixture(t)

	result, err := f.svc.CreateHold(context.Background(), escrowdomain.CreateHoldRequest{
		BidID:          f.bidID.String(),
		HomeownerID:    f.hoID.String(),
		HomeownerEmail: "homeowner@example.com",
	})
	if err != nil {
		t.Fatalf("create hold: %v", err)
	}

	if result.Hold.Status != escrowdomain.StatusPending {
		t.Fatalf("status = %s, want pending", result.Hold.Status)
	}
	if result.Fees.PlatformFee != 1000 || result.Fees.ContractorPayout != 9000 {
		t.Fatalf("fees = %+v", result.Fees)
	}
	if result.Hold.ProcessorFeeEstimate != 320 {
		t.Fatalf("processor fee estimate = %d, want 320", result.Hold.ProcessorFeeEstimate)
	}
	if result.ClientSecret == "" {
		t.Fatal("expected client secret")
	}

	if len(f.fake.CreateIntentCalls) != 1 {
		t.Fatalf("intent calls = %d, want 1", len(f.fake.CreateIntentCalls))
	}
	params := f.fake.CreateIntentCalls[0]
	if params.Amount != f.amount {
		t.Fatalf("intent amount = %d, want %d", params.Amount, f.amount)
	}
	if params.IdempotencyKey != "hold:bid:"+f.bidID.String() {
		t.Fatalf("idempotency key = %q", params.IdempotencyKey)
	}
	if params.Metadata["bid_id"] != f.bidID.String() {
		t.Fatalf("metadata bid_id = %q", params.Metadata["bid_id"])
	}
	if params.CustomerID == "" {
		t.Fatal("expected a processor customer on the intent")
	}

	if job := f.loadJob(t); job.PaymentStatus != jobdomain.PaymentStatusPending {
		t.Fatalf("job payment status = %s, want pending", job.PaymentStatus)
	}
}

func TestCreateHoldDuplicateCancelsCompensatingIntent(t *testing.T) {
	f := newEscrowFixture(t)
	f.createHold(t)

	_, err := f.svc.CreateHold(context.Background(), escrowdomain.CreateHoldRequest{
		BidID:       f.bidID.String(),
		HomeownerID: f.hoID.String(),
	})
	if !errors.Is(err, escrowdomain.ErrHoldExists) {
		t.Fatalf("err = %v, want ErrHoldExists", err)
	}
	if len(f.fake.CancelCalls) != 1 {
		t.Fatalf("cancel calls = %d, want 1", len(f.fake.CancelCalls))
	}
}

func TestCreateHoldRejectsUnfundableBid(t *testing.T) {
	f := newEscrowFixture(t)
	rejected := f.seedBid(t, f.jobID, f.node.Generate(), f.hoID, 8000, biddomain.StatusRejected)

	_, err := f.svc.CreateHold(context.Background(), escrowdomain.CreateHoldRequest{
		BidID:       rejected.String(),
		HomeownerID: f.hoID.String(),
	})
	if !errors.Is(err, escrowdomain.ErrBidNotFundable) {
		t.Fatalf("err = %v, want ErrBidNotFundable", err)
	}
	if len(f.fake.CreateIntentCalls) != 0 {
		t.Fatal("no intent should be created for a rejected bid")
	}
}

func TestCreateHoldRequiresBidOwner(t *testing.T) {
	f := newEscrowFixture(t)

	_, err := f.svc.CreateHold(context.Background(), escrowdomain.CreateHoldRequest{
		BidID:       f.bidID.String(),
		HomeownerID: f.node.Generate().String(),
	})
	if !errors.Is(err, biddomain.ErrNotOwner) {
		t.Fatalf("err = %v, want bid ErrNotOwner", err)
	}
}

func TestMarkAuthorizedIsIdempotent(t *testing.T) {
	f := newEscrowFixture(t)
	hold := f.createHold(t)
	ctx := context.Background()

	if err := f.svc.MarkAuthorized(ctx, hold.StripePaymentIntentID); err != nil {
		t.Fatalf("mark authorized: %v", err)
	}
	// Webhook retries must not error.
	if err := f.svc.MarkAuthorized(ctx, hold.StripePaymentIntentID); err != nil {
		t.Fatalf("retry: %v", err)
	}

	got, err := f.svc.Get(ctx, escrowdomain.GetHoldRequest{ID: hold.ID.String()})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != escrowdomain.StatusAuthorized {
		t.Fatalf("status = %s, want authorized", got.Status)
	}
	if job := f.loadJob(t); job.PaymentStatus != jobdomain.PaymentStatusAuthorized {
		t.Fatalf("job payment status = %s, want authorized", job.PaymentStatus)
	}
}

func TestMarkAuthorizedUnknownIntent(t *testing.T) {
	f := newEscrowFixture(t)

	err := f.svc.MarkAuthorized(context.Background(), "pi_unknown")
	if !errors.Is(err, escrowdomain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCaptureRequiresAuthorizedStatus(t *testing.T) {
	f := newEscrowFixture(t)
	hold := f.createHold(t)

	_, err := f.svc.Capture(context.Background(), escrowdomain.CaptureRequest{
		PaymentHoldID: hold.ID.String(),
		HomeownerID:   f.hoID.String(),
	})

	var statusErr *escrowdomain.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if statusErr.Current != escrowdomain.StatusPending {
		t.Fatalf("current = %s, want pending", statusErr.Current)
	}
	if len(f.fake.CaptureCalls) != 0 {
		t.Fatal("capture must not hit the processor for a pending hold")
	}
}

func TestCaptureStoresChargeAndNotifiesContractor(t *testing.T) {
	f := newEscrowFixture(t)
	hold := f.authorizedHold(t)

	captured, err := f.svc.Capture(context.Background(), escrowdomain.CaptureRequest{
		PaymentHoldID: hold.ID.String(),
		HomeownerID:   f.hoID.String(),
	})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	if captured.Status != escrowdomain.StatusCaptured {
		t.Fatalf("status = %s, want captured", captured.Status)
	}
	if captured.StripeChargeID == nil || *captured.StripeChargeID == "" {
		t.Fatal("expected a charge id on the captured hold")
	}

	job := f.loadJob(t)
	if job.PaymentStatus != jobdomain.PaymentStatusPaid {
		t.Fatalf("job payment status = %s, want paid", job.PaymentStatus)
	}
	if job.PaymentCapturedAt == nil {
		t.Fatal("expected payment_captured_at to be set")
	}

	if got := f.notificationCount(t, f.coID, "payment_captured"); got != 1 {
		t.Fatalf("contractor notifications = %d, want 1", got)
	}
}

func TestCaptureDispatchesOutboxToBothParties(t *testing.T) {
	f := newEscrowFixture(t)
	hold := f.authorizedHold(t)

	_, err := f.svc.Capture(context.Background(), escrowdomain.CaptureRequest{
		PaymentHoldID: hold.ID.String(),
		HomeownerID:   f.hoID.String(),
		Contact: escrowdomain.Contact{
			HomeownerEmail:  "homeowner@example.com",
			ContractorEmail: "pro@example.com",
			ContractorPhone: "+15551230000",
		},
	})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	if got := f.outboxCount(t, notificationdomain.ChannelEmail, "pro@example.com"); got != 1 {
		t.Fatalf("contractor emails = %d, want 1", got)
	}
	if got := f.outboxCount(t, notificationdomain.ChannelSMS, "+15551230000"); got != 1 {
		t.Fatalf("contractor sms = %d, want 1", got)
	}
	if got := f.outboxCount(t, notificationdomain.ChannelEmail, "homeowner@example.com"); got != 1 {
		t.Fatalf("homeowner emails = %d, want 1", got)
	}
}

func TestConfirmCompleteBothSidesDispatchesOutbox(t *testing.T) {
	f := newEscrowFixture(t)
	f.seedConnectAccount(t, f.coID, true)
	hold := f.capturedHold(t)
	ctx := context.Background()

	if _, err := f.svc.ConfirmComplete(ctx, escrowdomain.ConfirmCompleteRequest{
		PaymentHoldID: hold.ID.String(),
		UserID:        f.hoID.String(),
		UserType:      escrowdomain.RoleHomeowner,
	}); err != nil {
		t.Fatalf("homeowner confirm: %v", err)
	}
	// The single-sided confirm carries no contact, so nothing is queued yet.
	if got := f.outboxCount(t, notificationdomain.ChannelEmail, "pro@example.com"); got != 0 {
		t.Fatalf("early contractor emails = %d, want 0", got)
	}

	if _, err := f.svc.ConfirmComplete(ctx, escrowdomain.ConfirmCompleteRequest{
		PaymentHoldID: hold.ID.String(),
		UserID:        f.coID.String(),
		UserType:      escrowdomain.RoleContractor,
		Contact: escrowdomain.Contact{
			HomeownerEmail:  "homeowner@example.com",
			ContractorEmail: "pro@example.com",
		},
	}); err != nil {
		t.Fatalf("contractor confirm: %v", err)
	}

	if got := f.outboxCount(t, notificationdomain.ChannelEmail, "homeowner@example.com"); got != 1 {
		t.Fatalf("homeowner emails = %d, want 1", got)
	}
	if got := f.outboxCount(t, notificationdomain.ChannelEmail, "pro@example.com"); got != 1 {
		t.Fatalf("contractor emails = %d, want 1", got)
	}
}

func TestCaptureRequiresHoldOwner(t *testing.T) {
	f := newEscrowFixture(t)
	hold := f.authorizedHold(t)

	_, err := f.svc.Capture(context.Background(), escrowdomain.CaptureRequest{
		PaymentHoldID: hold.ID.String(),
		HomeownerID:   f.node.Generate().String(),
	})
	if !errors.Is(err, escrowdomain.ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestConfirmCompleteSingleSideDoesNotRelease(t *testing.T) {
	f := newEscrowFixture(t)
	f.seedConnectAccount(t, f.coID, true)
	hold := f.capturedHold(t)
	ctx := context.Background()

	result, err := f.svc.ConfirmComplete(ctx, escrowdomain.ConfirmCompleteRequest{
		PaymentHoldID: hold.ID.String(),
		UserID:        f.hoID.String(),
		UserType:      escrowdomain.RoleHomeowner,
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.BothConfirmed || result.PaymentReleased {
		t.Fatalf("result = %+v, want neither flag set", result)
	}
	if len(f.fake.TransferCalls) != 0 {
		t.Fatal("no transfer before both confirmations")
	}

	// The same role confirming twice is a conflict.
	_, err = f.svc.ConfirmComplete(ctx, escrowdomain.ConfirmCompleteRequest{
		PaymentHoldID: hold.ID.String(),
		UserID:        f.hoID.String(),
		UserType:      escrowdomain.RoleHomeowner,
	})
	if !errors.Is(err, escrowdomain.ErrAlreadyConfirmed) {
		t.Fatalf("err = %v, want ErrAlreadyConfirmed", err)
	}
}

func TestConfirmCompleteBothSidesReleasesPayout(t *testing.T) {
	f := newEscrowFixture(t)
	f.seedConnectAccount(t, f.coID, true)
	hold := f.capturedHold(t)
	ctx := context.Background()

	if _, err := f.svc.ConfirmComplete(ctx, escrowdomain.ConfirmCompleteRequest{
		PaymentHoldID: hold.ID.String(),
		UserID:        f.hoID.String(),
		UserType:      escrowdomain.RoleHomeowner,
	}); err != nil {
		t.Fatalf("homeowner confirm: %v", err)
	}

	result, err := f.svc.ConfirmComplete(ctx, escrowdomain.ConfirmCompleteRequest{
		JobID:    f.jobID.String(),
		UserID:   f.coID.String(),
		UserType: escrowdomain.RoleContractor,
	})
	if err != nil {
		t.Fatalf("contractor confirm: %v", err)
	}
	if !result.BothConfirmed {
		t.Fatal("expected both confirmations")
	}
	if !result.PaymentReleased {
		t.Fatal("expected synchronous release")
	}
	if result.Hold.Status != escrowdomain.StatusReleased {
		t.Fatalf("status = %s, want released", result.Hold.Status)
	}

	if len(f.fake.TransferCalls) != 1 {
		t.Fatalf("transfer calls = %d, want 1", len(f.fake.TransferCalls))
	}
	transfer := f.fake.TransferCalls[0]
	if transfer.Amount != 9000 {
		t.Fatalf("transfer amount = %d, want contractor payout 9000", transfer.Amount)
	}
	if transfer.Destination != "acct_seeded" {
		t.Fatalf("destination = %q", transfer.Destination)
	}
	wantKey := "hold:" + hold.ID.String() + ":release"
	if f.fake.TransferIdempotency[0] != wantKey {
		t.Fatalf("idempotency key = %q, want %q", f.fake.TransferIdempotency[0], wantKey)
	}

	job := f.loadJob(t)
	if job.Status != jobdomain.StatusCompleted {
		t.Fatalf("job status = %s, want completed", job.Status)
	}
	if job.PaymentStatus != jobdomain.PaymentStatusReleased {
		t.Fatalf("job payment status = %s, want released", job.PaymentStatus)
	}

	if got := f.notificationCount(t, f.coID, "payment_released"); got != 1 {
		t.Fatalf("payout notifications = %d, want 1", got)
	}
}

func TestConfirmCompleteRejectsNonParticipant(t *testing.T) {
	f := newEscrowFixture(t)
	hold := f.capturedHold(t)

	_, err := f.svc.ConfirmComplete(context.Background(), escrowdomain.ConfirmCompleteRequest{
		PaymentHoldID: hold.ID.String(),
		UserID:        f.node.Generate().String(),
		UserType:      escrowdomain.RoleContractor,
	})
	if !errors.Is(err, escrowdomain.ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
}

func TestConfirmCompleteRejectsUnknownRole(t *testing.T) {
	f := newEscrowFixture(t)
	hold := f.capturedHold(t)

	_, err := f.svc.ConfirmComplete(context.Background(), escrowdomain.ConfirmCompleteRequest{
		PaymentHoldID: hold.ID.String(),
		UserID:        f.hoID.String(),
		UserType:      "admin",
	})
	if !errors.Is(err, escrowdomain.ErrInvalidUserType) {
		t.Fatalf("err = %v, want ErrInvalidUserType", err)
	}
}

func TestReleaseWithoutPayoutAccountKeepsConfirmations(t *testing.T) {
	f := newEscrowFixture(t)
	hold := f.capturedHold(t)
	ctx := context.Background()

	if _, err := f.svc.ConfirmComplete(ctx, escrowdomain.ConfirmCompleteRequest{
		PaymentHoldID: hold.ID.String(),
		UserID:        f.hoID.String(),
		UserType:      escrowdomain.RoleHomeowner,
	}); err != nil {
		t.Fatalf("homeowner confirm: %v", err)
	}

	// No connect account: the release fails but both confirmations stick.
	result, err := f.svc.ConfirmComplete(ctx, escrowdomain.ConfirmCompleteRequest{
		PaymentHoldID: hold.ID.String(),
		UserID:        f.coID.String(),
		UserType:      escrowdomain.RoleContractor,
	})
	if err != nil {
		t.Fatalf("contractor confirm: %v", err)
	}
	if !result.BothConfirmed {
		t.Fatal("expected both confirmations")
	}
	if result.PaymentReleased {
		t.Fatal("release should fail without a payout account")
	}

	got, err := f.svc.Get(ctx, escrowdomain.GetHoldRequest{ID: hold.ID.String()})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != escrowdomain.StatusCaptured {
		t.Fatalf("status = %s, want captured", got.Status)
	}
	if !got.BothConfirmed() {
		t.Fatal("confirmations must survive a failed release")
	}

	_, err = f.svc.Release(ctx, hold.ID.String())
	if !errors.Is(err, escrowdomain.ErrNoPayoutAccount) {
		t.Fatalf("err = %v, want ErrNoPayoutAccount", err)
	}
}

func TestReleaseRequiresPayoutsEnabled(t *testing.T) {
	f := newEscrowFixture(t)
	f.seedConnectAccount(t, f.coID, false)
	hold := f.capturedHold(t)
	ctx := context.Background()

	for _, confirm := range []struct {
		userID snowflake.ID
		role   string
	}{
		{f.hoID, escrowdomain.RoleHomeowner},
		{f.coID, escrowdomain.RoleContractor},
	} {
		if _, err := f.svc.ConfirmComplete(ctx, escrowdomain.ConfirmCompleteRequest{
			PaymentHoldID: hold.ID.String(),
			UserID:        confirm.userID.String(),
			UserType:      confirm.role,
		}); err != nil {
			t.Fatalf("confirm %s: %v", confirm.role, err)
		}
	}

	_, err := f.svc.Release(ctx, hold.ID.String())
	if !errors.Is(err, escrowdomain.ErrPayoutsDisabled) {
		t.Fatalf("err = %v, want ErrPayoutsDisabled", err)
	}
}

func TestReleaseRequiresBothConfirmations(t *testing.T) {
	f := newEscrowFixture(t)
	f.seedConnectAccount(t, f.coID, true)
	hold := f.capturedHold(t)

	_, err := f.svc.Release(context.Background(), hold.ID.String())
	if !errors.Is(err, escrowdomain.ErrNotConfirmed) {
		t.Fatalf("err = %v, want ErrNotConfirmed", err)
	}
}

func TestReleaseTwiceConflicts(t *testing.T) {
	f := newEscrowFixture(t)
	f.seedConnectAccount(t, f.coID, true)
	hold := f.capturedHold(t)
	ctx := context.Background()

	for _, confirm := range []struct {
		userID snowflake.ID
		role   string
	}{
		{f.hoID, escrowdomain.RoleHomeowner},
		{f.coID, escrowdomain.RoleContractor},
	} {
		if _, err := f.svc.ConfirmComplete(ctx, escrowdomain.ConfirmCompleteRequest{
			PaymentHoldID: hold.ID.String(),
			UserID:        confirm.userID.String(),
			UserType:      confirm.role,
		}); err != nil {
			t.Fatalf("confirm %s: %v", confirm.role, err)
		}
	}

	_, err := f.svc.Release(ctx, hold.ID.String())
	if !errors.Is(err, escrowdomain.ErrAlreadyReleased) {
		t.Fatalf("err = %v, want ErrAlreadyReleased", err)
	}
	if len(f.fake.TransferCalls) != 1 {
		t.Fatalf("transfer calls = %d, want exactly 1", len(f.fake.TransferCalls))
	}
}

func TestReleaseDueRetriesStuckHolds(t *testing.T) {
	f := newEscrowFixture(t)
	hold := f.capturedHold(t)
	ctx := context.Background()

	for _, confirm := range []struct {
		userID snowflake.ID
		role   string
	}{
		{f.hoID, escrowdomain.RoleHomeowner},
		{f.coID, escrowdomain.RoleContractor},
	} {
		if _, err := f.svc.ConfirmComplete(ctx, escrowdomain.ConfirmCompleteRequest{
			PaymentHoldID: hold.ID.String(),
			UserID:        confirm.userID.String(),
			UserType:      confirm.role,
		}); err != nil {
			t.Fatalf("confirm %s: %v", confirm.role, err)
		}
	}

	// Onboarding finished after the confirmations; the sweep picks it up.
	f.seedConnectAccount(t, f.coID, true)

	released, err := f.svc.ReleaseDue(ctx, time.Now().UTC().Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("release due: %v", err)
	}
	if released != 1 {
		t.Fatalf("released = %d, want 1", released)
	}

	got, err := f.svc.Get(ctx, escrowdomain.GetHoldRequest{ID: hold.ID.String()})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != escrowdomain.StatusReleased {
		t.Fatalf("status = %s, want released", got.Status)
	}
}

func TestReleaseDueSkipsFailuresAndContinues(t *testing.T) {
	f := newEscrowFixture(t)
	hold := f.capturedHold(t)
	ctx := context.Background()

	for _, confirm := range []struct {
		userID snowflake.ID
		role   string
	}{
		{f.hoID, escrowdomain.RoleHomeowner},
		{f.coID, escrowdomain.RoleContractor},
	} {
		if _, err := f.svc.ConfirmComplete(ctx, escrowdomain.ConfirmCompleteRequest{
			PaymentHoldID: hold.ID.String(),
			UserID:        confirm.userID.String(),
			UserType:      confirm.role,
		}); err != nil {
			t.Fatalf("confirm %s: %v", confirm.role, err)
		}
	}

	// Still no payout account: the sweep logs and moves on.
	released, err := f.svc.ReleaseDue(ctx, time.Now().UTC().Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("release due: %v", err)
	}
	if released != 0 {
		t.Fatalf("released = %d, want 0", released)
	}

	got, err := f.svc.Get(ctx, escrowdomain.GetHoldRequest{ID: hold.ID.String()})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != escrowdomain.StatusCaptured {
		t.Fatalf("status = %s, want captured", got.Status)
	}
}
