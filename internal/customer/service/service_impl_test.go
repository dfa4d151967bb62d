package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/clock"
	customerdomain "github.com/rushr-app/rushr/internal/customer/domain"
	customerrepo "github.com/rushr-app/rushr/internal/customer/repository"
	customerservice "github.com/rushr-app/rushr/internal/customer/service"
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

	err = db.Exec(`CREATE TABLE stripe_customers (
		homeowner_id BIGINT PRIMARY KEY,
		stripe_customer_id TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`).Error
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}

	return db
}

func newCustomerService(t *testing.T, db *gorm.DB, fake *stripetest.Fake) customerdomain.Service {
	t.Helper()
	return customerservice.New(customerservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clock.NewSystemClock(),
		Repo:   customerrepo.Provide(),
		Stripe: fake,
	})
}

func TestResolveOrCreateReusesExistingCustomer(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(6)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	fake := stripetest.New()
	created := 0
	fake.CreateCustomerFn = func(params stripe.CreateCustomerParams) (stripe.Customer, error) {
		created++
		return stripe.Customer{ID: "cus_fixed", Email: params.Email}, nil
	}

	svc := newCustomerService(t, db, fake)
	homeownerID := node.Generate()
	ctx := context.Background()

	first, err := svc.ResolveOrCreate(ctx, homeownerID, "homeowner@example.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := svc.ResolveOrCreate(ctx, homeownerID, "other@example.com")
	if err != nil {
		t.Fatalf("repeat resolve: %v", err)
	}

	if created != 1 {
		t.Fatalf("processor customer creates = %d, want 1", created)
	}
	if first.StripeCustomerID != second.StripeCustomerID {
		t.Fatalf("customer id changed: %s vs %s", first.StripeCustomerID, second.StripeCustomerID)
	}
	// The stored email is the one used at creation time.
	if second.Email != "homeowner@example.com" {
		t.Fatalf("email = %q", second.Email)
	}
}

func TestResolveOrCreateRejectsZeroHomeowner(t *testing.T) {
	db := setupTestDB(t)
	svc := newCustomerService(t, db, stripetest.New())

	_, err := svc.ResolveOrCreate(context.Background(), 0, "")
	if !errors.Is(err, customerdomain.ErrInvalidHomeowner) {
		t.Fatalf("err = %v, want ErrInvalidHomeowner", err)
	}
}

func TestResolveOrCreateSurfacesProcessorError(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(6)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	fake := stripetest.New()
	fake.CreateCustomerFn = func(stripe.CreateCustomerParams) (stripe.Customer, error) {
		return stripe.Customer{}, &stripe.APIError{StatusCode: 402, Code: "card_declined"}
	}

	svc := newCustomerService(t, db, fake)
	_, err = svc.ResolveOrCreate(context.Background(), node.Generate(), "homeowner@example.com")

	var apiErr *stripe.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
}
