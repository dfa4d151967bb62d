// Package stripetest provides an in-memory processor fake for service tests.
package stripetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/rushr-app/rushr/internal/stripe"
)

// Fake implements stripe.Client against in-memory state. Every method can
// be overridden per test through the corresponding Fn field; unset fields
// fall back to a permissive default that records the call.
type Fake struct {
	mu sync.Mutex

	seq     int
	intents map[string]stripe.PaymentIntent

	CreateIntentCalls   []stripe.CreatePaymentIntentParams
	CaptureCalls        []string
	CancelCalls         []string
	TransferCalls       []stripe.CreateTransferParams
	TransferIdempotency []string
	AccountCalls        []stripe.CreateAccountParams
	AccountLinkCalls    []stripe.CreateAccountLinkParams

	CreateIntentFn    func(params stripe.CreatePaymentIntentParams) (stripe.PaymentIntent, error)
	RetrieveIntentFn  func(intentID string) (stripe.PaymentIntent, error)
	CaptureIntentFn   func(intentID string) (stripe.PaymentIntent, error)
	CancelIntentFn    func(intentID string) (stripe.PaymentIntent, error)
	CreateCustomerFn  func(params stripe.CreateCustomerParams) (stripe.Customer, error)
	CreateTransferFn  func(params stripe.CreateTransferParams) (stripe.Transfer, error)
	CreateAccountFn   func(params stripe.CreateAccountParams) (stripe.Account, error)
	RetrieveAccountFn func(accountID string) (stripe.Account, error)
	AccountLinkFn     func(params stripe.CreateAccountLinkParams) (stripe.AccountLink, error)
}

func New() *Fake {
	return &Fake{intents: make(map[string]stripe.PaymentIntent)}
}

func (f *Fake) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%04d", prefix, f.seq)
}

func (f *Fake) CreatePaymentIntent(_ context.Context, params stripe.CreatePaymentIntentParams) (stripe.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateIntentCalls = append(f.CreateIntentCalls, params)
	if f.CreateIntentFn != nil {
		return f.CreateIntentFn(params)
	}
	intent := stripe.PaymentIntent{
		ID:            f.nextID("pi"),
		ClientSecret:  f.nextID("secret"),
		Status:        "requires_payment_method",
		Amount:        params.Amount,
		Currency:      params.Currency,
		CustomerID:    params.CustomerID,
		CaptureMethod: "manual",
	}
	f.intents[intent.ID] = intent
	return intent, nil
}

func (f *Fake) RetrievePaymentIntent(_ context.Context, intentID string) (stripe.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RetrieveIntentFn != nil {
		return f.RetrieveIntentFn(intentID)
	}
	intent, ok := f.intents[intentID]
	if !ok {
		return stripe.PaymentIntent{}, &stripe.APIError{StatusCode: 404, Code: "resource_missing"}
	}
	return intent, nil
}

func (f *Fake) CapturePaymentIntent(_ context.Context, intentID string) (stripe.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CaptureCalls = append(f.CaptureCalls, intentID)
	if f.CaptureIntentFn != nil {
		return f.CaptureIntentFn(intentID)
	}
	intent := f.intents[intentID]
	intent.ID = intentID
	intent.Status = "succeeded"
	if intent.LatestCharge == "" {
		intent.LatestCharge = f.nextID("ch")
	}
	f.intents[intentID] = intent
	return intent, nil
}

func (f *Fake) CancelPaymentIntent(_ context.Context, intentID, _ string) (stripe.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CancelCalls = append(f.CancelCalls, intentID)
	if f.CancelIntentFn != nil {
		return f.CancelIntentFn(intentID)
	}
	intent := f.intents[intentID]
	intent.ID = intentID
	intent.Status = "canceled"
	f.intents[intentID] = intent
	return intent, nil
}

func (f *Fake) CreateCustomer(_ context.Context, params stripe.CreateCustomerParams) (stripe.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateCustomerFn != nil {
		return f.CreateCustomerFn(params)
	}
	return stripe.Customer{ID: f.nextID("cus"), Email: params.Email, Name: params.Name}, nil
}

func (f *Fake) CreateTransfer(_ context.Context, params stripe.CreateTransferParams) (stripe.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TransferCalls = append(f.TransferCalls, params)
	f.TransferIdempotency = append(f.TransferIdempotency, params.IdempotencyKey)
	if f.CreateTransferFn != nil {
		return f.CreateTransferFn(params)
	}
	return stripe.Transfer{
		ID:          f.nextID("tr"),
		Amount:      params.Amount,
		Currency:    params.Currency,
		Destination: params.Destination,
	}, nil
}

func (f *Fake) CreateAccount(_ context.Context, params stripe.CreateAccountParams) (stripe.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AccountCalls = append(f.AccountCalls, params)
	if f.CreateAccountFn != nil {
		return f.CreateAccountFn(params)
	}
	return stripe.Account{ID: f.nextID("acct")}, nil
}

func (f *Fake) RetrieveAccount(_ context.Context, accountID string) (stripe.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RetrieveAccountFn != nil {
		return f.RetrieveAccountFn(accountID)
	}
	return stripe.Account{ID: accountID}, nil
}

func (f *Fake) CreateAccountLink(_ context.Context, params stripe.CreateAccountLinkParams) (stripe.AccountLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AccountLinkCalls = append(f.AccountLinkCalls, params)
	if f.AccountLinkFn != nil {
		return f.AccountLinkFn(params)
	}
	return stripe.AccountLink{URL: "https://connect.stripe.com/setup/" + params.AccountID, ExpiresAt: 0}, nil
}
