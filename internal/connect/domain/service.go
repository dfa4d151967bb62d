package domain

import "context"

type CreateAccountRequest struct {
	ContractorID string
	Email        string
	BusinessName string
}

type CreateAccountResult struct {
	Account       StripeConnectAccount
	AlreadyExists bool
}

type OnboardingLinkRequest struct {
	ContractorID string
}

type OnboardingLinkResult struct {
	URL       string
	ExpiresAt int64
}

type Service interface {
	// CreateAccount is idempotent per contractor.
	CreateAccount(ctx context.Context, req CreateAccountRequest) (CreateAccountResult, error)
	OnboardingLink(ctx context.Context, req OnboardingLinkRequest) (OnboardingLinkResult, error)
	// CheckStatus re-fetches the processor account and mirrors its flags.
	CheckStatus(ctx context.Context, contractorID string) (StripeConnectAccount, error)
}
