package domain

import (
	"context"
	"time"
)

type CreateHoldRequest struct {
	BidID       string
	HomeownerID string
	// HomeownerEmail seeds the processor customer on first use.
	HomeownerEmail string
}

type CreateHoldResult struct {
	Hold         PaymentHold
	ClientSecret string
	Fees         FeeBreakdown
}

// Contact carries optional addresses for best-effort email/SMS dispatch.
// Empty fields skip the matching channel; in-app rows are written either way.
type Contact struct {
	HomeownerEmail  string
	HomeownerPhone  string
	ContractorEmail string
	ContractorPhone string
}

type CaptureRequest struct {
	PaymentHoldID string
	HomeownerID   string
	Contact       Contact
}

type ConfirmCompleteRequest struct {
	// Either PaymentHoldID or JobID identifies the hold.
	PaymentHoldID string
	JobID         string
	UserID        string
	UserType      string
	Contact       Contact
}

type ConfirmCompleteResult struct {
	Hold            PaymentHold
	BothConfirmed   bool
	PaymentReleased bool
}

type GetHoldRequest struct {
	ID string
}

type Service interface {
	CreateHold(ctx context.Context, req CreateHoldRequest) (CreateHoldResult, error)

	// MarkAuthorized applies the processor's card-authorization signal.
	// Idempotent: repeats on an already-authorized hold are no-ops.
	MarkAuthorized(ctx context.Context, paymentIntentID string) error

	Capture(ctx context.Context, req CaptureRequest) (PaymentHold, error)

	ConfirmComplete(ctx context.Context, req ConfirmCompleteRequest) (ConfirmCompleteResult, error)

	// Release transfers the contractor payout. Safe to retry: the
	// transfer carries a per-hold idempotency key.
	Release(ctx context.Context, paymentHoldID string) (PaymentHold, error)

	Get(ctx context.Context, req GetHoldRequest) (PaymentHold, error)

	// ReleaseDue retries releases for holds stuck captured with both
	// confirmations older than the cutoff. Returns holds released.
	ReleaseDue(ctx context.Context, updatedBefore time.Time, limit int) (int, error)
}
