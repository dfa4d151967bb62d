package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const apiBaseURL = "https://api.stripe.com"

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("stripe client is not configured")
)

// APIError carries the message and HTTP status Stripe returned for a
// failed request so callers can distinguish card declines from outages.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("stripe: %s", e.Message)
	}
	return fmt.Sprintf("stripe: request failed with status %d", e.StatusCode)
}

// PaymentIntent is the subset of the payment intent object we consume.
type PaymentIntent struct {
	ID            string `json:"id"`
	ClientSecret  string `json:"client_secret"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	LatestCharge  string `json:"latest_charge"`
	CustomerID    string `json:"customer"`
	CancelReason  string `json:"cancellation_reason"`
	CaptureMethod string `json:"capture_method"`
}

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Transfer struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Destination string `json:"destination"`
}

// Account mirrors the Connect account flags the onboarding flow polls.
type Account struct {
	ID               string              `json:"id"`
	DetailsSubmitted bool                `json:"details_submitted"`
	ChargesEnabled   bool                `json:"charges_enabled"`
	PayoutsEnabled   bool                `json:"payouts_enabled"`
	Requirements     AccountRequirements `json:"requirements"`
}

type AccountRequirements struct {
	CurrentlyDue []string `json:"currently_due"`
}

type AccountLink struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

type CreatePaymentIntentParams struct {
	Amount     int64
	Currency   string
	CustomerID string
	// Metadata keys are flattened into metadata[...] form fields.
	Metadata map[string]string
	// IdempotencyKey guards against double intent creation on retries.
	IdempotencyKey string
}

type CreateCustomerParams struct {
	Email    string
	Name     string
	Metadata map[string]string
}

type CreateTransferParams struct {
	Amount         int64
	Currency       string
	Destination    string
	SourceCharge   string
	Metadata       map[string]string
	IdempotencyKey string
}

type CreateAccountParams struct {
	Email    string
	Country  string
	Metadata map[string]string
}

type CreateAccountLinkParams struct {
	AccountID  string
	RefreshURL string
	ReturnURL  string
}

// Client is the payments processor surface the services depend on.
// Tests substitute an in-memory fake.
type Client interface {
	CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, intentID string) (PaymentIntent, error)
	CapturePaymentIntent(ctx context.Context, intentID string) (PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, intentID, reason string) (PaymentIntent, error)

	CreateCustomer(ctx context.Context, params CreateCustomerParams) (Customer, error)

	CreateTransfer(ctx context.Context, params CreateTransferParams) (Transfer, error)

	CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error)
	RetrieveAccount(ctx context.Context, accountID string) (Account, error)
	CreateAccountLink(ctx context.Context, params CreateAccountLinkParams) (AccountLink, error)
}

type restClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient builds a REST client against the live Stripe API.
func NewClient(apiKey string) Client {
	return &restClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: apiBaseURL,
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

// NewClientWithBaseURL exists for tests that point the client at a stub server.
func NewClientWithBaseURL(apiKey, baseURL string) Client {
	return &restClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *restClient) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (PaymentIntent, error) {
	values := url.Values{}
	values.Set("amount", strconv.FormatInt(params.Amount, 10))
	values.Set("currency", strings.ToLower(params.Currency))
	values.Set("capture_method", "manual")
	values.Set("automatic_payment_methods[enabled]", "false")
	values.Set("payment_method_types[]", "card")
	if params.CustomerID != "" {
		values.Set("customer", params.CustomerID)
	}
	setMetadata(values, params.Metadata)

	var intent PaymentIntent
	err := c.doRequest(ctx, http.MethodPost, "/v1/payment_intents", values, params.IdempotencyKey, &intent)
	return intent, err
}

func (c *restClient) RetrievePaymentIntent(ctx context.Context, intentID string) (PaymentIntent, error) {
	var intent PaymentIntent
	err := c.doRequest(ctx, http.MethodGet, "/v1/payment_intents/"+intentID, nil, "", &intent)
	return intent, err
}

func (c *restClient) CapturePaymentIntent(ctx context.Context, intentID string) (PaymentIntent, error) {
	var intent PaymentIntent
	err := c.doRequest(ctx, http.MethodPost, "/v1/payment_intents/"+intentID+"/capture", url.Values{}, "", &intent)
	return intent, err
}

func (c *restClient) CancelPaymentIntent(ctx context.Context, intentID, reason string) (PaymentIntent, error) {
	values := url.Values{}
	if reason != "" {
		values.Set("cancellation_reason", reason)
	}
	var intent PaymentIntent
	err := c.doRequest(ctx, http.MethodPost, "/v1/payment_intents/"+intentID+"/cancel", values, "", &intent)
	return intent, err
}

func (c *restClient) CreateCustomer(ctx context.Context, params CreateCustomerParams) (Customer, error) {
	values := url.Values{}
	if params.Email != "" {
		values.Set("email", params.Email)
	}
	if params.Name != "" {
		values.Set("name", params.Name)
	}
	setMetadata(values, params.Metadata)

	var customer Customer
	err := c.doRequest(ctx, http.MethodPost, "/v1/customers", values, "", &customer)
	return customer, err
}

func (c *restClient) CreateTransfer(ctx context.Context, params CreateTransferParams) (Transfer, error) {
	values := url.Values{}
	values.Set("amount", strconv.FormatInt(params.Amount, 10))
	values.Set("currency", strings.ToLower(params.Currency))
	values.Set("destination", params.Destination)
	if params.SourceCharge != "" {
		values.Set("source_transaction", params.SourceCharge)
	}
	setMetadata(values, params.Metadata)

	var transfer Transfer
	err := c.doRequest(ctx, http.MethodPost, "/v1/transfers", values, params.IdempotencyKey, &transfer)
	return transfer, err
}

func (c *restClient) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	values := url.Values{}
	values.Set("type", "express")
	if params.Country != "" {
		values.Set("country", params.Country)
	}
	if params.Email != "" {
		values.Set("email", params.Email)
	}
	values.Set("capabilities[card_payments][requested]", "true")
	values.Set("capabilities[transfers][requested]", "true")
	setMetadata(values, params.Metadata)

	var account Account
	err := c.doRequest(ctx, http.MethodPost, "/v1/accounts", values, "", &account)
	return account, err
}

func (c *restClient) RetrieveAccount(ctx context.Context, accountID string) (Account, error) {
	var account Account
	err := c.doRequest(ctx, http.MethodGet, "/v1/accounts/"+accountID, nil, "", &account)
	return account, err
}

func (c *restClient) CreateAccountLink(ctx context.Context, params CreateAccountLinkParams) (AccountLink, error) {
	values := url.Values{}
	values.Set("account", params.AccountID)
	values.Set("refresh_url", params.RefreshURL)
	values.Set("return_url", params.ReturnURL)
	values.Set("type", "account_onboarding")

	var link AccountLink
	err := c.doRequest(ctx, http.MethodPost, "/v1/account_links", values, "", &link)
	return link, err
}

type stripeErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *restClient) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
	out any,
) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	body := ""
	if values != nil {
		body = values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		var stripeErr stripeErrorResponse
		_ = json.Unmarshal(raw, &stripeErr)
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       stripeErr.Error.Code,
			Message:    strings.TrimSpace(stripeErr.Error.Message),
		}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func setMetadata(values url.Values, metadata map[string]string) {
	for key, value := range metadata {
		values.Set("metadata["+key+"]", value)
	}
}
