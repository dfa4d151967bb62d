package sms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com"

type Config struct {
	AccountSID string
	AuthToken  string
	From       string
}

// TwilioProvider sends SMS through the Twilio messages endpoint using the
// same form-encoded REST style as the payments client.
type TwilioProvider struct {
	cfg     Config
	baseURL string
	client  *http.Client
}

func NewTwilio(cfg Config) *TwilioProvider {
	return &TwilioProvider{
		cfg:     cfg,
		baseURL: twilioBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// NewTwilioWithBaseURL exists for tests that point the provider at a stub server.
func NewTwilioWithBaseURL(cfg Config, baseURL string) *TwilioProvider {
	provider := NewTwilio(cfg)
	provider.baseURL = strings.TrimRight(baseURL, "/")
	return provider
}

type twilioErrorResponse struct {
	Message string `json:"message"`
}

func (p *TwilioProvider) Send(ctx context.Context, to string, body string) error {
	if p.cfg.AccountSID == "" || p.cfg.AuthToken == "" {
		return errors.New("twilio provider is not configured")
	}

	values := url.Values{}
	values.Set("To", to)
	values.Set("From", p.cfg.From)
	values.Set("Body", body)

	endpoint := p.baseURL + "/2010-04-01/Accounts/" + p.cfg.AccountSID + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(p.cfg.AccountSID, p.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var twilioErr twilioErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&twilioErr); decodeErr == nil && twilioErr.Message != "" {
			return errors.New("twilio: " + twilioErr.Message)
		}
		return errors.New("twilio: message send failed")
	}
	return nil
}
