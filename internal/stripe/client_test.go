package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreatePaymentIntentSendsManualCapture(t *testing.T) {
	var gotForm map[string][]string
	var gotIdempotency string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		gotIdempotency = r.Header.Get("Idempotency-Key")
		_ = json.NewEncoder(w).Encode(PaymentIntent{ID: "pi_123", Status: "requires_payment_method", Amount: 10000})
	}))
	defer server.Close()

	client := NewClientWithBaseURL("sk_test", server.URL)
	intent, err := client.CreatePaymentIntent(context.Background(), CreatePaymentIntentParams{
		Amount:         10000,
		Currency:       "USD",
		CustomerID:     "cus_1",
		Metadata:       map[string]string{"job_id": "42"},
		IdempotencyKey: "hold:42:create",
	})
	if err != nil {
		t.Fatalf("CreatePaymentIntent returned error: %v", err)
	}

	if intent.ID != "pi_123" {
		t.Fatalf("unexpected intent id %s", intent.ID)
	}
	if got := gotForm["capture_method"]; len(got) != 1 || got[0] != "manual" {
		t.Fatalf("expected manual capture_method, got %v", got)
	}
	if got := gotForm["currency"]; len(got) != 1 || got[0] != "usd" {
		t.Fatalf("expected lowercased currency, got %v", got)
	}
	if got := gotForm["metadata[job_id]"]; len(got) != 1 || got[0] != "42" {
		t.Fatalf("expected job metadata, got %v", gotForm)
	}
	if gotIdempotency != "hold:42:create" {
		t.Fatalf("expected idempotency key header, got %q", gotIdempotency)
	}
}

func TestDoRequestSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"code":"card_declined","message":"Your card was declined."}}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("sk_test", server.URL)
	_, err := client.CapturePaymentIntent(context.Background(), "pi_1")
	if err == nil {
		t.Fatalf("expected error")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Code != "card_declined" {
		t.Fatalf("unexpected error code %s", apiErr.Code)
	}
	if apiErr.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("unexpected status %d", apiErr.StatusCode)
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("")
	if _, err := client.RetrievePaymentIntent(context.Background(), "pi_1"); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
