package yookassa

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"swipely/internal/config"
)

func newTestClient(url string) *Client {
	client := NewClient(config.YooKassa{BaseURL: url, ShopID: "shop", SecretKey: "secret"}, nil)
	client.newKey = func() string { return "fixed-key" }
	return client
}

func TestCreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "shop" || pass != "secret" {
			t.Errorf("unexpected basic auth %q %q", user, pass)
		}
		if r.Header.Get("Idempotence-Key") != "fixed-key" {
			t.Errorf("missing idempotence key")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["capture"] != true {
			t.Errorf("expected capture=true, got %v", body["capture"])
		}
		meta := body["metadata"].(map[string]any)
		if meta["telegram_id"] != "42" {
			t.Errorf("unexpected metadata %v", meta)
		}
		_, _ = io.WriteString(w, `{"id":"pay-1","status":"pending","paid":false,
			"amount":{"value":"299.00","currency":"RUB"},
			"confirmation":{"type":"redirect","confirmation_url":"https://pay.example/confirm"},
			"created_at":"2026-01-02T03:04:05.000Z"}`)
	}))
	defer server.Close()

	payment, key, err := newTestClient(server.URL).CreatePayment(context.Background(), CreateRequest{
		Amount:      Amount{Value: "299.00", Currency: "RUB"},
		Description: "Swipely Pro",
		ReturnURL:   "https://t.me/swipely_bot",
		Metadata:    map[string]string{"telegram_id": "42"},
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if key != "fixed-key" || payment.ID != "pay-1" || payment.Confirmation.ConfirmationURL != "https://pay.example/confirm" {
		t.Fatalf("unexpected payment %+v (key %q)", payment, key)
	}
}

func TestGetPaymentAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"type":"error","code":"not_found","description":"Payment not found"}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetPayment(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "not_found" {
		t.Fatalf("expected not_found api error, got %v", err)
	}
}

func TestParseNotification(t *testing.T) {
	n, err := ParseNotification([]byte(`{"type":"notification","event":"payment.succeeded","object":{"id":"pay-1","status":"succeeded","paid":true,"amount":{"value":"299.00","currency":"RUB"}}}`))
	if err != nil {
		t.Fatalf("ParseNotification: %v", err)
	}
	if n.Event != EventPaymentSucceeded || n.Object.ID != "pay-1" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if _, err := ParseNotification([]byte(`{"event":"payment.succeeded","object":{}}`)); err == nil {
		t.Fatal("expected error for missing payment id")
	}
}

func TestCreatePaymentValidates(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	if _, _, err := client.CreatePayment(context.Background(), CreateRequest{Amount: Amount{Value: "1.00", Currency: "RUB"}}); err == nil {
		t.Fatal("expected error without return url")
	}
}
