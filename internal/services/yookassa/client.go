package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"swipely/internal/config"
)

// Payment statuses reported by YooKassa.
const (
	StatusPending           = "pending"
	StatusWaitingForCapture = "waiting_for_capture"
	StatusSucceeded         = "succeeded"
	StatusCanceled          = "canceled"
)

// Webhook event names.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentCanceled  = "payment.canceled"
)

// HTTPDoer describes the HTTP client used by the payments client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Amount is a decimal string plus ISO currency.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Confirmation describes how the user completes the payment.
type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

// Payment is the subset of the YooKassa payment object Swipely reads.
type Payment struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Amount       Amount            `json:"amount"`
	Description  string            `json:"description,omitempty"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// CreateRequest describes a new payment.
type CreateRequest struct {
	Amount      Amount
	Description string
	ReturnURL   string
	Metadata    map[string]string
}

// Notification is a webhook body.
type Notification struct {
	Type   string  `json:"type"`
	Event  string  `json:"event"`
	Object Payment `json:"object"`
}

// APIError is a non-2xx answer from YooKassa.
type APIError struct {
	StatusCode  int
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yookassa: http %d: %s %s", e.StatusCode, e.Code, e.Description)
}

// Client calls the YooKassa REST API with basic auth.
type Client struct {
	baseURL string
	shopID  string
	secret  string
	http    HTTPDoer
	newKey  func() string
}

// NewClient builds a client from the [yookassa] section.
func NewClient(cfg config.YooKassa, doer HTTPDoer) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		shopID:  strings.TrimSpace(cfg.ShopID),
		secret:  strings.TrimSpace(cfg.SecretKey),
		http:    doer,
		newKey:  func() string { return uuid.NewString() },
	}
}

// CreatePayment opens a payment with automatic capture and a redirect
// confirmation. The returned idempotence key is stored with the payment.
func (c *Client) CreatePayment(ctx context.Context, req CreateRequest) (*Payment, string, error) {
	if strings.TrimSpace(req.Amount.Value) == "" || strings.TrimSpace(req.Amount.Currency) == "" {
		return nil, "", errors.New("yookassa: amount and currency required")
	}
	if strings.TrimSpace(req.ReturnURL) == "" {
		return nil, "", errors.New("yookassa: return url required")
	}
	body := map[string]any{
		"amount":  req.Amount,
		"capture": true,
		"confirmation": Confirmation{
			Type:      "redirect",
			ReturnURL: req.ReturnURL,
		},
		"description": req.Description,
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}
	key := c.newKey()
	var payment Payment
	if err := c.request(ctx, http.MethodPost, "/payments", key, body, &payment); err != nil {
		return nil, "", err
	}
	return &payment, key, nil
}

// GetPayment fetches the authoritative payment state.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("yookassa: payment id required")
	}
	var payment Payment
	if err := c.request(ctx, http.MethodGet, "/payments/"+id, "", nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ParseNotification decodes a webhook body.
func ParseNotification(data []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("yookassa: decode notification: %w", err)
	}
	if n.Event == "" || n.Object.ID == "" {
		return nil, errors.New("yookassa: notification missing event or payment id")
	}
	return &n, nil
}

func (c *Client) request(ctx context.Context, method, path, idempotenceKey string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("yookassa: encode: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("yookassa: build request: %w", err)
	}
	req.SetBasicAuth(c.shopID, c.secret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotenceKey != "" {
		req.Header.Set("Idempotence-Key", idempotenceKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("yookassa: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("yookassa: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("yookassa: decode response: %w", err)
	}
	return nil
}
