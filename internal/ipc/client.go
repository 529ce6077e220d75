package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"swipely/internal/api"
	"swipely/internal/config"
)

const (
	adminPrefix    = "/api/v1/admin"
	requestTimeout = 10 * time.Second
)

// ErrUnavailable reports that no daemon answered on the configured bind.
var ErrUnavailable = errors.New("daemon api unavailable")

// ErrNoToken reports that paths.api_token is empty, which disables the
// admin API.
var ErrNoToken = errors.New("paths.api_token not configured")

// Error is a non-2xx answer from the admin API.
type Error struct {
	Status  int
	Message string
	Kind    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("admin api: http %d", e.Status)
	}
	return fmt.Sprintf("admin api: %s (http %d)", e.Message, e.Status)
}

// Client calls a running daemon.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Dial connects to the daemon described by cfg. It fails with ErrNoToken
// when the admin API is disabled and ErrUnavailable when nothing answers.
func Dial(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	token := strings.TrimSpace(cfg.Paths.APIToken)
	if token == "" {
		return nil, ErrNoToken
	}
	base, err := BaseURL(cfg.Paths.APIBind)
	if err != nil {
		return nil, err
	}
	client := &Client{baseURL: base, token: token, http: &http.Client{Timeout: requestTimeout}}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return client, nil
}

// NewClient builds a client without probing the daemon.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

// BaseURL turns a listen address into a loopback URL the CLI can reach.
func BaseURL(bind string) (string, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return "", errors.New("paths.api_bind not configured")
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "", fmt.Errorf("parse api bind %q: %w", bind, err)
	}
	if port == "" || port == "0" {
		return "", fmt.Errorf("api bind %q has no fixed port", bind)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}

// Close exists for symmetry with the store-backed access.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Ping checks /healthz.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Status returns the daemon runtime status.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var resp api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, adminPrefix+"/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns dashboard counters.
func (c *Client) Stats(ctx context.Context) (*api.AdminStats, error) {
	var resp api.AdminStats
	if err := c.do(ctx, http.MethodGet, adminPrefix+"/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Jobs lists jobs, optionally filtered by status.
func (c *Client) Jobs(ctx context.Context, statuses []string) ([]api.Carousel, error) {
	query := url.Values{}
	for _, status := range statuses {
		query.Add("status", status)
	}
	path := adminPrefix + "/jobs"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var resp api.CarouselListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Job returns one job or nil when it does not exist.
func (c *Client) Job(ctx context.Context, id int64) (*api.Carousel, error) {
	var resp api.CarouselResponse
	err := c.do(ctx, http.MethodGet, adminPrefix+"/jobs/"+strconv.FormatInt(id, 10), nil, &resp)
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp.Item, nil
}

// Retry re-queues failed jobs.
func (c *Client) Retry(ctx context.Context, ids []int64) (api.RetryJobsResult, error) {
	var resp api.RetryJobsResult
	err := c.do(ctx, http.MethodPost, adminPrefix+"/jobs/retry", map[string]any{"ids": ids}, &resp)
	return resp, err
}

// Remove deletes one job.
func (c *Client) Remove(ctx context.Context, id int64) (api.RemoveJobsResult, error) {
	var resp api.RemoveJobsResult
	err := c.do(ctx, http.MethodDelete, adminPrefix+"/jobs/"+strconv.FormatInt(id, 10), nil, &resp)
	return resp, err
}

// Users lists the most recent users.
func (c *Client) Users(ctx context.Context, limit int) ([]api.UserSummary, error) {
	var resp struct {
		Items []api.UserSummary `json:"items"`
	}
	path := adminPrefix + "/users"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// SetTier changes a user's subscription. days 0 with pro means no expiry.
func (c *Client) SetTier(ctx context.Context, telegramID int64, tier string, days int) (*api.UserSummary, error) {
	var resp api.UserSummary
	path := fmt.Sprintf("%s/users/%d/tier", adminPrefix, telegramID)
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"tier": tier, "days": days}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetUsage clears today's counters for a user.
func (c *Client) ResetUsage(ctx context.Context, telegramID int64) error {
	path := fmt.Sprintf("%s/users/%d/reset-usage", adminPrefix, telegramID)
	return c.do(ctx, http.MethodPost, path, struct{}{}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
			apiErr.Kind = payload.Kind
		}
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
