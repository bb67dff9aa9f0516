package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"ringer-dashboard/config"
	"ringer-dashboard/internal/metrics"
	"ringer-dashboard/internal/timeline"
)

// ErrUnauthorized is returned when the status API rejects the credentials or user.
var ErrUnauthorized = errors.New("upstream rejected credentials")

const (
	loginPath  = "/user/login"
	statusPath = "/charging/get-status"
)

// Client talks to the remote status API.
type Client struct {
	baseURL string
	headers map[string]string
	client  *http.Client
	limiter *rate.Limiter
	metrics metrics.Recorder
}

// NewClient builds a Client from the upstream configuration.
func NewClient(cfg config.UpstreamConfig, rec metrics.Recorder) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Status client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}
	if rec == nil {
		rec = metrics.Noop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	burst := cfg.RequestBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: cfg.Headers,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		metrics: rec,
	}
}

// Login exchanges an email/phone and passcode for the upstream user profile.
func (c *Client) Login(ctx context.Context, identifier, passcode string) (User, error) {
	start := time.Now()
	var resp loginResponse
	err := c.post(ctx, loginPath, loginRequest{EmailOrPhone: identifier, Passcode: passcode}, &resp)
	c.metrics.ObserveUpstream("login", time.Since(start), err)
	if err != nil {
		return User{}, err
	}
	if resp.User.ID == "" {
		return User{}, fmt.Errorf("%w: login response carried no user id", ErrUnauthorized)
	}
	return resp.User, nil
}

// FetchStatus returns the status records of userID between start and end.
func (c *Client) FetchStatus(ctx context.Context, userID string, start, end time.Time) ([]timeline.StatusRecord, error) {
	began := time.Now()
	var items []statusItem
	err := c.post(ctx, statusPath, statusRequest{
		UserID:    userID,
		StartDate: start.UnixMilli(),
		EndDate:   end.UnixMilli(),
	}, &items)
	c.metrics.ObserveUpstream("fetch_status", time.Since(began), err)
	if err != nil {
		return nil, err
	}

	records := make([]timeline.StatusRecord, 0, len(items))
	for _, it := range items {
		records = append(records, it.record())
	}
	return records, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return fmt.Errorf("%w: %s returned %d", ErrUnauthorized, path, resp.StatusCode)
	default:
		return fmt.Errorf("received non-200 status code from %s: %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", path, err)
	}
	return nil
}

// IsUnauthorized reports whether err means the status API refused the caller.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
