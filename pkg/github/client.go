package github

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "ghsync/pkg/errors"
	"ghsync/pkg/logger"
	"ghsync/pkg/metrics"
	"ghsync/pkg/ratelimit"
	"ghsync/pkg/retry"
)

// resetSafetyMargin is added on top of the reported reset time before a
// pre-emptively throttled request is released.
const resetSafetyMargin = 2 * time.Second

// Options configures a Client.
type Options struct {
	Token             string
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	// RetryDelay is the base delay for exponential backoff between retries.
	RetryDelay        time.Duration
	RequestsPerSecond float64
	Burst             int
	// SecondaryCooldown is the pause before the single re-issue after an
	// unexpected 429.
	SecondaryCooldown time.Duration
}

// Client is a rate-limit-aware GitHub REST API client
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	headers    map[string]string

	quota             *ratelimit.Quota
	pacer             ratelimit.Limiter
	maxRetries        int
	retryBackoff      retry.BackoffStrategy
	secondaryCooldown time.Duration
	safetyMargin      time.Duration

	// cardURL builds the secondary-stat lookup URL for a login.
	cardURL func(login string) string

	logger logger.Logger
}

// NewClient creates a new GitHub API client
func NewClient(opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.SecondaryCooldown <= 0 {
		opts.SecondaryCooldown = 60 * time.Second
	}

	backoff := retry.DefaultExponentialBackoff()
	if opts.RetryDelay > 0 {
		backoff.BaseDelay = opts.RetryDelay
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		token:      opts.Token,
		headers: map[string]string{
			"Accept":     "application/vnd.github.v3+json",
			"User-Agent": "ghsync",
		},
		quota:             ratelimit.NewQuota(),
		pacer:             ratelimit.NewTokenBucket(opts.RequestsPerSecond, opts.Burst),
		maxRetries:        opts.MaxRetries,
		retryBackoff:      backoff,
		secondaryCooldown: opts.SecondaryCooldown,
		safetyMargin:      resetSafetyMargin,
		cardURL:           topLanguageURL,
		logger:            log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Quota returns the client's rate-limit snapshot.
func (c *Client) Quota() *ratelimit.Quota {
	return c.quota
}

// Execute performs an API request with pacing, pre-emptive quota waiting
// and retry on transient failures. The endpoint may be an API path
// ("/users/x/followers") or an absolute URL for secondary-stat hosts.
func (c *Client) Execute(ctx context.Context, method, endpoint string, params url.Values, body []byte) (*http.Response, error) {
	return c.execute(ctx, method, endpoint, params, body, true)
}

func (c *Client) execute(ctx context.Context, method, endpoint string, params url.Values, body []byte, allowCooldownRetry bool) (*http.Response, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, 0, "request cancelled while pacing", err)
	}

	if err := c.waitForQuota(ctx); err != nil {
		return nil, err
	}

	cfg := &retry.Config{
		MaxAttempts: c.maxRetries,
		Backoff:     c.retryBackoff,
		RetryIf:     retryTransient,
		Context:     ctx,
		Logger:      c.logger,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			metrics.IncAPIRetry(endpoint)
		},
	}

	resp, err := retry.DoWithResult(func() (*http.Response, error) {
		return c.doOnce(ctx, method, endpoint, params, body)
	}, cfg)

	if err != nil {
		var apiErr *errs.Error
		if stderrors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeRateLimit {
			// A 429 that slipped past the pre-emptive check. Cool down and
			// re-issue exactly once; a second 429 is surfaced as-is.
			if allowCooldownRetry {
				c.logger.WarnWithFields("rate limited despite quota check, cooling down", map[string]interface{}{
					"endpoint":    endpoint,
					"cooldown_ms": c.secondaryCooldown.Milliseconds(),
				})
				if waitErr := retry.Wait(ctx, c.secondaryCooldown); waitErr != nil {
					return nil, errs.Wrap(errs.ErrorTypeRateLimit, http.StatusTooManyRequests, "cancelled during rate limit cooldown", waitErr)
				}
				return c.execute(ctx, method, endpoint, params, body, false)
			}
		}
		return nil, err
	}

	return resp, nil
}

// waitForQuota blocks until the quota window resets when the last snapshot
// shows no remaining calls, instead of issuing a doomed request.
func (c *Client) waitForQuota(ctx context.Context) error {
	if !c.quota.IsExhausted() {
		return nil
	}

	wait := c.quota.UntilReset() + c.safetyMargin
	c.logger.WarnWithFields("rate limit exhausted, waiting for reset", map[string]interface{}{
		"wait_seconds": wait.Seconds(),
	})
	if err := retry.Wait(ctx, wait); err != nil {
		return errs.Wrap(errs.ErrorTypeRateLimit, http.StatusTooManyRequests, "cancelled while waiting for quota reset", err)
	}
	return nil
}

// doOnce issues a single request and classifies the outcome into the
// typed error taxonomy. The quota snapshot is refreshed from every
// response, error paths included.
func (c *Client) doOnce(ctx context.Context, method, endpoint string, params url.Values, body []byte) (*http.Response, error) {
	fullURL := endpoint
	external := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
	if !external {
		fullURL = c.baseURL + endpoint
	}
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(fullURL, "?") {
			sep = "&"
		}
		fullURL += sep + params.Encode()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, 0, "failed to create request", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.token != "" && !external {
		req.Header.Set("Authorization", "token "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	metrics.ObserveRequestDuration(method, duration)

	if err != nil {
		errType := errs.ErrorTypeTransport
		if isTimeout(err) {
			errType = errs.ErrorTypeTimeout
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   method,
			"url":      fullURL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errType, 0, fmt.Sprintf("%s %s failed", method, endpoint), err)
	}

	c.quota.Update(resp.Header)
	metrics.SetRateLimitRemaining(c.quota.Remaining())

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   method,
		"url":      fullURL,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if apiErr := c.checkResponseStatus(resp); apiErr != nil {
		resp.Body.Close()
		return nil, apiErr
	}

	return resp, nil
}

// checkResponseStatus maps non-2xx responses onto the typed error taxonomy
func (c *Client) checkResponseStatus(resp *http.Response) *errs.Error {
	code := resp.StatusCode
	switch {
	case code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		// GitHub reports exhausted quotas as 403 with remaining=0.
		if code == http.StatusForbidden && c.quota.IsExhausted() {
			return errs.New(errs.ErrorTypeRateLimit, code, "rate limit exceeded")
		}
		return errs.New(errs.ErrorTypeAuth, code, "authentication failed")
	case code == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, code, "resource not found")
	case code == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit, code, "rate limit exceeded")
	case code >= 500:
		return errs.New(errs.ErrorTypeServerError, code, fmt.Sprintf("server returned status %d", code))
	default:
		return errs.New(errs.ErrorTypeHTTP, code, fmt.Sprintf("unexpected status code: %d", code))
	}
}

// GetJSON performs a GET request and decodes the JSON response into target
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, target interface{}) error {
	resp, err := c.Execute(ctx, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeTransport, resp.StatusCode, "failed to read response body", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		preview := string(data)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"endpoint":     endpoint,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.Wrap(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON", err)
	}

	return nil
}

// decodeBody drains and closes the response body, unmarshalling it into
// target.
func decodeBody(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// retryTransient retries timeouts, transport failures and 5xx.
// Rate limiting is handled by the cooldown path, everything else is
// permanent.
func retryTransient(err error) bool {
	var apiErr *errs.Error
	if stderrors.As(err, &apiErr) {
		switch apiErr.Type {
		case errs.ErrorTypeTimeout, errs.ErrorTypeTransport, errs.ErrorTypeServerError:
			return true
		}
		return false
	}
	return false
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if t, ok := e.(timeout); ok && t.Timeout() {
			return true
		}
	}
	return false
}
