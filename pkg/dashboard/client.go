// Package dashboard is a small client for the cloud dashboard REST API.
//
// Every call goes through Client.Request, which owns the retry policy:
// 429 and 5xx responses and transport faults are retried with exponential
// back-off (or the server's Retry-After) up to a fixed attempt budget.
// Exhaustion and transport faults come back as a Response carrying
// StatusRequestError instead of a Go error, so callers branch on it
// separately from real HTTP statuses.
package dashboard

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/newtron-network/merakiops/pkg/util"
	"github.com/newtron-network/merakiops/pkg/version"
)

const (
	// DefaultBaseURL is the global API shard.
	DefaultBaseURL = "https://api.meraki.com/api/v1"

	// APIKeyHeader carries the dashboard API key.
	APIKeyHeader = "X-Cisco-Meraki-API-Key"

	// StatusRequestError marks a request that never produced a usable HTTP
	// status: a transport fault, or retries exhausted. It is never a real
	// HTTP status.
	StatusRequestError = 0

	DefaultTimeout       = 30 * time.Second
	DefaultMaxAttempts   = 5
	DefaultBackoffFactor = time.Second
	maxBackoffInterval   = time.Minute
)

// retryStatuses are the responses worth another attempt.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Config holds client construction parameters. Zero fields take defaults.
type Config struct {
	BaseURL            string
	APIKey             string
	Timeout            time.Duration
	MaxAttempts        int
	BackoffFactor      time.Duration
	InsecureSkipVerify bool
}

// Client issues dashboard API calls sequentially on the calling goroutine.
type Client struct {
	baseURL       string
	apiKey        string
	maxAttempts   int
	backoffFactor time.Duration
	insecure      bool
	httpClient    *http.Client

	// sleep waits between attempts; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error

	tlsWarning sync.Once
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = DefaultBackoffFactor
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opted out with --no-verify
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		maxAttempts:   cfg.MaxAttempts,
		backoffFactor: cfg.BackoffFactor,
		insecure:      cfg.InsecureSkipVerify,
		httpClient:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		sleep:         sleepContext,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Response is the outcome of one logical request, after retries.
type Response struct {
	// StatusCode is the final HTTP status, or StatusRequestError.
	StatusCode int
	Header     http.Header
	Body       []byte

	// Attempts is how many HTTP round trips were made.
	Attempts int

	// LastStatus is the last HTTP status seen before giving up; only set
	// when StatusCode is StatusRequestError and at least one response arrived.
	LastStatus int

	// Diagnostic explains a StatusRequestError.
	Diagnostic string
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Failed reports the StatusRequestError sentinel.
func (r *Response) Failed() bool {
	return r.StatusCode == StatusRequestError
}

// Throttled reports a 429, either as the final status or as the status that
// exhausted the retry budget.
func (r *Response) Throttled() bool {
	return r.StatusCode == http.StatusTooManyRequests ||
		(r.Failed() && r.LastStatus == http.StatusTooManyRequests)
}

// Text returns the body, or the diagnostic for a failed request.
func (r *Response) Text() string {
	if r.Failed() && r.Diagnostic != "" {
		return r.Diagnostic
	}
	return strings.TrimSpace(string(r.Body))
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// Request sends method to path (relative to the base URL, or absolute) with
// an optional JSON payload, retrying per the client's policy. It never
// returns nil.
func (c *Client) Request(ctx context.Context, method, path string, payload any) *Response {
	if c.insecure {
		c.tlsWarning.Do(func() {
			util.Warnf("TLS certificate verification disabled for %s", c.baseURL)
		})
	}

	target := c.resolve(path)
	log := util.WithRequest(method, path)

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return &Response{Diagnostic: fmt.Sprintf("request-error: encoding payload: %v", err)}
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.backoffFactor
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = maxBackoffInterval
	bo.Reset()

	var (
		lastStatus int
		lastBody   []byte
		lastHeader http.Header
		lastErr    error
	)
	for attempt := 1; ; attempt++ {
		resp, err := c.roundTrip(ctx, method, target, body)
		if err == nil && !retryStatuses[resp.StatusCode] {
			resp.Attempts = attempt
			log.WithField("status", resp.StatusCode).Debugf("attempt %d done", attempt)
			return resp
		}

		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return &Response{
					Attempts:   attempt,
					LastStatus: lastStatus,
					Diagnostic: fmt.Sprintf("request-error: %v", err),
				}
			}
		} else {
			lastErr = nil
			lastStatus, lastBody, lastHeader = resp.StatusCode, resp.Body, resp.Header
		}

		if attempt >= c.maxAttempts {
			return &Response{
				Header:     lastHeader,
				Body:       lastBody,
				Attempts:   attempt,
				LastStatus: lastStatus,
				Diagnostic: exhaustedDiagnostic(attempt, lastStatus, lastErr),
			}
		}

		wait := bo.NextBackOff()
		if err == nil {
			if ra, ok := retryAfter(resp.Header); ok {
				wait = ra
			}
		}
		if err != nil {
			log.Warnf("attempt %d failed (%v), retrying in %s", attempt, err, wait)
		} else {
			log.Warnf("attempt %d got HTTP %d, retrying in %s", attempt, resp.StatusCode, wait)
		}

		if err := c.sleep(ctx, wait); err != nil {
			return &Response{
				Attempts:   attempt,
				LastStatus: lastStatus,
				Diagnostic: fmt.Sprintf("request-error: %v", err),
			}
		}
	}
}

func exhaustedDiagnostic(attempts, lastStatus int, lastErr error) string {
	if lastErr != nil {
		return fmt.Sprintf("request-error: giving up after %d attempts: %v", attempts, lastErr)
	}
	return fmt.Sprintf("request-error: giving up after %d attempts: last status HTTP %d", attempts, lastStatus)
}

func (c *Client) roundTrip(ctx context.Context, method, target string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "merakiops/"+version.Version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(h http.Header) (time.Duration, bool) {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := time.Until(at)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// APIError is a non-2xx outcome of a read call that the caller treats as an
// error.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode == StatusRequestError {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Body)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return util.ErrNotFound
	}
	return util.ErrRequestFailed
}

// IsNotFound reports whether err is a 404 from the dashboard.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// asError converts a non-2xx response into an *APIError.
func (r *Response) asError(method, path string) error {
	if r.OK() {
		return nil
	}
	return &APIError{Method: method, Path: path, StatusCode: r.StatusCode, Body: r.Text()}
}

// pathf builds an API path, escaping each argument as a path segment.
func pathf(format string, args ...string) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(a)
	}
	return fmt.Sprintf(format, escaped...)
}
