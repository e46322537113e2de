package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/newtron-network/merakiops/pkg/util"
)

// newTestClient points a client at srv and records requested sleeps instead
// of waiting.
func newTestClient(t *testing.T, srv *httptest.Server, cfg Config) (*Client, *[]time.Duration) {
	t.Helper()
	cfg.BaseURL = srv.URL
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	c := NewClient(cfg)
	c.httpClient.Transport = srv.Client().Transport
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

// sequence answers each request with the next status in statuses; the last
// entry repeats.
func sequence(statuses []int, header http.Header, hits *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(hits, 1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		status := statuses[n]
		if status == http.StatusTooManyRequests {
			for k, v := range header {
				w.Header()[k] = v
			}
		}
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"attempt":%d}`, n+1)
	}
}

func TestRequest_RetryAfterHonored(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(sequence(
		[]int{http.StatusTooManyRequests, http.StatusOK},
		http.Header{"Retry-After": {"2"}},
		&hits,
	))
	defer srv.Close()

	c, slept := newTestClient(t, srv, Config{})
	resp := c.Request(context.Background(), http.MethodGet, "/organizations", nil)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200 (%s)", resp.StatusCode, resp.Text())
	}
	if resp.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", resp.Attempts)
	}
	if len(*slept) != 1 || (*slept)[0] < 2*time.Second {
		t.Errorf("slept = %v, want one wait of >= 2s", *slept)
	}
	if got := resp.Text(); got != `{"attempt":2}` {
		t.Errorf("Text() = %q", got)
	}
}

func TestRequest_ExponentialBackoff(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(sequence([]int{http.StatusServiceUnavailable}, nil, &hits))
	defer srv.Close()

	c, slept := newTestClient(t, srv, Config{BackoffFactor: time.Second})
	resp := c.Request(context.Background(), http.MethodPut, "/devices/Q2XX-AAAA-BBBB", map[string]any{"name": "x"})

	if !resp.Failed() {
		t.Fatalf("StatusCode = %d, want StatusRequestError", resp.StatusCode)
	}
	if resp.Attempts != DefaultMaxAttempts || int(hits) != DefaultMaxAttempts {
		t.Errorf("Attempts = %d, hits = %d, want %d", resp.Attempts, hits, DefaultMaxAttempts)
	}
	if resp.LastStatus != http.StatusServiceUnavailable {
		t.Errorf("LastStatus = %d, want 503", resp.LastStatus)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if !reflect.DeepEqual(*slept, want) {
		t.Errorf("slept = %v, want %v", *slept, want)
	}
	if !strings.Contains(resp.Text(), "giving up after 5 attempts") {
		t.Errorf("Text() = %q", resp.Text())
	}
	if resp.Throttled() {
		t.Error("503 exhaustion should not report Throttled")
	}
}

func TestRequest_ThrottledExhaustion(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(sequence([]int{http.StatusTooManyRequests}, http.Header{"Retry-After": {"1"}}, &hits))
	defer srv.Close()

	c, slept := newTestClient(t, srv, Config{MaxAttempts: 3})
	resp := c.Request(context.Background(), http.MethodGet, "/organizations", nil)

	if !resp.Failed() || !resp.Throttled() {
		t.Errorf("Failed() = %v, Throttled() = %v, want both true", resp.Failed(), resp.Throttled())
	}
	if resp.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", resp.Attempts)
	}
	want := []time.Duration{time.Second, time.Second}
	if !reflect.DeepEqual(*slept, want) {
		t.Errorf("slept = %v, want %v", *slept, want)
	}
}

func TestRequest_NoRetryOnClientErrors(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusBadRequest, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var hits int32
			srv := httptest.NewServer(sequence([]int{status}, nil, &hits))
			defer srv.Close()

			c, slept := newTestClient(t, srv, Config{})
			resp := c.Request(context.Background(), http.MethodGet, "/devices/X", nil)
			if resp.StatusCode != status || hits != 1 || len(*slept) != 0 {
				t.Errorf("status = %d hits = %d slept = %v, want %d 1 []", resp.StatusCode, hits, *slept, status)
			}
		})
	}
}

func TestRequest_TransportFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c, slept := newTestClient(t, srv, Config{MaxAttempts: 2})
	srv.Close()

	resp := c.Request(context.Background(), http.MethodGet, "/organizations", nil)
	if resp.StatusCode != StatusRequestError {
		t.Fatalf("StatusCode = %d, want StatusRequestError", resp.StatusCode)
	}
	if resp.LastStatus != 0 {
		t.Errorf("LastStatus = %d, want 0", resp.LastStatus)
	}
	if len(*slept) != 1 {
		t.Errorf("slept = %v, want one wait", *slept)
	}
	if !strings.HasPrefix(resp.Text(), "request-error:") {
		t.Errorf("Text() = %q", resp.Text())
	}
}

func TestRequest_Headers(t *testing.T) {
	var got http.Header
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		body = buf.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, Config{APIKey: "secret"})
	c.Request(context.Background(), http.MethodPut, "/devices/Q2XX", map[string]any{"name": "lobby"})

	if got.Get(APIKeyHeader) != "secret" {
		t.Errorf("%s = %q", APIKeyHeader, got.Get(APIKeyHeader))
	}
	if got.Get("Content-Type") != "application/json" || got.Get("Accept") != "application/json" {
		t.Errorf("content headers = %q / %q", got.Get("Content-Type"), got.Get("Accept"))
	}
	if body != `{"name":"lobby"}` {
		t.Errorf("body = %q", body)
	}
}

func TestRequest_InsecureWarnsOncePerClient(t *testing.T) {
	var buf bytes.Buffer
	out, level := util.Logger.Out, util.Logger.Level
	util.SetLogOutput(&buf)
	util.SetLogLevel("warn")
	defer func() {
		util.Logger.SetOutput(out)
		util.Logger.SetLevel(level)
	}()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, Config{InsecureSkipVerify: true})
	for i := 0; i < 3; i++ {
		if resp := c.Request(context.Background(), http.MethodGet, "/organizations", nil); !resp.OK() {
			t.Fatalf("request %d: %s", i, resp.Text())
		}
	}
	if n := strings.Count(buf.String(), "TLS certificate verification disabled"); n != 1 {
		t.Errorf("warning logged %d times, want 1", n)
	}

	other, _ := newTestClient(t, srv, Config{InsecureSkipVerify: true})
	other.Request(context.Background(), http.MethodGet, "/organizations", nil)
	if n := strings.Count(buf.String(), "TLS certificate verification disabled"); n != 2 {
		t.Errorf("second client: warning count = %d, want 2", n)
	}
}

func TestRequest_ContextCancelledDuringWait(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(sequence([]int{http.StatusBadGateway}, nil, &hits))
	defer srv.Close()

	c, _ := newTestClient(t, srv, Config{})
	c.sleep = func(ctx context.Context, d time.Duration) error { return context.Canceled }

	resp := c.Request(context.Background(), http.MethodGet, "/organizations", nil)
	if !resp.Failed() || resp.Attempts != 1 {
		t.Errorf("Failed() = %v Attempts = %d, want true 1", resp.Failed(), resp.Attempts)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
		ok     bool
	}{
		{"", 0, false},
		{"2", 2 * time.Second, true},
		{"0.5", 500 * time.Millisecond, true},
		{"-3", 0, true},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.header != "" {
			h.Set("Retry-After", tt.header)
		}
		got, ok := retryAfter(h)
		if got != tt.want || ok != tt.ok {
			t.Errorf("retryAfter(%q) = (%v, %v), want (%v, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}

	h := http.Header{}
	h.Set("Retry-After", time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat))
	if got, ok := retryAfter(h); !ok || got != 0 {
		t.Errorf("past HTTP date = (%v, %v), want (0, true)", got, ok)
	}
}
