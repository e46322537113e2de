// Package testutil provides a fake dashboard API for command-level tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Call is one write received by the fake.
type Call struct {
	Method string
	Path   string
	Body   map[string]any
}

// Dashboard is an httptest server answering GETs from canned JSON bodies and
// recording every other request.
type Dashboard struct {
	*httptest.Server

	mu     sync.Mutex
	gets   map[string]string
	status map[string]int
	calls  []Call
}

// NewDashboard starts a fake dashboard; it is closed when the test ends.
func NewDashboard(t *testing.T) *Dashboard {
	t.Helper()
	d := &Dashboard{
		gets:   make(map[string]string),
		status: make(map[string]int),
	}
	d.Server = httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(d.Close)
	return d
}

// Get registers the JSON body returned for GET path.
func (d *Dashboard) Get(path, body string) *Dashboard {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gets[path] = body
	return d
}

// Status makes every request to path answer with code.
func (d *Dashboard) Status(path string, code int) *Dashboard {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status[path] = code
	return d
}

// Calls returns the writes received so far, in order.
func (d *Dashboard) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

func (d *Dashboard) serve(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	code, forced := d.status[r.URL.Path]
	body, known := d.gets[r.URL.Path]
	if r.Method != http.MethodGet {
		call := Call{Method: r.Method, Path: r.URL.Path}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			json.Unmarshal(raw, &call.Body)
		}
		d.calls = append(d.calls, call)
	}
	d.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case forced:
		w.WriteHeader(code)
		io.WriteString(w, `{"errors":["forced"]}`)
	case r.Method != http.MethodGet:
		io.WriteString(w, "{}")
	case known:
		io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"errors":["Not found"]}`)
	}
}
