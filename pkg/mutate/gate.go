// Package mutate gates every dashboard write behind an explicit apply flag.
//
// Each Mutation moves from pending to exactly one of skipped (dry run),
// applied or failed. Outcomes are independent: a failure never undoes an
// earlier success, and the gate never aborts a run on its own. The caller
// reads the aggregate Report at the end.
package mutate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/newtron-network/merakiops/pkg/audit"
	"github.com/newtron-network/merakiops/pkg/cli"
	"github.com/newtron-network/merakiops/pkg/dashboard"
	"github.com/newtron-network/merakiops/pkg/util"
	"github.com/newtron-network/merakiops/pkg/value"
)

const (
	// DefaultDelay paces successive mutating calls.
	DefaultDelay = 250 * time.Millisecond

	// DefaultRetryPause precedes the single caller-level retry of a
	// throttled mutation.
	DefaultRetryPause = time.Second

	// maxReasonBody bounds how much of a response body lands in a reason.
	maxReasonBody = 300
)

// State is where a mutation ended up.
type State string

const (
	Pending State = "pending"
	Skipped State = "skipped"
	Applied State = "applied"
	Failed  State = "failed"
)

// Mutation is one intended write.
type Mutation struct {
	// Device is the serial the write is addressed to.
	Device string
	// Target optionally names a sub-resource such as a port id.
	Target string
	// Operation is the audit operation name.
	Operation string
	// Payload is the request body, already allow-listed and coerced.
	Payload map[string]any
	// Call performs the write. It is never invoked in dry-run mode.
	Call func(ctx context.Context) *dashboard.Response
}

// Label identifies the mutation in progress output.
func (m Mutation) Label() string {
	if m.Target == "" {
		return m.Device
	}
	return m.Device + " port " + m.Target
}

// Outcome is the final state of one mutation.
type Outcome struct {
	Device string
	Target string
	State  State
	Status int
	Reason string
}

// Gate issues mutations sequentially. The zero value is a dry-run gate
// writing to stdout; use New for the usual defaults.
type Gate struct {
	Apply      bool
	Delay      time.Duration
	RetryPause time.Duration
	Out        io.Writer

	// Audit receives one event per mutation; nil uses audit.Log.
	Audit audit.Logger

	report Report
	calls  int
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a gate with the default pacing.
func New(apply bool, out io.Writer) *Gate {
	return &Gate{
		Apply:      apply,
		Delay:      DefaultDelay,
		RetryPause: DefaultRetryPause,
		Out:        out,
	}
}

// Run takes m from pending to its final state and records the outcome.
func (g *Gate) Run(ctx context.Context, m Mutation) Outcome {
	start := time.Now()
	var out Outcome
	if g.Apply {
		out = g.apply(ctx, m)
	} else {
		out = Outcome{Device: m.Device, Target: m.Target, State: Skipped}
		g.printf("%s %s: %s\n", cli.Yellow("DRY-RUN:"), m.Label(), value.Describe(m.Payload))
	}
	g.record(m, out, time.Since(start))
	return out
}

// Fail records m as failed without issuing any call, for records that could
// not be prepared (an unresolved switch name, for instance).
func (g *Gate) Fail(m Mutation, reason string) Outcome {
	out := Outcome{Device: m.Device, Target: m.Target, State: Failed, Reason: reason}
	g.printf("%s %s: %s\n", cli.Red("✗"), m.Label(), reason)
	g.record(m, out, 0)
	return out
}

// Report returns the outcomes so far.
func (g *Gate) Report() *Report {
	return &g.report
}

func (g *Gate) apply(ctx context.Context, m Mutation) Outcome {
	out := Outcome{Device: m.Device, Target: m.Target, State: Pending}

	if err := g.pace(ctx); err != nil {
		out.State = Failed
		out.Reason = "request-error: " + err.Error()
		g.printf("%s %s: %s\n", cli.Red("✗"), m.Label(), out.Reason)
		return out
	}

	resp := m.Call(ctx)
	if resp.Throttled() {
		util.WithDevice(m.Device).Warnf("still throttled after %d attempts, retrying once in %s", resp.Attempts, g.retryPause())
		if err := g.wait(ctx, g.retryPause()); err == nil {
			resp = m.Call(ctx)
		}
	}

	out.Status = resp.StatusCode
	switch {
	case resp.OK():
		out.State = Applied
		g.printf("%s %s\n", cli.Green("✓"), m.Label())
		return out
	case resp.StatusCode == http.StatusNotFound:
		out.Reason = "not found (HTTP 404): " + clip(resp.Text())
	case resp.Failed():
		out.Reason = resp.Text()
	default:
		out.Reason = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, clip(resp.Text()))
	}
	out.State = Failed
	g.printf("%s %s: %s\n", cli.Red("✗"), m.Label(), out.Reason)
	return out
}

// pace sleeps Delay before every mutating call after the first.
func (g *Gate) pace(ctx context.Context) error {
	g.calls++
	if g.calls == 1 || g.Delay <= 0 {
		return nil
	}
	return g.wait(ctx, g.Delay)
}

func (g *Gate) wait(ctx context.Context, d time.Duration) error {
	if g.sleep != nil {
		return g.sleep(ctx, d)
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

func (g *Gate) retryPause() time.Duration {
	if g.RetryPause > 0 {
		return g.RetryPause
	}
	return DefaultRetryPause
}

func (g *Gate) record(m Mutation, out Outcome, d time.Duration) {
	g.report.add(out)

	event := audit.NewEvent(m.Device, m.Operation).
		WithTarget(m.Target).
		WithPayload(m.Payload).
		WithOutcome(string(out.State), out.Status).
		WithDryRun(out.State == Skipped).
		WithDuration(d)
	if out.State == Applied {
		event.WithSuccess()
	} else if out.State == Failed {
		event.WithError(out.Reason)
	}

	var err error
	if g.Audit != nil {
		err = g.Audit.Log(event)
	} else {
		err = audit.Log(event)
	}
	if err != nil {
		util.Warnf("audit: %v", err)
	}
}

func (g *Gate) printf(format string, args ...any) {
	w := g.Out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, format, args...)
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxReasonBody {
		return s[:maxReasonBody] + "..."
	}
	return s
}
