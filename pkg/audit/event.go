// Package audit records every gated dashboard mutation, dry-run or applied,
// as JSON lines.
package audit

import (
	"fmt"
	"os"
	"os/user"
	"time"
)

// Event is one gated mutation.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	User      string         `json:"user"`
	Device    string         `json:"device"`
	Operation string         `json:"operation"`
	Target    string         `json:"target,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Outcome   string         `json:"outcome"`
	Status    int            `json:"status,omitempty"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	DryRun    bool           `json:"dry_run"`
	Duration  time.Duration  `json:"duration"`
}

// Operation names used by the utilities.
const (
	OpPortUpdate   = "switchport.update"
	OpDeviceRename = "device.rename"
	OpPortDescribe = "switchport.describe"
)

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	DryRunOnly  bool

	// Limit keeps the newest Limit matches, still in log order. Offset
	// drops that many of the newest matches first.
	Limit  int
	Offset int
}

// NewEvent creates an event stamped with the current time and OS user.
func NewEvent(device, operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      currentUser(),
		Device:    device,
		Operation: operation,
	}
}

// WithTarget sets the sub-resource (port id) the mutation addressed.
func (e *Event) WithTarget(target string) *Event {
	e.Target = target
	return e
}

// WithPayload sets the request body that was (or would have been) sent.
func (e *Event) WithPayload(payload map[string]any) *Event {
	e.Payload = payload
	return e
}

// WithOutcome records the final state and HTTP status.
func (e *Event) WithOutcome(outcome string, status int) *Event {
	e.Outcome = outcome
	e.Status = status
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(reason string) *Event {
	e.Success = false
	e.Error = reason
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithDryRun marks an event that only printed its payload.
func (e *Event) WithDryRun(dryRun bool) *Event {
	e.DryRun = dryRun
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
