package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEvent_New(t *testing.T) {
	event := NewEvent("Q2XX-AAAA-BBBB", OpPortUpdate)

	if event.Device != "Q2XX-AAAA-BBBB" {
		t.Errorf("Device = %q, want %q", event.Device, "Q2XX-AAAA-BBBB")
	}
	if event.Operation != OpPortUpdate {
		t.Errorf("Operation = %q, want %q", event.Operation, OpPortUpdate)
	}
	if event.ID == "" {
		t.Error("ID should not be empty")
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestEvent_Chaining(t *testing.T) {
	event := NewEvent("Q2XX-AAAA-BBBB", OpPortUpdate).
		WithTarget("12").
		WithPayload(map[string]any{"vlan": int64(20)}).
		WithOutcome("applied", 200).
		WithSuccess().
		WithDuration(time.Second).
		WithDryRun(false)

	if event.Target != "12" {
		t.Errorf("Target = %q", event.Target)
	}
	if event.Payload["vlan"] != int64(20) {
		t.Errorf("Payload = %v", event.Payload)
	}
	if event.Outcome != "applied" || event.Status != 200 {
		t.Errorf("Outcome = %q/%d", event.Outcome, event.Status)
	}
	if !event.Success {
		t.Error("Success should be true")
	}
	if event.Duration != time.Second {
		t.Errorf("Duration = %v", event.Duration)
	}
	if event.DryRun {
		t.Error("DryRun should be false")
	}
}

func TestEvent_WithError(t *testing.T) {
	event := NewEvent("Q2XX", OpDeviceRename).WithSuccess().WithError("not found")
	if event.Success {
		t.Error("Success should be false")
	}
	if event.Error != "not found" {
		t.Errorf("Error = %q", event.Error)
	}
}

func newTestLogger(t *testing.T, rotation RotationConfig) (*FileLogger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "audit", "audit.log")
	logger, err := NewFileLogger(logPath, rotation)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger, logPath
}

func TestFileLogger_Basic(t *testing.T) {
	logger, logPath := newTestLogger(t, RotationConfig{})

	event := NewEvent("Q2XX-AAAA-BBBB", OpPortUpdate).
		WithTarget("1").
		WithPayload(map[string]any{"name": "desk", "enabled": true}).
		WithOutcome("applied", 200).
		WithSuccess()
	if err := logger.Log(event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if logger.Path() != logPath {
		t.Errorf("Path() = %q, want %q", logger.Path(), logPath)
	}

	results, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(results))
	}
	got := results[0]
	if got.Device != "Q2XX-AAAA-BBBB" || got.Target != "1" || got.Status != 200 {
		t.Errorf("round-tripped event = %+v", got)
	}
	if got.Payload["name"] != "desk" || got.Payload["enabled"] != true {
		t.Errorf("Payload = %v", got.Payload)
	}
}

func TestFileLogger_QueryFilters(t *testing.T) {
	logger, _ := newTestLogger(t, RotationConfig{})

	events := []*Event{
		NewEvent("S1", OpPortUpdate).WithOutcome("applied", 200).WithSuccess(),
		NewEvent("S1", OpPortUpdate).WithOutcome("failed", 404).WithError("HTTP 404"),
		NewEvent("S2", OpDeviceRename).WithOutcome("skipped", 0).WithDryRun(true),
		NewEvent("S3", OpPortDescribe).WithOutcome("applied", 200).WithSuccess(),
	}
	for _, e := range events {
		if err := logger.Log(e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"by device", Filter{Device: "S1"}, 2},
		{"by operation", Filter{Operation: OpPortUpdate}, 2},
		{"success only", Filter{SuccessOnly: true}, 2},
		{"failure only excludes dry runs", Filter{FailureOnly: true}, 1},
		{"dry run only", Filter{DryRunOnly: true}, 1},
		{"limit", Filter{Limit: 3}, 3},
		{"offset", Filter{Offset: 3}, 1},
		{"offset beyond", Filter{Offset: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := logger.Query(tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(results) != tt.want {
				t.Errorf("got %d events, want %d", len(results), tt.want)
			}
		})
	}
}

func TestFileLogger_QueryLimitKeepsNewest(t *testing.T) {
	logger, _ := newTestLogger(t, RotationConfig{})
	for _, dev := range []string{"S1", "S2", "S3", "S4", "S5"} {
		if err := logger.Log(NewEvent(dev, OpPortUpdate)); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"limit", Filter{Limit: 2}, []string{"S4", "S5"}},
		{"limit larger than log", Filter{Limit: 10}, []string{"S1", "S2", "S3", "S4", "S5"}},
		{"offset skips newest", Filter{Offset: 1, Limit: 2}, []string{"S3", "S4"}},
		{"offset only", Filter{Offset: 3}, []string{"S1", "S2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := logger.Query(tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			var got []string
			for _, e := range results {
				got = append(got, e.Device)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("devices = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileLogger_QueryTimeFilter(t *testing.T) {
	logger, _ := newTestLogger(t, RotationConfig{})

	old := NewEvent("S1", OpPortUpdate)
	old.Timestamp = time.Now().Add(-2 * time.Hour)
	recent := NewEvent("S2", OpPortUpdate)
	logger.Log(old)
	logger.Log(recent)

	results, _ := logger.Query(Filter{StartTime: time.Now().Add(-time.Hour)})
	if len(results) != 1 || results[0].Device != "S2" {
		t.Errorf("StartTime filter returned %d events", len(results))
	}
	results, _ = logger.Query(Filter{EndTime: time.Now().Add(-time.Hour)})
	if len(results) != 1 || results[0].Device != "S1" {
		t.Errorf("EndTime filter returned %d events", len(results))
	}
}

func TestFileLogger_QueryMalformedJSON(t *testing.T) {
	logger, logPath := newTestLogger(t, RotationConfig{})
	logger.Log(NewEvent("S1", OpPortUpdate))

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("not json\n")
	f.Close()
	logger.Log(NewEvent("S2", OpPortUpdate))

	results, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 valid events, got %d", len(results))
	}
}

func TestFileLogger_QueryMissingFile(t *testing.T) {
	logger, logPath := newTestLogger(t, RotationConfig{})
	os.Remove(logPath)

	results, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no events, got %d", len(results))
	}
}

func TestFileLogger_RotationKeepsMaxBackups(t *testing.T) {
	logger, logPath := newTestLogger(t, RotationConfig{MaxSize: 50, MaxBackups: 2})

	for i := 0; i < 10; i++ {
		if err := logger.Log(NewEvent("S1", OpPortUpdate)); err != nil {
			t.Fatalf("Log failed on iteration %d: %v", i, err)
		}
	}

	matches, err := filepath.Glob(logPath + ".*")
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) == 0 {
		t.Error("Expected rotation to create backup files")
	}
	if len(matches) > 2 {
		t.Errorf("Expected at most 2 backup files, got %d", len(matches))
	}
}

func TestNewFileLogger_MkdirError(t *testing.T) {
	if _, err := NewFileLogger("/dev/null/impossible/audit.log", RotationConfig{}); err == nil {
		t.Error("expected an error creating a directory under /dev/null")
	}
}

func TestDefaultLogger(t *testing.T) {
	SetDefaultLogger(nil)
	if err := Log(NewEvent("S1", OpPortUpdate)); err != nil {
		t.Errorf("Log with no default logger = %v, want nil", err)
	}
	if results, err := Query(Filter{}); err != nil || len(results) != 0 {
		t.Errorf("Query with no default logger = %v, %v", results, err)
	}

	logger, _ := newTestLogger(t, RotationConfig{})
	SetDefaultLogger(logger)
	defer SetDefaultLogger(nil)

	if DefaultLogger() != logger {
		t.Error("DefaultLogger() should return the logger just set")
	}
	if err := Log(NewEvent("S1", OpPortUpdate)); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	results, _ := Query(Filter{Device: "S1"})
	if len(results) != 1 {
		t.Errorf("Expected 1 event via default logger, got %d", len(results))
	}
}
