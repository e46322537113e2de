package inventory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newtron-network/merakiops/pkg/sfp"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "inventory.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.db")
	if err := os.WriteFile(path, []byte(strings.Repeat("not a sqlite file\n", 64)), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err == nil {
		s.Close()
		t.Fatal("Open() on a non-database file succeeded")
	}
	if s != nil {
		t.Errorf("Open() returned a store alongside error %v", err)
	}
}

func TestStore_SaveAndPrevious(t *testing.T) {
	s := openTestStore(t)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := s.Save("100", t0, 2, []sfp.Module{
		{SwitchSerial: "S1", PortID: "49", ModuleType: "MA-SFP-1GB-SX", Speed: "1 Gbps"},
		{SwitchSerial: "S1", PortID: "50", ModuleType: "MA-SFP-1GB-SX", Speed: "1 Gbps"},
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if first.ID == 0 || first.ModuleCount != 2 {
		t.Errorf("first snapshot = %+v", first)
	}

	if prev, err := s.Previous("100", first.ID); err != nil || prev != nil {
		t.Errorf("Previous(first) = %v, %v; want nil, nil", prev, err)
	}

	if _, err := s.Save("200", t0.Add(time.Minute), 1, []sfp.Module{{SwitchSerial: "X", PortID: "1"}}); err != nil {
		t.Fatal(err)
	}
	second, err := s.Save("100", t0.Add(time.Hour), 2, []sfp.Module{
		{SwitchSerial: "S1", PortID: "49", ModuleType: "MA-SFP-10GB-SR", Speed: "10 Gbps"},
	})
	if err != nil {
		t.Fatal(err)
	}

	prev, err := s.Previous("100", second.ID)
	if err != nil {
		t.Fatalf("Previous() error = %v", err)
	}
	if prev == nil || prev.ID != first.ID {
		t.Fatalf("Previous() = %+v, want snapshot %d", prev, first.ID)
	}
	if len(prev.Modules) != 2 {
		t.Errorf("previous modules = %d, want 2", len(prev.Modules))
	}

	snaps, err := s.Snapshots("100", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 || snaps[0].ID != second.ID {
		t.Errorf("Snapshots() = %+v", snaps)
	}
}

func TestDiff(t *testing.T) {
	prev := []Module{
		{SwitchSerial: "S1", PortID: "49", ModuleType: "MA-SFP-1GB-SX", Speed: "1 Gbps"},
		{SwitchSerial: "S1", PortID: "50", ModuleType: "MA-SFP-1GB-SX", Speed: "1 Gbps"},
		{SwitchSerial: "S2", PortID: "49", ModuleType: "MA-SFP-10GB-LR", Speed: "10 Gbps"},
	}
	cur := []Module{
		{SwitchSerial: "S1", PortID: "49", ModuleType: "MA-SFP-10GB-SR", Speed: "10 Gbps"},
		{SwitchSerial: "S2", PortID: "49", ModuleType: "MA-SFP-10GB-LR", Speed: "10 Gbps", Status: "Connected"},
		{SwitchSerial: "S3", PortID: "51", ModuleType: "MA-SFP-1GB-TX", Speed: "1 Gbps"},
	}

	d := Diff(prev, cur)
	if len(d.Added) != 1 || d.Added[0].Key() != "S3/51" {
		t.Errorf("Added = %+v", d.Added)
	}
	if len(d.Removed) != 1 || d.Removed[0].Key() != "S1/50" {
		t.Errorf("Removed = %+v", d.Removed)
	}
	if len(d.Changed) != 1 || d.Changed[0].Before.ModuleType != "MA-SFP-1GB-SX" {
		t.Errorf("Changed = %+v", d.Changed)
	}
	if d.Empty() {
		t.Error("Empty() = true")
	}
	if !Diff(cur, cur).Empty() {
		t.Error("Diff of identical snapshots should be empty")
	}
}
