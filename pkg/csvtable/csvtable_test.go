package csvtable

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/newtron-network/merakiops/pkg/util"
	"github.com/newtron-network/merakiops/pkg/value"
)

func TestColumns_UnionInFirstSeenOrder(t *testing.T) {
	rows := []*Row{
		RowOf("portId", "1", "name", "a"),
		RowOf("portId", "2", "vlan", "10", "name", "b"),
		RowOf("deviceSerial", "Q2", "portId", "3"),
	}
	want := []string{"portId", "name", "vlan", "deviceSerial"}
	if got := Columns(rows); !reflect.DeepEqual(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
}

func TestWrite_EmptyRowsRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	err := Write(path, nil)
	if !errors.Is(err, util.ErrEmptyData) {
		t.Fatalf("Write(nil) error = %v, want ErrEmptyData", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("Write(nil) should not create %s", path)
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	rows := []*Row{
		RowOf("portId", "1", "name", "uplink, core", "tags", "['a', 'b']", "enabled", "true"),
		RowOf("portId", "2", "name", `say "hi"`, "enabled", "false", "vlan", "20"),
	}
	path := filepath.Join(t.TempDir(), "ports.csv")
	if err := Write(path, rows); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	table, err := Read(path, ReadOptions{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if want := []string{"portId", "name", "tags", "enabled", "vlan"}; !reflect.DeepEqual(table.Header, want) {
		t.Errorf("Header = %v, want %v", table.Header, want)
	}
	if len(table.Rows) != len(rows) {
		t.Fatalf("len(Rows) = %d, want %d", len(table.Rows), len(rows))
	}
	for i, row := range rows {
		for pair := row.Oldest(); pair != nil; pair = pair.Next() {
			got, _ := table.Rows[i].Get(pair.Key)
			if got != pair.Value {
				t.Errorf("row %d %s = %q, want %q", i, pair.Key, got, pair.Value)
			}
		}
	}
	if got, _ := table.Rows[0].Get("vlan"); got != "" {
		t.Errorf("missing cell should read back empty, got %q", got)
	}

	if v := value.Decode("enabled", mustGet(table.Rows[0], "enabled")); !v.Equal(value.Bool(true)) {
		t.Errorf("enabled decoded to %v", v.Native())
	}
	if v := value.Decode("tags", mustGet(table.Rows[0], "tags")); !v.Equal(value.List([]string{"a", "b"})) {
		t.Errorf("tags decoded to %v", v.Native())
	}
}

func TestDecode_BOMAndWhitespaceHeaders(t *testing.T) {
	input := "\ufeff Serial-Number ,WAP-Name ,Site\nq2aa-bbbb-cccc,Lobby AP,HQ\n"
	table, err := Decode(strings.NewReader(input), ReadOptions{Required: []string{"Serial-Number", "WAP-Name"}})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if want := []string{"Serial-Number", "WAP-Name", "Site"}; !reflect.DeepEqual(table.Header, want) {
		t.Errorf("Header = %v, want %v", table.Header, want)
	}
	if got := mustGet(table.Rows[0], "WAP-Name"); got != "Lobby AP" {
		t.Errorf("WAP-Name = %q", got)
	}
}

func TestDecode_QuotedHeaderAfterBOM(t *testing.T) {
	input := "\ufeff\"portId\",\"name\"\n1,desk\n"
	table, err := Decode(strings.NewReader(input), ReadOptions{Required: []string{"portId"}})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := mustGet(table.Rows[0], "portId"); got != "1" {
		t.Errorf("portId = %q", got)
	}
}

func TestDecode_CaseInsensitiveRequired(t *testing.T) {
	input := "serial-number,wap-name\nQ2AA,Lobby\n"
	table, err := Decode(strings.NewReader(input), ReadOptions{Required: []string{"Serial-Number", "WAP-Name"}})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := mustGet(table.Rows[0], "Serial-Number"); got != "Q2AA" {
		t.Errorf("Serial-Number = %q", got)
	}
}

func TestRead_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.csv")
	if err := os.WriteFile(path, []byte("Serial,Name\nQ2AA,Lobby\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Read(path, ReadOptions{Required: []string{"Serial-Number"}})
	var mc *MissingColumnError
	if !errors.As(err, &mc) {
		t.Fatalf("Read() error = %v, want *MissingColumnError", err)
	}
	if !errors.Is(err, util.ErrMissingColumn) {
		t.Error("error should unwrap to ErrMissingColumn")
	}
	if mc.Column != "Serial-Number" || !reflect.DeepEqual(mc.Observed, []string{"Serial", "Name"}) {
		t.Errorf("MissingColumnError = %+v", mc)
	}
	if !strings.Contains(err.Error(), path) || !strings.Contains(err.Error(), "[Serial, Name]") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestDecode_KeyDropsBlankRows(t *testing.T) {
	input := "Serial-Number,WAP-Name\nQ2AA,one\n,two\n  ,three\nQ2BB\n"
	table, err := Decode(strings.NewReader(input), ReadOptions{
		Required: []string{"Serial-Number", "WAP-Name"},
		Key:      "Serial-Number",
	})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(table.Rows))
	}
	if got := mustGet(table.Rows[1], "WAP-Name"); got != "" {
		t.Errorf("short row WAP-Name = %q, want empty", got)
	}
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode(strings.NewReader(""), ReadOptions{})
	if !errors.Is(err, util.ErrEmptyData) {
		t.Errorf("Decode(empty) error = %v, want ErrEmptyData", err)
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	rows := []*Row{RowOf("a", "1"), RowOf("b", "2")}
	if err := Encode(&buf, rows); err != nil {
		t.Fatal(err)
	}
	if want := "a,b\n1,\n,2\n"; buf.String() != want {
		t.Errorf("Encode() = %q, want %q", buf.String(), want)
	}
}

func mustGet(r *Row, key string) string {
	v, _ := r.Get(key)
	return v
}
