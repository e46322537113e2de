package value

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		field string
		cell  string
		want  Value
	}{
		{"empty is null", "vlan", "", Null()},
		{"nan is null", "vlan", "nan", Null()},
		{"NaN is null", "vlan", "NaN", Null()},
		{"None is null", "name", "None", Null()},
		{"lowercase true", "enabled", "true", Bool(true)},
		{"python True", "enabled", "True", Bool(true)},
		{"upper FALSE", "poeEnabled", "FALSE", Bool(false)},
		{"integer", "vlan", "100", Int(100)},
		{"negative integer", "vlan", "-4", Int(-4)},
		{"integral float collapses", "vlan", "100.0", Int(100)},
		{"float", "rate", "2.5", Float(2.5)},
		{"bad float kept", "allowedVlans", "1.2.3", String("1.2.3")},
		{"range kept", "allowedVlans", "1,100-200", String("1,100-200")},
		{"all kept", "allowedVlans", "all", String("all")},
		{"text kept", "name", "uplink to core", String("uplink to core")},
		{"exponent without dot is text", "name", "1e3", String("1e3")},
		{"tags single quotes", "tags", "['a', 'b']", List([]string{"a", "b"})},
		{"tags double quotes", "tags", `["a","b"]`, List([]string{"a", "b"})},
		{"tags empty list", "tags", "[]", List([]string{})},
		{"tags trailing comma", "tags", "['a',]", List([]string{"a"})},
		{"tags escaped quote", "tags", `['it\'s']`, List([]string{"it's"})},
		{"tags numeric item", "tags", "[5]", List([]string{"5"})},
		{"tags malformed", "tags", "[oops", List([]string{"[oops"})},
		{"tags unquoted word", "tags", "[oops]", List([]string{"[oops]"})},
		{"tags plain word", "tags", "voice", List([]string{"voice"})},
		{"tags empty is still null", "tags", "", Null()},
		{"tags bool text stays list", "tags", "true", List([]string{"true"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.field, tt.cell)
			if !got.Equal(tt.want) {
				t.Errorf("Decode(%q, %q) = %v (%s), want %v (%s)",
					tt.field, tt.cell, got.Native(), got.Kind(), tt.want.Native(), tt.want.Kind())
			}
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"true", true, "true"},
		{"false", false, "false"},
		{"string", "Ethernet uplink", "Ethernet uplink"},
		{"integral float", float64(49), "49"},
		{"fractional float", 2.5, "2.5"},
		{"int64", int64(7), "7"},
		{"json number", json.Number("12"), "12"},
		{"string list", []any{"a", "b"}, "['a', 'b']"},
		{"empty list", []any{}, "[]"},
		{"typed list", []string{"it's"}, `['it\'s']`},
		{"mixed list", []any{"a", float64(1)}, `["a",1]`},
		{"object", map[string]any{"total": float64(12), "recv": float64(3)}, `{"recv":3,"total":12}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.in); got != tt.want {
				t.Errorf("Encode(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Encoding a decoded JSON value and decoding the cell again yields the same
// typed value.
func TestRoundTrip(t *testing.T) {
	body := `{"name":"AP-12","tags":["voice","floor 2"],"enabled":true,"vlan":20,
		"voiceVlan":null,"rate":2.5,"allowedVlans":"1,20-30","isolationEnabled":false}`
	var port map[string]any
	if err := json.Unmarshal([]byte(body), &port); err != nil {
		t.Fatal(err)
	}

	for field, raw := range port {
		cell := Encode(raw)
		got := Decode(field, cell)

		var want any = raw
		if f, ok := raw.(float64); ok && f == float64(int64(f)) {
			want = int64(f)
		}
		if items, ok := raw.([]any); ok {
			strs := make([]string, len(items))
			for i, it := range items {
				strs[i] = it.(string)
			}
			want = strs
		}
		if !reflect.DeepEqual(got.Native(), want) {
			t.Errorf("%s: cell %q decoded to %#v, want %#v", field, cell, got.Native(), want)
		}
		if again := Encode(got.Native()); again != cell {
			t.Errorf("%s: re-encode = %q, want %q", field, again, cell)
		}
	}
}

func TestPayload(t *testing.T) {
	allow := []string{"name", "tags", "enabled", "vlan", "voiceVlan", "allowedVlans"}
	row := Map{
		"portId":       "7",
		"name":         "printer",
		"tags":         "['a', 'b']",
		"enabled":      "True",
		"vlan":         "30.0",
		"voiceVlan":    "nan",
		"allowedVlans": "",
		"linkNegotiationCapabilities": "['Auto negotiate']",
	}

	got := Payload(row, allow)
	want := map[string]any{
		"name":    "printer",
		"tags":    []string{"a", "b"},
		"enabled": true,
		"vlan":    int64(30),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Payload() = %#v, want %#v", got, want)
	}
	for _, absent := range []string{"voiceVlan", "allowedVlans", "portId", "linkNegotiationCapabilities"} {
		if _, ok := got[absent]; ok {
			t.Errorf("Payload() should omit %q", absent)
		}
	}

	data, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"enabled":true,"name":"printer","tags":["a","b"],"vlan":30}`; string(data) != want {
		t.Errorf("JSON = %s, want %s", data, want)
	}
}

func TestDescribe(t *testing.T) {
	got := Describe(map[string]any{"vlan": int64(10), "name": "desk", "enabled": true})
	want := `{enabled: true, name: "desk", vlan: 10}`
	if got != want {
		t.Errorf("Describe() = %s, want %s", got, want)
	}
}
