package value

import (
	"fmt"
	"strings"
)

// Getter looks up a cell by column name. *orderedmap.OrderedMap[string, string]
// (a csvtable row) and the Map adapter both satisfy it.
type Getter interface {
	Get(key string) (string, bool)
}

// Map adapts a plain map to Getter.
type Map map[string]string

// Get returns the cell for key.
func (m Map) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Payload builds a mutation body from a row. Only columns named in allow are
// considered; columns outside the allow-list are ignored. Cells that decode
// to null are omitted rather than sent as explicit nulls.
func Payload(row Getter, allow []string) map[string]any {
	out := make(map[string]any)
	for _, field := range allow {
		cell, ok := row.Get(field)
		if !ok {
			continue
		}
		v := Decode(field, cell)
		if v.IsNull() {
			continue
		}
		out[field] = v.Native()
	}
	return out
}

// Describe renders a payload as `{k: v, ...}` with keys sorted, for dry-run
// output.
func Describe(payload map[string]any) string {
	parts := make([]string, 0, len(payload))
	for _, k := range sortedKeys(payload) {
		v := payload[k]
		if s, ok := v.(string); ok {
			parts = append(parts, fmt.Sprintf("%s: %q", k, s))
			continue
		}
		parts = append(parts, k+": "+Encode(v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
