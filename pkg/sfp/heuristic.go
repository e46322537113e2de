// Package sfp finds populated optical (SFP) ports on switches.
//
// Telling an SFP cage from a fixed copper port is a best-effort guess: the
// dashboard has no single field for it, so Heuristic combines module
// fields, port type, port numbering and link capabilities. Every threshold
// is a field so operators can tune it per switch family.
package sfp

import (
	"strings"

	"github.com/newtron-network/merakiops/pkg/dashboard"
	"github.com/newtron-network/merakiops/pkg/util"
	"github.com/newtron-network/merakiops/pkg/value"
)

// UnknownModule labels a populated port whose module part number is not
// reported.
const UnknownModule = "Unknown Module"

// moduleFields are checked in order for a module part number.
var moduleFields = []string{"portModule", "sfpModulePartNumber", "module.partNumber", "sfpProductId"}

// Heuristic decides which ports are optical.
type Heuristic struct {
	// MinPortNumber: ports numbered at or above this are treated as uplink
	// cages (49 on 48-port access switches). Zero disables the rule.
	MinPortNumber int

	// MaxCapabilities: a port advertising at most this many negotiation
	// capabilities, including GigabitMarker and none of SlowMarkers, is
	// treated as optical. Zero disables the rule.
	MaxCapabilities int
	GigabitMarker   string
	SlowMarkers     []string

	// TypeMarkers match case-insensitively against the port type.
	TypeMarkers []string
}

// DefaultHeuristic matches 48-port MS access switches.
func DefaultHeuristic() Heuristic {
	return Heuristic{
		MinPortNumber:   49,
		MaxCapabilities: 3,
		GigabitMarker:   "1 Gigabit full duplex",
		SlowMarkers:     []string{"100 Megabit", "10 Megabit"},
		TypeMarkers:     []string{"sfp", "fiber"},
	}
}

// IsOptical reports whether p (config merged with status) looks like an SFP
// port, populated or not.
func (h Heuristic) IsOptical(p *dashboard.Record) bool {
	if ModuleType(p) != "" {
		return true
	}
	if util.ContainsAny(strings.ToLower(str(p, "type")), h.TypeMarkers...) {
		return true
	}

	num, _ := util.PortNumber(str(p, "portId"))
	if h.MinPortNumber > 0 && num >= h.MinPortNumber {
		return true
	}
	if poe, ok := lookup(p, "poeEnabled"); ok && !truthy(poe) && num > 48 {
		return true
	}

	return h.capabilityMatch(strs(p, "linkNegotiationCapabilities"))
}

func (h Heuristic) capabilityMatch(caps []string) bool {
	if h.MaxCapabilities <= 0 || len(caps) == 0 || len(caps) > h.MaxCapabilities {
		return false
	}
	gigabit := false
	for _, c := range caps {
		if util.ContainsAny(c, h.SlowMarkers...) {
			return false
		}
		if h.GigabitMarker != "" && strings.Contains(c, h.GigabitMarker) {
			gigabit = true
		}
	}
	return gigabit
}

// HasModule reports whether an optical port is populated: a module is
// reported, the link is up, or a fixed speed is negotiated.
func HasModule(p *dashboard.Record) bool {
	if ModuleType(p) != "" {
		return true
	}
	if str(p, "status") == "Connected" {
		return true
	}
	speed := str(p, "speed")
	return speed != "" && speed != "Auto negotiate"
}

// ModuleType returns the first reported module part number, or "".
func ModuleType(p *dashboard.Record) string {
	for _, f := range moduleFields {
		if v, ok := lookup(p, f); ok && truthy(v) {
			if s, ok := v.(string); ok {
				return s
			}
			return value.Encode(v)
		}
	}
	return ""
}

// MergeStatuses overlays live status fields onto port configs, matching on
// portId. Status values replace config values with the same key.
func MergeStatuses(ports, statuses []*dashboard.Record) {
	byPort := make(map[string]*dashboard.Record, len(statuses))
	for _, s := range statuses {
		byPort[str(s, "portId")] = s
	}
	for _, p := range ports {
		s, ok := byPort[str(p, "portId")]
		if !ok {
			continue
		}
		for pair := s.Oldest(); pair != nil; pair = pair.Next() {
			p.Set(pair.Key, pair.Value)
		}
	}
}

// lookup resolves key in p; a dotted key descends into a nested object.
func lookup(p *dashboard.Record, key string) (any, bool) {
	head, rest, nested := strings.Cut(key, ".")
	v, ok := p.Get(head)
	if !ok || !nested {
		return v, ok
	}
	switch obj := v.(type) {
	case map[string]any:
		v, ok = obj[rest]
		return v, ok
	case *dashboard.Record:
		return lookup(obj, rest)
	}
	return nil, false
}

func str(p *dashboard.Record, key string) string {
	v, ok := lookup(p, key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return value.Encode(v)
}

func strs(p *dashboard.Record, key string) []string {
	v, _ := lookup(p, key)
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func number(p *dashboard.Record, key string) float64 {
	v, _ := lookup(p, key)
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// truthy mirrors JSON truthiness: null, false, 0, "" and empty
// collections are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
