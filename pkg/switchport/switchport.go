// Package switchport converts between switch port records fetched from the
// dashboard and the CSV rows the export, replay and description tools use.
package switchport

import (
	"fmt"
	"strings"

	"github.com/newtron-network/merakiops/pkg/csvtable"
	"github.com/newtron-network/merakiops/pkg/dashboard"
	"github.com/newtron-network/merakiops/pkg/util"
	"github.com/newtron-network/merakiops/pkg/value"
)

// Column names.
const (
	PortIDColumn       = "portId"
	DeviceSerialColumn = "deviceSerial"
)

// AllowedFields are the port attributes the update endpoint accepts. Any
// other column in a replay CSV (portId itself, status fields, link
// aggregation ids) is ignored.
var AllowedFields = []string{
	"name",
	"tags",
	"enabled",
	"poeEnabled",
	"type",
	"vlan",
	"voiceVlan",
	"allowedVlans",
	"isolationEnabled",
	"rstpEnabled",
	"stpGuard",
	"linkNegotiation",
	"portScheduleId",
	"accessPolicyType",
	"accessPolicyNumber",
	"daiTrusted",
	"poeFallbackEnabled",
	"udld",
}

// Rows converts port records to CSV rows, keeping the API's field order.
func Rows(ports []*dashboard.Record) []*csvtable.Row {
	rows := make([]*csvtable.Row, len(ports))
	for i, p := range ports {
		rows[i] = dashboard.Cells(p)
	}
	return rows
}

// CombinedRows tags each port row with the owning switch serial. A record
// that already carries deviceSerial keeps its own value.
func CombinedRows(serial string, ports []*dashboard.Record) []*csvtable.Row {
	rows := Rows(ports)
	for _, r := range rows {
		if _, ok := r.Get(DeviceSerialColumn); !ok {
			r.Set(DeviceSerialColumn, serial)
		}
	}
	return rows
}

// Replay is one port update built from a CSV row.
type Replay struct {
	PortID  string
	Payload map[string]any
}

// ReplayPayloads builds one update per row with a portId. When ports is
// non-empty only rows whose port number is listed are kept.
func ReplayPayloads(rows []*csvtable.Row, ports []int) []Replay {
	var keep map[int]bool
	if len(ports) > 0 {
		keep = make(map[int]bool, len(ports))
		for _, p := range ports {
			keep[p] = true
		}
	}

	var out []Replay
	for _, r := range rows {
		portID, _ := r.Get(PortIDColumn)
		portID = strings.TrimSpace(portID)
		if portID == "" {
			continue
		}
		if keep != nil {
			n, ok := util.PortNumber(portID)
			if !ok || !keep[n] {
				continue
			}
		}
		out = append(out, Replay{PortID: portID, Payload: value.Payload(r, AllowedFields)})
	}
	return out
}

// Description CSV columns.
const (
	SwitchColumn      = "Switch"
	PortColumn        = "Port"
	DescriptionColumn = "Description"
)

// DescriptionColumns are required in a description CSV.
var DescriptionColumns = []string{SwitchColumn, PortColumn, DescriptionColumn}

// PortName is the new name for one port.
type PortName struct {
	Port string
	Name string
}

// SwitchGroup is a run of consecutive CSV rows naming the same switch.
type SwitchGroup struct {
	Switch string
	Ports  []PortName
}

// GroupDescriptions groups description rows by switch. Only consecutive rows
// with the same Switch cell share a group; a switch that reappears later
// starts a new group. Spaces are stripped from descriptions unless
// keepSpaces is set. Rows without a port or a switch are skipped.
func GroupDescriptions(rows []*csvtable.Row, keepSpaces bool) []SwitchGroup {
	var groups []SwitchGroup
	for _, r := range rows {
		sw, _ := r.Get(SwitchColumn)
		port, _ := r.Get(PortColumn)
		desc, _ := r.Get(DescriptionColumn)

		sw = strings.TrimSpace(sw)
		port = strings.TrimSpace(port)
		if port == "" {
			util.Debugf("description row for %q has no port, skipping", sw)
			continue
		}
		if sw == "" {
			util.Warnf("description row for port %s has no switch, skipping", port)
			continue
		}
		if !keepSpaces {
			desc = util.RemoveSpaces(desc)
		}

		if n := len(groups); n == 0 || groups[n-1].Switch != sw {
			groups = append(groups, SwitchGroup{Switch: sw})
		}
		g := &groups[len(groups)-1]
		g.Ports = append(g.Ports, PortName{Port: port, Name: desc})
	}
	return groups
}

// FileName returns the export file name for kind ("switch_ports",
// "l3_interfaces", ...) under owner (a serial or network id).
func FileName(owner, kind, ext string) string {
	return fmt.Sprintf("%s_%s.%s", owner, kind, ext)
}
