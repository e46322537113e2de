package sfp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/newtron-network/merakiops/pkg/csvtable"
	"github.com/newtron-network/merakiops/pkg/dashboard"
	"github.com/newtron-network/merakiops/pkg/util"
)

// Inventory CSV columns, in output order.
var Columns = []string{
	"Switch_Serial", "Switch_Name", "Switch_Model", "Network_Name",
	"Port_ID", "Speed", "Status", "Module_Type", "Is_Uplink", "Traffic_Total_Kbps",
}

// switchProductTypes are productType values counted as switches.
var switchProductTypes = map[string]bool{"switch": true, "switches": true, "appliance": true}

// switchModelHints are the model substrings used when no device in a
// network reports a switch productType. Broad on purpose: "mx" also catches
// security appliances with switch ports.
var switchModelHints = []string{"ms", "switch", "mx"}

// FilterSwitches picks the switch-like devices of one network. Devices are
// first selected by productType; only when none match does it fall back to
// model substrings. The fallback can misclassify and is best-effort.
func FilterSwitches(devices []dashboard.Device) []dashboard.Device {
	var out []dashboard.Device
	for _, d := range devices {
		if switchProductTypes[d.ProductType] {
			out = append(out, d)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, d := range devices {
		if util.ContainsAny(strings.ToLower(d.Model), switchModelHints...) {
			out = append(out, d)
		}
	}
	return out
}

// Source is the subset of the dashboard client a scan needs.
type Source interface {
	Device(ctx context.Context, serial string) (*dashboard.Device, error)
	SwitchPorts(ctx context.Context, serial string) ([]*dashboard.Record, error)
	SwitchPortStatuses(ctx context.Context, serial string) ([]*dashboard.Record, error)
}

// SwitchInfo identifies a scanned switch.
type SwitchInfo struct {
	Serial      string `json:"serial"`
	Name        string `json:"name"`
	Model       string `json:"model"`
	NetworkName string `json:"networkName"`
	NetworkID   string `json:"networkId"`
}

// Switch is the scan result for one switch.
type Switch struct {
	Info  SwitchInfo          `json:"switch"`
	Ports []*dashboard.Record `json:"sfp_ports"`
	Count int                 `json:"sfp_count"`
}

// Scan fetches one switch's ports and live statuses and returns its
// populated optical ports. Missing device details fall back to the serial
// and "Unknown"; a port listing failure yields no ports; a status failure
// leaves the config-only view.
func Scan(ctx context.Context, src Source, dev dashboard.Device, h Heuristic) *Switch {
	log := util.WithDevice(dev.Serial)
	sw := &Switch{Info: SwitchInfo{
		Serial:      dev.Serial,
		Name:        dev.Serial,
		Model:       "Unknown",
		NetworkName: dev.NetworkName,
		NetworkID:   dev.NetworkID,
	}}

	if info, err := src.Device(ctx, dev.Serial); err != nil {
		log.Debugf("device lookup failed: %v", err)
	} else {
		if info.Name != "" {
			sw.Info.Name = info.Name
		}
		if info.Model != "" {
			sw.Info.Model = info.Model
		}
	}

	ports, err := src.SwitchPorts(ctx, dev.Serial)
	if err != nil {
		log.Warnf("listing ports failed: %v", err)
		return sw
	}

	if statuses, err := src.SwitchPortStatuses(ctx, dev.Serial); err != nil {
		log.Debugf("port statuses unavailable, using config only: %v", err)
	} else {
		MergeStatuses(ports, statuses)
	}

	for _, p := range ports {
		if h.IsOptical(p) && HasModule(p) {
			sw.Ports = append(sw.Ports, p)
		}
	}
	sw.Count = len(sw.Ports)
	return sw
}

// Module is one populated SFP port, flattened for CSV and the snapshot store.
type Module struct {
	SwitchSerial     string
	SwitchName       string
	SwitchModel      string
	NetworkName      string
	NetworkID        string
	PortID           string
	Speed            string
	Status           string
	ModuleType       string
	IsUplink         bool
	TrafficTotalKbps float64
}

// Modules flattens the populated ports of sw.
func (sw *Switch) Modules() []Module {
	out := make([]Module, 0, len(sw.Ports))
	for _, p := range sw.Ports {
		m := Module{
			SwitchSerial:     sw.Info.Serial,
			SwitchName:       sw.Info.Name,
			SwitchModel:      sw.Info.Model,
			NetworkName:      sw.Info.NetworkName,
			NetworkID:        sw.Info.NetworkID,
			PortID:           str(p, "portId"),
			Speed:            orUnknown(str(p, "speed")),
			Status:           orUnknown(str(p, "status")),
			ModuleType:       ModuleType(p),
			TrafficTotalKbps: number(p, "trafficInKbps.total"),
		}
		if m.ModuleType == "" {
			m.ModuleType = UnknownModule
		}
		if v, ok := lookup(p, "isUplink"); ok {
			m.IsUplink = truthy(v)
		}
		out = append(out, m)
	}
	return out
}

// Row renders m with the inventory Columns.
func (m Module) Row() *csvtable.Row {
	return csvtable.RowOf(
		"Switch_Serial", m.SwitchSerial,
		"Switch_Name", m.SwitchName,
		"Switch_Model", m.SwitchModel,
		"Network_Name", m.NetworkName,
		"Port_ID", m.PortID,
		"Speed", m.Speed,
		"Status", m.Status,
		"Module_Type", m.ModuleType,
		"Is_Uplink", fmt.Sprintf("%t", m.IsUplink),
		"Traffic_Total_Kbps", formatKbps(m.TrafficTotalKbps),
	)
}

// Rows renders modules for csvtable.Write.
func Rows(mods []Module) []*csvtable.Row {
	rows := make([]*csvtable.Row, len(mods))
	for i, m := range mods {
		rows[i] = m.Row()
	}
	return rows
}

// SpeedCount is one line of the by-speed summary.
type SpeedCount struct {
	Speed string
	Count int
}

// SpeedTotals counts modules per speed, sorted by speed label.
func SpeedTotals(mods []Module) []SpeedCount {
	counts := make(map[string]int)
	for _, m := range mods {
		counts[m.Speed]++
	}
	out := make([]SpeedCount, 0, len(counts))
	for speed, n := range counts {
		out = append(out, SpeedCount{Speed: speed, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Speed < out[j].Speed })
	return out
}

// MarshalReport renders the switches that have modules as indented JSON.
func MarshalReport(switches []*Switch) ([]byte, error) {
	return json.MarshalIndent(switches, "", "  ")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func formatKbps(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
