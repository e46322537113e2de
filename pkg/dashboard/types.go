package dashboard

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/newtron-network/merakiops/pkg/value"
)

// Organization is a dashboard organization.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Network is a dashboard network inside an organization.
type Network struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organizationId"`
	Name           string   `json:"name"`
	ProductTypes   []string `json:"productTypes,omitempty"`
}

// Device is a dashboard device. Identity is Serial.
type Device struct {
	Serial      string `json:"serial"`
	Name        string `json:"name"`
	Model       string `json:"model"`
	MAC         string `json:"mac,omitempty"`
	NetworkID   string `json:"networkId"`
	ProductType string `json:"productType,omitempty"`

	// NetworkName is filled in locally for reporting.
	NetworkName string `json:"networkName,omitempty"`
}

// DisplayName returns the name, falling back to MAC then serial.
func (d *Device) DisplayName() string {
	switch {
	case d.Name != "":
		return d.Name
	case d.MAC != "":
		return d.MAC
	}
	return d.Serial
}

// IsSwitch reports whether the model is an MS switch.
func (d *Device) IsSwitch() bool {
	return strings.HasPrefix(strings.ToUpper(d.Model), "MS")
}

// Record is one JSON object from the API with its field order preserved.
// Port, routing-interface and static-route listings are kept as records so
// exports carry every field the API returned, in the order it returned them.
type Record = orderedmap.OrderedMap[string, any]

// Keys returns the record's field names in order.
func Keys(r *Record) []string {
	keys := make([]string, 0, r.Len())
	for pair := r.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Field returns a field rendered as CSV cell text ("" when absent).
func Field(r *Record, key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return value.Encode(v)
}

// Cells converts a record into an ordered row of CSV cell strings.
func Cells(r *Record) *orderedmap.OrderedMap[string, string] {
	row := orderedmap.New[string, string](r.Len())
	for pair := r.Oldest(); pair != nil; pair = pair.Next() {
		row.Set(pair.Key, value.Encode(pair.Value))
	}
	return row
}
