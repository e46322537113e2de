package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
)

// nextLinkRegexp matches the rel=next entry of an RFC 5988 Link header.
var nextLinkRegexp = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="?next"?`)

// getJSON fetches path and decodes the 2xx body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp := c.Request(ctx, http.MethodGet, path, nil)
	if err := resp.asError(http.MethodGet, path); err != nil {
		return err
	}
	return resp.Decode(out)
}

// getAll fetches a list endpoint and follows Link rel=next until the
// listing is exhausted.
func getAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var all []T
	next := path
	for page := 1; next != ""; page++ {
		resp := c.Request(ctx, http.MethodGet, next, nil)
		if err := resp.asError(http.MethodGet, path); err != nil {
			return nil, err
		}
		var items []T
		if err := resp.Decode(&items); err != nil {
			return nil, fmt.Errorf("%s page %d: %w", path, page, err)
		}
		all = append(all, items...)

		next = ""
		if m := nextLinkRegexp.FindStringSubmatch(resp.Header.Get("Link")); m != nil {
			next = m[1]
		}
	}
	return all, nil
}

// Organizations lists the organizations the API key can see.
func (c *Client) Organizations(ctx context.Context) ([]Organization, error) {
	return getAll[Organization](ctx, c, "/organizations")
}

// OrganizationNetworks lists every network in an organization.
func (c *Client) OrganizationNetworks(ctx context.Context, orgID string) ([]Network, error) {
	return getAll[Network](ctx, c, pathf("/organizations/%s/networks", orgID)+"?perPage=1000")
}

// NetworkDevices lists the devices in a network.
func (c *Client) NetworkDevices(ctx context.Context, networkID string) ([]Device, error) {
	return getAll[Device](ctx, c, pathf("/networks/%s/devices", networkID))
}

// Device fetches one device by serial.
func (c *Client) Device(ctx context.Context, serial string) (*Device, error) {
	var d Device
	if err := c.getJSON(ctx, pathf("/devices/%s", serial), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// SwitchPorts lists the port configuration of a switch.
func (c *Client) SwitchPorts(ctx context.Context, serial string) ([]*Record, error) {
	return getAll[*Record](ctx, c, pathf("/devices/%s/switch/ports", serial))
}

// SwitchPortStatuses lists live port status (link, speed, module) of a switch.
func (c *Client) SwitchPortStatuses(ctx context.Context, serial string) ([]*Record, error) {
	return getAll[*Record](ctx, c, pathf("/devices/%s/switch/ports/statuses", serial))
}

// RoutingInterfaces lists the layer 3 interfaces (SVIs) of a switch.
func (c *Client) RoutingInterfaces(ctx context.Context, serial string) ([]*Record, error) {
	return getAll[*Record](ctx, c, pathf("/devices/%s/switch/routing/interfaces", serial))
}

// StaticRoutes lists the static routes of a switch.
func (c *Client) StaticRoutes(ctx context.Context, serial string) ([]*Record, error) {
	return getAll[*Record](ctx, c, pathf("/devices/%s/switch/routing/staticRoutes", serial))
}

// NetworkOSPF returns the network's switch OSPF settings as raw JSON.
func (c *Client) NetworkOSPF(ctx context.Context, networkID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, pathf("/networks/%s/switch/routing/ospf", networkID), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ClaimNetworkDevices claims serials into a network.
func (c *Client) ClaimNetworkDevices(ctx context.Context, networkID string, serials []string) error {
	path := pathf("/networks/%s/devices/claim", networkID)
	resp := c.Request(ctx, http.MethodPost, path, map[string]any{"serials": serials})
	return resp.asError(http.MethodPost, path)
}

// UpdateSwitchPort sends a port update. The raw Response is returned so the
// caller can classify the outcome.
func (c *Client) UpdateSwitchPort(ctx context.Context, serial, portID string, payload map[string]any) *Response {
	return c.Request(ctx, http.MethodPut, pathf("/devices/%s/switch/ports/%s", serial, portID), payload)
}

// UpdateDevice sends a device attribute update (name, tags, address...).
func (c *Client) UpdateDevice(ctx context.Context, serial string, payload map[string]any) *Response {
	return c.Request(ctx, http.MethodPut, pathf("/devices/%s", serial), payload)
}
