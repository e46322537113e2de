// Package resolve turns operator-supplied identifiers (canonical IDs,
// dashboard URLs, names) into the canonical IDs the API accepts.
//
// Name lookups always need a parent scope and never guess: zero matches and
// multiple matches are both errors, and the ambiguous case lists every
// candidate so the operator can pick one.
package resolve

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/newtron-network/merakiops/pkg/dashboard"
	"github.com/newtron-network/merakiops/pkg/util"
)

const (
	// NetworkPrefix starts every canonical network ID.
	NetworkPrefix = "N_"

	// urlMarker is the path segment that precedes the network ID in a
	// dashboard URL (…/n/N_1234/manage/…).
	urlMarker = "n"
)

// Kind classifies a resolution failure.
type Kind int

const (
	NotFound Kind = iota
	Ambiguous
	InvalidFormat
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case Ambiguous:
		return "ambiguous"
	case InvalidFormat:
		return "invalid format"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Candidate is one item a name lookup considered a match.
type Candidate struct {
	ID   string
	Name string
}

// Error is a structured resolution failure.
type Error struct {
	Kind     Kind
	Resource string // "network", "organization", "device"
	Query    string
	Scope    string
	Detail   string

	// Candidates holds every match when Kind is Ambiguous.
	Candidates []Candidate
}

func (e *Error) Error() string {
	var b strings.Builder
	switch e.Kind {
	case NotFound:
		fmt.Fprintf(&b, "no %s named %q", e.Resource, e.Query)
		if e.Scope != "" {
			fmt.Fprintf(&b, " in %s", e.Scope)
		}
	case Ambiguous:
		ids := make([]string, len(e.Candidates))
		for i, c := range e.Candidates {
			ids[i] = c.ID
		}
		fmt.Fprintf(&b, "multiple %ss named %q", e.Resource, e.Query)
		if e.Scope != "" {
			fmt.Fprintf(&b, " in %s", e.Scope)
		}
		fmt.Fprintf(&b, ": %s", strings.Join(ids, ", "))
	case InvalidFormat:
		fmt.Fprintf(&b, "%s %q", e.Resource, e.Query)
	}
	if e.Detail != "" {
		b.WriteString("; " + e.Detail)
	}
	return b.String()
}

// Unwrap maps the kind onto the shared sentinel errors.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case Ambiguous:
		return util.ErrAmbiguous
	case InvalidFormat:
		return util.ErrInvalidFormat
	}
	return util.ErrNotFound
}

// NetworkLister lists the networks of an organization.
type NetworkLister interface {
	OrganizationNetworks(ctx context.Context, orgID string) ([]dashboard.Network, error)
}

// OrganizationLister lists the organizations visible to the API key.
type OrganizationLister interface {
	Organizations(ctx context.Context) ([]dashboard.Organization, error)
}

// NetworkQuery carries the network selectors a command accepts. Exactly one
// of ID, URL or Name should be set; OrgID is required with Name.
type NetworkQuery struct {
	ID    string
	URL   string
	Name  string
	OrgID string
}

// IsZero reports whether no selector was given.
func (q NetworkQuery) IsZero() bool {
	return q.ID == "" && q.URL == "" && q.Name == ""
}

// IsCanonicalNetworkID reports whether id has the canonical network form.
func IsCanonicalNetworkID(id string) bool {
	return strings.HasPrefix(id, NetworkPrefix) && len(id) > len(NetworkPrefix)
}

// Network resolves q to a canonical network ID. Canonical IDs and URLs are
// handled without a network call; names list the organization's networks.
func Network(ctx context.Context, l NetworkLister, q NetworkQuery) (string, error) {
	id := strings.TrimSpace(q.ID)
	if IsCanonicalNetworkID(id) {
		return id, nil
	}

	if q.URL != "" {
		return NetworkFromURL(q.URL)
	}

	if q.Name != "" {
		if q.OrgID == "" {
			return "", util.NewConfigError("--network-name", "requires --org-id to disambiguate")
		}
		networks, err := l.OrganizationNetworks(ctx, q.OrgID)
		if err != nil {
			return "", fmt.Errorf("listing networks in org %s: %w", q.OrgID, err)
		}
		return byName("network", q.Name, "org "+q.OrgID, networks,
			func(n dashboard.Network) Candidate { return Candidate{ID: n.ID, Name: n.Name} })
	}

	if id != "" {
		return "", &Error{
			Kind:     InvalidFormat,
			Resource: "network ID",
			Query:    id,
			Detail: "it does not look like a canonical " + NetworkPrefix + " ID; provide an " + NetworkPrefix +
				"... value, a --network-url containing /n/" + NetworkPrefix + ".../, or --network-name with --org-id",
		}
	}
	return "", util.NewConfigError("", "provide one of --network-id N_..., --network-url, or --network-name with --org-id")
}

// NetworkFromURL extracts the canonical network ID that follows the /n/
// segment of a dashboard URL. Short (non-canonical) IDs are rejected: they
// cannot be looked up through the API.
func NetworkFromURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", &Error{Kind: InvalidFormat, Resource: "network URL", Query: raw, Detail: err.Error()}
	}

	var candidate string
	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if seg == urlMarker {
			for _, next := range segments[i+1:] {
				if next != "" {
					candidate = next
					break
				}
			}
			break
		}
	}

	switch {
	case candidate == "":
		return "", &Error{
			Kind:     InvalidFormat,
			Resource: "network URL",
			Query:    raw,
			Detail:   "could not find a network identifier; the URL must contain /n/" + NetworkPrefix + "...",
		}
	case !IsCanonicalNetworkID(candidate):
		return "", &Error{
			Kind:     InvalidFormat,
			Resource: "network URL",
			Query:    raw,
			Detail: fmt.Sprintf("it contains the short network ID %q, which cannot be resolved via the API; "+
				"use a URL with the canonical %s... ID, or --network-name with --org-id", candidate, NetworkPrefix),
		}
	}
	return candidate, nil
}

// Organization resolves an organization name to its ID.
func Organization(ctx context.Context, l OrganizationLister, name string) (string, error) {
	orgs, err := l.Organizations(ctx)
	if err != nil {
		return "", fmt.Errorf("listing organizations: %w", err)
	}
	return byName("organization", name, "", orgs,
		func(o dashboard.Organization) Candidate { return Candidate{ID: o.ID, Name: o.Name} })
}

// DeviceSerial resolves a device name to its serial within an already
// fetched device list (one network's devices).
func DeviceSerial(devices []dashboard.Device, name, scope string) (string, error) {
	return byName("device", name, scope, devices,
		func(d dashboard.Device) Candidate { return Candidate{ID: d.Serial, Name: d.Name} })
}

// byName matches name against items case-insensitively on trimmed names and
// requires exactly one hit. A blank name never matches.
func byName[T any](resource, name, scope string, items []T, candidate func(T) Candidate) (string, error) {
	want := util.NormalizeName(name)
	if want == "" {
		return "", &Error{Kind: InvalidFormat, Resource: resource, Query: name, Scope: scope, Detail: "empty name"}
	}
	var matches []Candidate
	for _, item := range items {
		c := candidate(item)
		if util.NormalizeName(c.Name) == want {
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0].ID, nil
	case 0:
		return "", &Error{Kind: NotFound, Resource: resource, Query: name, Scope: scope}
	}
	return "", &Error{
		Kind:       Ambiguous,
		Resource:   resource,
		Query:      name,
		Scope:      scope,
		Candidates: matches,
		Detail:     "specify the " + resource + " by ID",
	}
}
