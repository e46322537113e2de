// Package settings manages persistent user defaults for merakiops and the
// lookup of the dashboard API key.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/merakiops/pkg/util"
)

// Settings holds persistent user preferences
type Settings struct {
	// APIKey is the last-resort credential source; the environment wins.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the API shard (e.g. https://api.meraki.cn/api/v1).
	BaseURL string `yaml:"base_url,omitempty"`

	// DefaultOrgID is used when --org-id is not given.
	DefaultOrgID string `yaml:"default_org_id,omitempty"`

	// OutDir is where exports and inventory files go by default.
	OutDir string `yaml:"out_dir,omitempty"`

	// Timeout and Delay are Go duration strings ("30s", "250ms").
	Timeout string `yaml:"timeout,omitempty"`
	Delay   string `yaml:"delay,omitempty"`

	// AuditLog is the audit trail path.
	AuditLog string `yaml:"audit_log,omitempty"`
}

// Keys are the names accepted by Set and Get, in display order.
var Keys = []string{"api_key", "base_url", "default_org_id", "out_dir", "timeout", "delay", "audit_log"}

// DefaultDir is the per-user state directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".merakiops"
	}
	return filepath.Join(home, ".merakiops")
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	return filepath.Join(DefaultDir(), "settings.yaml")
}

// DefaultAuditLogPath is used when no audit_log is configured.
func DefaultAuditLogPath() string {
	return filepath.Join(DefaultDir(), "audit.log")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from path. A missing file yields empty settings.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to path, readable only by the owner since it may
// hold the API key.
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Set assigns one setting by key, validating durations.
func (s *Settings) Set(key, value string) error {
	field := s.field(key)
	if field == nil {
		return util.NewConfigError(key, "unknown setting; valid keys: "+strings.Join(Keys, ", "))
	}
	if key == "timeout" || key == "delay" {
		if _, err := time.ParseDuration(value); value != "" && err != nil {
			return util.NewConfigError(key, fmt.Sprintf("invalid duration %q", value))
		}
	}
	*field = value
	return nil
}

// Get returns one setting by key.
func (s *Settings) Get(key string) (string, bool) {
	field := s.field(key)
	if field == nil {
		return "", false
	}
	return *field, true
}

func (s *Settings) field(key string) *string {
	switch key {
	case "api_key":
		return &s.APIKey
	case "base_url":
		return &s.BaseURL
	case "default_org_id":
		return &s.DefaultOrgID
	case "out_dir":
		return &s.OutDir
	case "timeout":
		return &s.Timeout
	case "delay":
		return &s.Delay
	case "audit_log":
		return &s.AuditLog
	}
	return nil
}

// Values returns the non-empty settings in Keys order, with the API key
// masked.
func (s *Settings) Values() [][2]string {
	var out [][2]string
	for _, k := range Keys {
		v, _ := s.Get(k)
		if v == "" {
			continue
		}
		if k == "api_key" {
			v = Mask(v)
		}
		out = append(out, [2]string{k, v})
	}
	return out
}

// TimeoutOr returns the configured timeout or def.
func (s *Settings) TimeoutOr(def time.Duration) time.Duration {
	return parseOr(s.Timeout, def)
}

// DelayOr returns the configured inter-call delay or def.
func (s *Settings) DelayOr(def time.Duration) time.Duration {
	return parseOr(s.Delay, def)
}

// GetAuditLog returns the audit log path (with fallback)
func (s *Settings) GetAuditLog() string {
	if s.AuditLog != "" {
		return s.AuditLog
	}
	return DefaultAuditLogPath()
}

// GetOutDir returns the output directory (with fallback)
func (s *Settings) GetOutDir() string {
	if s.OutDir != "" {
		return s.OutDir
	}
	return "."
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}

func parseOr(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		util.Warnf("settings: ignoring invalid duration %q", v)
		return def
	}
	return d
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
