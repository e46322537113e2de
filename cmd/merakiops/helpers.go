package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/merakiops/pkg/cli"
	"github.com/newtron-network/merakiops/pkg/dashboard"
	"github.com/newtron-network/merakiops/pkg/mutate"
	"github.com/newtron-network/merakiops/pkg/resolve"
	"github.com/newtron-network/merakiops/pkg/settings"
	"github.com/newtron-network/merakiops/pkg/util"
)

func defaultBaseURL() string { return dashboard.DefaultBaseURL }

// currentSettings is safe to call before PersistentPreRunE has run.
func currentSettings() *settings.Settings {
	if userSettings == nil {
		return &settings.Settings{}
	}
	return userSettings
}

// newClient resolves the API key and builds a client from flags and
// settings. A missing key is fatal before any network call.
func newClient() (*dashboard.Client, error) {
	s := currentSettings()
	key, source, err := settings.Credentials{
		Flag:     apiKey,
		DotEnv:   ".env",
		Settings: s,
		Prompt:   true,
	}.APIKey()
	if err != nil {
		return nil, err
	}
	util.Debugf("using API key from %s", source)

	cfg := dashboard.Config{
		BaseURL:            firstNonEmpty(baseURL, s.BaseURL),
		APIKey:             key,
		Timeout:            s.TimeoutOr(dashboard.DefaultTimeout),
		InsecureSkipVerify: noVerify,
	}
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, util.NewConfigError("--timeout", fmt.Sprintf("invalid duration %q", timeout))
		}
		cfg.Timeout = d
	}
	client := dashboard.NewClient(cfg)
	util.Debugf("dashboard API at %s", client.BaseURL())
	return client, nil
}

// newGate builds the mutation gate shared by the write commands and prints
// the dry-run notice. An unset --delay falls back to settings.
func newGate(cmd *cobra.Command, apply bool, delay time.Duration) *mutate.Gate {
	g := mutate.New(apply, os.Stdout)
	g.Delay = currentSettings().DelayOr(mutate.DefaultDelay)
	if cmd.Flags().Changed("delay") {
		g.Delay = delay
	}
	if !apply {
		fmt.Println(cli.Yellow("DRY-RUN:") + " no changes will be made (use --apply to execute)")
	}
	return g
}

func addWriteFlags(cmd *cobra.Command, apply *bool, delay *time.Duration) {
	cmd.Flags().BoolVar(apply, "apply", false, "execute the changes (default is a dry run)")
	cmd.Flags().DurationVar(delay, "delay", mutate.DefaultDelay, "pause between write calls")
}

// finish prints the run report. Per-record failures do not change the exit
// status.
func finish(g *mutate.Gate) {
	g.Report().Print(os.Stdout)
}

// networkFlags are the network selectors shared by export-ports and
// update-descriptions.
type networkFlags struct {
	id    string
	url   string
	name  string
	orgID string
}

func (f *networkFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "network-id", "", "network ID (N_...)")
	cmd.Flags().StringVar(&f.url, "network-url", "", "dashboard URL of the network")
	cmd.Flags().StringVar(&f.name, "network-name", "", "network name (needs --org-id or --org-name)")
	cmd.Flags().StringVar(&f.orgID, "org-id", "", "organization ID (default: settings default_org_id)")
}

func (f *networkFlags) query() resolve.NetworkQuery {
	return resolve.NetworkQuery{
		ID:    f.id,
		URL:   f.url,
		Name:  f.name,
		OrgID: firstNonEmpty(f.orgID, currentSettings().DefaultOrgID),
	}
}

func (f *networkFlags) given() bool {
	return !f.query().IsZero()
}

// outDir returns dir (or the configured default), creating it if missing.
func outDir(dir string) (string, error) {
	if dir == "" {
		dir = currentSettings().GetOutDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	return dir, nil
}

func outPath(dir, name string) string {
	return filepath.Join(dir, name)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
