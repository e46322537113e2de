// merakiops - dashboard switch and device utilities
//
// One binary hosting the operator scripts as subcommands. Every write is a
// dry run unless --apply is given.
//
// Usage:
//
//	merakiops export-ports --serial Q2XX-AAAA-BBBB         Export one switch's ports to CSV
//	merakiops export-ports --network-id N_123 --combined   Export every switch in a network
//	merakiops push-ports --csv ports.csv --target Q2XX-... Replay a port CSV onto a switch
//	merakiops sfp-inventory --org-id 549236 --csv          SFP module inventory across an org
//	merakiops rename-devices --csv aps.csv                 Rename devices from a CSV
//	merakiops update-descriptions --csv desc.csv ...       Bulk-update port descriptions
//	merakiops settings show                                Persistent defaults
//	merakiops audit list                                   Audit trail of writes
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/merakiops/pkg/audit"
	"github.com/newtron-network/merakiops/pkg/settings"
	"github.com/newtron-network/merakiops/pkg/util"
	"github.com/newtron-network/merakiops/pkg/version"
)

// Global option flags.
var (
	apiKey       string
	baseURL      string
	timeout      string
	noVerify     bool
	auditLogPath string
	verbose      bool
	logJSON      bool
	settingsPath string

	userSettings *settings.Settings
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "merakiops",
	Short:             "Dashboard switch and device utilities",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `merakiops exports and replays switch port configuration, inventories
SFP modules, and bulk-renames devices and ports through the dashboard API.

Write commands preview changes by default. Use --apply to execute.

  merakiops <command> [flags] [--apply]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		if logJSON {
			util.SetJSONFormat()
		}

		var err error
		if settingsPath == "" {
			settingsPath = settings.DefaultSettingsPath()
		}
		userSettings, err = settings.LoadFrom(settingsPath)
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		if isSettingsOrHelp(cmd) {
			return nil
		}

		if auditLogPath == "" {
			auditLogPath = userSettings.GetAuditLog()
		}
		auditLogger, err := audit.NewFileLogger(auditLogPath, audit.DefaultRotation)
		if err != nil {
			util.Warnf("Could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "dashboard API key (default: MERAKI_API_KEY, .env, settings)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "API base URL (default: settings or "+defaultBaseURL()+")")
	rootCmd.PersistentFlags().StringVar(&timeout, "timeout", "", "per-request timeout, e.g. 30s")
	rootCmd.PersistentFlags().BoolVar(&noVerify, "no-verify", false, "skip TLS certificate verification")
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "", "audit log path (default: ~/.merakiops/audit.log)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log diagnostics as JSON")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "settings file (default: ~/.merakiops/settings.yaml)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "read", Title: "Export & Inventory:"},
		&cobra.Group{ID: "write", Title: "Bulk Changes:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{newExportCmd(), newSFPCmd()} {
		cmd.GroupID = "read"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{newPushCmd(), newRenameCmd(), newDescribeCmd()} {
		cmd.GroupID = "write"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{newSettingsCmd(), newAuditCmd(), newVersionCmd()} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

// isSettingsOrHelp reports commands that never touch the API or audit log.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "version", "help", "completion":
			return true
		}
	}
	return false
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if version.Version == "dev" {
				fmt.Println("merakiops dev build")
			} else {
				fmt.Printf("merakiops %s\n", version.Info())
			}
		},
	}
}
