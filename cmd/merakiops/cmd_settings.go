package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/merakiops/pkg/cli"
	"github.com/newtron-network/merakiops/pkg/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage persistent settings",
		Long: `Manage persistent settings stored in ~/.merakiops/settings.yaml.

Available settings:
  ` + strings.Join(settings.Keys, "\n  ") + `

Examples:
  merakiops settings show
  merakiops settings set default_org_id 549236
  merakiops settings set delay 500ms
  merakiops settings clear`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current settings",
			RunE: func(cmd *cobra.Command, args []string) error {
				s := currentSettings()
				fmt.Printf("Settings file: %s\n\n", settingsPath)

				values := make(map[string]string)
				for _, kv := range s.Values() {
					values[kv[0]] = kv[1]
				}
				t := cli.NewTable("SETTING", "VALUE")
				for _, k := range settings.Keys {
					v := values[k]
					if v == "" {
						v = "(not set)"
					}
					t.Row(k, v)
				}
				t.Flush()
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <setting> <value>",
			Short: "Set a setting value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s := currentSettings()
				if err := s.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := s.SaveTo(settingsPath); err != nil {
					return fmt.Errorf("saving settings: %w", err)
				}
				shown := args[1]
				if args[0] == "api_key" {
					shown = settings.Mask(shown)
				}
				fmt.Printf("%s set to: %s\n", args[0], shown)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Clear all settings",
			RunE: func(cmd *cobra.Command, args []string) error {
				s := currentSettings()
				s.Clear()
				if err := s.SaveTo(settingsPath); err != nil {
					return fmt.Errorf("saving settings: %w", err)
				}
				fmt.Println("All settings cleared.")
				return nil
			},
		},
	)
	return cmd
}
