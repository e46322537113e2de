package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/merakiops/pkg/audit"
	"github.com/newtron-network/merakiops/pkg/cli"
)

func newAuditCmd() *cobra.Command {
	var (
		device     string
		operation  string
		last       string
		limit      int
		failures   bool
		jsonOutput bool
	)

	list := &cobra.Command{
		Use:   "list",
		Short: "List audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := audit.Filter{
				Device:      device,
				Operation:   operation,
				Limit:       limit,
				FailureOnly: failures,
			}
			if last != "" {
				d, err := time.ParseDuration(last)
				if err != nil {
					return fmt.Errorf("invalid duration: %s", last)
				}
				filter.StartTime = time.Now().Add(-d)
			}

			events, err := audit.Query(filter)
			if err != nil {
				return fmt.Errorf("querying audit log: %w", err)
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(events)
			}
			if len(events) == 0 {
				fmt.Println("No audit events found")
				return nil
			}

			t := cli.NewTable("TIMESTAMP", "USER", "DEVICE", "TARGET", "OPERATION", "STATUS", "DETAIL")
			for _, e := range events {
				status := cli.Green("ok")
				switch {
				case e.DryRun:
					status = cli.Yellow("dry-run")
				case !e.Success:
					status = cli.Red("failed")
				}
				t.Row(
					e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					e.User,
					e.Device,
					e.Target,
					e.Operation,
					status,
					e.Error,
				)
			}
			t.Flush()
			return nil
		},
	}
	list.Flags().StringVar(&device, "device", "", "filter by device serial")
	list.Flags().StringVar(&operation, "operation", "", "filter by operation (e.g. switchport.update)")
	list.Flags().StringVar(&last, "last", "", "show events from the last duration (e.g. 24h)")
	list.Flags().IntVar(&limit, "limit", 100, "maximum events to show")
	list.Flags().BoolVar(&failures, "failures", false, "show only failed writes")
	list.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "View the audit trail of writes",
		Long: `View the audit trail. Every gated write is recorded, dry runs included,
with the device, target, payload and outcome.

Examples:
  merakiops audit list --device Q2XX-AAAA-BBBB
  merakiops audit list --last 24h --failures`,
	}
	cmd.AddCommand(list)
	return cmd
}
