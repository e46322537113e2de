package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/merakiops/pkg/audit"
	"github.com/newtron-network/merakiops/pkg/cli"
	"github.com/newtron-network/merakiops/pkg/csvtable"
	"github.com/newtron-network/merakiops/pkg/dashboard"
	"github.com/newtron-network/merakiops/pkg/mutate"
	"github.com/newtron-network/merakiops/pkg/switchport"
	"github.com/newtron-network/merakiops/pkg/util"
)

func newPushCmd() *cobra.Command {
	var (
		csvPath    string
		target     string
		claimNetID string
		portRange  string
		apply      bool
		delay      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "push-ports",
		Short: "Replay a port CSV onto a switch",
		Long: `Replay an exported port CSV onto a target switch. Each row with a portId
becomes one port update carrying only the writable fields
(` + strings.Join(switchport.AllowedFields, ", ") + `).

Examples:
  merakiops push-ports --csv Q2XX-AAAA-BBBB_switch_ports.csv --target Q2YY-CCCC-DDDD
  merakiops push-ports --csv ports.csv --target Q2YY-CCCC-DDDD --ports 1-24,49 --apply
  merakiops push-ports --csv ports.csv --target Q2YY-CCCC-DDDD --claim-network-id N_1234 --apply`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var vb util.ValidationBuilder
			vb.Add(csvPath != "", "--csv is required").
				Add(target != "", "--target is required")
			ports, err := util.ExpandRange(portRange)
			if err != nil {
				vb.AddErrorf("--ports: %v", err)
			}
			if err := vb.Build(); err != nil {
				return err
			}
			target = strings.ToUpper(strings.TrimSpace(target))
			if len(ports) > 0 {
				fmt.Printf("Replaying ports %s only\n", util.CompactRange(ports))
			}

			table, err := csvtable.Read(csvPath, csvtable.ReadOptions{
				Required: []string{switchport.PortIDColumn},
				Key:      switchport.PortIDColumn,
			})
			if err != nil {
				return err
			}
			replays := switchport.ReplayPayloads(table.Rows, ports)
			if len(replays) == 0 {
				return fmt.Errorf("%s: no port rows to replay: %w", csvPath, util.ErrEmptyData)
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			if claimNetID != "" {
				if !apply {
					fmt.Printf("%s would claim %s into %s\n", cli.Yellow("DRY-RUN:"), target, claimNetID)
				} else {
					if err := client.ClaimNetworkDevices(ctx, claimNetID, []string{target}); err != nil {
						return fmt.Errorf("claiming %s into %s: %w", target, claimNetID, err)
					}
					fmt.Printf("%s claimed %s into %s\n", cli.Green("✓"), target, claimNetID)
				}
			}

			dev, err := client.Device(ctx, target)
			if err != nil {
				return fmt.Errorf("looking up target %s: %w", target, err)
			}
			fmt.Printf("Target %s: %s (%s), %d ports from %s\n",
				target, cli.Bold(dev.DisplayName()), dev.Model, len(replays), csvPath)

			g := newGate(cmd, apply, delay)
			for _, r := range replays {
				g.Run(ctx, mutate.Mutation{
					Device:    target,
					Target:    r.PortID,
					Operation: audit.OpPortUpdate,
					Payload:   r.Payload,
					Call: func(ctx context.Context) *dashboard.Response {
						return client.UpdateSwitchPort(ctx, target, r.PortID, r.Payload)
					},
				})
			}
			finish(g)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "port CSV to replay")
	cmd.Flags().StringVar(&target, "target", "", "serial of the switch to configure")
	cmd.Flags().StringVar(&claimNetID, "claim-network-id", "", "claim the target into this network first")
	cmd.Flags().StringVar(&portRange, "ports", "", "only replay these port numbers, e.g. 1-24,49")
	addWriteFlags(cmd, &apply, &delay)
	return cmd
}
