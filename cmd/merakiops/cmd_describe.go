package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/merakiops/pkg/audit"
	"github.com/newtron-network/merakiops/pkg/csvtable"
	"github.com/newtron-network/merakiops/pkg/dashboard"
	"github.com/newtron-network/merakiops/pkg/mutate"
	"github.com/newtron-network/merakiops/pkg/resolve"
	"github.com/newtron-network/merakiops/pkg/switchport"
	"github.com/newtron-network/merakiops/pkg/util"
)

func newDescribeCmd() *cobra.Command {
	var (
		csvPath    string
		network    networkFlags
		orgName    string
		keepSpaces bool
		apply      bool
		delay      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "update-descriptions",
		Short: "Bulk-update switch port descriptions from a CSV",
		Long: `Set port names from a CSV with Switch, Port and Description columns.
Switch names are looked up in the target network's device list. Spaces are
removed from descriptions unless --keep-spaces is given.

Examples:
  merakiops update-descriptions --csv desc.csv --network-id N_1234
  merakiops update-descriptions --csv desc.csv --org-name "Acme Corp" --network-name Branch-12 --apply`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var vb util.ValidationBuilder
			vb.Add(csvPath != "", "--csv is required").
				Add(network.given(), "one of --network-id, --network-url or --network-name is required").
				Add(orgName == "" || network.name != "", "--org-name requires --network-name")
			if err := vb.Build(); err != nil {
				return err
			}
			table, err := csvtable.Read(csvPath, csvtable.ReadOptions{Required: switchport.DescriptionColumns})
			if err != nil {
				return err
			}
			groups := switchport.GroupDescriptions(table.Rows, keepSpaces)
			if len(groups) == 0 {
				return fmt.Errorf("%s: no description rows: %w", csvPath, util.ErrEmptyData)
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			q := network.query()
			if orgName != "" && network.orgID == "" {
				q.OrgID, err = resolve.Organization(ctx, client, orgName)
				if err != nil {
					return err
				}
			}
			networkID, err := resolve.Network(ctx, client, q)
			if err != nil {
				return err
			}
			devices, err := client.NetworkDevices(ctx, networkID)
			if err != nil {
				return fmt.Errorf("listing devices in %s: %w", networkID, err)
			}

			g := newGate(cmd, apply, delay)
			applyDescriptions(ctx, g, client, groups, devices, networkID)
			finish(g)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV with Switch, Port and Description columns")
	network.register(cmd)
	cmd.Flags().StringVar(&orgName, "org-name", "", "organization name, resolved to --org-id")
	cmd.Flags().BoolVar(&keepSpaces, "keep-spaces", false, "keep spaces in descriptions")
	addWriteFlags(cmd, &apply, &delay)
	return cmd
}

// portUpdater is the write the description run needs.
type portUpdater interface {
	UpdateSwitchPort(ctx context.Context, serial, portID string, payload map[string]any) *dashboard.Response
}

// applyDescriptions runs one gated port update per description row. A group
// whose switch cannot be resolved is warned about and each of its ports is
// counted as failed.
func applyDescriptions(ctx context.Context, g *mutate.Gate, client portUpdater, groups []switchport.SwitchGroup, devices []dashboard.Device, networkID string) {
	for _, grp := range groups {
		serial, err := resolve.DeviceSerial(devices, grp.Switch, networkID)
		if err != nil {
			util.Warnf("skipping %d ports of %q: %v", len(grp.Ports), grp.Switch, err)
			for _, p := range grp.Ports {
				g.Fail(mutate.Mutation{
					Device:    grp.Switch,
					Target:    p.Port,
					Operation: audit.OpPortDescribe,
					Payload:   map[string]any{"name": p.Name},
				}, err.Error())
			}
			continue
		}

		fmt.Printf("%s (%s): %d ports\n", grp.Switch, serial, len(grp.Ports))
		for _, p := range grp.Ports {
			payload := map[string]any{"name": p.Name}
			g.Run(ctx, mutate.Mutation{
				Device:    serial,
				Target:    p.Port,
				Operation: audit.OpPortDescribe,
				Payload:   payload,
				Call: func(ctx context.Context) *dashboard.Response {
					return client.UpdateSwitchPort(ctx, serial, p.Port, payload)
				},
			})
		}
	}
}
