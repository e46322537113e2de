package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/merakiops/pkg/cli"
	"github.com/newtron-network/merakiops/pkg/csvtable"
	"github.com/newtron-network/merakiops/pkg/dashboard"
	"github.com/newtron-network/merakiops/pkg/resolve"
	"github.com/newtron-network/merakiops/pkg/switchport"
	"github.com/newtron-network/merakiops/pkg/util"
)

type exportOptions struct {
	serial   string
	network  networkFlags
	combined bool
	l3       bool
	ospf     bool
	outDir   string
}

func newExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export-ports",
		Short: "Export switch port configuration to CSV",
		Long: `Export the port configuration of one switch, or of every switch in a
network, to <SERIAL>_switch_ports.csv files. Columns are the API's field
names in the order the API returned them.

Examples:
  merakiops export-ports --serial Q2XX-AAAA-BBBB
  merakiops export-ports --serial Q2XX-AAAA-BBBB,Q2XX-CCCC-DDDD --l3
  merakiops export-ports --network-id N_1234 --combined --l3 --ospf
  merakiops export-ports --network-name Branch-12 --org-id 549236 --out-dir exports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.serial == "" && !opts.network.given() {
				return util.NewConfigError("", "provide --serial or one of --network-id, --network-url, --network-name")
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			dir, err := outDir(opts.outDir)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			if opts.serial != "" {
				for _, serial := range util.SplitCommaSeparated(opts.serial) {
					if err := exportSwitch(ctx, client, serial, opts, dir); err != nil {
						return err
					}
				}
				return nil
			}
			return exportNetwork(ctx, client, opts, dir)
		},
	}

	cmd.Flags().StringVar(&opts.serial, "serial", "", "switch serial, or a comma-separated list of serials")
	opts.network.register(cmd)
	cmd.Flags().BoolVar(&opts.combined, "combined", false, "also write one CSV with every switch's ports (network mode)")
	cmd.Flags().BoolVar(&opts.l3, "l3", false, "also export routing interfaces and static routes")
	cmd.Flags().BoolVar(&opts.ospf, "ospf", false, "also export the network's OSPF settings as JSON")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "output directory (default: settings out_dir or .)")
	return cmd
}

func exportSwitch(ctx context.Context, client *dashboard.Client, serial string, opts exportOptions, dir string) error {
	serial = strings.ToUpper(strings.TrimSpace(serial))
	dev, err := client.Device(ctx, serial)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", serial, err)
	}
	if m := strings.ToUpper(dev.Model); !strings.HasPrefix(m, "MS") && !strings.HasPrefix(m, "MG") {
		util.WithDevice(serial).Warnf("model %s does not look like a switch; exporting anyway", dev.Model)
	}
	fmt.Printf("Exporting %s (%s, %s)\n", cli.Bold(dev.DisplayName()), dev.Model, serial)

	if _, err := exportPorts(ctx, client, serial, dir); err != nil {
		return err
	}
	if opts.l3 {
		exportL3(ctx, client, serial, dir)
	}
	if opts.ospf {
		if dev.NetworkID == "" {
			util.WithDevice(serial).Warn("device has no network; skipping OSPF export")
		} else {
			exportOSPF(ctx, client, dev.NetworkID, dir)
		}
	}
	return nil
}

func exportNetwork(ctx context.Context, client *dashboard.Client, opts exportOptions, dir string) error {
	networkID, err := resolve.Network(ctx, client, opts.network.query())
	if err != nil {
		return err
	}

	devices, err := client.NetworkDevices(ctx, networkID)
	if err != nil {
		return fmt.Errorf("listing devices in %s: %w", networkID, err)
	}
	var switches []dashboard.Device
	for _, d := range devices {
		if d.IsSwitch() {
			switches = append(switches, d)
		}
	}
	if len(switches) == 0 {
		return fmt.Errorf("network %s: no switches found: %w", networkID, util.ErrNotFound)
	}
	fmt.Printf("Network %s: %d switches\n", networkID, len(switches))

	var combined []*csvtable.Row
	for _, sw := range switches {
		fmt.Printf("  %s\n", cli.DotPad(sw.DisplayName(), 30)+" "+sw.Serial)
		ports, err := exportPorts(ctx, client, sw.Serial, dir)
		if err != nil {
			return err
		}
		if opts.combined {
			combined = append(combined, switchport.CombinedRows(sw.Serial, ports)...)
		}
		if opts.l3 {
			exportL3(ctx, client, sw.Serial, dir)
		}
	}

	if opts.combined {
		path := outPath(dir, switchport.FileName(networkID, "switch_ports_combined", "csv"))
		if err := csvtable.Write(path, combined); err != nil {
			return err
		}
		fmt.Printf("%s %s (%d ports)\n", cli.Green("wrote"), path, len(combined))
	}
	if opts.ospf {
		exportOSPF(ctx, client, networkID, dir)
	}
	return nil
}

// exportPorts writes one switch's port CSV. An empty port list is fatal.
func exportPorts(ctx context.Context, client *dashboard.Client, serial, dir string) ([]*dashboard.Record, error) {
	ports, err := client.SwitchPorts(ctx, serial)
	if err != nil {
		return nil, fmt.Errorf("listing ports of %s: %w", serial, err)
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("%s: no switch ports returned: %w", serial, util.ErrEmptyData)
	}
	path := outPath(dir, switchport.FileName(serial, "switch_ports", "csv"))
	if err := csvtable.Write(path, switchport.Rows(ports)); err != nil {
		return nil, err
	}
	fmt.Printf("%s %s (%d ports)\n", cli.Green("wrote"), path, len(ports))
	return ports, nil
}

// exportL3 writes routing interfaces and static routes. Failures and empty
// results are logged and skipped.
func exportL3(ctx context.Context, client *dashboard.Client, serial, dir string) {
	log := util.WithDevice(serial)
	extras := []struct {
		kind  string
		fetch func(context.Context, string) ([]*dashboard.Record, error)
	}{
		{"l3_interfaces", client.RoutingInterfaces},
		{"static_routes", client.StaticRoutes},
	}
	for _, x := range extras {
		recs, err := x.fetch(ctx, serial)
		if dashboard.IsNotFound(err) {
			log.Debugf("%s not supported on this switch", x.kind)
			continue
		}
		if err != nil {
			log.Warnf("%s unavailable: %v", x.kind, err)
			continue
		}
		if len(recs) == 0 {
			log.Debugf("no %s", x.kind)
			continue
		}
		path := outPath(dir, switchport.FileName(serial, x.kind, "csv"))
		if err := csvtable.Write(path, switchport.Rows(recs)); err != nil {
			log.Warnf("writing %s: %v", path, err)
			continue
		}
		fmt.Printf("%s %s (%d rows)\n", cli.Green("wrote"), path, len(recs))
	}
}

// exportOSPF writes the network's OSPF document as indented JSON. Failure is
// logged, not fatal.
func exportOSPF(ctx context.Context, client *dashboard.Client, networkID, dir string) {
	raw, err := client.NetworkOSPF(ctx, networkID)
	if err != nil {
		util.WithField("network", networkID).Warnf("OSPF settings unavailable: %v", err)
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		util.WithField("network", networkID).Warnf("OSPF response is not JSON: %v", err)
		return
	}
	buf.WriteByte('\n')

	path := outPath(dir, switchport.FileName(networkID, "ospf", "json"))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		util.Warnf("writing %s: %v", path, err)
		return
	}
	fmt.Printf("%s %s\n", cli.Green("wrote"), path)
}
