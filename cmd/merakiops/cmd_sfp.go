package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/merakiops/pkg/cli"
	"github.com/newtron-network/merakiops/pkg/csvtable"
	"github.com/newtron-network/merakiops/pkg/dashboard"
	"github.com/newtron-network/merakiops/pkg/inventory"
	"github.com/newtron-network/merakiops/pkg/sfp"
	"github.com/newtron-network/merakiops/pkg/util"
)

type sfpOptions struct {
	orgID      string
	writeCSV   bool
	writeJSON  bool
	dbPath     string
	outDir     string
	minSFPPort int
	maxCaps    int
	history    int
}

func newSFPCmd() *cobra.Command {
	opts := sfpOptions{}
	h := sfp.DefaultHeuristic()

	cmd := &cobra.Command{
		Use:   "sfp-inventory",
		Short: "Inventory populated SFP ports across an organization",
		Long: `Scan every switch in an organization for optical ports with a module
present and report them by switch and by speed.

Writes org_<ID>_sfp_inventory_<timestamp>.csv (the default) and/or .json.
With --db the run is stored in a SQLite database and compared with the
previous run for the same organization.

Examples:
  merakiops sfp-inventory --org-id 549236
  merakiops sfp-inventory --org-id 549236 --csv --json --out-dir reports
  merakiops sfp-inventory --org-id 549236 --db ~/.merakiops/inventory.db
  merakiops sfp-inventory --org-id 549236 --db ~/.merakiops/inventory.db --history 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.orgID = firstNonEmpty(opts.orgID, currentSettings().DefaultOrgID)
			if opts.orgID == "" {
				return util.NewConfigError("--org-id", "required (or run 'merakiops settings set default_org_id <id>')")
			}
			if opts.history > 0 {
				if opts.dbPath == "" {
					return util.NewConfigError("--history", "requires --db")
				}
				return showHistory(os.Stdout, opts.dbPath, opts.orgID, opts.history)
			}
			if !opts.writeCSV && !opts.writeJSON {
				opts.writeCSV = true
			}
			h.MinPortNumber = opts.minSFPPort
			h.MaxCapabilities = opts.maxCaps

			client, err := newClient()
			if err != nil {
				return err
			}
			dir, err := outDir(opts.outDir)
			if err != nil {
				return err
			}
			return runSFPInventory(commandContext(cmd), client, opts, h, dir)
		},
	}

	cmd.Flags().StringVar(&opts.orgID, "org-id", "", "organization ID (default: settings default_org_id)")
	cmd.Flags().BoolVar(&opts.writeCSV, "csv", false, "write the CSV report (default when neither --csv nor --json)")
	cmd.Flags().BoolVar(&opts.writeJSON, "json", false, "write the JSON report")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite database for run history and deltas")
	cmd.Flags().IntVar(&opts.history, "history", 0, "list the newest N stored runs instead of scanning (requires --db)")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "output directory (default: settings out_dir or .)")
	cmd.Flags().IntVar(&opts.minSFPPort, "min-sfp-port", h.MinPortNumber, "ports numbered at or above this are treated as SFP")
	cmd.Flags().IntVar(&opts.maxCaps, "max-capabilities", h.MaxCapabilities, "ports advertising at most this many link speeds may be SFP")
	return cmd
}

func runSFPInventory(ctx context.Context, client *dashboard.Client, opts sfpOptions, h sfp.Heuristic, dir string) error {
	switches, err := orgSwitches(ctx, client, opts.orgID)
	if err != nil {
		return err
	}
	if len(switches) == 0 {
		return fmt.Errorf("organization %s: no switches found: %w", opts.orgID, util.ErrNotFound)
	}
	fmt.Printf("Scanning %d switches in organization %s\n", len(switches), opts.orgID)

	started := time.Now()
	progress := cli.NewProgress(len(switches))
	var (
		scanned []*sfp.Switch
		mods    []sfp.Module
	)
	for _, dev := range switches {
		sw := sfp.Scan(ctx, client, dev, h)
		progress.Step()
		fmt.Printf("  %s %s %d SFP\n", cli.Dim(progress.String()), cli.DotPad(sw.Info.Name, 30), sw.Count)
		if sw.Count > 0 {
			scanned = append(scanned, sw)
			mods = append(mods, sw.Modules()...)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Printf("%s %d switches scanned, %d with SFP modules, %d modules total\n",
		cli.Bold("Totals:"), len(switches), len(scanned), len(mods))
	if len(mods) > 0 {
		t := cli.NewTable("SPEED", "MODULES").WithPrefix("  ")
		for _, sc := range sfp.SpeedTotals(mods) {
			t.Row(sc.Speed, fmt.Sprintf("%d", sc.Count))
		}
		t.Flush()
	}

	stamp := started.Format("20060102_150405")
	base := fmt.Sprintf("org_%s_sfp_inventory_%s", opts.orgID, stamp)
	if opts.writeCSV {
		if len(mods) == 0 {
			fmt.Println("No SFP modules found; CSV not written")
		} else {
			path := outPath(dir, base+".csv")
			if err := csvtable.Write(path, sfp.Rows(mods)); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", cli.Green("wrote"), path)
		}
	}
	if opts.writeJSON {
		data, err := sfp.MarshalReport(scanned)
		if err != nil {
			return fmt.Errorf("encoding JSON report: %w", err)
		}
		path := outPath(dir, base+".json")
		if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("%s %s\n", cli.Green("wrote"), path)
	}

	if opts.dbPath != "" {
		return recordSnapshot(opts, started, len(switches), mods)
	}
	return nil
}

// orgSwitches lists every network of the organization and returns its
// switch-like devices, tagged with their network name. A network whose
// device listing fails is logged and skipped.
func orgSwitches(ctx context.Context, client *dashboard.Client, orgID string) ([]dashboard.Device, error) {
	networks, err := client.OrganizationNetworks(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing networks of %s: %w", orgID, err)
	}

	var out []dashboard.Device
	for _, n := range networks {
		devices, err := client.NetworkDevices(ctx, n.ID)
		if err != nil {
			util.WithField("network", n.ID).Warnf("listing devices failed: %v", err)
			continue
		}
		for _, d := range sfp.FilterSwitches(devices) {
			d.NetworkName = n.Name
			if d.NetworkID == "" {
				d.NetworkID = n.ID
			}
			out = append(out, d)
		}
	}
	return out, nil
}

func recordSnapshot(opts sfpOptions, takenAt time.Time, switchCount int, mods []sfp.Module) error {
	store, err := inventory.Open(opts.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.Save(opts.orgID, takenAt, switchCount, mods)
	if err != nil {
		return err
	}
	prev, err := store.Previous(opts.orgID, snap.ID)
	if err != nil {
		return err
	}
	fmt.Println()
	if prev == nil {
		fmt.Printf("Stored snapshot %d (first for organization %s)\n", snap.ID, opts.orgID)
		return nil
	}

	d := inventory.Diff(prev.Modules, snap.Modules)
	fmt.Printf("Stored snapshot %d; changes since %s:\n", snap.ID, prev.TakenAt.Local().Format("2006-01-02 15:04:05"))
	if d.Empty() {
		fmt.Println("  no changes")
		return nil
	}
	t := cli.NewTable("CHANGE", "SWITCH", "PORT", "MODULE", "SPEED").WithPrefix("  ")
	for _, m := range d.Added {
		t.Row(cli.Green("added"), m.SwitchName, m.PortID, m.ModuleType, m.Speed)
	}
	for _, m := range d.Removed {
		t.Row(cli.Red("removed"), m.SwitchName, m.PortID, m.ModuleType, m.Speed)
	}
	for _, c := range d.Changed {
		t.Row(cli.Yellow("changed"), c.After.SwitchName, c.After.PortID,
			c.Before.ModuleType+" -> "+c.After.ModuleType, c.Before.Speed+" -> "+c.After.Speed)
	}
	t.Flush()
	return nil
}

// showHistory prints the newest stored runs for orgID.
func showHistory(w io.Writer, dbPath, orgID string, limit int) error {
	store, err := inventory.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	snaps, err := store.Snapshots(orgID, limit)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintf(w, "No stored runs for organization %s\n", orgID)
		return nil
	}
	t := cli.NewTableTo(w, "RUN", "TAKEN", "SWITCHES", "MODULES")
	for _, s := range snaps {
		t.Row(fmt.Sprintf("%d", s.ID), s.TakenAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", s.SwitchCount), fmt.Sprintf("%d", s.ModuleCount))
	}
	t.Flush()
	return nil
}
