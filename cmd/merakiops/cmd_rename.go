package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/merakiops/pkg/audit"
	"github.com/newtron-network/merakiops/pkg/csvtable"
	"github.com/newtron-network/merakiops/pkg/dashboard"
	"github.com/newtron-network/merakiops/pkg/mutate"
	"github.com/newtron-network/merakiops/pkg/util"
)

// Default rename CSV columns.
const (
	defaultSerialColumn = "Serial-Number"
	defaultNameColumn   = "WAP-Name"
)

// renameTarget is one device to rename.
type renameTarget struct {
	Serial string
	Name   string
}

// renameTargets reads the serial and name columns of each row. Serials are
// upper-cased; rows without a serial were already dropped by Read.
func renameTargets(rows []*csvtable.Row, serialCol, nameCol string) []renameTarget {
	out := make([]renameTarget, 0, len(rows))
	for _, r := range rows {
		serial, _ := r.Get(serialCol)
		name, _ := r.Get(nameCol)
		out = append(out, renameTarget{
			Serial: strings.ToUpper(strings.TrimSpace(serial)),
			Name:   strings.TrimSpace(name),
		})
	}
	return out
}

func newRenameCmd() *cobra.Command {
	var (
		csvPath   string
		serialCol string
		nameCol   string
		apply     bool
		delay     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "rename-devices",
		Short: "Rename devices from a CSV of serials and names",
		Long: `Rename devices listed in a CSV. Each row's serial column identifies the
device and its name column holds the new name; other columns are ignored.

Examples:
  merakiops rename-devices --csv aps.csv
  merakiops rename-devices --csv aps.csv --serial-column Serial --name-column Name --apply`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var vb util.ValidationBuilder
			vb.Add(csvPath != "", "--csv is required").
				Add(strings.TrimSpace(serialCol) != "", "--serial-column must not be empty").
				Add(strings.TrimSpace(nameCol) != "", "--name-column must not be empty")
			if err := vb.Build(); err != nil {
				return err
			}
			table, err := csvtable.Read(csvPath, csvtable.ReadOptions{
				Required: []string{serialCol, nameCol},
				Key:      serialCol,
			})
			if err != nil {
				return err
			}
			targets := renameTargets(table.Rows, serialCol, nameCol)
			if len(targets) == 0 {
				fmt.Println("No device rows found")
				return nil
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			fmt.Printf("Renaming %d devices from %s\n", len(targets), csvPath)
			g := newGate(cmd, apply, delay)
			for _, t := range targets {
				payload := map[string]any{"name": t.Name}
				g.Run(ctx, mutate.Mutation{
					Device:    t.Serial,
					Operation: audit.OpDeviceRename,
					Payload:   payload,
					Call: func(ctx context.Context) *dashboard.Response {
						return client.UpdateDevice(ctx, t.Serial, payload)
					},
				})
			}
			finish(g)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV of devices to rename")
	cmd.Flags().StringVar(&serialCol, "serial-column", defaultSerialColumn, "column holding the device serial")
	cmd.Flags().StringVar(&nameCol, "name-column", defaultNameColumn, "column holding the new name")
	addWriteFlags(cmd, &apply, &delay)
	return cmd
}
