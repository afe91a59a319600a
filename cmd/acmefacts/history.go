package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/acmefacts/internal"
)

var historyCmd = &cobra.Command{
	Use:   "history [identifier]",
	Short: "Show recorded scans from the inventory",
	Long:  "List the scans recorded with --db, or, given an identifier, every stored version of that certificate. A changed fingerprint marks a renewal.",
	Example: `  acmefacts history --db inventory.db
  acmefacts history example.com --db inventory.db`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: identifierCompletion,
	RunE:              runHistory,
}

func init() {
	// read through cfg.Database by applyFlagOverrides
	historyCmd.Flags().StringP("db", "d", "", "SQLite inventory to read")
	registerCompletion(historyCmd, completionInput{"db", fileCompletion})
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.Database == "" {
		return errors.New("no inventory: pass --db or set database in the config file")
	}
	db, err := internal.OpenInventory(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	if len(args) == 0 {
		scans, err := db.GetScans()
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "SCAN ID\tSCANNED AT\tDIRECTORY\tRECORDS")
		for _, s := range scans {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.ScanID, s.ScannedAt.Format(time.RFC3339), s.Directory, s.RecordCount)
		}
		return tw.Flush()
	}

	rows, err := db.History(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no history for %q in %s", args[0], cfg.Database)
	}
	fmt.Fprintln(tw, "SCAN ID\tCN\tSERIAL\tEXPIRY\tSHA-256")
	for i, r := range rows {
		mark := ""
		if i > 0 && rows[i-1].Fingerprint != r.Fingerprint {
			mark = "  (renewed)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%s\n", r.ScanID, r.CommonName.String, r.SerialNumber, r.Expiry.Format("2006-01-02"), r.Fingerprint, mark)
	}
	return tw.Flush()
}
