// Package clean handles the clean command
package clean

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"jamledger/stmt-ingest/cmd/root"
	"jamledger/stmt-ingest/internal/currencyutils"
	"jamledger/stmt-ingest/internal/statement"

	"github.com/spf13/cobra"
)

// Cmd represents the clean command
var Cmd = &cobra.Command{
	Use:   "clean",
	Short: "Convert a statement to the cleaned CSV format",
	Long: `Extract the transaction table of a PDF statement, or read a raw CSV export, and write
the cleaned Date,Description,Amount,Type,Balance CSV together with summary statistics.`,
	RunE: cleanFunc,
}

func cleanFunc(cmd *cobra.Command, args []string) error {
	input, err := root.RequireInput()
	if err != nil {
		return err
	}
	output, err := root.RequireOutput()
	if err != nil {
		return err
	}
	c := root.GetContainer()
	cleaner := c.GetCleaner()

	var stats statement.Stats
	switch strings.ToLower(filepath.Ext(input)) {
	case ".pdf":
		raw, err := c.GetExtractor().ExtractRows(cmd.Context(), input)
		if err != nil {
			return err
		}
		rows, s := cleaner.Clean(raw)
		if err := statement.WriteCleanedCSVFile(output, rows); err != nil {
			return err
		}
		stats = s
	default:
		if stats, err = statement.CleanFile(input, output, cleaner); err != nil {
			return err
		}
	}

	PrintStats(cmd.OutOrStdout(), stats, cleaner.Normalizer)
	fmt.Fprintf(cmd.OutOrStdout(), "Cleaned CSV written to %s\n", output)
	return nil
}

// PrintStats writes the cleaning summary.
func PrintStats(w io.Writer, s statement.Stats, n currencyutils.Normalizer) {
	fmt.Fprintf(w, "Valid transactions: %d\n", s.ValidTransactions)
	fmt.Fprintf(w, "Total credits:      %s\n", n.Format(s.TotalCredits))
	fmt.Fprintf(w, "Total debits:       %s\n", n.Format(s.TotalDebits))
	fmt.Fprintf(w, "Net amount:         %s\n", n.Format(s.NetAmount))
	fmt.Fprintf(w, "Skipped rows:       %d\n", s.SkippedRows)
	fmt.Fprintf(w, "Cleaned rows:       %d\n", s.CleanedRows)
}
