// Package extract handles the extract command
package extract

import (
	"fmt"

	"jamledger/stmt-ingest/cmd/root"
	"jamledger/stmt-ingest/internal/pdfparser"

	"github.com/spf13/cobra"
)

// Cmd represents the extract command
var Cmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the raw transaction table of a PDF statement",
	Long:  `Extract the reconciled transaction rows of a PDF statement into a raw CSV, without cleaning.`,
	RunE:  extractFunc,
}

func extractFunc(cmd *cobra.Command, args []string) error {
	input, err := root.RequireInput()
	if err != nil {
		return err
	}
	output, err := root.RequireOutput()
	if err != nil {
		return err
	}

	rows, err := root.GetContainer().GetExtractor().ExtractRows(cmd.Context(), input)
	if err != nil {
		return err
	}
	if err := pdfparser.WriteRawCSVFile(output, rows); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d rows to %s\n", len(rows), output)
	return nil
}
