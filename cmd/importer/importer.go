// Package importer handles the import command
package importer

import (
	"fmt"
	"os"
	"sort"

	"jamledger/stmt-ingest/cmd/root"
	"jamledger/stmt-ingest/internal/processor"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	userID string
	kind   string
)

// Cmd represents the import command
var Cmd = &cobra.Command{
	Use:   "import",
	Short: "Import a bank statement",
	Long: `Import a PDF statement or a CSV export for a user. Rows that cannot be read are skipped
and counted; the remaining transactions are categorized and stored in one batch.`,
	RunE: importFunc,
}

func init() {
	Cmd.Flags().StringVarP(&userID, "user", "u", "", "User id (UUID) owning the transactions")
	Cmd.Flags().StringVarP(&kind, "kind", "k", "", "Document kind: pdf or csv (default: from the file extension)")
	_ = Cmd.MarkFlagRequired("user")
}

func importFunc(cmd *cobra.Command, args []string) error {
	input, err := root.RequireInput()
	if err != nil {
		return err
	}
	user, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid --user: %w", err)
	}

	p, err := root.GetContainer().GetProcessor()
	if err != nil {
		return err
	}

	var res processor.Result
	if kind == "" {
		res, err = p.ProcessFile(cmd.Context(), user, input)
	} else {
		var k processor.DocumentKind
		if k, err = processor.ParseKind(kind); err != nil {
			return err
		}
		f, openErr := os.Open(input) // #nosec G304 -- input path is chosen by the operator
		if openErr != nil {
			return fmt.Errorf("error opening input file: %w", openErr)
		}
		defer func() { _ = f.Close() }()
		res, err = p.Process(cmd.Context(), user, f, k)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Successfully imported %d transactions\n", res.Imported)
	if res.Skipped > 0 {
		fmt.Fprintf(out, "Skipped %d rows:\n", res.Skipped)
		reasons := make([]string, 0, len(res.SkipReasons))
		for r := range res.SkipReasons {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(out, "  %-24s %d\n", r, res.SkipReasons[r])
		}
	}
	fmt.Fprintf(out, "Batch: %s\n", res.BatchID)
	return nil
}
