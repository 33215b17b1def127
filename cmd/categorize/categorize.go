// Package categorize handles transaction categorization commands
package categorize

import (
	"fmt"

	"jamledger/stmt-ingest/cmd/root"
	"jamledger/stmt-ingest/internal/currencyutils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	userID      string
	description string
	amount      string
	income      bool
)

// Cmd represents the categorize command
var Cmd = &cobra.Command{
	Use:   "categorize",
	Short: "Categorize a single transaction",
	Long: `Categorize a single transaction for a user and show which category was chosen and how:
an exact or partial match of the classifier's label, or the default category.`,
	RunE: categorizeFunc,
}

func init() {
	Cmd.Flags().StringVarP(&userID, "user", "u", "", "User id (UUID)")
	Cmd.Flags().StringVarP(&description, "description", "d", "", "Transaction description")
	Cmd.Flags().StringVarP(&amount, "amount", "a", "", "Transaction amount, e.g. J$1,250.00 (optional)")
	Cmd.Flags().BoolVar(&income, "income", false, "Treat the transaction as a credit")
	_ = Cmd.MarkFlagRequired("user")
	_ = Cmd.MarkFlagRequired("description")
}

func categorizeFunc(cmd *cobra.Command, args []string) error {
	user, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid --user: %w", err)
	}
	value := decimal.Zero
	if amount != "" {
		parsed, ok := currencyutils.NewNormalizer(root.GetContainer().GetConfig().Currency.Marker).Parse(amount)
		if !ok {
			return fmt.Errorf("invalid --amount %q", amount)
		}
		value = parsed
	}

	predictor, err := root.GetContainer().GetPredictor()
	if err != nil {
		return err
	}
	d, err := predictor.Explain(cmd.Context(), user, description, value, income)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Category: %s\n", d.Category.Name)
	fmt.Fprintf(out, "Category id: %s\n", d.Category.ID)
	fmt.Fprintf(out, "Strategy: %s\n", d.Strategy)
	if !predictor.HasModel() {
		fmt.Fprintln(out, "Classifier: not loaded")
	}
	if d.Label != "" {
		fmt.Fprintf(out, "Predicted label: %s\n", d.Label)
	}
	return nil
}
