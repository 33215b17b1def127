// Package train handles the classifier training command
package train

import (
	"fmt"
	"os"

	"jamledger/stmt-ingest/cmd/root"
	"jamledger/stmt-ingest/internal/categorizer"
	"jamledger/stmt-ingest/internal/logging"

	"github.com/spf13/cobra"
)

// Cmd represents the train command
var Cmd = &cobra.Command{
	Use:   "train",
	Short: "Train the category classifier",
	Long: `Train the category classifier from a labelled CSV with the columns
Description, Amount, Type and Category, and write it to --output (default: model.path).`,
	RunE: trainFunc,
}

func trainFunc(cmd *cobra.Command, args []string) error {
	input, err := root.RequireInput()
	if err != nil {
		return err
	}
	output := root.SharedFlags.Output
	if output == "" {
		output = root.GetContainer().GetConfig().Model.Path
	}

	f, err := os.Open(input) // #nosec G304 -- input path is chosen by the operator
	if err != nil {
		return fmt.Errorf("error opening training file: %w", err)
	}
	defer func() { _ = f.Close() }()

	examples, err := categorizer.ReadTrainingCSV(f)
	if err != nil {
		return err
	}
	model, err := categorizer.TrainModel(examples)
	if err != nil {
		return err
	}
	if err := model.Save(output); err != nil {
		return err
	}

	labels := model.Labels()
	root.GetLogger().Info("Trained classifier",
		logging.Field{Key: logging.FieldCount, Value: len(examples)},
		logging.Field{Key: logging.FieldOutputFile, Value: output})
	fmt.Fprintf(cmd.OutOrStdout(), "Trained on %d examples, %d categories; model written to %s\n",
		len(examples), len(labels), output)
	return nil
}
