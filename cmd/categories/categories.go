// Package categories handles category maintenance commands
package categories

import (
	"fmt"

	"jamledger/stmt-ingest/cmd/root"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var userID string

// Cmd represents the categories command
var Cmd = &cobra.Command{
	Use:   "categories",
	Short: "Manage categories",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the global default categories",
	Long: `Create the global default categories every user can see. The list comes from
categories.defaults_file, or the built-in set when none is configured. Existing categories are kept.`,
	RunE: seedFunc,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the categories visible to a user",
	RunE:  listFunc,
}

func init() {
	listCmd.Flags().StringVarP(&userID, "user", "u", "", "User id (UUID)")
	_ = listCmd.MarkFlagRequired("user")
	Cmd.AddCommand(seedCmd, listCmd)
}

func seedFunc(cmd *cobra.Command, args []string) error {
	created, err := root.GetContainer().SeedDefaultCategories(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %d default categories\n", created)
	return nil
}

func listFunc(cmd *cobra.Command, args []string) error {
	user, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid --user: %w", err)
	}
	s, err := root.GetContainer().GetCategoryStore()
	if err != nil {
		return err
	}
	categories, err := s.ListVisibleCategories(cmd.Context(), user)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, c := range categories {
		scope := "user"
		if c.UserID == nil {
			scope = "global"
		}
		kind := "expense"
		if c.IsIncome {
			kind = "income"
		}
		fmt.Fprintf(out, "%s\t%-7s %-7s %s\n", c.ID, scope, kind, c.Name)
	}
	return nil
}
