package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newTransactionsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "View and import ledger transactions",
	}

	cmd.AddCommand(newTransactionsListCmd(app), newTransactionsUploadCmd(app))

	return cmd
}

func newTransactionsListCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions (cached unless --refresh)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			transactions, err := app.service.Transactions(cmd.Context(), force)
			if err != nil {
				return err
			}
			return writeJSON(cmd, transactions)
		},
	}

	cmd.Flags().BoolVar(&force, "refresh", false, "Bypass the cache and fetch from the server")

	return cmd
}

func newTransactionsUploadCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a transaction export for import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open export file: %w", err)
			}
			defer f.Close()

			imported, err := app.service.UploadTransactions(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d transactions\n", imported)
			return err
		},
	}
}
