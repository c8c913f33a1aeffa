package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/store"
)

func newAccountsCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "seed <csv>",
		Short: "Create or update accounts from a CSV file (account_no,holder_name,bank_code)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountsSeed(cmd, *configPath, args[0])
		},
	})
	return cmd
}

func runAccountsSeed(cmd *cobra.Command, configPath, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("opening accounts file: %w", err)
	}
	defer f.Close()

	accounts, err := store.ReadAccounts(f)
	if err != nil {
		return err
	}

	a, err := loadApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.UpsertAccounts(cmd.Context(), accounts); err != nil {
		return err
	}
	printf(cmd, "Seeded %d accounts\n", len(accounts))
	return nil
}
