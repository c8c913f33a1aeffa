package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/buildinfo"
	"github.com/cleared-dev/recon/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "recon",
		Short:   "Import transaction files into accounts and direct-debit batches",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.FileName, "path to the config file")

	rootCmd.AddCommand(
		newInitCommand(&configPath),
		newRunCommand(&configPath),
		newImportCommand(&configPath),
		newAccountsCommand(&configPath),
		newHistoryCommand(&configPath),
	)

	return rootCmd
}

var nowFunc = time.Now

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
