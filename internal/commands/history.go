package commands

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/config"
	"github.com/cleared-dev/recon/internal/importlog"
)

func newHistoryCommand(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently imported files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, *configPath, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, configPath string, limit int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	cfg.Resolve(filepath.Dir(absPath))

	entries, err := importlog.Read(cfg.Paths.ImportLog)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printf(cmd, "No imports recorded\n")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tFILE\tIMPORTED\tERRORS\tBATCH\tSTATUS")
	for _, e := range importlog.Last(entries, limit) {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.File, e.Imported, e.Errors, e.BatchFile, e.Status)
	}
	return w.Flush()
}
