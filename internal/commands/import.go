package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/id"
	"github.com/cleared-dev/recon/internal/importer"
	"github.com/cleared-dev/recon/internal/importlog"
)

func newImportCommand(configPath *string) *cobra.Command {
	var validateOnly bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a local transaction file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, *configPath, args[0], validateOnly)
		},
	}

	cmd.Flags().BoolVar(&validateOnly, "validate-only", false, "check the file without storing anything")

	return cmd
}

func runImport(cmd *cobra.Command, configPath, file string, validateOnly bool) error {
	a, err := loadApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	out := a.importer().ImportFile(cmd.Context(), file, validateOnly)
	now := nowFunc()
	status := importer.Report(a.log, out, now)

	if !validateOnly {
		entry := importlog.Entry{
			Timestamp: now,
			RunID:     id.NewRunID(),
			File:      out.File,
			Imported:  len(out.Imported),
			Errors:    len(out.Errors),
			BatchFile: out.BatchFile,
			Status:    status,
		}
		if err := importlog.Append(a.cfg.Paths.ImportLog, entry); err != nil {
			return err
		}
	}

	printf(cmd, "%s\n", status)
	if out.BatchFile != "" {
		printf(cmd, "Batch document: %s\n", out.BatchFile)
	}
	if !out.OK() {
		return fmt.Errorf("import of %s failed", out.File)
	}
	return nil
}
