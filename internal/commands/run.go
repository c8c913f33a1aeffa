package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/recon/internal/notify"
	"github.com/cleared-dev/recon/internal/runner"
)

func newRunCommand(configPath *string) *cobra.Command {
	var noNotify bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch ready files from the remote drop area and import them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportRun(cmd, *configPath, noNotify)
		},
	}

	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "do not send notifications")

	return cmd
}

func runImportRun(cmd *cobra.Command, configPath string, noNotify bool) error {
	ctx := cmd.Context()

	a, err := loadApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	tr, err := openTransport(ctx, a.cfg.Transport)
	if err != nil {
		return err
	}
	defer func() {
		if err := tr.Close(); err != nil {
			a.log.Warn("closing transport", zap.Error(err))
		}
	}()

	var n notify.Notifier
	if a.cfg.Notify.Enabled && !noNotify {
		notifier, closeNotifier, err := openNotifier(a.cfg.Notify, a.log.Named("notify"))
		if err != nil {
			return err
		}
		defer closeNotifier()
		n = notifier
	}

	r := runner.New(tr, a.importer(), n, runner.Options{
		RemoteDir:     a.cfg.Transport.RemoteDir,
		QuarantineDir: a.cfg.Transport.QuarantineDir,
		StagingDir:    a.cfg.Paths.Staging,
		UploadDir:     a.cfg.Paths.Upload,
		Extension:     a.cfg.Import.Extension,
		MarkerSuffix:  a.cfg.Transport.MarkerSuffix,
		RemoveRemote:  a.cfg.Transport.RemoveProcessed,
		ImportLog:     a.cfg.Paths.ImportLog,
	}, a.log.Named("runner"))

	sum, err := r.Run(ctx)
	for _, f := range sum.Files {
		printf(cmd, "%s: %s\n", f.Name, f.Status)
	}
	if err != nil {
		return err
	}
	if len(sum.Files) == 0 {
		printf(cmd, "No files to import\n")
	}
	if sum.Halted {
		last := sum.Files[len(sum.Files)-1]
		return fmt.Errorf("import run halted at %s", last.Name)
	}
	return nil
}
