package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/config"
)

func newInitCommand(configPath *string) *cobra.Command {
	var transportKind string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config and prepare directories and the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, *configPath, transportKind, force)
		},
	}

	cmd.Flags().StringVar(&transportKind, "transport", config.TransportSFTP, "transport kind (sftp or dir)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")

	return cmd
}

func runInit(cmd *cobra.Command, path, transportKind string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	cfg.Transport.Kind = transportKind
	if err := cfg.Validate(); err != nil {
		return err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	base := filepath.Dir(absPath)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", base, err)
	}
	if err := config.Save(absPath, cfg); err != nil {
		return err
	}

	cfg.Resolve(base)
	dirs := []string{
		cfg.Paths.Staging,
		cfg.Paths.Upload,
		cfg.Paths.Batch,
		filepath.Dir(cfg.Paths.ImportLog),
	}
	if cfg.Transport.Kind == config.TransportDir {
		dirs = append(dirs,
			filepath.Join(cfg.Transport.Root, filepath.FromSlash(cfg.Transport.RemoteDir)),
			filepath.Join(cfg.Transport.Root, filepath.FromSlash(cfg.Transport.QuarantineDir)),
		)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	st, err := openStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	printf(cmd, "Initialized recon at %s\n", base)
	return nil
}
