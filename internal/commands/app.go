package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cleared-dev/recon/internal/config"
	"github.com/cleared-dev/recon/internal/importer"
	"github.com/cleared-dev/recon/internal/logging"
	"github.com/cleared-dev/recon/internal/notify"
	"github.com/cleared-dev/recon/internal/store"
	"github.com/cleared-dev/recon/internal/transport"
)

var _ importer.Store = (*store.Store)(nil)

// app holds what every command needs after loading the config.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.Store
}

// loadApp loads the config at path, resolves its relative paths against the
// config directory, builds the logger and opens the store.
func loadApp(path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	cfg.Resolve(filepath.Dir(absPath))

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, store: st}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store", zap.Error(err))
	}
	_ = a.log.Sync()
}

func openStore(path string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return st, nil
}

func (a *app) importer() *importer.Importer {
	return importer.New(a.store, importer.Config{
		BatchDir:      a.cfg.Paths.Batch,
		Discriminator: a.cfg.Batch.Discriminator,
		Header:        a.cfg.Batch.Header,
		Charset:       a.cfg.Import.Charset,
		MaxAttempts:   a.cfg.Import.MaxAttempts,
	}, a.log.Named("importer"))
}

func openTransport(ctx context.Context, cfg config.TransportConfig) (transport.Transport, error) {
	switch cfg.Kind {
	case config.TransportDir:
		return transport.NewDir(cfg.Root), nil
	default:
		return transport.Dial(ctx, transport.SFTPConfig{
			Address:               cfg.Address,
			User:                  cfg.User,
			KeyFile:               cfg.KeyFile,
			KnownHostsFile:        cfg.KnownHostsFile,
			InsecureIgnoreHostKey: cfg.InsecureIgnoreHostKey,
			Timeout:               cfg.Timeout,
		})
	}
}

// openNotifier builds the configured notifier. The returned close function
// is never nil.
func openNotifier(cfg config.NotifyConfig, log *zap.Logger) (notify.Notifier, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Kind {
	case config.NotifySMTP:
		n, err := notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			To:       cfg.SMTP.To,
		})
		if err != nil {
			return nil, noop, err
		}
		return n, noop, nil
	case config.NotifyAMQP:
		n, err := notify.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey)
		if err != nil {
			return nil, noop, err
		}
		return n, n.Close, nil
	default:
		return notify.NewLog(log), noop, nil
	}
}
