// Package config loads recon.yaml. Every key can be overridden by an
// environment variable: transport.address becomes RECON_TRANSPORT_ADDRESS.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/recon/internal/batch"
)

// FileName is the default config file name.
const FileName = "recon.yaml"

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "RECON"

// Transport kinds.
const (
	TransportSFTP = "sftp"
	TransportDir  = "dir"
)

// Notifier kinds.
const (
	NotifyLog  = "log"
	NotifySMTP = "smtp"
	NotifyAMQP = "amqp"
)

// Config represents the top-level recon.yaml configuration.
type Config struct {
	Transport TransportConfig `yaml:"transport" mapstructure:"transport"`
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Import    ImportConfig    `yaml:"import" mapstructure:"import"`
	Notify    NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// TransportConfig locates the remote drop area.
type TransportConfig struct {
	Kind                  string        `yaml:"kind" mapstructure:"kind"` // sftp or dir
	Address               string        `yaml:"address" mapstructure:"address"`
	User                  string        `yaml:"user" mapstructure:"user"`
	KeyFile               string        `yaml:"key_file" mapstructure:"key_file"`
	KnownHostsFile        string        `yaml:"known_hosts_file" mapstructure:"known_hosts_file"`
	InsecureIgnoreHostKey bool          `yaml:"insecure_ignore_host_key" mapstructure:"insecure_ignore_host_key"`
	Timeout               time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Root                  string        `yaml:"root" mapstructure:"root"` // local root for kind dir
	RemoteDir             string        `yaml:"remote_dir" mapstructure:"remote_dir"`
	QuarantineDir         string        `yaml:"quarantine_dir" mapstructure:"quarantine_dir"`
	MarkerSuffix          string        `yaml:"marker_suffix" mapstructure:"marker_suffix"`
	RemoveProcessed       bool          `yaml:"remove_processed" mapstructure:"remove_processed"`
}

// PathsConfig holds local working directories.
type PathsConfig struct {
	Staging   string `yaml:"staging" mapstructure:"staging"`
	Upload    string `yaml:"upload" mapstructure:"upload"`
	Batch     string `yaml:"batch" mapstructure:"batch"`
	ImportLog string `yaml:"import_log" mapstructure:"import_log"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BatchConfig describes the direct-debit batch document.
type BatchConfig struct {
	Discriminator string       `yaml:"discriminator" mapstructure:"discriminator"`
	Header        batch.Header `yaml:"header" mapstructure:"header"`
}

// ImportConfig controls file parsing and row retries.
type ImportConfig struct {
	Extension   string `yaml:"extension" mapstructure:"extension"`
	Charset     string `yaml:"charset" mapstructure:"charset"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// NotifyConfig selects how operators are told about results.
type NotifyConfig struct {
	Enabled bool       `yaml:"enabled" mapstructure:"enabled"`
	Kind    string     `yaml:"kind" mapstructure:"kind"` // log, smtp or amqp
	SMTP    SMTPConfig `yaml:"smtp" mapstructure:"smtp"`
	AMQP    AMQPConfig `yaml:"amqp" mapstructure:"amqp"`
}

// SMTPConfig holds mail relay settings.
type SMTPConfig struct {
	Host     string   `yaml:"host" mapstructure:"host"`
	Port     int      `yaml:"port" mapstructure:"port"`
	Username string   `yaml:"username" mapstructure:"username"`
	Password string   `yaml:"password" mapstructure:"password"`
	From     string   `yaml:"from" mapstructure:"from"`
	To       []string `yaml:"to" mapstructure:"to"`
}

// AMQPConfig holds broker settings.
type AMQPConfig struct {
	URL        string `yaml:"url" mapstructure:"url"`
	Exchange   string `yaml:"exchange" mapstructure:"exchange"`
	RoutingKey string `yaml:"routing_key" mapstructure:"routing_key"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// Load reads a recon.yaml file from disk and applies environment overrides.
// Keys missing from the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so that environment overrides apply
// even when the file omits the key.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("transport.kind", d.Transport.Kind)
	v.SetDefault("transport.address", d.Transport.Address)
	v.SetDefault("transport.user", d.Transport.User)
	v.SetDefault("transport.key_file", d.Transport.KeyFile)
	v.SetDefault("transport.known_hosts_file", d.Transport.KnownHostsFile)
	v.SetDefault("transport.insecure_ignore_host_key", d.Transport.InsecureIgnoreHostKey)
	v.SetDefault("transport.timeout", d.Transport.Timeout)
	v.SetDefault("transport.root", d.Transport.Root)
	v.SetDefault("transport.remote_dir", d.Transport.RemoteDir)
	v.SetDefault("transport.quarantine_dir", d.Transport.QuarantineDir)
	v.SetDefault("transport.marker_suffix", d.Transport.MarkerSuffix)
	v.SetDefault("transport.remove_processed", d.Transport.RemoveProcessed)

	v.SetDefault("paths.staging", d.Paths.Staging)
	v.SetDefault("paths.upload", d.Paths.Upload)
	v.SetDefault("paths.batch", d.Paths.Batch)
	v.SetDefault("paths.import_log", d.Paths.ImportLog)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("batch.discriminator", d.Batch.Discriminator)
	v.SetDefault("batch.header.kind", d.Batch.Header.Kind)
	v.SetDefault("batch.header.account_no", d.Batch.Header.AccountNo)
	v.SetDefault("batch.header.bank_code", d.Batch.Header.BankCode)
	v.SetDefault("batch.header.name", d.Batch.Header.Name)

	v.SetDefault("import.extension", d.Import.Extension)
	v.SetDefault("import.charset", d.Import.Charset)
	v.SetDefault("import.max_attempts", d.Import.MaxAttempts)

	v.SetDefault("notify.enabled", d.Notify.Enabled)
	v.SetDefault("notify.kind", d.Notify.Kind)
	v.SetDefault("notify.smtp.host", d.Notify.SMTP.Host)
	v.SetDefault("notify.smtp.port", d.Notify.SMTP.Port)
	v.SetDefault("notify.smtp.username", d.Notify.SMTP.Username)
	v.SetDefault("notify.smtp.password", d.Notify.SMTP.Password)
	v.SetDefault("notify.smtp.from", d.Notify.SMTP.From)
	v.SetDefault("notify.smtp.to", d.Notify.SMTP.To)
	v.SetDefault("notify.amqp.url", d.Notify.AMQP.URL)
	v.SetDefault("notify.amqp.exchange", d.Notify.AMQP.Exchange)
	v.SetDefault("notify.amqp.routing_key", d.Notify.AMQP.RoutingKey)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Validate checks the values that select an implementation.
func (c *Config) Validate() error {
	switch c.Transport.Kind {
	case TransportSFTP, TransportDir:
	default:
		return fmt.Errorf("config: unknown transport kind %q", c.Transport.Kind)
	}
	switch c.Notify.Kind {
	case NotifyLog, NotifySMTP, NotifyAMQP:
	default:
		return fmt.Errorf("config: unknown notify kind %q", c.Notify.Kind)
	}
	if c.Import.MaxAttempts < 1 {
		return fmt.Errorf("config: import.max_attempts must be at least 1, got %d", c.Import.MaxAttempts)
	}
	return nil
}

// Resolve makes every relative local path absolute against base, normally
// the directory holding the config file.
func (c *Config) Resolve(base string) {
	paths := []*string{
		&c.Transport.KeyFile,
		&c.Transport.KnownHostsFile,
		&c.Transport.Root,
		&c.Paths.Staging,
		&c.Paths.Upload,
		&c.Paths.Batch,
		&c.Paths.ImportLog,
		&c.Database.Path,
	}
	for _, p := range paths {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new installation.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Kind:           TransportSFTP,
			Address:        "0.0.0.0:2020",
			User:           "recon",
			KeyFile:        "keys/id_ed25519",
			KnownHostsFile: "keys/known_hosts",
			Timeout:        30 * time.Second,
			Root:           "remote",
			RemoteDir:      "/data/files/csv",
			QuarantineDir:  "/data/files/batch_processed",
			MarkerSuffix:   ".start",
		},
		Paths: PathsConfig{
			Staging:   "data/download",
			Upload:    "data/upload",
			Batch:     "upload/csv",
			ImportLog: "logs/import-log.csv",
		},
		Database: DatabaseConfig{
			Path: "data/recon.db",
		},
		Batch: BatchConfig{
			Discriminator: "201",
			Header: batch.Header{
				Kind:      "RS",
				AccountNo: "8888888888",
				BankCode:  "99999999",
				Name:      "Credit collection",
			},
		},
		Import: ImportConfig{
			Extension:   ".csv",
			Charset:     "utf-8",
			MaxAttempts: 5,
		},
		Notify: NotifyConfig{
			Enabled: true,
			Kind:    NotifyLog,
			SMTP: SMTPConfig{
				Port: 25,
			},
			AMQP: AMQPConfig{
				Exchange:   "recon",
				RoutingKey: "recon.import",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
