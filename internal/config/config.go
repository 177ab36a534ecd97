// Package config loads the operational configuration that controls how runs
// execute: paths, concurrency, retry budget, workflow engine and transport
// settings. This is distinct from the device configuration tree, which the
// inventory package owns.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	// BasePath is the root of the public configuration tree holding
	// config/devices.yaml, the hierarchical config layers and the templates.
	BasePath string `toml:"base_path"`
	// PrivateBasePath optionally holds a second tree for secrets.
	PrivateBasePath string `toml:"private_base_path"`
	// DataSource names the external per-device data source. Empty disables it.
	DataSource string `toml:"data_source"`

	// MaxAttempts bounds commit attempts per device, timeouts included.
	MaxAttempts int `toml:"max_attempts"`
	// Concurrency is the number of devices worked on at once.
	Concurrency int  `toml:"concurrency"`
	RedactDiff  bool `toml:"redact_diff"`

	// Engine selects the workflow engine: sync, goworkflows or dbos.
	Engine string `toml:"engine"`
	// DBPath is the sqlite database for run history and, with the
	// goworkflows engine, its workflow state.
	DBPath string `toml:"db_path"`
	// DBOSDatabaseURL is the Postgres URL required by the dbos engine.
	DBOSDatabaseURL string `toml:"dbos_database_url"`

	Transport TransportConfig `toml:"transport"`
}

type TransportConfig struct {
	Username string `toml:"username"`
	// KeyFile is the path to the SSH private key used to authenticate.
	KeyFile string `toml:"key_file"`
	Port    int    `toml:"port"`
	// Timeout bounds each device operation.
	Timeout duration `toml:"timeout"`
}

// duration lets TOML carry values like "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 10
	}
	if cfg.Engine == "" {
		cfg.Engine = "sync"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "homer.db"
	}
	if cfg.Transport.Port == 0 {
		cfg.Transport.Port = 22
	}
	if cfg.Transport.Timeout.Duration == 0 {
		cfg.Transport.Timeout.Duration = 30 * time.Second
	}
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.BasePath) == "" {
		return fmt.Errorf("config missing base_path")
	}
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", cfg.MaxAttempts)
	}
	if cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
	}
	switch cfg.Engine {
	case "sync", "goworkflows":
	case "dbos":
		if strings.TrimSpace(cfg.DBOSDatabaseURL) == "" {
			return fmt.Errorf("dbos engine requires dbos_database_url")
		}
	default:
		return fmt.Errorf("unknown engine %q", cfg.Engine)
	}
	return nil
}
