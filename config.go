package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// MigrationConfig holds the full TOML-driven migration configuration.
type MigrationConfig struct {
	Source        SourceConfig `toml:"source"`
	Target        TargetConfig `toml:"target"`
	Schema        string       `toml:"schema"`
	OnTableExists string       `toml:"on_table_exists"` // error|replace
	BatchSize     int          `toml:"batch_size"`
	Hooks         HooksConfig  `toml:"hooks"`

	// configDir is the directory containing the TOML file, used to resolve
	// relative paths (source database, hook SQL files).
	configDir string
}

// SourceConfig identifies the SQLite database file to migrate from.
type SourceConfig struct {
	Path string `toml:"path"`
}

// TargetConfig holds the PostgreSQL connection parameters. Only these five
// keys are interpreted; anything else belongs in the server's own config.
type TargetConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// DSN builds a PostgreSQL connection URL from the config parameters.
func (t TargetConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", t.Host, t.Port),
		Path:   "/" + t.Database,
	}
	if t.User != "" {
		if t.Password != "" {
			u.User = url.UserPassword(t.User, t.Password)
		} else {
			u.User = url.User(t.User)
		}
	}
	return u.String()
}

type HooksConfig struct {
	BeforeData []string `toml:"before_data"`
	AfterData  []string `toml:"after_data"`
}

const defaultBatchSize = 500

// loadConfig reads a TOML config file and returns a MigrationConfig with
// defaults applied.
func loadConfig(path string) (*MigrationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := MigrationConfig{
		Schema:        "public",
		OnTableExists: "error",
		Target:        TargetConfig{Host: "localhost", Port: 5432},
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	cfg.Schema = strings.TrimSpace(cfg.Schema)
	if cfg.Schema == "" {
		return nil, fmt.Errorf("schema must not be blank")
	}

	switch cfg.OnTableExists {
	case "error", "replace":
	default:
		return nil, fmt.Errorf("on_table_exists must be one of: error, replace")
	}

	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > 10000 {
		return nil, fmt.Errorf("batch_size must be between 1 and 10000")
	}

	if cfg.Source.Path == "" {
		return nil, fmt.Errorf("source.path is required")
	}

	if cfg.Target.Database == "" {
		return nil, fmt.Errorf("target.database is required")
	}
	if cfg.Target.User == "" {
		return nil, fmt.Errorf("target.user is required")
	}
	if cfg.Target.Port < 1 || cfg.Target.Port > 65535 {
		return nil, fmt.Errorf("target.port must be between 1 and 65535")
	}

	return &cfg, nil
}

// resolvePath resolves a path relative to the config file directory.
func (c *MigrationConfig) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}
