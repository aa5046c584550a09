package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

type ServerConfig struct {
	Port           string   `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	SessionTTL     string   `toml:"session_ttl"`
}

type DataConfig struct {
	Source    string `toml:"source"`
	Dir       string `toml:"dir"`
	RulesFile string `toml:"rules_file"`
}

type PostgresConfig struct {
	DSN string `toml:"dsn"`
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Postgres PostgresConfig `toml:"postgres"`
	SQLite   SQLiteConfig   `toml:"sqlite"`
	Memgraph MemgraphConfig `toml:"memgraph"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8001",
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:8501",
				"http://127.0.0.1:3000",
			},
			SessionTTL: "30m",
		},
		Data: DataConfig{
			Source:    SourceCSV,
			Dir:       "csv_files",
			RulesFile: "streamlit_app_data.csv",
		},
	}
}

// Load reads a TOML file over the defaults. Call Validate once env
// overrides have been applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, falling back to defaults when the file is absent
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv overrides file settings with environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		c.Server.SessionTTL = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		c.Data.Source = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("RULES_FILE"); v != "" {
		c.Data.RulesFile = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLite.Path = v
	}
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		c.Memgraph.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Memgraph.Password = v
	}
}

func (c *Config) Validate() error {
	switch c.Data.Source {
	case SourceCSV:
		if c.Data.Dir == "" {
			return errors.New("data.dir is required for the csv source")
		}
	case SourcePostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres source")
		}
	case SourceSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite.path is required for the sqlite source")
		}
	default:
		return fmt.Errorf("unknown data source %q", c.Data.Source)
	}
	if _, err := c.SessionTTLDuration(); err != nil {
		return err
	}
	return nil
}

// SessionTTLDuration parses server.session_ttl; empty or "0" disables expiry
func (c *Config) SessionTTLDuration() (time.Duration, error) {
	if c.Server.SessionTTL == "" || c.Server.SessionTTL == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Server.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid server.session_ttl: %w", err)
	}
	return d, nil
}
