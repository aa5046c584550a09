package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[server]
port = "9000"
session_ttl = "10m"

[data]
source = "sqlite"

[sqlite]
path = "pharma.db"

[memgraph]
uri = "bolt://localhost:7687"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, SourceSQLite, cfg.Data.Source)
	assert.Equal(t, "pharma.db", cfg.SQLite.Path)
	assert.Equal(t, "bolt://localhost:7687", cfg.Memgraph.URI)
	// unset keys keep their defaults
	assert.Equal(t, "csv_files", cfg.Data.Dir)
	assert.Len(t, cfg.Server.AllowedOrigins, 3)

	ttl, err := cfg.SessionTTLDuration()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, ttl)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport = 1"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example,http://b.example")
	t.Setenv("DATA_SOURCE", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/pharma?sslmode=disable")
	t.Setenv("MEMGRAPH_USER", "memgraph")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, SourcePostgres, cfg.Data.Source)
	assert.Equal(t, "memgraph", cfg.Memgraph.User)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Data.Source = "mongo" }},
		{"csv without dir", func(c *Config) { c.Data.Dir = "" }},
		{"postgres without dsn", func(c *Config) { c.Data.Source = SourcePostgres }},
		{"sqlite without path", func(c *Config) { c.Data.Source = SourceSQLite }},
		{"bad ttl", func(c *Config) { c.Server.SessionTTL = "soon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestSessionTTLDisabled(t *testing.T) {
	cfg := Default()
	for _, v := range []string{"", "0"} {
		cfg.Server.SessionTTL = v
		ttl, err := cfg.SessionTTLDuration()
		require.NoError(t, err)
		assert.Zero(t, ttl)
	}
}
