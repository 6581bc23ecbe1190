package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8900", cfg.Server.Port)
	assert.Equal(t, 80, cfg.Terminal.Cols)
	assert.Equal(t, 24, cfg.Terminal.Rows)
	assert.Equal(t, 1<<20, cfg.Terminal.BufferCap)
	assert.Equal(t, 50, cfg.History.Capacity)
	assert.Equal(t, 5*time.Second, cfg.Context.TTL)
	assert.Equal(t, 200, cfg.Context.ErrorPreview)
	assert.Equal(t, 3, cfg.Context.RecentErrors)
	assert.Equal(t, "http://localhost:8901", cfg.Assist.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("TERM_COLS", "120")
	t.Setenv("HISTORY_CAPACITY", "10")
	t.Setenv("CONTEXT_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, 120, cfg.Terminal.Cols)
	assert.Equal(t, 10, cfg.History.Capacity)
	assert.Equal(t, 30*time.Second, cfg.Context.TTL)
}

func TestLoadFileOverlaysEnvironment(t *testing.T) {
	t.Setenv("PORT", "9100")

	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[server]
port = "9200"

[terminal]
cols = 132
rows = 43

[history]
capacity = 25
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9200", cfg.Server.Port, "file values win over environment")
	assert.Equal(t, 132, cfg.Terminal.Cols)
	assert.Equal(t, 43, cfg.Terminal.Rows)
	assert.Equal(t, 25, cfg.History.Capacity)
	assert.Equal(t, 5*time.Second, cfg.Context.TTL, "untouched fields keep env defaults")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport="), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadOrDefaultNeverNil(t *testing.T) {
	cfg := LoadOrDefault()
	require.NotNil(t, cfg)
	assert.Equal(t, "8900", cfg.Server.Port)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 60*time.Second, cfg.Assist.Timeout)
	assert.Equal(t, 2, cfg.Assist.Retries)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
}
