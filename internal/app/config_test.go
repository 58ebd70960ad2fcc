package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	coredatabase "github.com/m3rciful/soulbot/core/database"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
telegram:
  token: "1:abc"
database:
  driver: sqlite
  path: ":memory:"
`))
	require.NoError(t, err)
	require.Equal(t, "longpoll", cfg.Telegram.RunMode)
	require.Equal(t, coredatabase.DriverSQLite, cfg.Database.Driver)
	require.Equal(t, 1, cfg.Database.MaxConnections)
	require.Equal(t, 5*time.Minute, cfg.Sessions.IdleTimeout)
	require.Equal(t, time.Minute, cfg.Sessions.SweepInterval)
	require.True(t, cfg.Browse.FilterByCategory())
	require.Equal(t, []string{"it", "art", "music"}, cfg.Categories)
	require.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadReadsAppSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
telegram:
  token: "1:abc"
database:
  driver: sqlite
  path: ":memory:"
sessions:
  idle_timeout: 10m
  sweep_interval: 30s
browse:
  category_filter: false
categories: [" it ", "it", "", "books"]
`))
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, cfg.Sessions.IdleTimeout)
	require.Equal(t, 30*time.Second, cfg.Sessions.SweepInterval)
	require.False(t, cfg.Browse.FilterByCategory())
	require.Equal(t, []string{"it", "books"}, cfg.Categories)
}

func TestLoadRejectsBadDriver(t *testing.T) {
	_, err := Load(writeConfig(t, `
telegram:
  token: "1:abc"
database:
  driver: mysql
`))
	require.ErrorContains(t, err, "database.driver")
}
