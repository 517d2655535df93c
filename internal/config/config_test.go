package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "database:\n  host: localhost\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "http", cfg.Fetcher.Mode)
	assert.Equal(t, 15*time.Second, cfg.Fetcher.Timeout)
	assert.Equal(t, 4, cfg.Scrape.Workers)
	assert.Equal(t, 1, cfg.Scrape.FetchAttempts)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.RabbitMQ.Enabled)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("WATCHER_TEST_SECRET", "s3cret")
	t.Setenv("WATCHER_TEST_DB_PASSWORD", "pw")

	path := writeConfig(t, `
database:
  driver: pgx
  password: ${WATCHER_TEST_DB_PASSWORD}
http:
  cron_secret: ${WATCHER_TEST_SECRET}
scrape:
  workers: 8
  fetch_attempts: 3
  interval: 1h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "pw", cfg.Database.Password)
	assert.Equal(t, "s3cret", cfg.HTTP.CronSecret)
	assert.Equal(t, 8, cfg.Scrape.Workers)
	assert.Equal(t, 3, cfg.Scrape.FetchAttempts)
	assert.Equal(t, time.Hour, cfg.Scrape.Interval)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: mysql
fetcher:
  mode: carrier-pigeon
scrape:
  workers: -1
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
	assert.Contains(t, err.Error(), "fetcher.mode")
	assert.Contains(t, err.Error(), "scrape.workers")
}

func TestLoad_MaxOpenConns(t *testing.T) {
	for _, n := range []int{1, -3} {
		path := writeConfig(t, fmt.Sprintf("database:\n  max_open_conns: %d\n", n))

		_, err := Load(path)
		require.Error(t, err, "max_open_conns=%d", n)
		assert.Contains(t, err.Error(), "database.max_open_conns")
	}

	path := writeConfig(t, "database:\n  max_open_conns: 2\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Database.MaxOpenConns)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "watch", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=watch sslmode=disable", d.DSN())
}
