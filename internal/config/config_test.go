package config

import (
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

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 4, cfg.Match.DefaultQuarterCount)
	assert.Equal(t, 3.0, cfg.Match.FairnessToleranceMinutes)
	assert.Equal(t, "match-events", cfg.Kafka.EventsTopic)
	assert.Equal(t, "match-commands", cfg.Kafka.CommandsTopic)
	assert.Equal(t, 30*time.Second, cfg.Kafka.ReadyTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Redis.ViewTTL)
	assert.Equal(t, 5, cfg.Assistant.MaxRounds)
	assert.False(t, cfg.Match.OwnGoalCreditsOpponent)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("SCOREBOARD_ADMIN_PIN", "9999")
	t.Setenv("SCOREBOARD_PG_PASSWORD", "s3cret")
	path := writeConfig(t, `
store:
  driver: sqlite
  sqlite_path: /tmp/x.db
postgres:
  password: ${SCOREBOARD_PG_PASSWORD}
access:
  admin_pin: ${SCOREBOARD_ADMIN_PIN}
match:
  default_quarter_count: 2
  own_goal_credits_opponent: true
live:
  interval: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Access.AdminPIN)
	assert.Equal(t, "s3cret", cfg.Postgres.Password)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 2, cfg.Match.DefaultQuarterCount)
	assert.True(t, cfg.Match.OwnGoalCreditsOpponent)
	assert.Equal(t, 5*time.Second, cfg.Live.Interval)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown driver", body: "store:\n  driver: mongo\n"},
		{name: "three quarters", body: "match:\n  default_quarter_count: 3\n"},
		{name: "bad yaml", body: "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.True(t, cfg.Live.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestConnectionString(t *testing.T) {
	c := PostgresConfig{User: "u", Password: "p", Host: "db", Port: 5433, Database: "scoreboard"}
	assert.Equal(t, "postgres://u:p@db:5433/scoreboard?sslmode=disable", c.ConnectionString())
}
