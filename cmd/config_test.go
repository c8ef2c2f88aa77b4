package cmd

import (
	"log/slog"
	"testing"
	"time"

	"equibot/dal"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, dal.SQLite, cfg.DatabaseType)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, slog.LevelWarn, cfg.Discord.LogLevel)
	assert.Equal(t, discordgo.IntentsAll, cfg.Discord.GatewayIntents)
	assert.Equal(t, 15*time.Second, cfg.Birthdays.PollInterval)
	assert.Equal(t, 30*time.Minute, cfg.Birthdays.IdleInterval)
	assert.Equal(t, "!", cfg.DefaultPrefix)
}

func TestLoadConfigOverrides(t *testing.T) {
	v := newTestViper(t)
	v.Set("log_level", "debug")
	v.Set("database_type", "postgres")
	v.Set("birthdays.poll_interval", "5s")
	v.Set("discord.token", "secret")

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, dal.Postgres, cfg.DatabaseType)
	assert.Equal(t, 5*time.Second, cfg.Birthdays.PollInterval)
	assert.Equal(t, "secret", cfg.Discord.Token)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("EQUIBOT_DEFAULT_PREFIX", "?")
	t.Setenv("EQUIBOT_SHUTDOWN_TIMEOUT", "1m")

	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)
	assert.Equal(t, "?", cfg.DefaultPrefix)
	assert.Equal(t, time.Minute, cfg.ShutdownTimeout)
}

func TestLoadConfigBadLevel(t *testing.T) {
	v := newTestViper(t)
	v.Set("log_level", "loud")

	_, err := loadConfig(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Discord.Token = "token"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no token", func(c *Config) { c.Discord.Token = "" }},
		{"bad database type", func(c *Config) { c.DatabaseType = "mysql" }},
		{"empty database", func(c *Config) { c.Database = "" }},
		{"empty prefix", func(c *Config) { c.DefaultPrefix = "" }},
		{"zero rate", func(c *Config) { c.Discord.MessagesPerSecond = 0 }},
		{"zero poll", func(c *Config) { c.Birthdays.PollInterval = 0 }},
		{"bad refresh time", func(c *Config) { c.Birthdays.CalendarRefreshAt = "midnight" }},
	}
	for _, tc := range tests {
		t.Run(
			tc.name, func(t *testing.T) {
				cfg := valid()
				tc.modify(cfg)
				assert.Error(t, cfg.Validate())
			},
		)
	}
}

func TestLoadConfigLogLevels(t *testing.T) {
	v := newTestViper(t)
	v.Set("log_level", "Error")
	v.Set("discord.log_level", "debug")

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, cfg.LogLevel)
	assert.Equal(t, slog.LevelDebug, cfg.Discord.LogLevel)
}

func TestLoadConfigEnvLogLevel(t *testing.T) {
	t.Setenv("EQUIBOT_LOG_LEVEL", "warn")

	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}
