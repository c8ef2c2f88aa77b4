package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"equibot/birthdays"
	"equibot/dal"

	"github.com/bwmarrin/discordgo"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	EnvPrefix                    = "EQUIBOT"
	DefaultDatabaseType          = dal.SQLite
	DefaultDatabase              = "equibot.db"
	DefaultDatabaseSlowThreshold = 200 * time.Millisecond
	DefaultLogLevel              = slog.LevelInfo
	DefaultDiscordLogLevel       = slog.LevelWarn
	DefaultPrefix                = "!"
	DefaultMessagesPerSecond     = 2.0
	DefaultCalendarRefreshAt     = "00:05"
	DefaultShutdownTimeout       = 30 * time.Second
	DefaultDiscordGatewayIntents = discordgo.IntentsAll
	DefaultBirthdayPollInterval  = birthdays.DefaultPollInterval
	DefaultBirthdayIdleInterval  = birthdays.DefaultIdleInterval
)

// Config is the full bot configuration.
type Config struct {
	Database              string        `mapstructure:"database"`
	DatabaseType          string        `mapstructure:"database_type"`
	DatabaseSlowThreshold time.Duration `mapstructure:"database_slow_threshold"`
	LogLevel              slog.Level    `mapstructure:"log_level"`
	DefaultPrefix         string        `mapstructure:"default_prefix"`
	ShutdownTimeout       time.Duration `mapstructure:"shutdown_timeout"`

	Discord   DiscordConfig   `mapstructure:"discord"`
	Birthdays BirthdaysConfig `mapstructure:"birthdays"`
}

type DiscordConfig struct {
	Token             string           `mapstructure:"token"`
	LogLevel          slog.Level       `mapstructure:"log_level"`
	GatewayIntents    discordgo.Intent `mapstructure:"gateway_intents"`
	MessagesPerSecond float64          `mapstructure:"messages_per_second"`
}

type BirthdaysConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	IdleInterval      time.Duration `mapstructure:"idle_interval"`
	CalendarRefreshAt string        `mapstructure:"calendar_refresh_at"`
}

// DefaultConfig returns a Config with every default set.
func DefaultConfig() *Config {
	return &Config{
		Database:              DefaultDatabase,
		DatabaseType:          DefaultDatabaseType,
		DatabaseSlowThreshold: DefaultDatabaseSlowThreshold,
		LogLevel:              DefaultLogLevel,
		DefaultPrefix:         DefaultPrefix,
		ShutdownTimeout:       DefaultShutdownTimeout,
		Discord: DiscordConfig{
			LogLevel:          DefaultDiscordLogLevel,
			GatewayIntents:    DefaultDiscordGatewayIntents,
			MessagesPerSecond: DefaultMessagesPerSecond,
		},
		Birthdays: BirthdaysConfig{
			PollInterval:      DefaultBirthdayPollInterval,
			IdleInterval:      DefaultBirthdayIdleInterval,
			CalendarRefreshAt: DefaultCalendarRefreshAt,
		},
	}
}

// Validate reports the first setting that can't work.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord.token must be set (%s_DISCORD_TOKEN)", EnvPrefix)
	}
	switch c.DatabaseType {
	case dal.SQLite, dal.Postgres:
	default:
		return fmt.Errorf("database_type must be %q or %q", dal.SQLite, dal.Postgres)
	}
	if c.Database == "" {
		return fmt.Errorf("database must be set")
	}
	if c.DefaultPrefix == "" {
		return fmt.Errorf("default_prefix must not be empty")
	}
	if c.Discord.MessagesPerSecond <= 0 {
		return fmt.Errorf("discord.messages_per_second must be positive")
	}
	if c.Birthdays.PollInterval <= 0 || c.Birthdays.IdleInterval <= 0 {
		return fmt.Errorf("birthdays poll and idle intervals must be positive")
	}
	if _, err := time.Parse("15:04", c.Birthdays.CalendarRefreshAt); err != nil {
		return fmt.Errorf("birthdays.calendar_refresh_at must be HH:MM: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", DefaultDatabase)
	v.SetDefault("database_type", DefaultDatabaseType)
	v.SetDefault("database_slow_threshold", DefaultDatabaseSlowThreshold)
	v.SetDefault("log_level", DefaultLogLevel.String())
	v.SetDefault("default_prefix", DefaultPrefix)
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("discord.token", "")
	v.SetDefault("discord.log_level", DefaultDiscordLogLevel.String())
	v.SetDefault("discord.gateway_intents", DefaultDiscordGatewayIntents)
	v.SetDefault("discord.messages_per_second", DefaultMessagesPerSecond)

	v.SetDefault("birthdays.poll_interval", DefaultBirthdayPollInterval)
	v.SetDefault("birthdays.idle_interval", DefaultBirthdayIdleInterval)
	v.SetDefault("birthdays.calendar_refresh_at", DefaultCalendarRefreshAt)
}

// loadConfig reads configuration from v into a new Config.
func loadConfig(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	err := v.Unmarshal(
		cfg,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}
