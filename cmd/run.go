package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"equibot/bot"
	"equibot/dal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Connects to Discord and starts the birthday scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func run(ctx context.Context, cfg *Config) error {
	handler := newLogHandler(cfg.LogLevel)
	logger := slog.New(handler)
	slog.SetDefault(logger)
	setDiscordgoLogger(ctx, newLogHandler(cfg.Discord.LogLevel))

	store, err := dal.Open(cfg.DatabaseType, cfg.Database, cfg.DatabaseSlowThreshold, handler)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()
	logger.Info("connected to database", "type", cfg.DatabaseType)

	b, err := bot.New(
		bot.Config{
			Token:             cfg.Discord.Token,
			DefaultPrefix:     cfg.DefaultPrefix,
			Intents:           cfg.Discord.GatewayIntents,
			MessagesPerSecond: cfg.Discord.MessagesPerSecond,
			PollInterval:      cfg.Birthdays.PollInterval,
			IdleInterval:      cfg.Birthdays.IdleInterval,
			CalendarRefreshAt: cfg.Birthdays.CalendarRefreshAt,
		},
		store,
		logger,
	)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown requested, waiting for the current pass to finish")
	select {
	case err := <-done:
		return err
	case <-time.After(cfg.ShutdownTimeout):
		return fmt.Errorf("shutdown timed out after %s", cfg.ShutdownTimeout)
	}
}

//nolint:gochecknoinits
func init() {
	runCmd.Flags().String("token", "", "Discord bot token")
	runCmd.Flags().String("database", DefaultDatabase, "SQLite file path or Postgres DSN")
	runCmd.Flags().String("database-type", DefaultDatabaseType, "sqlite or postgres")
	runCmd.Flags().String("log-level", DefaultLogLevel.String(), "log level")

	_ = viper.BindPFlag("discord.token", runCmd.Flags().Lookup("token"))
	_ = viper.BindPFlag("database", runCmd.Flags().Lookup("database"))
	_ = viper.BindPFlag("database_type", runCmd.Flags().Lookup("database-type"))
	_ = viper.BindPFlag("log_level", runCmd.Flags().Lookup("log-level"))

	rootCmd.AddCommand(runCmd)
}
