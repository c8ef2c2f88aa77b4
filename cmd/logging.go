package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

var discordgoLogLevels = map[int]slog.Level{
	discordgo.LogDebug:         slog.LevelDebug,
	discordgo.LogInformational: slog.LevelInfo,
	discordgo.LogWarning:       slog.LevelWarn,
	discordgo.LogError:         slog.LevelError,
}

func newLogHandler(level slog.Leveler) slog.Handler {
	return tint.NewHandler(
		os.Stderr,
		&tint.Options{Level: level, TimeFormat: time.DateTime},
	)
}

// setDiscordgoLogger routes discordgo's package logger into slog.
func setDiscordgoLogger(ctx context.Context, handler slog.Handler) {
	logger := slog.New(handler).With("logger", "discordgo")
	discordgo.Logger = func(msgL, _ int, format string, args ...interface{}) {
		level, ok := discordgoLogLevels[msgL]
		if !ok {
			level = slog.LevelInfo
		}
		logger.Log(ctx, level, strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", " "))
	}
}
