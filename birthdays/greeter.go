package birthdays

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Greeter announces birthdays.
type Greeter struct {
	platform Platform
	log      *slog.Logger
}

// NewGreeter creates a Greeter.
func NewGreeter(platform Platform, logger *slog.Logger) *Greeter {
	return &Greeter{platform: platform, log: logger.With("logger", "greeter")}
}

// Greet sends one birthday message for userID to channelID. The ping role is
// mentioned first when it is set and still exists.
func (g *Greeter) Greet(ctx context.Context, cfg *GuildConfig, channelID, userID string) error {
	msg := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title: "Party time! 🎉",
				Description: fmt.Sprintf(
					"It's %s's birthday! Everybody go wish them!",
					Mention(userID),
				),
			},
		},
	}

	if cfg.PingRoleID != "" {
		if role, ok := g.platform.ResolveRole(cfg.GuildID, cfg.PingRoleID); ok {
			msg.Content = role.Mention()
		} else {
			g.log.WarnContext(
				ctx,
				"birthday ping role not found",
				"guild_id", cfg.GuildID,
				"role_id", cfg.PingRoleID,
			)
		}
	}

	if _, err := g.platform.SendMessage(ctx, channelID, msg); err != nil {
		return fmt.Errorf("greeting %s in %s: %w", userID, channelID, err)
	}

	g.log.InfoContext(ctx, "greeted birthday", "guild_id", cfg.GuildID, "user_id", userID)
	return nil
}
