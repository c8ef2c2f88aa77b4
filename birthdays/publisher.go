package birthdays

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"equibot/calendar"

	"github.com/bwmarrin/discordgo"
)

// Publisher keeps the twelve calendar messages of each guild in sync with
// the registered birthdates.
//
// Refreshes of the same guild are not serialized. If two refreshes both
// find the calendar missing, both post twelve messages and the last one to
// store its ids wins; the other set is left orphaned in the channel.
type Publisher struct {
	store    Store
	platform Platform
	log      *slog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(store Store, platform Platform, logger *slog.Logger) *Publisher {
	return &Publisher{
		store:    store,
		platform: platform,
		log:      logger.With("logger", "publisher"),
	}
}

// Pages builds the calendar pages for a guild from its current members.
func (p *Publisher) Pages(ctx context.Context, guildID string) ([]*discordgo.MessageEmbed, error) {
	memberIDs, err := p.platform.GuildMemberIDs(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing members of %s: %w", guildID, err)
	}

	birthdates, err := p.store.Birthdates(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("loading birthdates for %s: %w", guildID, err)
	}

	byMonth := make(map[time.Month][]calendar.Entry)
	for _, bd := range birthdates {
		month := time.Month(bd.Month)
		byMonth[month] = append(
			byMonth[month],
			calendar.Entry{Name: Mention(bd.UserID), Day: int(bd.Day)},
		)
	}

	return calendar.Year(byMonth), nil
}

// Refresh rebuilds and publishes the calendar of a guild. It returns false
// when the guild has no usable calendar channel. Members are only listed
// once the guild is known to be configured.
func (p *Publisher) Refresh(ctx context.Context, guildID string) (bool, error) {
	cfg, channel, err := p.target(ctx, guildID)
	if err != nil || channel == nil {
		return false, err
	}

	pages, err := p.Pages(ctx, guildID)
	if err != nil {
		return false, err
	}
	return p.publish(ctx, guildID, cfg, channel, pages)
}

// Publish posts pages to the guild's calendar channel, or edits the
// previously posted messages. It returns false, without an error, when
// the guild isn't configured. A deleted calendar message fails with
// ErrStaleCalendar; pages already edited stay edited.
func (p *Publisher) Publish(ctx context.Context, guildID string, pages []*discordgo.MessageEmbed) (bool, error) {
	if len(pages) != CalendarMonths {
		return false, fmt.Errorf("expected %d calendar pages, got %d", CalendarMonths, len(pages))
	}

	cfg, channel, err := p.target(ctx, guildID)
	if err != nil || channel == nil {
		return false, err
	}
	return p.publish(ctx, guildID, cfg, channel, pages)
}

// target loads the guild's config and resolves its calendar channel. The
// channel is nil when either is missing.
func (p *Publisher) target(ctx context.Context, guildID string) (*GuildConfig, *discordgo.Channel, error) {
	cfg, err := p.store.GuildBirthdayConfig(ctx, guildID)
	switch {
	case errors.Is(err, ErrNotConfigured):
		return nil, nil, nil
	case err != nil:
		return nil, nil, err
	}

	channel, ok := p.platform.ResolveChannel(guildID, cfg.CalendarChannelID)
	if !ok {
		return cfg, nil, nil
	}
	return cfg, channel, nil
}

func (p *Publisher) publish(
	ctx context.Context,
	guildID string,
	cfg *GuildConfig,
	channel *discordgo.Channel,
	pages []*discordgo.MessageEmbed,
) (bool, error) {
	if len(cfg.CalendarMessageIDs) != CalendarMonths {
		ids := make([]string, 0, CalendarMonths)
		for _, page := range pages {
			msg, err := p.platform.SendMessage(
				ctx,
				channel.ID,
				&discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{page}},
			)
			if err != nil {
				return false, fmt.Errorf("posting calendar for %s: %w", guildID, err)
			}
			ids = append(ids, msg.ID)
		}

		if err := p.store.SetCalendarMessageIDs(ctx, guildID, ids); err != nil {
			return false, err
		}
		p.log.InfoContext(ctx, "calendar created", "guild_id", guildID, "channel_id", channel.ID)
		return true, nil
	}

	for i, id := range cfg.CalendarMessageIDs {
		msg, err := p.platform.FetchMessage(ctx, channel.ID, id)
		switch {
		case errors.Is(err, ErrMessageNotFound):
			return false, fmt.Errorf(
				"%w: %s message %s in guild %s",
				ErrStaleCalendar,
				time.Month(i+1),
				id,
				guildID,
			)
		case err != nil:
			return false, fmt.Errorf("fetching calendar message %s: %w", id, err)
		}

		if err := p.platform.EditMessage(ctx, msg, pages[i]); err != nil {
			return false, fmt.Errorf("editing calendar message %s: %w", id, err)
		}
	}

	p.log.DebugContext(ctx, "calendar updated", "guild_id", guildID)
	return true, nil
}

// RefreshAll refreshes the calendar of every guild the bot is in. Failures
// are logged per guild and never stop the others.
func (p *Publisher) RefreshAll(ctx context.Context) {
	for _, guildID := range p.platform.Guilds() {
		ok, err := p.Refresh(ctx, guildID)
		switch {
		case errors.Is(err, ErrStaleCalendar):
			p.log.WarnContext(ctx, "calendar messages deleted, setup must be re-run", "guild_id", guildID)
		case err != nil:
			p.log.ErrorContext(ctx, "calendar refresh failed", "guild_id", guildID, "error", err)
		case !ok:
			p.log.DebugContext(ctx, "birthday channels not set up", "guild_id", guildID)
		}
	}
}
