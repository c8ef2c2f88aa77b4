// Package discordutils holds discordgo helpers shared by the bot.
package discordutils

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"equibot/birthdays"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

const membersPageSize = 1000

// Platform implements birthdays.Platform on a discordgo session. Outgoing
// sends and edits are paced by a shared limiter.
type Platform struct {
	session *discordgo.Session
	limiter *rate.Limiter
}

// NewPlatform creates a Platform allowing perSecond outgoing messages.
func NewPlatform(session *discordgo.Session, perSecond float64) *Platform {
	return &Platform{
		session: session,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

var _ birthdays.Platform = (*Platform)(nil)

// SendMessage sends msg to channelID.
func (p *Platform) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.session.ChannelMessageSendComplex(channelID, msg)
}

// FetchMessage fetches a message, returning birthdays.ErrMessageNotFound if
// it was deleted.
func (p *Platform) FetchMessage(_ context.Context, channelID, messageID string) (*discordgo.Message, error) {
	msg, err := p.session.ChannelMessage(channelID, messageID)
	if IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", birthdays.ErrMessageNotFound, messageID)
	}
	return msg, err
}

// EditMessage replaces the content of msg with embed.
func (p *Platform) EditMessage(ctx context.Context, msg *discordgo.Message, embed *discordgo.MessageEmbed) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	content := ""
	_, err := p.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:      msg.ID,
		Channel: msg.ChannelID,
		Content: &content,
		Embeds:  []*discordgo.MessageEmbed{embed},
	})
	return err
}

// ResolveChannel finds a channel of guildID in the state cache, falling back
// to the API.
func (p *Platform) ResolveChannel(guildID, channelID string) (*discordgo.Channel, bool) {
	if channelID == "" {
		return nil, false
	}

	channel, err := p.session.State.Channel(channelID)
	if err != nil {
		channel, err = p.session.Channel(channelID)
		if err != nil {
			return nil, false
		}
	}

	if channel.GuildID != guildID {
		return nil, false
	}
	return channel, true
}

// ResolveRole finds a role of guildID.
func (p *Platform) ResolveRole(guildID, roleID string) (*discordgo.Role, bool) {
	role, err := p.session.State.Role(guildID, roleID)
	if err == nil {
		return role, true
	}

	roles, err := p.session.GuildRoles(guildID)
	if err != nil {
		return nil, false
	}
	for _, role := range roles {
		if role.ID == roleID {
			return role, true
		}
	}
	return nil, false
}

// GuildMembers lists every member of a guild, paging through the API.
func (p *Platform) GuildMembers(ctx context.Context, guildID string) ([]*discordgo.Member, error) {
	var all []*discordgo.Member
	after := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		members, err := p.session.GuildMembers(guildID, after, membersPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, members...)

		if len(members) < membersPageSize {
			return all, nil
		}
		after = members[len(members)-1].User.ID
	}
}

// GuildMemberIDs lists the user ids of every member of a guild.
func (p *Platform) GuildMemberIDs(ctx context.Context, guildID string) ([]string, error) {
	members, err := p.GuildMembers(ctx, guildID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(members))
	for i, member := range members {
		ids[i] = member.User.ID
	}
	return ids, nil
}

// Guilds returns the ids of every guild in the state cache.
func (p *Platform) Guilds() []string {
	p.session.State.RLock()
	defer p.session.State.RUnlock()

	ids := make([]string, len(p.session.State.Guilds))
	for i, guild := range p.session.State.Guilds {
		ids[i] = guild.ID
	}
	return ids
}

// Guild returns a guild from the state cache, falling back to the API.
func (p *Platform) Guild(guildID string) (*discordgo.Guild, error) {
	if guild, err := p.session.State.Guild(guildID); err == nil {
		return guild, nil
	}
	return p.session.Guild(guildID)
}

// GuildChannels returns the channels of a guild.
func (p *Platform) GuildChannels(guildID string) ([]*discordgo.Channel, error) {
	return p.session.GuildChannels(guildID)
}

// GuildRoles returns the roles of a guild.
func (p *Platform) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	return p.session.GuildRoles(guildID)
}

// React adds an emoji reaction to a message.
func (p *Platform) React(channelID, messageID, emoji string) error {
	return p.session.MessageReactionAdd(channelID, messageID, emoji)
}

// IsNotFound reports whether err is a Discord 404 or an unknown
// message/channel error.
func IsNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
