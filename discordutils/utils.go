package discordutils

import (
	"github.com/bwmarrin/discordgo"
)

// FindByNameOrMention returns the first candidate whose mention equals token,
// or failing that, the first whose name equals token. Mentions win because
// they carry an id and can't be ambiguous.
func FindByNameOrMention[T any](
	candidates []T,
	token string,
	name func(T) string,
	mention func(T) string,
) (T, bool) {
	for _, c := range candidates {
		if mention(c) == token {
			return c, true
		}
	}
	for _, c := range candidates {
		if name(c) == token {
			return c, true
		}
	}

	var zero T
	return zero, false
}

// FindRole looks a role up by name or mention.
func FindRole(roles []*discordgo.Role, token string) (*discordgo.Role, bool) {
	return FindByNameOrMention(
		roles,
		token,
		func(r *discordgo.Role) string { return r.Name },
		func(r *discordgo.Role) string { return r.Mention() },
	)
}

// FindChannel looks a channel up by name or mention.
func FindChannel(channels []*discordgo.Channel, token string) (*discordgo.Channel, bool) {
	return FindByNameOrMention(
		channels,
		token,
		func(c *discordgo.Channel) string { return c.Name },
		func(c *discordgo.Channel) string { return c.Mention() },
	)
}

// MemberHasRole returns true if the given member has the given role.
func MemberHasRole(member *discordgo.Member, roleID string) bool {
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

// MemberIsModerator returns true if the member owns the guild or holds any of
// modRoleIDs.
func MemberIsModerator(guild *discordgo.Guild, member *discordgo.Member, modRoleIDs []string) bool {
	if IsOwner(guild, member) {
		return true
	}
	for _, roleID := range modRoleIDs {
		if MemberHasRole(member, roleID) {
			return true
		}
	}
	return false
}

// IsOwner returns true if member owns guild.
func IsOwner(guild *discordgo.Guild, member *discordgo.Member) bool {
	return member != nil && member.User != nil && guild.OwnerID == member.User.ID
}

// DisplayName returns the member's nickname, falling back to their username.
func DisplayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	return member.User.Username
}
