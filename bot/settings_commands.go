package bot

import (
	"fmt"

	"equibot/discordutils"
)

func (bot *Bot) setPrefix(c *commandContext, args []string) {
	modRoles, err := bot.store.ModRoles(c.ctx, c.guild.ID)
	if err != nil {
		bot.log.ErrorContext(c.ctx, "loading mod roles", "guild_id", c.guild.ID, "error", err)
		c.reply("Something went wrong, please try again.")
		return
	}

	if !discordutils.MemberIsModerator(c.guild, c.member, modRoles) {
		c.reply("You are not allowed to change the prefix. ;-;")
		return
	}

	if err := bot.store.SetPrefix(c.ctx, c.guild.ID, args[0]); err != nil {
		bot.log.ErrorContext(c.ctx, "saving prefix", "guild_id", c.guild.ID, "error", err)
		c.reply("Something went wrong, please try again.")
		return
	}

	c.reply(fmt.Sprintf("Prefix set to: %q", args[0]))
}

func (bot *Bot) modRole(c *commandContext, args []string) {
	if len(args) == 0 || (args[0] != "add" && args[0] != "remove") {
		c.usage()
		return
	}

	if !discordutils.IsOwner(c.guild, c.member) {
		c.reply("Only owner can use this command. ;-;")
		return
	}

	if len(args) != 2 {
		c.usage()
		return
	}

	roles, err := bot.discord.GuildRoles(c.guild.ID)
	if err != nil {
		bot.log.ErrorContext(c.ctx, "loading roles", "guild_id", c.guild.ID, "error", err)
		c.reply("Something went wrong, please try again.")
		return
	}

	role, ok := discordutils.FindRole(roles, args[1])
	if !ok {
		c.reply(fmt.Sprintf("Can't find role with name: %s", args[1]))
		return
	}

	switch args[0] {
	case "add":
		added, err := bot.store.AddModRole(c.ctx, c.guild.ID, role.ID)
		switch {
		case err != nil:
			bot.log.ErrorContext(c.ctx, "adding mod role", "guild_id", c.guild.ID, "error", err)
			c.reply("Something went wrong, please try again.")
		case added:
			c.reply(fmt.Sprintf("Added moderator role: %s", role.Name))
		default:
			c.reply(fmt.Sprintf("%s is already moderator!", role.Name))
		}
	case "remove":
		removed, err := bot.store.DeleteModRole(c.ctx, c.guild.ID, role.ID)
		switch {
		case err != nil:
			bot.log.ErrorContext(c.ctx, "removing mod role", "guild_id", c.guild.ID, "error", err)
			c.reply("Something went wrong, please try again.")
		case removed:
			c.reply(fmt.Sprintf("Removed moderator role: %s", role.Name))
		default:
			c.reply(fmt.Sprintf("%s is not a moderator!", role.Name))
		}
	}
}
