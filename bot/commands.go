package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"equibot/discordutils"

	"github.com/bwmarrin/discordgo"
)

const (
	colorDefault = 0x7289da
	colorError   = 0xe74c3c
)

type command struct {
	name        string
	usage       string
	description string
	ownerOnly   bool
	// args is the exact argument count, or -1 to let run check.
	args int
	run  func(c *commandContext, args []string)
}

// commandContext is a single command invocation.
type commandContext struct {
	ctx     context.Context
	bot     *Bot
	cmd     *command
	message *discordgo.Message
	guild   *discordgo.Guild
	member  *discordgo.Member
	prefix  string
}

func (bot *Bot) commandTable() map[string]*command {
	commands := []*command{
		{
			name:        "help",
			usage:       "help",
			description: "Lists the commands I know.",
			args:        -1,
			run:         bot.help,
		},
		{
			name:        "prefix",
			usage:       "prefix [new prefix]",
			description: "Changes the prefix for the bot in your server.",
			args:        1,
			run:         bot.setPrefix,
		},
		{
			name:        "modrole",
			usage:       "modrole [add | remove] [role to add/remove]",
			description: "Add or remove moderator roles.",
			args:        -1,
			run:         bot.modRole,
		},
		{
			name:        "birthday",
			usage:       "birthday [month] [day]",
			description: "Add your name to birthday calendar!",
			args:        2,
			run:         bot.birthday,
		},
		{
			name:        "birthdaysetup",
			usage:       "birthdaysetup [channel for calendar] [channel for greets]",
			description: "Set-up birthday calendar for server!",
			ownerOnly:   true,
			args:        2,
			run:         bot.birthdaySetup,
		},
		{
			name:        "birthdayping",
			usage:       "birthdayping [role name or mention]",
			description: "Set a role to ping when there's somebody's birthday.",
			ownerOnly:   true,
			args:        1,
			run:         bot.birthdayPing,
		},
		{
			name:        "birthdaylookup",
			usage:       "birthdaylookup (user mention)",
			description: "Looks up a birthday. Defaults to you.",
			args:        -1,
			run:         bot.birthdayLookup,
		},
		{
			name:        "birthdaynext",
			usage:       "birthdaynext",
			description: "Shows whose birthday is coming up next.",
			args:        0,
			run:         bot.birthdayNext,
		},
		{
			name:        "birthdaycalendar",
			usage:       "birthdaycalendar (month)",
			description: "Draws a month of the birthday calendar. Defaults to this month.",
			args:        -1,
			run:         bot.birthdayCalendar,
		},
	}

	table := make(map[string]*command, len(commands))
	for _, cmd := range commands {
		table[cmd.name] = cmd
	}
	return table
}

// parseCommand splits a message into a command name and its arguments.
func parseCommand(content, prefix string) (string, []string, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}

	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

func (bot *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	bot.handleMessage(context.Background(), m.Message)
}

func (bot *Bot) handleMessage(ctx context.Context, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	prefix, err := bot.store.Prefix(ctx, m.GuildID, bot.cfg.DefaultPrefix)
	if err != nil {
		bot.log.ErrorContext(ctx, "loading prefix", "guild_id", m.GuildID, "error", err)
	}

	name, args, ok := parseCommand(m.Content, prefix)
	if !ok {
		return
	}
	cmd, ok := bot.commands[name]
	if !ok {
		return
	}

	guild, err := bot.discord.Guild(m.GuildID)
	if err != nil {
		bot.log.ErrorContext(ctx, "loading guild", "guild_id", m.GuildID, "error", err)
		return
	}

	// Members attached to message events have no user set.
	member := m.Member
	if member == nil {
		member = &discordgo.Member{}
	}
	member.User = m.Author
	member.GuildID = m.GuildID

	bot.log.InfoContext(
		ctx,
		"command received",
		"command", cmd.name,
		"guild_id", guild.ID,
		"guild", guild.Name,
		"user_id", m.Author.ID,
	)

	c := &commandContext{
		ctx:     ctx,
		bot:     bot,
		cmd:     cmd,
		message: m,
		guild:   guild,
		member:  member,
		prefix:  prefix,
	}

	if cmd.ownerOnly && !discordutils.IsOwner(guild, member) {
		c.reply("Only owner can use this command. ;-;")
		return
	}
	if cmd.args >= 0 && len(args) != cmd.args {
		c.usage()
		return
	}

	cmd.run(c, args)
}

func (c *commandContext) send(msg *discordgo.MessageSend) {
	_, err := c.bot.discord.SendMessage(c.ctx, c.message.ChannelID, msg)
	if err != nil {
		c.bot.log.ErrorContext(
			c.ctx,
			"sending reply",
			"command", c.cmd.name,
			"channel_id", c.message.ChannelID,
			"error", err,
		)
	}
}

func (c *commandContext) reply(content string) {
	c.send(&discordgo.MessageSend{Content: content})
}

func (c *commandContext) replyEmbed(title, description string, color int) {
	c.send(&discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{Title: title, Description: description, Color: color},
		},
	})
}

func (c *commandContext) usage() {
	c.reply(
		"**Invalid arguments!**\n" +
			"```Usage:\n" +
			c.prefix + c.cmd.usage +
			"```",
	)
}

func (bot *Bot) help(c *commandContext, _ []string) {
	names := make([]string, 0, len(bot.commands))
	for name := range bot.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		cmd := bot.commands[name]
		fmt.Fprintf(&b, "`%s%s`\n%s\n", c.prefix, cmd.usage, cmd.description)
	}
	c.replyEmbed("Commands", b.String(), colorDefault)
}
