package bot

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"equibot/birthdays"
	"equibot/calendar"
	"equibot/discordutils"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

// Birthday datetime format used in replies.
const birthdayResponseFormat = "January 2"

func (bot *Bot) birthday(c *commandContext, args []string) {
	month, err := strconv.Atoi(args[0])
	if err != nil || month < 1 || month > 12 {
		c.reply(fmt.Sprintf("Does %s looks like a month number to you? ;-;", args[0]))
		return
	}

	day, err := strconv.Atoi(args[1])
	if err != nil || day < 1 {
		c.reply(fmt.Sprintf("Does %s looks like a number to you? ;-;", args[1]))
		return
	}

	if err := birthdays.ValidateBirthdate(month, day); err != nil {
		c.replyEmbed(
			";-;",
			fmt.Sprintf("%s has only %d days", time.Month(month), birthdays.DaysIn(time.Month(month))),
			colorError,
		)
		return
	}

	if err := bot.store.SetBirthdate(c.ctx, c.member.User.ID, time.Month(month), day); err != nil {
		bot.log.ErrorContext(c.ctx, "saving birthdate", "user_id", c.member.User.ID, "error", err)
		c.reply("Something went wrong, please try again.")
		return
	}

	c.replyEmbed("Awesome!", "We will remember your birthday\nUmU", colorDefault)

	ok, err := bot.publisher.Refresh(c.ctx, c.guild.ID)
	switch {
	case errors.Is(err, birthdays.ErrStaleCalendar):
		c.reply(
			"**Note:** Previously created calendar messages were deleted.\n" +
				"You must run birthdaysetup for calendar to show up.",
		)
	case err != nil:
		bot.log.ErrorContext(c.ctx, "refreshing calendar", "guild_id", c.guild.ID, "error", err)
	case !ok:
		c.reply(
			"**Note:** This Server has not registered the channels " +
				"to be used for greets and calendar\n" +
				"Owner must run birthdaysetup command for calendar to work",
		)
	}
}

func (bot *Bot) birthdaySetup(c *commandContext, args []string) {
	channels, err := bot.discord.GuildChannels(c.guild.ID)
	if err != nil {
		bot.log.ErrorContext(c.ctx, "loading channels", "guild_id", c.guild.ID, "error", err)
		c.reply("Something went wrong, please try again.")
		return
	}

	calendarChannel, ok := discordutils.FindChannel(channels, args[0])
	if !ok {
		c.reply(fmt.Sprintf("Can't find channel: %s", args[0]))
		return
	}
	greetChannel, ok := discordutils.FindChannel(channels, args[1])
	if !ok {
		c.reply(fmt.Sprintf("Can't find channel: %s", args[1]))
		return
	}

	if err := bot.discord.React(c.message.ChannelID, c.message.ID, "👍🏼"); err != nil {
		bot.log.WarnContext(c.ctx, "adding reaction", "error", err)
	}

	err = bot.store.SetBirthdayChannels(c.ctx, c.guild.ID, calendarChannel.ID, greetChannel.ID)
	if err == nil {
		err = bot.store.ClearCalendarMessageIDs(c.ctx, c.guild.ID)
	}
	if err != nil {
		bot.log.ErrorContext(c.ctx, "saving birthday channels", "guild_id", c.guild.ID, "error", err)
		c.reply("Something went wrong, please try again.")
		return
	}

	posted, err := bot.publisher.Refresh(c.ctx, c.guild.ID)
	if err != nil {
		bot.log.ErrorContext(c.ctx, "creating calendar", "guild_id", c.guild.ID, "error", err)
	}

	c.replyEmbed(
		"Awesome!",
		"I've set it up as follows:\n"+
			fmt.Sprintf("**Birthday calendar at:** %s\n", calendarChannel.Mention())+
			fmt.Sprintf("**Greetings at:** %s\n", greetChannel.Mention())+
			":3",
		colorDefault,
	)

	if err != nil || !posted {
		c.reply(fmt.Sprintf(
			"**Note:** I couldn't post the calendar in %s.\n"+
				"Check that I can send messages there and run birthdaysetup again.",
			calendarChannel.Mention(),
		))
	}
}

func (bot *Bot) birthdayPing(c *commandContext, args []string) {
	roles, err := bot.discord.GuildRoles(c.guild.ID)
	if err != nil {
		bot.log.ErrorContext(c.ctx, "loading roles", "guild_id", c.guild.ID, "error", err)
		c.reply("Something went wrong, please try again.")
		return
	}

	role, ok := discordutils.FindRole(roles, args[0])
	if !ok {
		c.replyEmbed(";-;", fmt.Sprintf("Can't find role: %s", args[0]), colorError)
		return
	}

	if err := bot.store.SetBirthdayPingRole(c.ctx, c.guild.ID, role.ID); err != nil {
		bot.log.ErrorContext(c.ctx, "saving ping role", "guild_id", c.guild.ID, "error", err)
		c.reply("Something went wrong, please try again.")
		return
	}

	c.replyEmbed("Done", fmt.Sprintf("Updated birthday ping role to %s", role.Name), colorDefault)
}

// parseUserMention extracts the user id from <@id> or <@!id>.
func parseUserMention(token string) (string, bool) {
	if !strings.HasPrefix(token, "<@") || !strings.HasSuffix(token, ">") {
		return "", false
	}
	id := strings.TrimPrefix(strings.TrimSuffix(token[2:], ">"), "!")
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", false
	}
	return id, true
}

func (bot *Bot) birthdayLookup(c *commandContext, args []string) {
	userID := c.member.User.ID
	switch len(args) {
	case 0:
	case 1:
		id, ok := parseUserMention(args[0])
		if !ok {
			c.usage()
			return
		}
		userID = id
	default:
		c.usage()
		return
	}

	bd, err := bot.store.Birthdate(c.ctx, userID)
	switch {
	case err != nil:
		bot.log.ErrorContext(c.ctx, "loading birthdate", "user_id", userID, "error", err)
		c.reply("Something went wrong, please try again.")
	case bd == nil:
		c.reply(fmt.Sprintf(
			"%s hasn't registered their birthday with me yet.",
			birthdays.Mention(userID),
		))
	default:
		date := time.Date(2000, time.Month(bd.Month), int(bd.Day), 0, 0, 0, 0, time.UTC)
		c.reply(fmt.Sprintf(
			"I've got %s's birthday down as %s.",
			birthdays.Mention(userID),
			date.Format(birthdayResponseFormat),
		))
	}
}

// nextOccurrence returns the first date on or after the day of now that
// falls on month/day. February 29 only occurs in leap years.
func nextOccurrence(now time.Time, month time.Month, day int) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for year := now.Year(); ; year++ {
		t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if t.Month() == month && !t.Before(today) {
			return t
		}
	}
}

func (bot *Bot) birthdayNext(c *commandContext, _ []string) {
	memberIDs, err := bot.discord.GuildMemberIDs(c.ctx, c.guild.ID)
	if err != nil {
		bot.log.ErrorContext(c.ctx, "listing members", "guild_id", c.guild.ID, "error", err)
		c.reply("Something went wrong, please try again.")
		return
	}

	found, err := bot.store.Birthdates(c.ctx, memberIDs)
	if err != nil {
		bot.log.ErrorContext(c.ctx, "loading birthdates", "guild_id", c.guild.ID, "error", err)
		c.reply("Something went wrong, please try again.")
		return
	}

	if len(found) == 0 {
		c.reply("Nobody here has registered a birthday yet.")
		return
	}

	now := bot.clock()
	var next time.Time
	var who []string
	for _, bd := range found {
		t := nextOccurrence(now, time.Month(bd.Month), int(bd.Day))
		switch {
		case next.IsZero() || t.Before(next):
			next = t
			who = []string{birthdays.Mention(bd.UserID)}
		case t.Equal(next):
			who = append(who, birthdays.Mention(bd.UserID))
		}
	}

	if birthdays.TodayFrom(now).Date == next.Format(birthdays.DateFormat) {
		c.reply(fmt.Sprintf("It's %s's birthday today! 🎉", strings.Join(who, ", ")))
		return
	}

	c.reply(fmt.Sprintf(
		"Next up is %s on %s (%s).",
		strings.Join(who, ", "),
		next.Format(birthdayResponseFormat),
		humanize.RelTime(next, now, "ago", "from now"),
	))
}

// parseMonth accepts a month number or an English month name.
func parseMonth(token string) (time.Month, bool) {
	if n, err := strconv.Atoi(token); err == nil {
		if n < 1 || n > 12 {
			return 0, false
		}
		return time.Month(n), true
	}
	for month := time.January; month <= time.December; month++ {
		name := strings.ToLower(month.String())
		if t := strings.ToLower(token); t == name || (len(t) >= 3 && strings.HasPrefix(name, t)) {
			return month, true
		}
	}
	return 0, false
}

func (bot *Bot) birthdayCalendar(c *commandContext, args []string) {
	now := bot.clock()
	month := now.Month()
	switch len(args) {
	case 0:
	case 1:
		m, ok := parseMonth(args[0])
		if !ok {
			c.reply(fmt.Sprintf("Does %s looks like a month to you? ;-;", args[0]))
			return
		}
		month = m
	default:
		c.usage()
		return
	}

	members, err := bot.discord.GuildMembers(c.ctx, c.guild.ID)
	if err != nil {
		bot.log.ErrorContext(c.ctx, "listing members", "guild_id", c.guild.ID, "error", err)
		c.reply("Something went wrong, please try again.")
		return
	}

	names := make(map[string]string, len(members))
	memberIDs := make([]string, len(members))
	for i, member := range members {
		memberIDs[i] = member.User.ID
		names[member.User.ID] = discordutils.DisplayName(member)
	}

	found, err := bot.store.Birthdates(c.ctx, memberIDs)
	if err != nil {
		bot.log.ErrorContext(c.ctx, "loading birthdates", "guild_id", c.guild.ID, "error", err)
		c.reply("Something went wrong, please try again.")
		return
	}

	var entries []calendar.Entry
	for _, bd := range found {
		if time.Month(bd.Month) == month {
			entries = append(entries, calendar.Entry{Name: names[bd.UserID], Day: int(bd.Day)})
		}
	}

	var buf bytes.Buffer
	if err := calendar.RenderImage(&buf, now.Year(), month, entries); err != nil {
		bot.log.ErrorContext(c.ctx, "rendering calendar", "guild_id", c.guild.ID, "error", err)
		c.reply("Something went wrong, please try again.")
		return
	}

	c.send(&discordgo.MessageSend{
		Files: []*discordgo.File{
			{
				Name:        fmt.Sprintf("birthdays-%s.png", strings.ToLower(month.String())),
				ContentType: "image/png",
				Reader:      &buf,
			},
		},
	})
}
