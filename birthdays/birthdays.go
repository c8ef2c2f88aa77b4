// Package birthdays keeps guild birthday calendars up to date and greets
// members on their birthday.
package birthdays

import (
	"context"
	"errors"
	"fmt"
	"time"

	"equibot/models"

	"github.com/bwmarrin/discordgo"
)

var (
	// ErrNotConfigured means the guild never ran birthday setup, or its
	// calendar channel no longer exists.
	ErrNotConfigured = errors.New("birthday channels not configured")

	// ErrStaleCalendar means a previously posted calendar message was
	// deleted. Setup has to be run again to recreate the calendar.
	ErrStaleCalendar = errors.New("calendar messages were deleted")

	// ErrMessageNotFound is returned by a Platform when a fetched message
	// does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidBirthdate is returned for month/day pairs that can't exist.
	ErrInvalidBirthdate = errors.New("invalid birthdate")
)

// DateFormat is the layout used for persisted greet completion dates.
const DateFormat = "2006-01-02"

// CalendarMonths is the number of calendar messages posted per guild.
const CalendarMonths = 12

// GuildConfig is a guild's birthday setup.
type GuildConfig struct {
	GuildID           string
	CalendarChannelID string
	GreetChannelID    string
	// Empty when no ping role is set.
	PingRoleID string
	// Nil until the calendar has been posted, then exactly CalendarMonths
	// ids with January at index 0.
	CalendarMessageIDs []string
}

// Store persists birthdates and guild birthday configuration.
type Store interface {
	Birthdate(ctx context.Context, userID string) (*models.Birthdate, error)
	SetBirthdate(ctx context.Context, userID string, month time.Month, day int) error
	Birthdates(ctx context.Context, userIDs []string) ([]models.Birthdate, error)
	BirthdaysOn(ctx context.Context, month time.Month, day int) ([]string, error)

	GuildBirthdayConfig(ctx context.Context, guildID string) (*GuildConfig, error)
	SetBirthdayChannels(ctx context.Context, guildID, calendarChannelID, greetChannelID string) error
	SetBirthdayPingRole(ctx context.Context, guildID, roleID string) error
	SetCalendarMessageIDs(ctx context.Context, guildID string, ids []string) error
	ClearCalendarMessageIDs(ctx context.Context, guildID string) error

	GreetCompletion(ctx context.Context) (string, error)
	SetGreetCompletion(ctx context.Context, date string) error
}

// Platform is what the birthday features need from the chat platform.
type Platform interface {
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	// FetchMessage returns ErrMessageNotFound when the message is gone.
	FetchMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	EditMessage(ctx context.Context, msg *discordgo.Message, embed *discordgo.MessageEmbed) error
	ResolveChannel(guildID, channelID string) (*discordgo.Channel, bool)
	ResolveRole(guildID, roleID string) (*discordgo.Role, bool)
	GuildMemberIDs(ctx context.Context, guildID string) ([]string, error)
	Guilds() []string
}

// Clock returns the current time.
type Clock func() time.Time

// UTC is the clock used outside tests. Birthdays are always evaluated in UTC.
func UTC() time.Time {
	return time.Now().UTC()
}

// Today is a calendar date as seen by the scheduler.
type Today struct {
	Month time.Month
	Day   int
	Date  string
}

// TodayFrom converts a clock reading into a Today.
func TodayFrom(now time.Time) Today {
	_, month, day := now.Date()
	return Today{Month: month, Day: day, Date: now.Format(DateFormat)}
}

// DaysIn returns how many days a birthday in month may have. February
// always allows 29 since there is no year to check against.
func DaysIn(month time.Month) int {
	return time.Date(2000, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ValidateBirthdate checks that month and day form a possible birthday.
func ValidateBirthdate(month, day int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidBirthdate, month)
	}
	if day < 1 || day > DaysIn(time.Month(month)) {
		return fmt.Errorf(
			"%w: %s has only %d days",
			ErrInvalidBirthdate,
			time.Month(month),
			DaysIn(time.Month(month)),
		)
	}
	return nil
}

// Mention formats a user mention from a user id.
func Mention(userID string) string {
	return "<@" + userID + ">"
}
