package models

import "gorm.io/gorm"

// Birthdate represents a user's birth day and month. It is global, not
// per-guild: a user registers once and shows up in every guild they share
// with the bot.
type Birthdate struct {
	gorm.Model
	UserID string `gorm:"uniqueIndex"`
	Month  uint
	Day    uint
}

// BirthdayChannels holds a guild's calendar and greeting channels, plus the
// calendar message ids once the calendar has been posted.
type BirthdayChannels struct {
	gorm.Model
	GuildID           string `gorm:"uniqueIndex"`
	CalendarChannelID string
	GreetChannelID    string
	// Comma separated, January first. Empty means the calendar has to be
	// (re)created.
	CalendarMessageIDs string
}

// BirthdayPingRole is the role mentioned when greeting a birthday.
type BirthdayPingRole struct {
	gorm.Model
	GuildID string `gorm:"uniqueIndex"`
	RoleID  string
}

// GreetCompletion records the last date the greet pass ran to completion.
// There is only ever one row.
type GreetCompletion struct {
	ID            uint `gorm:"primaryKey"`
	LastCompleted string
}

// GuildSettings holds per-guild bot settings.
type GuildSettings struct {
	gorm.Model
	GuildID string `gorm:"uniqueIndex"`
	Prefix  string
}

// ModRole marks a role as allowed to change bot settings in a guild.
type ModRole struct {
	gorm.Model
	GuildID string `gorm:"uniqueIndex:idx_mod_role"`
	RoleID  string `gorm:"uniqueIndex:idx_mod_role"`
}

// All lists every model for migration.
func All() []interface{} {
	return []interface{}{
		&Birthdate{},
		&BirthdayChannels{},
		&BirthdayPingRole{},
		&GreetCompletion{},
		&GuildSettings{},
		&ModRole{},
	}
}
