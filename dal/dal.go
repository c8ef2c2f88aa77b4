// Package dal persists bot settings and birthdays with gorm.
package dal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"equibot/birthdays"
	"equibot/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Supported database types.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

const greetCompletionID = 1

// Store is the gorm backed store.
type Store struct {
	db *gorm.DB
}

// Open connects to the database and migrates every model.
func Open(
	dbType string,
	dsn string,
	slowThreshold time.Duration,
	handler slog.Handler,
) (*Store, error) {
	var dialector gorm.Dialector
	switch dbType {
	case SQLite:
		dialector = sqlite.Open(dsn)
	case Postgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	db, err := gorm.Open(
		dialector,
		&gorm.Config{Logger: newGORMLogger(handler, slowThreshold)},
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s database: %w", dbType, err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an already opened database. The caller is responsible for
// migrations.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Birthdate returns a user's birthdate, or nil if they never registered one.
func (s *Store) Birthdate(ctx context.Context, userID string) (*models.Birthdate, error) {
	var bd models.Birthdate
	err := s.db.WithContext(ctx).
		Where(&models.Birthdate{UserID: userID}).
		Take(&bd).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &bd, nil
}

// SetBirthdate inserts or updates a user's birthdate.
func (s *Store) SetBirthdate(ctx context.Context, userID string, month time.Month, day int) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"month", "day", "updated_at"}),
	}).Create(&models.Birthdate{
		UserID: userID,
		Month:  uint(month),
		Day:    uint(day),
	}).Error
}

// Birthdates returns the birthdates registered by any of userIDs.
func (s *Store) Birthdates(ctx context.Context, userIDs []string) ([]models.Birthdate, error) {
	var found []models.Birthdate
	if len(userIDs) == 0 {
		return found, nil
	}

	// Large guilds are queried in batches to stay under the bind
	// parameter limits of the drivers.
	const batch = 500
	for start := 0; start < len(userIDs); start += batch {
		end := min(start+batch, len(userIDs))

		var page []models.Birthdate
		err := s.db.WithContext(ctx).
			Where("user_id IN ?", userIDs[start:end]).
			Order("month, day, user_id").
			Find(&page).Error
		if err != nil {
			return nil, err
		}
		found = append(found, page...)
	}

	return found, nil
}

// BirthdaysOn returns the ids of every user born on month/day.
func (s *Store) BirthdaysOn(ctx context.Context, month time.Month, day int) ([]string, error) {
	var userIDs []string
	err := s.db.WithContext(ctx).
		Model(&models.Birthdate{}).
		Where(&models.Birthdate{Month: uint(month), Day: uint(day)}).
		Order("user_id").
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

// GuildBirthdayConfig returns the birthday setup of a guild, or
// birthdays.ErrNotConfigured.
func (s *Store) GuildBirthdayConfig(ctx context.Context, guildID string) (*birthdays.GuildConfig, error) {
	var channels models.BirthdayChannels
	err := s.db.WithContext(ctx).
		Where(&models.BirthdayChannels{GuildID: guildID}).
		Take(&channels).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, birthdays.ErrNotConfigured
	case err != nil:
		return nil, err
	}

	cfg := &birthdays.GuildConfig{
		GuildID:            guildID,
		CalendarChannelID:  channels.CalendarChannelID,
		GreetChannelID:     channels.GreetChannelID,
		CalendarMessageIDs: splitMessageIDs(channels.CalendarMessageIDs),
	}

	var role models.BirthdayPingRole
	err = s.db.WithContext(ctx).
		Where(&models.BirthdayPingRole{GuildID: guildID}).
		Take(&role).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, err
	default:
		cfg.PingRoleID = role.RoleID
	}

	return cfg, nil
}

// SetBirthdayChannels inserts or updates a guild's calendar and greet
// channels. Calendar message ids are left as they are.
func (s *Store) SetBirthdayChannels(ctx context.Context, guildID, calendarChannelID, greetChannelID string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"calendar_channel_id", "greet_channel_id", "updated_at"},
		),
	}).Create(&models.BirthdayChannels{
		GuildID:           guildID,
		CalendarChannelID: calendarChannelID,
		GreetChannelID:    greetChannelID,
	}).Error
}

// SetBirthdayPingRole inserts or updates the role pinged on birthdays.
func (s *Store) SetBirthdayPingRole(ctx context.Context, guildID, roleID string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role_id", "updated_at"}),
	}).Create(&models.BirthdayPingRole{
		GuildID: guildID,
		RoleID:  roleID,
	}).Error
}

// SetCalendarMessageIDs stores the twelve calendar message ids, January first.
func (s *Store) SetCalendarMessageIDs(ctx context.Context, guildID string, ids []string) error {
	if len(ids) != birthdays.CalendarMonths {
		return fmt.Errorf(
			"expected %d calendar message ids, got %d",
			birthdays.CalendarMonths,
			len(ids),
		)
	}
	return s.updateCalendarMessageIDs(ctx, guildID, strings.Join(ids, ","))
}

// ClearCalendarMessageIDs forgets the calendar messages so the next refresh
// posts new ones.
func (s *Store) ClearCalendarMessageIDs(ctx context.Context, guildID string) error {
	return s.updateCalendarMessageIDs(ctx, guildID, "")
}

func (s *Store) updateCalendarMessageIDs(ctx context.Context, guildID, ids string) error {
	return s.db.WithContext(ctx).
		Model(&models.BirthdayChannels{}).
		Where(&models.BirthdayChannels{GuildID: guildID}).
		Update("calendar_message_ids", ids).Error
}

func splitMessageIDs(joined string) []string {
	ids := strings.Split(joined, ",")
	if len(ids) != birthdays.CalendarMonths {
		return nil
	}
	return ids
}

// GreetCompletion returns the last date the greet pass completed, or "" if
// it never ran.
func (s *Store) GreetCompletion(ctx context.Context) (string, error) {
	var completion models.GreetCompletion
	err := s.db.WithContext(ctx).Take(&completion, greetCompletionID).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", nil
	case err != nil:
		return "", err
	}
	return completion.LastCompleted, nil
}

// SetGreetCompletion records date as completed. Dates earlier than the
// stored one are ignored.
func (s *Store) SetGreetCompletion(ctx context.Context, date string) error {
	if _, err := time.Parse(birthdays.DateFormat, date); err != nil {
		return fmt.Errorf("invalid greet completion date %q: %w", date, err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.GreetCompletion{ID: greetCompletionID, LastCompleted: date}).Error
		if err != nil {
			return err
		}

		return tx.Model(&models.GreetCompletion{}).
			Where("id = ? AND last_completed < ?", greetCompletionID, date).
			Update("last_completed", date).Error
	})
}
