package dal

import (
	"context"
	"errors"

	"equibot/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Prefix returns the guild's command prefix, or fallback if none was set.
func (s *Store) Prefix(ctx context.Context, guildID, fallback string) (string, error) {
	var settings models.GuildSettings
	err := s.db.WithContext(ctx).
		Where(&models.GuildSettings{GuildID: guildID}).
		Take(&settings).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fallback, nil
	case err != nil:
		return fallback, err
	case settings.Prefix == "":
		return fallback, nil
	}
	return settings.Prefix, nil
}

// SetPrefix inserts or updates the guild's command prefix.
func (s *Store) SetPrefix(ctx context.Context, guildID, prefix string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"prefix", "updated_at"}),
	}).Create(&models.GuildSettings{GuildID: guildID, Prefix: prefix}).Error
}

// ModRoles returns the ids of the guild's moderator roles.
func (s *Store) ModRoles(ctx context.Context, guildID string) ([]string, error) {
	var roleIDs []string
	err := s.db.WithContext(ctx).
		Model(&models.ModRole{}).
		Where(&models.ModRole{GuildID: guildID}).
		Order("role_id").
		Pluck("role_id", &roleIDs).Error
	return roleIDs, err
}

// AddModRole marks roleID as a moderator role. It returns false if the role
// already was one.
func (s *Store) AddModRole(ctx context.Context, guildID, roleID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ModRole{GuildID: guildID, RoleID: roleID})
	return result.RowsAffected > 0, result.Error
}

// DeleteModRole removes roleID from the moderator roles. It returns false if
// the role wasn't one.
func (s *Store) DeleteModRole(ctx context.Context, guildID, roleID string) (bool, error) {
	// Unscoped so the unique index doesn't block adding the role again.
	result := s.db.WithContext(ctx).
		Unscoped().
		Where(&models.ModRole{GuildID: guildID, RoleID: roleID}).
		Delete(&models.ModRole{})
	return result.RowsAffected > 0, result.Error
}
