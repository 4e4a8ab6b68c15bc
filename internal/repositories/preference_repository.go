package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserNotificationPreference is the PostgreSQL row backing the preference
// filter when users live in Postgres. A row exists only once the user has
// stored a preference.
type UserNotificationPreference struct {
	UserID        string    `json:"user_id" gorm:"primaryKey;size:24"`
	NotifyUpdates *bool     `json:"notify_updates"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PostgresPreferenceRepository implements PreferenceRepository for PostgreSQL
type PostgresPreferenceRepository struct {
	db *gorm.DB
}

// NewPostgresPreferenceRepository creates a new PostgresPreferenceRepository
func NewPostgresPreferenceRepository(db *gorm.DB) *PostgresPreferenceRepository {
	return &PostgresPreferenceRepository{db: db}
}

// AutoMigrate creates the preference table
func (r *PostgresPreferenceRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&UserNotificationPreference{})
}

// GetUpdatePreferences reads every requested row with one IN query. The table
// only holds users who made a choice, so an id without a row is reported as
// unset and stays opted in.
func (r *PostgresPreferenceRepository) GetUpdatePreferences(ctx context.Context, userIDs []string) (map[string]*bool, error) {
	result := make(map[string]*bool, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	for _, id := range userIDs {
		result[id] = nil
	}

	var rows []UserNotificationPreference
	err := r.db.WithContext(ctx).
		Select("user_id", "notify_updates").
		Where("user_id IN ?", userIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.UserID] = row.NotifyUpdates
	}
	return result, nil
}

// SetUpdatePreference upserts the user's row
func (r *PostgresPreferenceRepository) SetUpdatePreference(ctx context.Context, userID string, updates *bool) error {
	row := UserNotificationPreference{UserID: userID, NotifyUpdates: updates}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"notify_updates", "updated_at"}),
		}).
		Create(&row).Error
}
