// Package settings stores runtime overrides as key/value rows.
package settings

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookshare/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting returns gorm.ErrRecordNotFound for an unset key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	if err := r.db.First(&setting, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

// SetSetting inserts the key or overwrites its value.
func (r *Repository) SetSetting(key, value string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entities.Setting{Key: key, Value: value}).Error
}

// DeleteSetting clears an override. Clearing an unset key is not an error.
func (r *Repository) DeleteSetting(key string) error {
	return r.db.Delete(&entities.Setting{}, "key = ?", key).Error
}
