package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshare/internal/entities"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Setting{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return NewRepository(db)
}

func TestRepository_Unset(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.GetSetting(entities.SettingKeyDefaultBorrowDays)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_SetOverwrites(t *testing.T) {
	repo := newRepo(t)

	require.NoError(t, repo.SetSetting(entities.SettingKeyDefaultBorrowDays, "7"))
	first, err := repo.GetSetting(entities.SettingKeyDefaultBorrowDays)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.SetSetting(entities.SettingKeyDefaultBorrowDays, "21"))
	second, err := repo.GetSetting(entities.SettingKeyDefaultBorrowDays)
	require.NoError(t, err)

	assert.Equal(t, "21", second.Value)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	var rows int64
	require.NoError(t, repo.db.Model(&entities.Setting{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestRepository_KeysAreIndependent(t *testing.T) {
	repo := newRepo(t)

	require.NoError(t, repo.SetSetting(entities.SettingKeyRemindersLastAt, "2026-03-01T08:00:00Z"))
	require.NoError(t, repo.SetSetting(entities.SettingKeyRemindersLastMessage, "2 due soon, 1 overdue"))

	msg, err := repo.GetSetting(entities.SettingKeyRemindersLastMessage)
	require.NoError(t, err)
	assert.Equal(t, "2 due soon, 1 overdue", msg.Value)
}

func TestRepository_Delete(t *testing.T) {
	repo := newRepo(t)

	require.NoError(t, repo.SetSetting(entities.SettingKeyRemindersLastAt, "2026-03-01T08:00:00Z"))
	require.NoError(t, repo.DeleteSetting(entities.SettingKeyRemindersLastAt))

	_, err := repo.GetSetting(entities.SettingKeyRemindersLastAt)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.NoError(t, repo.DeleteSetting("missing"))
}
