package notifications

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshare/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "notifications.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Notification{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db)
}

func bookID(id uint) *uint { return &id }

func TestRepository_Inbox(t *testing.T) {
	repo := setupTestDB(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateNotification(&entities.Notification{
			UserID: 1, Type: entities.NotificationBorrowRequest, Title: "New borrow request", Message: "m",
		}))
	}
	require.NoError(t, repo.CreateNotification(&entities.Notification{UserID: 2, Type: entities.NotificationReviewAdded, Title: "t"}))

	items, total, err := repo.ListForUser(1, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 2)

	count, err := repo.UnreadCount(1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, repo.MarkRead(1, items[0].ID))
	count, err = repo.UnreadCount(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	t.Run("cannot mark another user's notification", func(t *testing.T) {
		assert.ErrorIs(t, repo.MarkRead(2, items[1].ID), gorm.ErrRecordNotFound)
	})

	n, err := repo.MarkAllRead(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err = repo.UnreadCount(1)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = repo.UnreadCount(2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRepository_ExistsSince(t *testing.T) {
	repo := setupTestDB(t)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateNotification(&entities.Notification{
		UserID: 1, Type: entities.NotificationBorrowDueSoon, RelatedBookID: bookID(4),
		CreatedAt: today.Add(8 * time.Hour),
	}))

	exists, err := repo.ExistsSince(1, entities.NotificationBorrowDueSoon, 4, today)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsSince(1, entities.NotificationBorrowOverdue, 4, today)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsSince(1, entities.NotificationBorrowDueSoon, 4, today.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepository_DeleteOlderThan(t *testing.T) {
	repo := setupTestDB(t)
	old := time.Now().AddDate(0, 0, -90)

	require.NoError(t, repo.CreateNotification(&entities.Notification{UserID: 1, Title: "old read", IsRead: true, CreatedAt: old}))
	require.NoError(t, repo.CreateNotification(&entities.Notification{UserID: 1, Title: "old unread", CreatedAt: old}))
	require.NoError(t, repo.CreateNotification(&entities.Notification{UserID: 1, Title: "new read", IsRead: true}))

	deleted, err := repo.DeleteOlderThan(time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
