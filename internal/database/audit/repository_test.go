package audit

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

func newRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.AuditEvent{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db)
}

func id(v uint) *uint { return &v }

func TestRepository_LogEventStampsTime(t *testing.T) {
	repo := newRepo(t)

	event := &entities.AuditEvent{
		UserID:     1,
		EventType:  entities.AuditEventBorrow,
		Action:     "borrow_approve",
		EntityType: "borrow_request",
		EntityID:   id(3),
		Status:     entities.AuditStatusSuccess,
	}
	require.NoError(t, repo.LogEvent(event))

	assert.NotZero(t, event.ID)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, time.Minute)
}

// seed stores 12 borrow events by user 1 spread over the last 12 hours,
// cycling through requests 1-3, and 4 moderation events by user 2 from two
// days ago.
func seed(t *testing.T, repo *Repository, now time.Time) {
	t.Helper()
	for i := range 12 {
		require.NoError(t, repo.LogEvent(&entities.AuditEvent{
			UserID:     1,
			EventType:  entities.AuditEventBorrow,
			Action:     "borrow_request",
			EntityType: "borrow_request",
			EntityID:   id(uint(i%3 + 1)),
			Status:     entities.AuditStatusSuccess,
			CreatedAt:  now.Add(-time.Duration(i) * time.Hour),
		}))
	}
	for range 4 {
		require.NoError(t, repo.LogEvent(&entities.AuditEvent{
			UserID:    2,
			EventType: entities.AuditEventModeration,
			Action:    "book_approve",
			Status:    entities.AuditStatusSuccess,
			CreatedAt: now.Add(-48 * time.Hour),
		}))
	}
}

func TestRepository_ListEventsFilters(t *testing.T) {
	repo := newRepo(t)
	now := time.Now()
	seed(t, repo, now)

	tests := []struct {
		name   string
		filter Filter
		total  int64
	}{
		{"everything", Filter{}, 16},
		{"by user", Filter{UserID: 1}, 12},
		{"by type", Filter{EventType: entities.AuditEventModeration}, 4},
		{"by entity", Filter{EntityType: "borrow_request", EntityID: 2}, 4},
		{"since", Filter{Since: now.Add(-24 * time.Hour)}, 12},
		{"combined", Filter{UserID: 2, EventType: entities.AuditEventBorrow}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, total, err := repo.ListEvents(tt.filter, 0, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			assert.Len(t, events, int(tt.total))
		})
	}
}

func TestRepository_ListEventsPages(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, time.Now())

	first, total, err := repo.ListEvents(Filter{UserID: 1}, 5, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 12, total)
	require.Len(t, first, 5)
	for i := 1; i < len(first); i++ {
		assert.False(t, first[i].CreatedAt.After(first[i-1].CreatedAt), "newest first")
	}

	last, _, err := repo.ListEvents(Filter{UserID: 1}, 5, 10)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.True(t, last[0].CreatedAt.Before(first[4].CreatedAt))

	clamped, _, err := repo.ListEvents(Filter{UserID: 1}, 5, -3)
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, clamped[0].ID)
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := newRepo(t)
	now := time.Now()

	for action, age := range map[string]time.Duration{"old": 48 * time.Hour, "new": time.Hour} {
		require.NoError(t, repo.LogEvent(&entities.AuditEvent{
			EventType: entities.AuditEventDownload,
			Action:    action,
			Status:    entities.AuditStatusSuccess,
			CreatedAt: now.Add(-age),
		}))
	}

	deleted, err := repo.DeleteOldEvents(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	events, _, err := repo.ListEvents(Filter{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].Action)
}
