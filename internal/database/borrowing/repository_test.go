package borrowing

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

type fixture struct {
	repo   *Repository
	db     *gorm.DB
	author *entities.User
	reader *entities.User
	book   *entities.Book
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "borrowing.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.Book{}, &entities.BorrowRequest{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	f := &fixture{repo: NewRepository(db), db: db}
	f.author = &entities.User{Username: "author", Email: "a@example.com", Role: entities.UserRoleAuthor, IsApproved: true}
	f.reader = &entities.User{Username: "reader", Email: "r@example.com", Role: entities.UserRoleReader, IsApproved: true}
	require.NoError(t, db.Create(f.author).Error)
	require.NoError(t, db.Create(f.reader).Error)
	f.book = &entities.Book{Title: "Dune", AuthorID: f.author.ID, Status: entities.BookStatusApproved, Availability: entities.AvailabilityBorrow, FileBlob: []byte("%PDF")}
	require.NoError(t, db.Omit("Author").Create(f.book).Error)
	return f
}

func (f *fixture) request(t *testing.T, status entities.BorrowStatus, due *time.Time) *entities.BorrowRequest {
	t.Helper()
	req := &entities.BorrowRequest{ReaderID: f.reader.ID, BookID: f.book.ID, Status: status, DueDate: due}
	require.NoError(t, f.repo.CreateRequest(req))
	return req
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestRepository_CreateAndGet(t *testing.T) {
	f := setup(t)
	req := f.request(t, entities.BorrowStatusPending, nil)

	got, err := f.repo.GetRequestByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BorrowStatusPending, got.Status)
	assert.Equal(t, "reader", got.Reader.Username)
	assert.Equal(t, "Dune", got.Book.Title)
	assert.Equal(t, "author", got.Book.Author.Username)
	assert.Empty(t, got.Book.FileBlob)
	assert.False(t, got.RequestedAt.IsZero())
}

func TestRepository_UpdateRequest(t *testing.T) {
	f := setup(t)
	req := f.request(t, entities.BorrowStatusPending, nil)

	now := time.Now()
	req.Status = entities.BorrowStatusApproved
	req.ApprovedAt = &now
	req.DueDate = date(2026, 5, 1)
	require.NoError(t, f.repo.UpdateRequest(req))

	got, err := f.repo.GetRequestByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BorrowStatusApproved, got.Status)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(*date(2026, 5, 1)))
}

func TestRepository_HasBlockingRequest(t *testing.T) {
	f := setup(t)
	f.request(t, entities.BorrowStatusCancelled, nil)

	blocked, err := f.repo.HasBlockingRequest(f.reader.ID, f.book.ID, entities.BlockingBorrowStatuses)
	require.NoError(t, err)
	assert.False(t, blocked)

	f.request(t, entities.BorrowStatusRejected, nil)
	blocked, err = f.repo.HasBlockingRequest(f.reader.ID, f.book.ID, entities.BlockingBorrowStatuses)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestRepository_FindActive(t *testing.T) {
	f := setup(t)

	got, err := f.repo.FindActive(f.reader.ID, f.book.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	returned := f.request(t, entities.BorrowStatusApproved, date(2026, 3, 1))
	now := time.Now()
	returned.ReturnedAt = &now
	require.NoError(t, f.repo.UpdateRequest(returned))

	got, err = f.repo.FindActive(f.reader.ID, f.book.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	active := f.request(t, entities.BorrowStatusBorrowed, date(2026, 4, 1))
	got, err = f.repo.FindActive(f.reader.ID, f.book.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, active.ID, got.ID)
}

func TestRepository_Listings(t *testing.T) {
	f := setup(t)
	pending := f.request(t, entities.BorrowStatusPending, nil)
	approved := f.request(t, entities.BorrowStatusApproved, date(2026, 3, 10))
	f.request(t, entities.BorrowStatusApproved, date(2026, 3, 20))

	forReader, err := f.repo.ListForReader(f.reader.ID)
	require.NoError(t, err)
	assert.Len(t, forReader, 3)

	forAuthor, err := f.repo.ListPendingForAuthor(f.author.ID)
	require.NoError(t, err)
	require.Len(t, forAuthor, 1)
	assert.Equal(t, pending.ID, forAuthor[0].ID)

	none, err := f.repo.ListPendingForAuthor(f.reader.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := f.repo.ListPending()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	loans, err := f.repo.ListActiveForAuthor(f.author.ID)
	require.NoError(t, err)
	assert.Len(t, loans, 2)

	due, err := f.repo.ListActiveDueBy(*date(2026, 3, 12))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, approved.ID, due[0].ID)

	latest, err := f.repo.LatestForReader(f.reader.ID, f.book.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
}
