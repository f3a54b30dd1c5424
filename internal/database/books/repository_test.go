package books

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

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "books.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.BookWishlist{},
		&entities.ReadingHistory{},
		&entities.BookDownload{},
		&entities.BorrowRequest{},
		&entities.Review{},
		&entities.Community{},
		&entities.CommunityPost{},
		&entities.Comment{},
	))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db), db
}

func createAuthor(t *testing.T, db *gorm.DB, username string) *entities.User {
	t.Helper()
	u := &entities.User{Username: username, Email: username + "@example.com", Role: entities.UserRoleAuthor, IsApproved: true}
	require.NoError(t, db.Create(u).Error)
	return u
}

func newBook(authorID uint, title string, status entities.BookStatus) *entities.Book {
	return &entities.Book{
		Title:        title,
		AuthorID:     authorID,
		Genre:        "fiction",
		Language:     "English",
		Availability: entities.AvailabilityBoth,
		Status:       status,
		FileBlob:     []byte("%PDF-1.4 test"),
		FileName:     "book.pdf",
		FileMime:     "application/pdf",
		FileSize:     13,
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo, db := setupTestDB(t)
	author := createAuthor(t, db, "author")

	book := newBook(author.ID, "Dune", entities.BookStatusPending)
	require.NoError(t, repo.CreateBook(book))
	assert.NotZero(t, book.ID)

	got, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, "author", got.Author.Username)
	assert.Empty(t, got.FileBlob)
	assert.True(t, got.HasContent())

	content, err := repo.GetBookContent(book.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 test"), content)

	_, err = repo.GetBookByID(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_UpdateBook_KeepsFileUnlessAsked(t *testing.T) {
	repo, db := setupTestDB(t)
	author := createAuthor(t, db, "author")
	book := newBook(author.ID, "Dune", entities.BookStatusRejected)
	require.NoError(t, repo.CreateBook(book))

	loaded, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	loaded.Title = "Dune Messiah"
	loaded.Status = entities.BookStatusPending
	require.NoError(t, repo.UpdateBook(loaded, false))

	content, err := repo.GetBookContent(book.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 test"), content)

	loaded.FileBlob = []byte("%PDF-1.7 new")
	loaded.FileSize = 12
	require.NoError(t, repo.UpdateBook(loaded, true))

	content, err = repo.GetBookContent(book.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 new"), content)

	got, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", got.Title)
	assert.Equal(t, entities.BookStatusPending, got.Status)
}

func TestRepository_SetStatus(t *testing.T) {
	repo, db := setupTestDB(t)
	author := createAuthor(t, db, "author")
	book := newBook(author.ID, "Dune", entities.BookStatusPending)
	require.NoError(t, repo.CreateBook(book))

	require.NoError(t, repo.SetStatus(book.ID, entities.BookStatusRejected, "blurry scan"))
	got, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusRejected, got.Status)
	assert.Equal(t, "blurry scan", got.RejectionReason)

	assert.ErrorIs(t, repo.SetStatus(9999, entities.BookStatusApproved, ""), gorm.ErrRecordNotFound)
}

func TestRepository_DeleteBook_RemovesDependents(t *testing.T) {
	repo, db := setupTestDB(t)
	author := createAuthor(t, db, "author")
	book := newBook(author.ID, "Dune", entities.BookStatusApproved)
	require.NoError(t, repo.CreateBook(book))

	require.NoError(t, db.Create(&entities.BorrowRequest{ReaderID: 5, BookID: book.ID, Status: entities.BorrowStatusPending}).Error)
	_, err := repo.ToggleWishlist(5, book.ID)
	require.NoError(t, err)
	require.NoError(t, repo.RecordDownload(5, book.ID))

	require.NoError(t, repo.DeleteBook(book.ID))

	var count int64
	require.NoError(t, db.Model(&entities.BorrowRequest{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&entities.BookWishlist{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&entities.BookDownload{}).Count(&count).Error)
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.DeleteBook(book.ID), gorm.ErrRecordNotFound)
}

func TestRepository_ISBNTaken(t *testing.T) {
	repo, db := setupTestDB(t)
	author := createAuthor(t, db, "author")
	isbn := "9780441013593"
	book := newBook(author.ID, "Dune", entities.BookStatusApproved)
	book.ISBN = &isbn
	require.NoError(t, repo.CreateBook(book))

	taken, err := repo.ISBNTaken(isbn, 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.ISBNTaken(isbn, book.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestRepository_Search(t *testing.T) {
	repo, db := setupTestDB(t)
	author := createAuthor(t, db, "author")

	fixtures := []struct {
		title, genre, language, description string
		availability                        entities.Availability
		status                              entities.BookStatus
	}{
		{"Dune", "sci-fi", "English", "Desert planet", entities.AvailabilityBorrow, entities.BookStatusApproved},
		{"Foundation", "sci-fi", "English", "Galactic empire", entities.AvailabilityDownload, entities.BookStatusApproved},
		{"Emma", "romance", "English", "Matchmaking", entities.AvailabilityBoth, entities.BookStatusApproved},
		{"Le Petit Prince", "children", "French", "A desert encounter", entities.AvailabilityBoth, entities.BookStatusApproved},
		{"Hidden", "sci-fi", "English", "Desert draft", entities.AvailabilityBoth, entities.BookStatusPending},
	}
	for i, f := range fixtures {
		b := newBook(author.ID, f.title, f.status)
		b.Genre = f.genre
		b.Language = f.language
		b.Description = f.description
		b.Availability = f.availability
		require.NoError(t, repo.CreateBook(b))
		// distinct creation times for ordering
		require.NoError(t, db.Model(b).Update("created_at", time.Date(2026, 1, i+1, 0, 0, 0, 0, time.UTC)).Error)
	}

	titles := func(res *SearchResult) []string {
		var out []string
		for _, b := range res.Books {
			out = append(out, b.Title)
		}
		return out
	}

	t.Run("only approved books, newest first", func(t *testing.T) {
		res, err := repo.Search(SearchFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), res.Total)
		assert.Equal(t, []string{"Le Petit Prince", "Emma", "Foundation", "Dune"}, titles(res))
	})

	t.Run("free text over description", func(t *testing.T) {
		res, err := repo.Search(SearchFilter{Query: "DESERT"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Dune", "Le Petit Prince"}, titles(res))
	})

	t.Run("genre and availability", func(t *testing.T) {
		res, err := repo.Search(SearchFilter{Genres: []string{"sci-fi"}, Availability: []entities.Availability{entities.AvailabilityDownload}})
		require.NoError(t, err)
		assert.Equal(t, []string{"Foundation"}, titles(res))
	})

	t.Run("language substring", func(t *testing.T) {
		res, err := repo.Search(SearchFilter{Language: "fren"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Le Petit Prince"}, titles(res))
	})

	t.Run("sort by title with pagination", func(t *testing.T) {
		res, err := repo.Search(SearchFilter{Sort: "title", PageSize: 3, Page: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Pages)
		assert.Equal(t, []string{"Le Petit Prince"}, titles(res))
	})

	t.Run("unknown sort falls back to newest", func(t *testing.T) {
		res, err := repo.Search(SearchFilter{Sort: "; DROP TABLE books"})
		require.NoError(t, err)
		assert.Equal(t, "Le Petit Prince", res.Books[0].Title)
	})
}

func TestRepository_Wishlist(t *testing.T) {
	repo, db := setupTestDB(t)
	author := createAuthor(t, db, "author")
	book := newBook(author.ID, "Dune", entities.BookStatusApproved)
	require.NoError(t, repo.CreateBook(book))

	added, err := repo.ToggleWishlist(7, book.ID)
	require.NoError(t, err)
	assert.True(t, added)

	on, err := repo.IsWishlisted(7, book.ID)
	require.NoError(t, err)
	assert.True(t, on)

	items, err := repo.ListWishlist(7)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Dune", items[0].Book.Title)

	added, err = repo.ToggleWishlist(7, book.ID)
	require.NoError(t, err)
	assert.False(t, added)

	on, err = repo.IsWishlisted(7, book.ID)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestRepository_ReadingHistory(t *testing.T) {
	repo, db := setupTestDB(t)
	author := createAuthor(t, db, "author")
	book := newBook(author.ID, "Dune", entities.BookStatusApproved)
	require.NoError(t, repo.CreateBook(book))

	require.NoError(t, repo.RecordReading(7, book.ID))
	require.NoError(t, repo.RecordReading(7, book.ID))

	entries, err := repo.ListReadingHistory(7, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Completed)

	require.NoError(t, repo.MarkCompleted(7, book.ID, time.Now()))
	entries, err = repo.ListReadingHistory(7, 10)
	require.NoError(t, err)
	assert.True(t, entries[0].Completed)
	assert.NotNil(t, entries[0].CompletedAt)

	assert.ErrorIs(t, repo.MarkCompleted(8, book.ID, time.Now()), gorm.ErrRecordNotFound)
}

func TestRepository_GetAuthorStats(t *testing.T) {
	repo, db := setupTestDB(t)
	author := createAuthor(t, db, "author")
	other := createAuthor(t, db, "other")

	approved := newBook(author.ID, "A", entities.BookStatusApproved)
	pending := newBook(author.ID, "B", entities.BookStatusPending)
	foreign := newBook(other.ID, "C", entities.BookStatusApproved)
	for _, b := range []*entities.Book{approved, pending, foreign} {
		require.NoError(t, repo.CreateBook(b))
	}

	require.NoError(t, repo.RecordDownload(9, approved.ID))
	require.NoError(t, repo.RecordDownload(9, foreign.ID))
	due := time.Now().AddDate(0, 0, 3)
	require.NoError(t, db.Create(&entities.BorrowRequest{ReaderID: 9, BookID: approved.ID, Status: entities.BorrowStatusApproved, DueDate: &due}).Error)
	require.NoError(t, db.Create(&entities.BorrowRequest{ReaderID: 10, BookID: approved.ID, Status: entities.BorrowStatusPending}).Error)

	stats, err := repo.GetAuthorStats(author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Approved)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Downloads)
	assert.Equal(t, int64(1), stats.ActiveBorrows)
	assert.Equal(t, int64(1), stats.PendingBorrows)

	mine, err := repo.ListByAuthor(author.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	queue, err := repo.ListByStatus(entities.BookStatusPending)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "B", queue[0].Title)
}
