// Package books provides database operations for the book catalog.
//
// File bytes live in the file_blob column and are never loaded by the
// listing queries; use GetBookContent to fetch them.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetBookByID(123)
package books

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/entities"
)

// metadataColumns are the columns written by UpdateBook when the file is unchanged.
var metadataColumns = []string{
	"title", "original_author", "description", "genre", "language",
	"publication_date", "publisher", "isbn", "pages", "availability",
	"status", "rejection_reason",
}

var fileColumns = []string{"file_blob", "file_key", "file_name", "file_mime", "file_size"}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) withoutBlob() *gorm.DB {
	return r.db.Omit("file_blob")
}

// CreateBook inserts a book including its file content.
func (r *Repository) CreateBook(book *entities.Book) error {
	return r.db.Omit("Author").Create(book).Error
}

// GetBookByID retrieves a book with its author, without the file bytes.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.withoutBlob().Preload("Author").First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBookContent returns the stored file bytes of a book.
func (r *Repository) GetBookContent(id uint) ([]byte, error) {
	var book entities.Book
	err := r.db.Select("id", "file_blob").First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return book.FileBlob, nil
}

// UpdateBook saves the editable fields. File columns are written only when withFile is set.
func (r *Repository) UpdateBook(book *entities.Book, withFile bool) error {
	cols := metadataColumns
	if withFile {
		cols = append(append([]string{}, metadataColumns...), fileColumns...)
	}
	return r.db.Model(book).Select(cols).Updates(book).Error
}

// SetStatus changes the moderation status of a book.
func (r *Repository) SetStatus(id uint, status entities.BookStatus, reason string) error {
	result := r.db.Model(&entities.Book{}).Where("id = ?", id).Updates(map[string]any{
		"status":           status,
		"rejection_reason": reason,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteBook removes a book and every row that references it.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		dependents := []interface{}{
			&entities.BorrowRequest{},
			&entities.BookWishlist{},
			&entities.ReadingHistory{},
			&entities.BookDownload{},
			&entities.Review{},
		}
		for _, model := range dependents {
			if err := tx.Where("book_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete %T rows: %w", model, err)
			}
		}
		if err := tx.Model(&entities.CommunityPost{}).Where("book_id = ?", id).Update("book_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Book{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ISBNTaken reports whether another book already uses the ISBN.
func (r *Repository) ISBNTaken(isbn string, exceptBookID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Where("isbn = ? AND id <> ?", isbn, exceptBookID).Count(&count).Error
	return count > 0, err
}

// ListByAuthor returns an author's books, newest first.
func (r *Repository) ListByAuthor(authorID uint) ([]entities.Book, error) {
	var books []entities.Book
	err := r.withoutBlob().Where("author_id = ?", authorID).Order("created_at DESC").Find(&books).Error
	return books, err
}

// ListByStatus returns books with the given status, oldest first.
func (r *Repository) ListByStatus(status entities.BookStatus) ([]entities.Book, error) {
	var books []entities.Book
	err := r.withoutBlob().Preload("Author").Where("status = ?", status).Order("created_at ASC").Find(&books).Error
	return books, err
}

// RecentApproved returns the newest approved books.
func (r *Repository) RecentApproved(limit int) ([]entities.Book, error) {
	var books []entities.Book
	err := r.withoutBlob().Preload("Author").
		Where("status = ?", entities.BookStatusApproved).
		Order("created_at DESC").Limit(limit).Find(&books).Error
	return books, err
}

// AuthorStats summarizes an author's catalog.
type AuthorStats struct {
	Total          int64 `json:"total"`
	Approved       int64 `json:"approved"`
	Pending        int64 `json:"pending"`
	Rejected       int64 `json:"rejected"`
	Downloads      int64 `json:"downloads"`
	ActiveBorrows  int64 `json:"active_borrows"`
	PendingBorrows int64 `json:"pending_borrows"`
}

// GetAuthorStats counts books, downloads and borrows for an author.
func (r *Repository) GetAuthorStats(authorID uint) (AuthorStats, error) {
	var s AuthorStats
	var rows []struct {
		Status entities.BookStatus
		Count  int64
	}
	err := r.db.Model(&entities.Book{}).Select("status, COUNT(*) AS count").
		Where("author_id = ?", authorID).Group("status").Scan(&rows).Error
	if err != nil {
		return s, err
	}
	for _, row := range rows {
		s.Total += row.Count
		switch row.Status {
		case entities.BookStatusApproved:
			s.Approved = row.Count
		case entities.BookStatusPending:
			s.Pending = row.Count
		case entities.BookStatusRejected:
			s.Rejected = row.Count
		}
	}

	authored := r.db.Model(&entities.Book{}).Select("id").Where("author_id = ?", authorID)
	if err := r.db.Model(&entities.BookDownload{}).Where("book_id IN (?)", authored).Count(&s.Downloads).Error; err != nil {
		return s, err
	}
	if err := r.db.Model(&entities.BorrowRequest{}).
		Where("book_id IN (?) AND status IN ? AND returned_at IS NULL", authored, entities.ActiveBorrowStatuses).
		Count(&s.ActiveBorrows).Error; err != nil {
		return s, err
	}
	err = r.db.Model(&entities.BorrowRequest{}).
		Where("book_id IN (?) AND status = ?", authored, entities.BorrowStatusPending).
		Count(&s.PendingBorrows).Error
	return s, err
}
