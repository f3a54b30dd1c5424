// Package borrowing provides database operations for borrow requests.
//
// # Usage
//
//	repo := borrowing.NewRepository(db)
//	req, err := repo.GetRequestByID(id)
package borrowing

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/entities"
)

// Repository handles all borrow request database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new borrowing repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func withBook(db *gorm.DB) *gorm.DB {
	return db.Omit("file_blob")
}

func (r *Repository) preloaded() *gorm.DB {
	return r.db.Preload("Reader").Preload("Book", withBook).Preload("Book.Author")
}

// CreateRequest inserts a new borrow request.
func (r *Repository) CreateRequest(req *entities.BorrowRequest) error {
	return r.db.Omit("Reader", "Book").Create(req).Error
}

// GetRequestByID retrieves a request with its reader, book and book author.
func (r *Repository) GetRequestByID(id uint) (*entities.BorrowRequest, error) {
	var req entities.BorrowRequest
	err := r.preloaded().First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateRequest saves the lifecycle fields of a request.
func (r *Repository) UpdateRequest(req *entities.BorrowRequest) error {
	return r.db.Model(req).
		Select("status", "approved_at", "due_date", "returned_at", "rejection_reason").
		Updates(req).Error
}

// HasBlockingRequest reports whether the reader has a request for the book in one of the statuses.
func (r *Repository) HasBlockingRequest(readerID, bookID uint, statuses []entities.BorrowStatus) (bool, error) {
	var count int64
	err := r.db.Model(&entities.BorrowRequest{}).
		Where("reader_id = ? AND book_id = ? AND status IN ?", readerID, bookID, statuses).
		Count(&count).Error
	return count > 0, err
}

// FindActive returns the reader's unreturned approved or borrowed request for the book, or nil.
func (r *Repository) FindActive(readerID, bookID uint) (*entities.BorrowRequest, error) {
	var req entities.BorrowRequest
	err := r.db.
		Where("reader_id = ? AND book_id = ? AND status IN ? AND returned_at IS NULL", readerID, bookID, entities.ActiveBorrowStatuses).
		Order("due_date DESC").
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// LatestForReader returns the reader's most recent request for the book, or nil.
func (r *Repository) LatestForReader(readerID, bookID uint) (*entities.BorrowRequest, error) {
	var req entities.BorrowRequest
	err := r.db.Where("reader_id = ? AND book_id = ?", readerID, bookID).
		Order("requested_at DESC, id DESC").
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListForReader returns a reader's requests, newest first.
func (r *Repository) ListForReader(readerID uint) ([]entities.BorrowRequest, error) {
	var reqs []entities.BorrowRequest
	err := r.preloaded().Where("reader_id = ?", readerID).Order("requested_at DESC, id DESC").Find(&reqs).Error
	return reqs, err
}

// ListPendingForAuthor returns pending requests on books owned by the author, oldest first.
func (r *Repository) ListPendingForAuthor(authorID uint) ([]entities.BorrowRequest, error) {
	var reqs []entities.BorrowRequest
	err := r.preloaded().
		Joins("JOIN books ON books.id = borrow_requests.book_id").
		Where("books.author_id = ? AND borrow_requests.status = ?", authorID, entities.BorrowStatusPending).
		Order("borrow_requests.requested_at ASC").
		Find(&reqs).Error
	return reqs, err
}

// ListPending returns every pending request, oldest first.
func (r *Repository) ListPending() ([]entities.BorrowRequest, error) {
	var reqs []entities.BorrowRequest
	err := r.preloaded().Where("status = ?", entities.BorrowStatusPending).Order("requested_at ASC").Find(&reqs).Error
	return reqs, err
}

// ListActiveForAuthor returns unreturned loans on the author's books.
func (r *Repository) ListActiveForAuthor(authorID uint) ([]entities.BorrowRequest, error) {
	var reqs []entities.BorrowRequest
	err := r.preloaded().
		Joins("JOIN books ON books.id = borrow_requests.book_id").
		Where("books.author_id = ? AND borrow_requests.status IN ? AND borrow_requests.returned_at IS NULL",
			authorID, entities.ActiveBorrowStatuses).
		Order("borrow_requests.due_date ASC").
		Find(&reqs).Error
	return reqs, err
}

// ListActiveDueBy returns unreturned loans whose due date is on or before the given day.
func (r *Repository) ListActiveDueBy(day time.Time) ([]entities.BorrowRequest, error) {
	var reqs []entities.BorrowRequest
	err := r.preloaded().
		Where("status IN ? AND returned_at IS NULL AND due_date IS NOT NULL AND due_date <= ?",
			entities.ActiveBorrowStatuses, day).
		Order("due_date ASC").
		Find(&reqs).Error
	return reqs, err
}
