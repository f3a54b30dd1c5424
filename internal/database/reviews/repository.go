// Package reviews provides database operations for book reviews.
package reviews

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateReview(review *entities.Review) error {
	return r.db.Omit("Book", "Reviewer").Create(review).Error
}

func (r *Repository) GetReviewByID(id uint) (*entities.Review, error) {
	var review entities.Review
	err := r.db.Preload("Reviewer").First(&review, id).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// UpdateReview saves rating, title and content.
func (r *Repository) UpdateReview(review *entities.Review) error {
	return r.db.Model(review).Select("rating", "title", "content").Updates(review).Error
}

func (r *Repository) DeleteReview(id uint) error {
	return r.db.Delete(&entities.Review{}, id).Error
}

// FindByReviewer returns the reviewer's review of the book, or nil.
func (r *Repository) FindByReviewer(bookID, reviewerID uint) (*entities.Review, error) {
	var review entities.Review
	err := r.db.Where("book_id = ? AND reviewer_id = ?", bookID, reviewerID).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ListForBook returns a book's reviews, newest first.
func (r *Repository) ListForBook(bookID uint) ([]entities.Review, error) {
	var items []entities.Review
	err := r.db.Preload("Reviewer").Where("book_id = ?", bookID).Order("created_at DESC").Find(&items).Error
	return items, err
}

// AverageRating returns the mean rating of a book and the number of reviews.
func (r *Repository) AverageRating(bookID uint) (float64, int64, error) {
	var row struct {
		Avg   *float64
		Count int64
	}
	err := r.db.Model(&entities.Review{}).
		Select("AVG(rating) AS avg, COUNT(*) AS count").
		Where("book_id = ?", bookID).
		Scan(&row).Error
	if err != nil || row.Avg == nil {
		return 0, row.Count, err
	}
	return *row.Avg, row.Count, nil
}
