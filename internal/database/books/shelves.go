package books

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/entities"
)

// ToggleWishlist adds the book to the user's wishlist, or removes it if present.
// Returns true when the book was added.
func (r *Repository) ToggleWishlist(userID, bookID uint) (bool, error) {
	added := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND book_id = ?", userID, bookID).Delete(&entities.BookWishlist{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
		added = true
		return tx.Omit("Book").Create(&entities.BookWishlist{UserID: userID, BookID: bookID}).Error
	})
	return added, err
}

// IsWishlisted reports whether the book is on the user's wishlist.
func (r *Repository) IsWishlisted(userID, bookID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.BookWishlist{}).Where("user_id = ? AND book_id = ?", userID, bookID).Count(&count).Error
	return count > 0, err
}

// ListWishlist returns the user's wishlist with books, newest first.
func (r *Repository) ListWishlist(userID uint) ([]entities.BookWishlist, error) {
	var items []entities.BookWishlist
	err := r.db.Preload("Book", func(db *gorm.DB) *gorm.DB {
		return db.Omit("file_blob")
	}).Where("user_id = ?", userID).Order("added_at DESC").Find(&items).Error
	return items, err
}

// RecordDownload logs a download of the book by the user.
func (r *Repository) RecordDownload(userID, bookID uint) error {
	return r.db.Omit("User", "Book").Create(&entities.BookDownload{UserID: userID, BookID: bookID}).Error
}

// RecentDownloads returns the user's latest downloads.
func (r *Repository) RecentDownloads(userID uint, limit int) ([]entities.BookDownload, error) {
	var downloads []entities.BookDownload
	err := r.db.Preload("Book", func(db *gorm.DB) *gorm.DB {
		return db.Omit("file_blob")
	}).Where("user_id = ?", userID).Order("downloaded_at DESC").Limit(limit).Find(&downloads).Error
	return downloads, err
}

// RecordReading adds the book to the user's reading history if it is not there yet.
func (r *Repository) RecordReading(userID, bookID uint) error {
	var entry entities.ReadingHistory
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&entry).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.Omit("Book").Create(&entities.ReadingHistory{UserID: userID, BookID: bookID}).Error
}

// MarkCompleted flags a reading history entry as finished.
func (r *Repository) MarkCompleted(userID, bookID uint, at time.Time) error {
	result := r.db.Model(&entities.ReadingHistory{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Updates(map[string]any{"completed": true, "completed_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListReadingHistory returns the user's reading history, newest first.
func (r *Repository) ListReadingHistory(userID uint, limit int) ([]entities.ReadingHistory, error) {
	var entries []entities.ReadingHistory
	query := r.db.Preload("Book", func(db *gorm.DB) *gorm.DB {
		return db.Omit("file_blob")
	}).Where("user_id = ?", userID).Order("added_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, err
}
