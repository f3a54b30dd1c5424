// Package notifications provides database operations for the notification inbox.
package notifications

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateNotification inserts a notification.
func (r *Repository) CreateNotification(n *entities.Notification) error {
	return r.db.Create(n).Error
}

// ListForUser returns a user's notifications, newest first.
func (r *Repository) ListForUser(userID uint, limit, offset int) ([]entities.Notification, int64, error) {
	var items []entities.Notification
	var total int64

	query := r.db.Model(&entities.Notification{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&items).Error
	return items, total, err
}

// UnreadCount returns the number of unread notifications for a user.
func (r *Repository) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&count).Error
	return count, err
}

// MarkRead flags one of the user's notifications as read.
func (r *Repository) MarkRead(userID, id uint) error {
	result := r.db.Model(&entities.Notification{}).Where("id = ? AND user_id = ?", id, userID).Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of the user as read.
func (r *Repository) MarkAllRead(userID uint) (int64, error) {
	result := r.db.Model(&entities.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Update("is_read", true)
	return result.RowsAffected, result.Error
}

// ExistsSince reports whether the user already got a notification of the type about the book since the given time.
func (r *Repository) ExistsSince(userID uint, typ entities.NotificationType, bookID uint, since time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Notification{}).
		Where("user_id = ? AND type = ? AND related_book_id = ? AND created_at >= ?", userID, typ, bookID, since).
		Count(&count).Error
	return count > 0, err
}

// DeleteOlderThan removes read notifications created before the cutoff.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("is_read = ? AND created_at < ?", true, cutoff).Delete(&entities.Notification{})
	return result.RowsAffected, result.Error
}
