package entities

import "time"

type NotificationType string

const (
	NotificationBorrowRequest      NotificationType = "borrow_request"
	NotificationBorrowApproved     NotificationType = "borrow_approved"
	NotificationBorrowRejected     NotificationType = "borrow_rejected"
	NotificationBookAvailable      NotificationType = "book_available"
	NotificationBorrowDueSoon      NotificationType = "borrow_due_soon"
	NotificationBorrowOverdue      NotificationType = "borrow_overdue"
	NotificationReviewAdded        NotificationType = "review_added"
	NotificationRoleChangeApproved NotificationType = "role_change_approved"
	NotificationRoleChangeRejected NotificationType = "role_change_rejected"
	NotificationBookApproved       NotificationType = "book_approved"
	NotificationBookRejected       NotificationType = "book_rejected"
)

type Notification struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	UserID        uint             `gorm:"index:idx_notifications_user_created" json:"user_id"`
	Type          NotificationType `gorm:"size:50" json:"type"`
	Title         string           `gorm:"size:255" json:"title"`
	Message       string           `gorm:"type:text" json:"message"`
	RelatedBookID *uint            `json:"related_book_id,omitempty"`
	RelatedUserID *uint            `json:"related_user_id,omitempty"`
	IsRead        bool             `gorm:"default:false" json:"is_read"`
	CreatedAt     time.Time        `gorm:"index:idx_notifications_user_created" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
