package entities

import "time"

type BorrowStatus string

const (
	BorrowStatusPending   BorrowStatus = "pending"
	BorrowStatusApproved  BorrowStatus = "approved"
	BorrowStatusBorrowed  BorrowStatus = "borrowed"
	BorrowStatusRejected  BorrowStatus = "rejected"
	BorrowStatusCancelled BorrowStatus = "cancelled"
)

// BlockingBorrowStatuses are the statuses that prevent a reader from opening
// another request for the same book. Only a cancelled request frees the slot.
var BlockingBorrowStatuses = []BorrowStatus{
	BorrowStatusPending,
	BorrowStatusApproved,
	BorrowStatusRejected,
	BorrowStatusBorrowed,
}

// ActiveBorrowStatuses grant content access while the due date holds.
var ActiveBorrowStatuses = []BorrowStatus{
	BorrowStatusApproved,
	BorrowStatusBorrowed,
}

// BorrowDurations are the day counts a reader may pick.
var BorrowDurations = []int{7, 10, 14, 21}

func IsAllowedBorrowDuration(days int) bool {
	for _, d := range BorrowDurations {
		if d == days {
			return true
		}
	}
	return false
}

type BorrowRequest struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	ReaderID        uint         `gorm:"index" json:"reader_id"`
	Reader          User         `gorm:"foreignKey:ReaderID" json:"reader,omitempty"`
	BookID          uint         `gorm:"index" json:"book_id"`
	Book            Book         `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Status          BorrowStatus `gorm:"index;size:20;default:pending" json:"status"`
	RequestedAt     time.Time    `gorm:"autoCreateTime;index" json:"requested_at"`
	ApprovedAt      *time.Time   `json:"approved_at,omitempty"`
	RequestedDays   *int         `json:"requested_days,omitempty"`
	DueDate         *time.Time   `gorm:"index" json:"due_date,omitempty"` // midnight UTC of the due day
	ReturnedAt      *time.Time   `json:"returned_at,omitempty"`
	RejectionReason string       `gorm:"type:text" json:"rejection_reason,omitempty"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (BorrowRequest) TableName() string {
	return "borrow_requests"
}

// Date truncates t to its calendar day, expressed as midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsActive reports whether the request is approved or borrowed and not yet returned.
func (r *BorrowRequest) IsActive() bool {
	if r.ReturnedAt != nil {
		return false
	}
	return r.Status == BorrowStatusApproved || r.Status == BorrowStatusBorrowed
}

// IsOverdue reports whether an active request is past its due date on the given day.
func (r *BorrowRequest) IsOverdue(today time.Time) bool {
	if r.DueDate == nil || !r.IsActive() {
		return false
	}
	return Date(today).After(Date(*r.DueDate))
}

// DaysRemaining returns due date minus today for active requests, or nil.
// The value is negative once the request is overdue.
func (r *BorrowRequest) DaysRemaining(today time.Time) *int {
	if r.DueDate == nil || !r.IsActive() {
		return nil
	}
	days := int(Date(*r.DueDate).Sub(Date(today)).Hours() / 24)
	return &days
}

// GrantsAccess reports whether the request lets its reader open the book on the given day.
func (r *BorrowRequest) GrantsAccess(today time.Time) bool {
	if r.DueDate == nil || !r.IsActive() {
		return false
	}
	return !Date(*r.DueDate).Before(Date(today))
}
