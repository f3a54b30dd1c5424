package borrowing

import (
	"fmt"

	"github.com/mrlokans/bookshare/internal/entities"
)

const dueDateLayout = "2006-01-02"

func uintPtr(v uint) *uint { return &v }

func requestCreatedNotification(req *entities.BorrowRequest, days int) *entities.Notification {
	return &entities.Notification{
		UserID:        req.Book.AuthorID,
		Type:          entities.NotificationBorrowRequest,
		Title:         fmt.Sprintf("New borrow request for %q", req.Book.Title),
		Message:       fmt.Sprintf("%s requested to borrow your book %q for %d days.", req.Reader.FullName(), req.Book.Title, days),
		RelatedBookID: uintPtr(req.BookID),
		RelatedUserID: uintPtr(req.ReaderID),
	}
}

func approvedNotification(req *entities.BorrowRequest, actor *entities.User) *entities.Notification {
	due := req.DueDate.Format(dueDateLayout)
	extra := fmt.Sprintf(" Due date: %s.", due)
	if req.RequestedDays != nil {
		extra = fmt.Sprintf(" You have %d days (due %s).", *req.RequestedDays, due)
	}
	return &entities.Notification{
		UserID:        req.ReaderID,
		Type:          entities.NotificationBorrowApproved,
		Title:         fmt.Sprintf("Borrow request approved for %q", req.Book.Title),
		Message:       fmt.Sprintf("Your request to borrow %q was approved by %s.%s", req.Book.Title, actor.FullName(), extra),
		RelatedBookID: uintPtr(req.BookID),
		RelatedUserID: uintPtr(actor.ID),
	}
}

func rejectedNotification(req *entities.BorrowRequest, actor *entities.User) *entities.Notification {
	return &entities.Notification{
		UserID:        req.ReaderID,
		Type:          entities.NotificationBorrowRejected,
		Title:         fmt.Sprintf("Borrow request rejected for %q", req.Book.Title),
		Message:       fmt.Sprintf("Your request to borrow %q was rejected by %s. Reason: %s", req.Book.Title, actor.FullName(), req.RejectionReason),
		RelatedBookID: uintPtr(req.BookID),
		RelatedUserID: uintPtr(actor.ID),
	}
}

func dueSoonNotification(req *entities.BorrowRequest, daysLeft int) *entities.Notification {
	when := fmt.Sprintf("in %d days", daysLeft)
	switch daysLeft {
	case 0:
		when = "today"
	case 1:
		when = "tomorrow"
	}
	return &entities.Notification{
		UserID:        req.ReaderID,
		Type:          entities.NotificationBorrowDueSoon,
		Title:         fmt.Sprintf("%q is due %s", req.Book.Title, when),
		Message:       fmt.Sprintf("Your loan of %q ends on %s. Return it from your dashboard when you are done.", req.Book.Title, req.DueDate.Format(dueDateLayout)),
		RelatedBookID: uintPtr(req.BookID),
	}
}

func overdueNotification(req *entities.BorrowRequest, daysLate int) *entities.Notification {
	return &entities.Notification{
		UserID:        req.ReaderID,
		Type:          entities.NotificationBorrowOverdue,
		Title:         fmt.Sprintf("%q is overdue", req.Book.Title),
		Message:       fmt.Sprintf("Your loan of %q was due on %s (%d days ago). Access to the file has ended.", req.Book.Title, req.DueDate.Format(dueDateLayout), daysLate),
		RelatedBookID: uintPtr(req.BookID),
	}
}
