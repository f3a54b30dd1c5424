package http

import (
	"context"
	"time"

	"github.com/mrlokans/bookshare/internal/database"
	auditdb "github.com/mrlokans/bookshare/internal/database/audit"
	"github.com/mrlokans/bookshare/internal/entities"
	"github.com/mrlokans/bookshare/internal/metadata"
	"github.com/mrlokans/bookshare/internal/settingsstore"
)

// This file consolidates the read-side store interfaces used by HTTP controllers.
// Writes go through the domain services; pages that only list things read the
// repositories directly through these interfaces.

// CatalogStore lists books and the per-user shelves around them.
type CatalogStore interface {
	ListByAuthor(authorID uint) ([]entities.Book, error)
	ListByStatus(status entities.BookStatus) ([]entities.Book, error)
	RecentApproved(limit int) ([]entities.Book, error)

	IsWishlisted(userID, bookID uint) (bool, error)
	ListWishlist(userID uint) ([]entities.BookWishlist, error)
	RecordDownload(userID, bookID uint) error
	RecentDownloads(userID uint, limit int) ([]entities.BookDownload, error)
	RecordReading(userID, bookID uint) error
	MarkCompleted(userID, bookID uint, at time.Time) error
	ListReadingHistory(userID uint, limit int) ([]entities.ReadingHistory, error)
}

// LoanStore reads borrow requests for pages.
type LoanStore interface {
	LatestForReader(readerID, bookID uint) (*entities.BorrowRequest, error)
	ListActiveForAuthor(authorID uint) ([]entities.BorrowRequest, error)
}

// NotificationStore is the user's inbox.
type NotificationStore interface {
	UnreadCounter
	ListForUser(userID uint, limit, offset int) ([]entities.Notification, int64, error)
	MarkRead(userID, id uint) error
	MarkAllRead(userID uint) (int64, error)
}

// UserStore lists accounts for the admin pages.
type UserStore interface {
	GetUserByID(id uint) (*entities.User, error)
	ListUsers(role entities.UserRole) ([]entities.User, error)
	CountByRole() (map[entities.UserRole]int64, error)
}

// StatsSource reports site totals.
type StatsSource interface {
	GetStats() (database.Stats, error)
}

// BorrowSettings is the runtime borrowing configuration.
type BorrowSettings interface {
	DefaultBorrowDays() int
	SetDefaultBorrowDays(days int) error
	ClearDefaultBorrowDays() error
	BorrowSettingsInfo() settingsstore.BorrowSettingsInfo
}

// ISBNLookup fetches edition details to prefill the book form.
type ISBNLookup interface {
	LookupISBN(ctx context.Context, isbn string) (*metadata.BookDetails, error)
}

// ReminderTrigger starts a reminder sweep outside the schedule.
type ReminderTrigger interface {
	RunNow()
}

// Auditor records user actions.
type Auditor interface {
	LogBorrow(actorID uint, action string, req *entities.BorrowRequest, err error)
	LogModeration(adminID uint, action, entityType string, entityID uint, description string)
	LogDownload(userID, bookID uint, ipAddr string)
	LogDelete(userID uint, entityType string, entityID uint, entityName string)
	LogSettings(userID uint, action, description string)
}

// AuditLog lists recorded audit events.
type AuditLog interface {
	ListEvents(filter auditdb.Filter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

type noopAuditor struct{}

func (noopAuditor) LogBorrow(uint, string, *entities.BorrowRequest, error) {}
func (noopAuditor) LogModeration(uint, string, string, uint, string)       {}
func (noopAuditor) LogDownload(uint, uint, string)                         {}
func (noopAuditor) LogDelete(uint, string, uint, string)                   {}
func (noopAuditor) LogSettings(uint, string, string)                       {}
