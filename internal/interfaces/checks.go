package interfaces

import (
	"github.com/mrlokans/bookshare/internal/access"
	"github.com/mrlokans/bookshare/internal/audit"
	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/books"
	"github.com/mrlokans/bookshare/internal/borrowing"
	"github.com/mrlokans/bookshare/internal/cli"
	"github.com/mrlokans/bookshare/internal/community"
	"github.com/mrlokans/bookshare/internal/database"
	booksdb "github.com/mrlokans/bookshare/internal/database/books"
	borrowingdb "github.com/mrlokans/bookshare/internal/database/borrowing"
	communitydb "github.com/mrlokans/bookshare/internal/database/community"
	"github.com/mrlokans/bookshare/internal/database/notifications"
	reviewsdb "github.com/mrlokans/bookshare/internal/database/reviews"
	settingsdb "github.com/mrlokans/bookshare/internal/database/settings"
	"github.com/mrlokans/bookshare/internal/database/users"
	"github.com/mrlokans/bookshare/internal/http"
	"github.com/mrlokans/bookshare/internal/metadata"
	"github.com/mrlokans/bookshare/internal/notify"
	"github.com/mrlokans/bookshare/internal/reviews"
	"github.com/mrlokans/bookshare/internal/scheduler"
	"github.com/mrlokans/bookshare/internal/settingsstore"
	"github.com/mrlokans/bookshare/internal/storage"
	"github.com/mrlokans/bookshare/internal/tasks"
)

// =============================================================================
// Domain stores
// =============================================================================

var (
	_ books.Store       = (*booksdb.Repository)(nil)
	_ borrowing.Store   = (*borrowingdb.Repository)(nil)
	_ reviews.Store     = (*reviewsdb.Repository)(nil)
	_ community.Store   = (*communitydb.Repository)(nil)
	_ notify.Store      = (*notifications.Repository)(nil)
	_ auth.AccountStore = (*users.Repository)(nil)
)

// Borrow reminders
var (
	_ borrowing.LoanLister  = (*borrowingdb.Repository)(nil)
	_ borrowing.SentLog     = (*notifications.Repository)(nil)
	_ borrowing.DefaultDays = (*settingsstore.SettingsStore)(nil)
)

// File access gate
var (
	_ access.BorrowLookup  = (*borrowingdb.Repository)(nil)
	_ access.ContentLoader = (*booksdb.Repository)(nil)
)

// =============================================================================
// HTTP read side
// =============================================================================

var (
	_ http.CatalogStore      = (*booksdb.Repository)(nil)
	_ http.LoanStore         = (*borrowingdb.Repository)(nil)
	_ http.NotificationStore = (*notifications.Repository)(nil)
	_ http.UserStore         = (*users.Repository)(nil)
	_ http.StatsSource       = (*database.Database)(nil)
	_ http.BorrowSettings    = (*settingsstore.SettingsStore)(nil)
	_ http.ISBNLookup        = (*metadata.OpenLibraryClient)(nil)
	_ http.ReminderTrigger   = (*scheduler.RemindersScheduler)(nil)
	_ http.Auditor           = (*audit.Service)(nil)
	_ http.AuditLog          = (*audit.Service)(nil)
	_ auth.LoginAuditor      = (*audit.Service)(nil)
)

// =============================================================================
// Delivery, storage and background work
// =============================================================================

var (
	_ notify.Notifier = (*notify.StoreNotifier)(nil)
	_ notify.Notifier = (*tasks.NotificationDispatcher)(nil)
	_ notify.Notifier = notify.Discard{}

	_ storage.Client = (*storage.LocalStore)(nil)
	_ storage.Client = (*storage.MinioStore)(nil)

	_ settingsstore.Backend = (*settingsdb.Repository)(nil)

	_ tasks.Enqueuer               = (*tasks.Client)(nil)
	_ tasks.ReminderRunner         = (*borrowing.Sweeper)(nil)
	_ tasks.ReminderStatusRecorder = (*settingsstore.SettingsStore)(nil)
	_ tasks.AuditEventCleaner      = (*audit.Service)(nil)
	_ tasks.NotificationCleaner    = (*notifications.Repository)(nil)
	_ scheduler.ReminderAuditor    = (*audit.Service)(nil)
)

// seed-books
var (
	_ cli.AuthorLookup  = (*users.Repository)(nil)
	_ cli.BookPublisher = (*booksdb.Repository)(nil)
)
