package http

import (
	"github.com/mrlokans/bookshare/internal/access"
	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/books"
	"github.com/mrlokans/bookshare/internal/borrowing"
	"github.com/mrlokans/bookshare/internal/community"
	"github.com/mrlokans/bookshare/internal/config"
	"github.com/mrlokans/bookshare/internal/database"
	"github.com/mrlokans/bookshare/internal/reviews"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Domain services
	Books     *books.Service
	Borrowing *borrowing.Manager
	Access    *access.Gate
	Reviews   *reviews.Service
	Community *community.Service
	Accounts  *auth.Accounts

	// Read models
	Catalog       CatalogStore
	Loans         LoanStore
	Notifications NotificationStore
	Users         UserStore
	Stats         StatsSource

	// Administration
	Settings  BorrowSettings
	Reminders ReminderTrigger // optional
	Auditor   Auditor         // optional
	AuditLog  AuditLog        // optional

	// ISBN lookup on the book form, optional
	Metadata ISBNLookup

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth
	LoginAuditor   auth.LoginAuditor // optional
	CSRFSecret     []byte            // empty disables CSRF checks

	// API clients allowed by CORS
	CORSOrigins []string

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Health checks
	Database     *database.Database
	HealthChecks map[string]HealthCheck
	Version      string
}
