package http

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// HSTS only makes sense when cookies are HTTPS-only
	hstsMaxAge := 0
	if cfg.AuthConfig.SecureCookies {
		hstsMaxAge = 365 * 24 * 60 * 60
	}
	router.Use(auth.SecurityHeadersMiddleware(hstsMaxAge))

	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", auth.CSRFTokenHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.GinMiddleware())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	// Inject auth data for templates
	router.Use(AuthContextMiddleware(cfg.Notifications))

	views := NewViews(cfg.TemplatesPath, cfg.SessionManager)
	if tmpl := views.Templates(); tmpl != nil {
		router.SetHTMLTemplate(tmpl)
	}
	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	auditor := cfg.Auditor
	if auditor == nil {
		auditor = noopAuditor{}
	}

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version, cfg.HealthChecks)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/books")
	})

	if cfg.AuthService != nil && cfg.SessionManager != nil {
		authController, err := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.TemplatesPath, cfg.AuthConfig, cfg.LoginAuditor)
		if err != nil {
			log.Printf("[HTTP] Auth routes disabled: %v", err)
		} else {
			authController.RegisterRoutes(router)
		}

		// API token management endpoints
		tokenController := auth.NewAPITokenController(cfg.AuthService)
		router.POST("/api/auth/token", tokenController.GenerateToken)
		router.DELETE("/api/auth/token", tokenController.RevokeToken)
	}

	if cfg.AuthMiddleware == nil {
		log.Printf("[HTTP] No auth middleware configured, only public routes are registered")
		return router
	}
	requireAuthor := cfg.AuthMiddleware.RequireRole(entities.UserRoleAuthor, entities.UserRoleAdmin)
	requireAdmin := cfg.AuthMiddleware.RequireRole(entities.UserRoleAdmin)

	catalog := NewCatalogController(cfg.Books, cfg.Reviews, cfg.Borrowing, cfg.Access, cfg.Catalog, cfg.Loans, auditor, views)
	catalog.lookup = cfg.Metadata
	files := NewFilesController(cfg.Books, cfg.Access, cfg.Borrowing, cfg.Catalog, auditor, views)
	borrowing := NewBorrowingController(cfg.Borrowing, cfg.Books, cfg.Settings, auditor, views)
	dashboards := NewDashboardController(cfg.Books, cfg.Borrowing, cfg.Catalog, cfg.Loans, views)
	reviews := NewReviewsController(cfg.Reviews, cfg.Books, auditor, views)
	community := NewCommunityController(cfg.Community, cfg.Catalog, auditor, views)
	notifications := NewNotificationsController(cfg.Notifications, views)
	profile := NewProfileController(cfg.AuthService, cfg.Accounts, views)
	admin := NewAdminController(AdminDeps{
		Books:     cfg.Books,
		Borrowing: cfg.Borrowing,
		Accounts:  cfg.Accounts,
		Auth:      cfg.AuthService,
		Catalog:   cfg.Catalog,
		Users:     cfg.Users,
		Stats:     cfg.Stats,
		Settings:  cfg.Settings,
		Reminders: cfg.Reminders,
		Auditor:   auditor,
	}, views)

	// Catalog
	router.GET("/books", catalog.List)
	router.GET("/books/search", catalog.List)
	router.GET("/books/:id", catalog.Detail)
	router.POST("/books/:id/wishlist", catalog.ToggleWishlist)
	router.GET("/books/:id/download", files.Download)
	router.GET("/books/:id/view", files.Viewer)
	router.GET("/books/:id/file", files.File)
	router.POST("/books/:id/complete", files.MarkCompleted)
	router.GET("/api/books/:id/access", files.Access)

	publishing := router.Group("/", requireAuthor)
	{
		publishing.GET("/books/add", catalog.NewForm)
		publishing.POST("/books/add", catalog.Create)
		publishing.GET("/books/:id/edit", catalog.EditForm)
		publishing.POST("/books/:id/edit", catalog.Update)
		publishing.GET("/books/:id/delete", catalog.DeleteConfirm)
		publishing.POST("/books/:id/delete", catalog.Delete)
		publishing.GET("/author/books", catalog.AuthorBooks)
		publishing.GET("/api/books/lookup", catalog.LookupISBN)
		publishing.GET("/author/dashboard", dashboards.Author)
		publishing.GET("/borrowing/requests", borrowing.PendingRequests)
	}

	// Borrowing
	router.GET("/borrowing/request/:bookId", borrowing.RequestForm)
	router.POST("/borrowing/request/:bookId", borrowing.Create)
	router.POST("/borrowing/:id/approve", borrowing.Approve)
	router.GET("/borrowing/:id/reject", borrowing.RejectForm)
	router.POST("/borrowing/:id/reject", borrowing.Reject)
	router.POST("/borrowing/:id/return", borrowing.Return)
	router.POST("/borrowing/:id/cancel", borrowing.Cancel)

	// Dashboards
	router.GET("/dashboard", dashboards.Dashboard)
	router.GET("/reader/dashboard", dashboards.Reader)

	// Reviews
	router.GET("/reviews/add/:bookId", reviews.AddForm)
	router.POST("/reviews/add/:bookId", reviews.Add)
	router.GET("/reviews/:id/edit", reviews.EditForm)
	router.POST("/reviews/:id/edit", reviews.Edit)
	router.POST("/reviews/:id/delete", reviews.Delete)

	// Notifications
	router.GET("/notifications", notifications.List)
	router.POST("/notifications/read-all", notifications.MarkAllRead)
	router.POST("/notifications/:id/read", notifications.MarkRead)
	router.GET("/api/notifications/unread-count", notifications.UnreadCount)

	// Community
	router.GET("/community", community.Hub)
	router.GET("/community/new", community.NewForm)
	router.POST("/community/new", community.Create)
	router.GET("/community/comments", community.CommentHistory)
	router.GET("/community/comments/:commentId/edit", community.EditCommentForm)
	router.POST("/community/comments/:commentId/edit", community.EditComment)
	router.POST("/community/comments/:commentId/delete", community.DeleteComment)
	router.GET("/community/posts/:postId", community.Post)
	router.POST("/community/posts/:postId/comments", community.AddComment)
	router.GET("/community/posts/:postId/edit", community.EditPostForm)
	router.POST("/community/posts/:postId/edit", community.EditPost)
	router.POST("/community/posts/:postId/delete", community.DeletePost)
	router.GET("/community/:id", community.Detail)
	router.POST("/community/:id/join", community.Join)
	router.POST("/community/:id/leave", community.Leave)
	router.GET("/community/:id/posts/new", community.NewPostForm)
	router.POST("/community/:id/posts/new", community.CreatePost)

	// Profile
	router.GET("/profile", profile.ProfilePage)
	router.GET("/profile/edit", profile.EditForm)
	router.POST("/profile/edit", profile.Edit)
	router.POST("/profile/password", profile.ChangePassword)
	router.POST("/profile/role-request", profile.RequestRole)
	router.POST("/profile/token", profile.GenerateToken)
	router.POST("/profile/token/revoke", profile.RevokeToken)

	adminGroup := router.Group("/admin", requireAdmin)
	{
		adminGroup.GET("/dashboard", admin.Dashboard)
		adminGroup.GET("/book-requests", admin.BookRequests)
		adminGroup.POST("/book-requests/:id", admin.ModerateBook)
		adminGroup.GET("/users", admin.Users)
		adminGroup.POST("/users/:id/approval", admin.SetUserApproval)
		adminGroup.GET("/role-requests", admin.RoleRequests)
		adminGroup.POST("/role-requests/:id", admin.DecideRoleRequest)
		adminGroup.GET("/settings", admin.Settings)
		adminGroup.POST("/settings", admin.UpdateSettings)
		adminGroup.POST("/settings/reminders/run", admin.RunReminders)
	}

	if cfg.AuditLog != nil {
		audit := NewAuditController(cfg.AuditLog, views)
		adminGroup.GET("/audit", audit.AuditLogPage)
		router.GET("/api/admin/audit", requireAdmin, audit.GetAuditEvents)
	}

	return router
}
