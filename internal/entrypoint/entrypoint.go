package entrypoint

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/access"
	"github.com/mrlokans/bookshare/internal/audit"
	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/books"
	"github.com/mrlokans/bookshare/internal/borrowing"
	"github.com/mrlokans/bookshare/internal/community"
	"github.com/mrlokans/bookshare/internal/config"
	"github.com/mrlokans/bookshare/internal/database"
	auditdb "github.com/mrlokans/bookshare/internal/database/audit"
	booksdb "github.com/mrlokans/bookshare/internal/database/books"
	borrowingdb "github.com/mrlokans/bookshare/internal/database/borrowing"
	communitydb "github.com/mrlokans/bookshare/internal/database/community"
	"github.com/mrlokans/bookshare/internal/database/notifications"
	reviewsdb "github.com/mrlokans/bookshare/internal/database/reviews"
	settingsdb "github.com/mrlokans/bookshare/internal/database/settings"
	"github.com/mrlokans/bookshare/internal/database/users"
	http_controllers "github.com/mrlokans/bookshare/internal/http"
	"github.com/mrlokans/bookshare/internal/metadata"
	"github.com/mrlokans/bookshare/internal/notify"
	"github.com/mrlokans/bookshare/internal/reviews"
	"github.com/mrlokans/bookshare/internal/scheduler"
	"github.com/mrlokans/bookshare/internal/settingsstore"
	"github.com/mrlokans/bookshare/internal/storage"
	"github.com/mrlokans/bookshare/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 sends SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the HTTP server
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookshare v%s", version)

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()
	log.Printf("Database driver: %s", db.Driver)

	fileStore, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}
	if fileStore == nil {
		log.Printf("Book files are stored in the database")
	} else {
		log.Printf("Book files are stored in %s storage", cfg.Storage.Backend)
	}

	bookRepo := booksdb.NewRepository(db.DB)
	borrowRepo := borrowingdb.NewRepository(db.DB)
	userRepo := users.NewRepository(db.DB)
	inbox := notifications.NewRepository(db.DB)
	auditService := audit.NewService(auditdb.NewRepository(db.DB))
	settings := settingsstore.New(settingsdb.NewRepository(db.DB), cfg.Borrowing, cfg.Reminders)

	// Notifications go through the task queue when it is enabled
	var notifier notify.Notifier = notify.NewStoreNotifier(inbox)
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromAppConfig(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()
		notifier = tasks.NewNotificationDispatcher(taskClient, inbox)
	}

	sweeper := borrowing.NewSweeper(borrowRepo, inbox, notifier, settings.DueSoonDays())

	if taskClient != nil {
		taskClient.Register(
			tasks.NewDeliverNotificationQueue(inbox),
			tasks.NewBorrowRemindersQueue(sweeper, settings),
			tasks.NewCleanupQueue(auditService, inbox),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		cleanup := tasks.CleanupTask{AuditRetentionDays: cfg.Audit.RetentionDays}
		if _, err := taskClient.Enqueue(context.Background(), cleanup); err != nil {
			log.Printf("Failed to enqueue startup cleanup: %v", err)
		}
	}

	var reminderQueue tasks.Enqueuer
	if taskClient != nil {
		reminderQueue = taskClient
	}
	reminders := scheduler.NewRemindersScheduler(cfg.Reminders, sweeper, settings, reminderQueue, auditService)
	if err := reminders.Start(context.Background()); err != nil {
		log.Printf("WARNING: Failed to start reminders scheduler: %v", err)
	}

	bookService := books.NewService(bookRepo, fileStore, notifier, cfg.Storage.MaxUpload)
	borrowManager := borrowing.NewManager(borrowRepo, notifier, settings)
	gate := access.NewGate(borrowRepo, bookRepo, fileStore)
	reviewService := reviews.NewService(reviewsdb.NewRepository(db.DB), notifier)
	communityService := community.NewService(communitydb.NewRepository(db.DB))
	accounts := auth.NewAccounts(userRepo, notifier)

	// Authentication
	authService := auth.NewService(db.DB, cfg.Auth)

	// Sessions persist in sqlite; other drivers keep them in memory
	var sessionDB *sql.DB
	if db.Driver == config.DatabaseDriverSQLite {
		sessionDB, err = db.DB.DB()
		if err != nil {
			log.Fatalf("Failed to get SQL DB for sessions: %v", err)
		}
	}
	sessionManager, err := auth.NewSessionManager(sessionDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}
	authMiddleware := auth.NewMiddleware(authService, sessionManager)

	var csrfSecret []byte
	if cfg.Auth.SessionSecret != "" {
		csrfSecret, err = hex.DecodeString(cfg.Auth.SessionSecret)
		if err != nil {
			// Not hex, use as raw bytes
			csrfSecret = []byte(cfg.Auth.SessionSecret)
		}
	} else {
		secret, err := auth.GenerateSessionSecret()
		if err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}
		csrfSecret, _ = hex.DecodeString(secret)
		log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	}

	if hasUsers, _ := authService.HasUsers(); !hasUsers {
		log.Printf("No users found. Run '%s create-admin -email <address>' to create an administrator.", os.Args[0])
	}

	var lookup http_controllers.ISBNLookup
	if cfg.Metadata.Enabled {
		lookup = metadata.NewOpenLibraryClient(cfg.Metadata.BaseURL)
		log.Printf("ISBN lookup enabled via %s", cfg.Metadata.BaseURL)
	}

	healthChecks := map[string]http_controllers.HealthCheck{}
	if taskClient != nil {
		healthChecks["tasks"] = taskClient.Ping
	}

	routerCfg := http_controllers.RouterConfig{
		Books:          bookService,
		Borrowing:      borrowManager,
		Access:         gate,
		Reviews:        reviewService,
		Community:      communityService,
		Accounts:       accounts,
		Catalog:        bookRepo,
		Loans:          borrowRepo,
		Notifications:  inbox,
		Users:          userRepo,
		Stats:          db,
		Settings:       settings,
		Reminders:      reminders,
		Auditor:        auditService,
		AuditLog:       auditService,
		Metadata:       lookup,
		AuthService:    authService,
		AuthMiddleware: authMiddleware,
		SessionManager: sessionManager,
		AuthConfig:     cfg.Auth,
		LoginAuditor:   auditService,
		CSRFSecret:     csrfSecret,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     cfg.UI.StaticPath,
		Database:       db,
		HealthChecks:   healthChecks,
		Version:        version,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		reminders.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		auditService.Flush()
	}

	Serve(router, cfg, onShutdown)
}
