package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type StorageBackend string

const (
	StorageBackendNone  StorageBackend = "none"  // File bytes are kept in the books table
	StorageBackendLocal StorageBackend = "local" // Files live under Storage.Dir
	StorageBackendMinio StorageBackend = "minio" // Files live in an S3 compatible bucket
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Auth
		Borrowing
		Reminders
		Storage
		Tasks
		Audit
		Metadata
	}

	HTTP struct {
		Port        int32
		Host        string
		CORSOrigins []string // Empty disables CORS handling
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver DatabaseDriver
		Path   string // sqlite file
		DSN    string // postgres connection string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		MaxLoginAttempts int
		RateLimitWindow  time.Duration
		LockoutDuration  time.Duration
	}
	Borrowing struct {
		DefaultDays int // Used when a request does not specify a duration
		DueSoonDays int // Reminder window before the due date
	}
	Reminders struct {
		Enabled  bool
		Schedule string // Cron format: "0 8 * * *" = daily at 08:00
	}
	Storage struct {
		Backend   StorageBackend
		Dir       string
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
		MaxUpload int64 // bytes
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration // Stuck tasks go back to the queue after this
		CleanupInterval time.Duration // How often finished tasks are pruned
	}
	Audit struct {
		RetentionDays int
	}
	Metadata struct {
		Enabled bool   // ISBN lookup on the book form
		BaseURL string // Open Library API root
	}
)

// loadDotEnv reads a .env file into the process environment if one exists.
// Variables already set in the environment win.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err == nil {
		log.Printf("Loaded environment from %s", path)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func NewConfig() *Config {
	loadDotEnv(".env")

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("cors_origins", "")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Borrowing defaults
	v.SetDefault("book_borrow_days", DefaultBorrowDays)
	v.SetDefault("borrow_due_soon_days", 2)
	v.SetDefault("reminders_enabled", true)
	v.SetDefault("reminders_schedule", "0 8 * * *")

	// Book file storage defaults
	v.SetDefault("storage_backend", string(StorageBackendNone))
	v.SetDefault("storage_dir", DefaultStorageDir)
	v.SetDefault("storage_endpoint", "localhost:9000")
	v.SetDefault("storage_access_key", "")
	v.SetDefault("storage_secret_key", "")
	v.SetDefault("storage_bucket", "bookshare")
	v.SetDefault("storage_use_ssl", false)
	v.SetDefault("storage_max_upload", DefaultMaxUploadBytes)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("audit_retention_days", 30)

	v.SetDefault("metadata_lookup_enabled", true)
	v.SetDefault("metadata_base_url", "https://openlibrary.org")

	return &Config{
		HTTP: HTTP{
			Port:        v.GetInt32("PORT"),
			Host:        v.GetString("HOST"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver: DatabaseDriver(strings.ToLower(v.GetString("DATABASE_DRIVER"))),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Borrowing: Borrowing{
			DefaultDays: v.GetInt("BOOK_BORROW_DAYS"),
			DueSoonDays: v.GetInt("BORROW_DUE_SOON_DAYS"),
		},
		Reminders: Reminders{
			Enabled:  v.GetBool("REMINDERS_ENABLED"),
			Schedule: v.GetString("REMINDERS_SCHEDULE"),
		},
		Storage: Storage{
			Backend:   StorageBackend(strings.ToLower(v.GetString("STORAGE_BACKEND"))),
			Dir:       v.GetString("STORAGE_DIR"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			MaxUpload: v.GetInt64("STORAGE_MAX_UPLOAD"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Metadata: Metadata{
			Enabled: v.GetBool("METADATA_LOOKUP_ENABLED"),
			BaseURL: v.GetString("METADATA_BASE_URL"),
		},
	}
}
