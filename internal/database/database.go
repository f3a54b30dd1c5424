package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshare/internal/config"
	"github.com/mrlokans/bookshare/internal/entities"
)

// Models lists every entity managed by AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&entities.User{},
		&entities.RoleChangeRequest{},
		&entities.Book{},
		&entities.BookWishlist{},
		&entities.ReadingHistory{},
		&entities.BookDownload{},
		&entities.BorrowRequest{},
		&entities.Notification{},
		&entities.Review{},
		&entities.Community{},
		&entities.CommunityPost{},
		&entities.Comment{},
		&entities.Setting{},
		&entities.AuditEvent{},
	}
}

type Database struct {
	DB     *gorm.DB
	Driver config.DatabaseDriver
}

// NewDatabase opens the configured database and migrates the schema.
func NewDatabase(cfg config.Database) (*Database, error) {
	return open(cfg, logger.Default.LogMode(logger.Info))
}

// NewSQLite opens a sqlite database at path with SQL logging silenced.
// Used by tests and CLI commands.
func NewSQLite(path string) (*Database, error) {
	return open(config.Database{Driver: config.DatabaseDriverSQLite, Path: path}, logger.Default.LogMode(logger.Silent))
}

func open(cfg config.Database, gormLogger logger.Interface) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DatabaseDriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
		dialector = postgres.Open(cfg.DSN)
	case config.DatabaseDriverSQLite, "":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		// timestamps are stored in UTC so date comparisons stay lexical on sqlite
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.DatabaseDriverSQLite
	}
	if driver == config.DatabaseDriverSQLite {
		// sqlite allows one writer; a single connection also keeps :memory: databases shared
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		log.Printf("Database initialized successfully at %s", cfg.Path)
	} else {
		log.Printf("Database initialized successfully (%s)", driver)
	}

	return &Database{DB: db, Driver: driver}, nil
}

// Ping checks the connection, for the health endpoint.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetStats returns catalog totals for the admin dashboard.
func (d *Database) GetStats() (Stats, error) {
	var s Stats
	queries := []struct {
		dst   *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&s.Users, &entities.User{}, "", nil},
		{&s.Readers, &entities.User{}, "role = ?", []interface{}{entities.UserRoleReader}},
		{&s.Authors, &entities.User{}, "role = ?", []interface{}{entities.UserRoleAuthor}},
		{&s.Books, &entities.Book{}, "", nil},
		{&s.PendingBooks, &entities.Book{}, "status = ?", []interface{}{entities.BookStatusPending}},
		{&s.PendingBorrows, &entities.BorrowRequest{}, "status = ?", []interface{}{entities.BorrowStatusPending}},
		{&s.Downloads, &entities.BookDownload{}, "", nil},
	}
	for _, q := range queries {
		tx := d.DB.Model(q.model)
		if q.where != "" {
			tx = tx.Where(q.where, q.args...)
		}
		if err := tx.Count(q.dst).Error; err != nil {
			return Stats{}, err
		}
	}
	return s, nil
}

type Stats struct {
	Users          int64 `json:"users"`
	Readers        int64 `json:"readers"`
	Authors        int64 `json:"authors"`
	Books          int64 `json:"books"`
	PendingBooks   int64 `json:"pending_books"`
	PendingBorrows int64 `json:"pending_borrows"`
	Downloads      int64 `json:"downloads"`
}
