package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

// Client runs the background queues for notification delivery, borrow
// reminders and cleanup.
type Client struct {
	backlite *backlite.Client
	db       *sql.DB
	workers  int
	started  atomic.Bool
}

// QueuePath is where the queue database lives for a main database at
// mainDBPath: "data/bookshare.db" queues in "data/bookshare-tasks.db". With
// postgres the path is still used, so the queue stays on sqlite.
func QueuePath(mainDBPath string) string {
	ext := filepath.Ext(mainDBPath)
	return strings.TrimSuffix(mainDBPath, ext) + "-tasks" + ext
}

// NewClient opens the queue database next to mainDBPath and installs the
// backlite schema.
func NewClient(mainDBPath string, cfg Config) (*Client, error) {
	db, err := sql.Open("sqlite3", QueuePath(mainDBPath)+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open task queue database: %w", err)
	}
	// Workers plus headroom for enqueues from request handlers
	db.SetMaxOpenConns(cfg.Workers + 4)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          queueLogger{},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create task queue: %w", err)
	}
	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("install task queue schema: %w", err)
	}

	return &Client{backlite: client, db: db, workers: cfg.Workers}, nil
}

// Register adds queues. Call it before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.backlite.Register(q)
	}
}

// Start runs the workers until ctx is done or Stop is called. Later calls
// are no-ops.
func (c *Client) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	log.Printf("[TASK] Queue started with %d workers", c.workers)
	c.backlite.Start(ctx)
}

// Stop waits for running tasks until ctx expires. It reports whether all
// workers finished in time.
func (c *Client) Stop(ctx context.Context) bool {
	if !c.started.Load() {
		return true
	}
	if ok := c.backlite.Stop(ctx); !ok {
		log.Println("[TASK] Queue stopped before running tasks finished")
		return false
	}
	log.Println("[TASK] Queue stopped")
	return true
}

// Close releases the queue database. Call it after Stop.
func (c *Client) Close() error {
	return c.db.Close()
}

// Enqueue saves tasks for the workers.
func (c *Client) Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error) {
	return c.backlite.Add(tasks...).Ctx(ctx).Save()
}

// Ping checks the queue database for the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

type queueLogger struct{}

func (queueLogger) Info(message string, params ...any) {
	log.Printf("[TASK] "+message, params...)
}

func (queueLogger) Error(message string, params ...any) {
	log.Printf("[TASK ERROR] "+message, params...)
}
