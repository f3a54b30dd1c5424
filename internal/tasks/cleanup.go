package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// AuditEventCleaner provides the ability to delete old audit events.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// NotificationCleaner deletes read notifications created before cutoff.
type NotificationCleaner interface {
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// CleanupTask prunes old audit events and read notifications.
type CleanupTask struct {
	AuditRetentionDays        int `json:"audit_retention_days"`
	NotificationRetentionDays int `json:"notification_retention_days"`
}

// Config returns the queue configuration for cleanup tasks.
func (t CleanupTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func retentionDays(days, fallback int) int {
	if days <= 0 {
		return fallback
	}
	return days
}

// CleanupProcessor creates a processor function for CleanupTask.
// A nil cleaner skips its half of the work.
func CleanupProcessor(audit AuditEventCleaner, notifications NotificationCleaner) backlite.QueueProcessor[CleanupTask] {
	return func(ctx context.Context, task CleanupTask) error {
		if audit != nil {
			days := retentionDays(task.AuditRetentionDays, 30)
			deleted, err := audit.DeleteOldEvents(time.Duration(days) * 24 * time.Hour)
			if err != nil {
				return fmt.Errorf("cleanup audit events: %w", err)
			}
			log.Printf("[TASK] Cleaned up %d audit events older than %d days", deleted, days)
		}

		if notifications != nil {
			days := retentionDays(task.NotificationRetentionDays, 90)
			deleted, err := notifications.DeleteOlderThan(time.Now().AddDate(0, 0, -days))
			if err != nil {
				return fmt.Errorf("cleanup notifications: %w", err)
			}
			log.Printf("[TASK] Cleaned up %d read notifications older than %d days", deleted, days)
		}
		return nil
	}
}

// NewCleanupQueue creates a backlite queue for cleanup tasks.
func NewCleanupQueue(audit AuditEventCleaner, notifications NotificationCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupProcessor(audit, notifications))
}
