package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshare/internal/entities"
	"github.com/mrlokans/bookshare/internal/notify"
)

// DeliverNotificationTask stores one in-app notification.
type DeliverNotificationTask struct {
	UserID        uint                      `json:"user_id"`
	Type          entities.NotificationType `json:"type"`
	Title         string                    `json:"title"`
	Message       string                    `json:"message"`
	RelatedBookID *uint                     `json:"related_book_id,omitempty"`
	RelatedUserID *uint                     `json:"related_user_id,omitempty"`
}

// Config returns the queue configuration for notification delivery.
func (t DeliverNotificationTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "deliver_notification",
		MaxAttempts: 5,
		Backoff:     10 * time.Second,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   6 * time.Hour,
			OnlyFailed: true,
		},
	}
}

func (t DeliverNotificationTask) notification() *entities.Notification {
	return &entities.Notification{
		UserID:        t.UserID,
		Type:          t.Type,
		Title:         t.Title,
		Message:       t.Message,
		RelatedBookID: t.RelatedBookID,
		RelatedUserID: t.RelatedUserID,
	}
}

// DeliverNotificationProcessor inserts the notification. Errors are returned
// so backlite retries the task.
func DeliverNotificationProcessor(store notify.Store) backlite.QueueProcessor[DeliverNotificationTask] {
	return func(ctx context.Context, task DeliverNotificationTask) error {
		if store == nil {
			return fmt.Errorf("notification store not configured")
		}
		if err := store.CreateNotification(task.notification()); err != nil {
			return fmt.Errorf("deliver %s notification to user %d: %w", task.Type, task.UserID, err)
		}
		return nil
	}
}

// NewDeliverNotificationQueue creates a backlite queue for notification delivery.
func NewDeliverNotificationQueue(store notify.Store) backlite.Queue {
	return backlite.NewQueue(DeliverNotificationProcessor(store))
}

// Enqueuer saves tasks to the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
}

// NotificationDispatcher hands notifications to the task queue and falls
// back to a direct insert when enqueueing fails.
type NotificationDispatcher struct {
	queue    Enqueuer
	fallback notify.Store
}

func NewNotificationDispatcher(queue Enqueuer, fallback notify.Store) *NotificationDispatcher {
	return &NotificationDispatcher{queue: queue, fallback: fallback}
}

func (d *NotificationDispatcher) Notify(ctx context.Context, n *entities.Notification) {
	if n == nil || n.UserID == 0 {
		return
	}
	task := DeliverNotificationTask{
		UserID:        n.UserID,
		Type:          n.Type,
		Title:         n.Title,
		Message:       n.Message,
		RelatedBookID: n.RelatedBookID,
		RelatedUserID: n.RelatedUserID,
	}
	if _, err := d.queue.Enqueue(ctx, task); err != nil {
		log.Printf("[NOTIFY] Failed to enqueue %s notification, storing directly: %v", n.Type, err)
		notify.Deliver(d.fallback, n)
	}
}
