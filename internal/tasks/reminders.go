package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshare/internal/borrowing"
)

// ReminderRunner performs one reminder sweep.
type ReminderRunner interface {
	Run(ctx context.Context) (borrowing.SweepResult, error)
}

// ReminderStatusRecorder keeps the outcome of the last sweep for the admin settings page.
type ReminderStatusRecorder interface {
	SetReminderStatus(at time.Time, message string) error
}

// BorrowRemindersTask sends due-soon and overdue reminders for active loans.
type BorrowRemindersTask struct {
	Trigger string `json:"trigger"` // "schedule" or "manual"
}

// Config returns the queue configuration for reminder sweeps.
func (t BorrowRemindersTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "borrow_reminders",
		MaxAttempts: 2,
		Backoff:     5 * time.Minute,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RunReminders runs a sweep and records its outcome. It is shared by the
// queue processor and by the scheduler when the queue is disabled.
func RunReminders(ctx context.Context, runner ReminderRunner, recorder ReminderStatusRecorder) (borrowing.SweepResult, error) {
	result, err := runner.Run(ctx)
	msg := result.String()
	if err != nil {
		msg = "failed: " + err.Error()
	}
	if recorder != nil {
		if recErr := recorder.SetReminderStatus(time.Now(), msg); recErr != nil {
			log.Printf("[REMINDERS] Failed to record reminder status: %v", recErr)
		}
	}
	if err != nil {
		return result, fmt.Errorf("borrow reminders: %w", err)
	}
	log.Printf("[REMINDERS] %s", msg)
	return result, nil
}

// BorrowRemindersProcessor creates a processor function for BorrowRemindersTask.
func BorrowRemindersProcessor(runner ReminderRunner, recorder ReminderStatusRecorder) backlite.QueueProcessor[BorrowRemindersTask] {
	return func(ctx context.Context, task BorrowRemindersTask) error {
		if runner == nil {
			return fmt.Errorf("reminder runner not configured")
		}
		_, err := RunReminders(ctx, runner, recorder)
		return err
	}
}

// NewBorrowRemindersQueue creates a backlite queue for reminder sweeps.
func NewBorrowRemindersQueue(runner ReminderRunner, recorder ReminderStatusRecorder) backlite.Queue {
	return backlite.NewQueue(BorrowRemindersProcessor(runner, recorder))
}
