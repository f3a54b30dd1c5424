package borrowing

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mrlokans/bookshare/internal/entities"
	"github.com/mrlokans/bookshare/internal/notify"
)

// LoanLister finds unreturned loans due on or before a day.
type LoanLister interface {
	ListActiveDueBy(day time.Time) ([]entities.BorrowRequest, error)
}

// SentLog answers whether a reminder already went out.
type SentLog interface {
	ExistsSince(userID uint, typ entities.NotificationType, bookID uint, since time.Time) (bool, error)
}

// SweepResult counts what a reminder sweep did.
type SweepResult struct {
	DueSoon int `json:"due_soon"`
	Overdue int `json:"overdue"`
	Skipped int `json:"skipped"`
}

func (r SweepResult) String() string {
	return fmt.Sprintf("sent %d due soon, %d overdue (%d already reminded today)", r.DueSoon, r.Overdue, r.Skipped)
}

// Sweeper sends due-soon and overdue reminders for active loans.
// It never changes a request.
type Sweeper struct {
	loans       LoanLister
	sent        SentLog
	notifier    notify.Notifier
	dueSoonDays int
	now         func() time.Time
}

func NewSweeper(loans LoanLister, sent SentLog, notifier notify.Notifier, dueSoonDays int) *Sweeper {
	return &Sweeper{
		loans:       loans,
		sent:        sent,
		notifier:    notifier,
		dueSoonDays: dueSoonDays,
		now:         time.Now,
	}
}

// WithClock replaces the time source.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run sends at most one reminder of each kind per reader and book per day.
func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := s.now()
	today := entities.Date(now)
	// Sent reminders carry real timestamps, so the per-day check starts at
	// local midnight rather than the UTC calendar date.
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	loans, err := s.loans.ListActiveDueBy(today.AddDate(0, 0, s.dueSoonDays))
	if err != nil {
		return result, fmt.Errorf("failed to list active loans: %w", err)
	}

	for i := range loans {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		req := &loans[i]

		var n *entities.Notification
		if req.IsOverdue(today) {
			late := int(today.Sub(entities.Date(*req.DueDate)).Hours() / 24)
			n = overdueNotification(req, late)
		} else if left := req.DaysRemaining(today); left != nil && *left >= 0 && *left <= s.dueSoonDays {
			n = dueSoonNotification(req, *left)
		} else {
			continue
		}

		already, err := s.sent.ExistsSince(req.ReaderID, n.Type, req.BookID, dayStart)
		if err != nil {
			log.Printf("[REMINDERS] Failed to check reminders for request %d: %v", req.ID, err)
			continue
		}
		if already {
			result.Skipped++
			continue
		}

		s.notifier.Notify(ctx, n)
		if n.Type == entities.NotificationBorrowOverdue {
			result.Overdue++
		} else {
			result.DueSoon++
		}
	}

	return result, nil
}
