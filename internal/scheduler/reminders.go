// Package scheduler runs periodic jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookshare/internal/config"
	"github.com/mrlokans/bookshare/internal/settingsstore"
	"github.com/mrlokans/bookshare/internal/tasks"
)

// ReminderAuditor records reminder runs in the audit log.
type ReminderAuditor interface {
	LogReminders(description string, err error)
}

// RemindersScheduler triggers borrow reminder sweeps. With a task queue the
// sweep is enqueued; without one it runs inline.
type RemindersScheduler struct {
	config   config.Reminders
	runner   tasks.ReminderRunner
	recorder tasks.ReminderStatusRecorder
	queue    tasks.Enqueuer
	auditor  ReminderAuditor

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSweeping bool
}

// NewRemindersScheduler creates a new scheduler instance. queue and auditor may be nil.
func NewRemindersScheduler(cfg config.Reminders, runner tasks.ReminderRunner, recorder tasks.ReminderStatusRecorder, queue tasks.Enqueuer, auditor ReminderAuditor) *RemindersScheduler {
	return &RemindersScheduler{
		config:   cfg,
		runner:   runner,
		recorder: recorder,
		queue:    queue,
		auditor:  auditor,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if reminders are enabled
func (s *RemindersScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.config.Enabled {
		log.Printf("Reminders scheduler: disabled")
		return nil
	}
	if err := settingsstore.ValidateCronSchedule(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.config.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.trigger("schedule")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := settingsstore.GetNextRunTime(s.config.Schedule)
	log.Printf("Reminders scheduler: started with schedule '%s' (%s). Next run: %v",
		s.config.Schedule,
		settingsstore.GetCronDescription(s.config.Schedule),
		nextRun)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running sweep and stops the cron.
func (s *RemindersScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron.Remove(s.entryID)
	s.isRunning = false

	log.Printf("Reminders scheduler: stopped")
}

// RunNow triggers an immediate sweep in the background.
func (s *RemindersScheduler) RunNow() {
	go s.trigger("manual")
}

func (s *RemindersScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next sweep will occur
func (s *RemindersScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *RemindersScheduler) trigger(source string) {
	if s.queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, err := s.queue.Enqueue(ctx, tasks.BorrowRemindersTask{Trigger: source})
		if err == nil {
			log.Printf("Reminders: enqueued %s sweep", source)
			return
		}
		log.Printf("Reminders: enqueue failed, running inline: %v", err)
	}
	s.sweep()
}

func (s *RemindersScheduler) sweep() {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		log.Printf("Reminders: skipped (already running)")
		return
	}
	s.isSweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := tasks.RunReminders(ctx, s.runner, s.recorder)
	if s.auditor != nil {
		s.auditor.LogReminders(result.String(), err)
	}
}
