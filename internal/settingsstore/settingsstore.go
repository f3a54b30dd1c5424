package settingsstore

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/config"
	"github.com/mrlokans/bookshare/internal/entities"
)

const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
	SourceDefault     = "default"

	MinBorrowDays = 1
	MaxBorrowDays = 90
)

// Backend is the key/value storage the store reads overrides from.
type Backend interface {
	GetSetting(key string) (*entities.Setting, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// Priority: database > environment > default
type SettingsStore struct {
	db        Backend
	borrowing config.Borrowing
	reminders config.Reminders
}

func New(db Backend, borrowing config.Borrowing, reminders config.Reminders) *SettingsStore {
	return &SettingsStore{db: db, borrowing: borrowing, reminders: reminders}
}

func (s *SettingsStore) lookup(key string) (string, bool) {
	setting, err := s.db.GetSetting(key)
	if err != nil || setting.Value == "" {
		return "", false
	}
	return setting.Value, true
}

// DefaultBorrowDays returns the loan length used when a request names no duration.
func (s *SettingsStore) DefaultBorrowDays() int {
	days, _ := s.defaultBorrowDays()
	return days
}

func (s *SettingsStore) defaultBorrowDays() (int, string) {
	if raw, ok := s.lookup(entities.SettingKeyDefaultBorrowDays); ok {
		if days, err := strconv.Atoi(raw); err == nil && days >= MinBorrowDays {
			return days, SourceDatabase
		}
	}
	if s.borrowing.DefaultDays >= MinBorrowDays {
		if s.borrowing.DefaultDays == config.DefaultBorrowDays {
			return s.borrowing.DefaultDays, SourceDefault
		}
		return s.borrowing.DefaultDays, SourceEnvironment
	}
	return config.DefaultBorrowDays, SourceDefault
}

func (s *SettingsStore) SetDefaultBorrowDays(days int) error {
	if days < MinBorrowDays || days > MaxBorrowDays {
		return fmt.Errorf("default borrow days must be between %d and %d", MinBorrowDays, MaxBorrowDays)
	}
	return s.db.SetSetting(entities.SettingKeyDefaultBorrowDays, strconv.Itoa(days))
}

// ClearDefaultBorrowDays removes the database override, reverting to env/default.
func (s *SettingsStore) ClearDefaultBorrowDays() error {
	err := s.db.DeleteSetting(entities.SettingKeyDefaultBorrowDays)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// DueSoonDays is the reminder window before a due date.
func (s *SettingsStore) DueSoonDays() int {
	if s.borrowing.DueSoonDays < 0 {
		return 0
	}
	return s.borrowing.DueSoonDays
}

// ReminderStatus is the outcome of the last reminder sweep.
type ReminderStatus struct {
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// BorrowSettingsInfo is the admin view of the borrowing settings.
type BorrowSettingsInfo struct {
	DefaultDays       int            `json:"default_days"`
	DefaultDaysSource string         `json:"default_days_source"`
	Durations         []int          `json:"durations"`
	DueSoonDays       int            `json:"due_soon_days"`
	RemindersEnabled  bool           `json:"reminders_enabled"`
	Schedule          string         `json:"schedule"`
	ScheduleText      string         `json:"schedule_text"`
	NextRunAt         *time.Time     `json:"next_run_at,omitempty"`
	LastReminders     ReminderStatus `json:"last_reminders"`
}

func (s *SettingsStore) BorrowSettingsInfo() BorrowSettingsInfo {
	days, source := s.defaultBorrowDays()
	info := BorrowSettingsInfo{
		DefaultDays:       days,
		DefaultDaysSource: source,
		Durations:         entities.BorrowDurations,
		DueSoonDays:       s.DueSoonDays(),
		RemindersEnabled:  s.reminders.Enabled,
		Schedule:          s.reminders.Schedule,
		ScheduleText:      GetCronDescription(s.reminders.Schedule),
		LastReminders:     s.GetReminderStatus(),
	}
	if s.reminders.Enabled {
		if next, err := GetNextRunTime(s.reminders.Schedule); err == nil {
			info.NextRunAt = next
		}
	}
	return info
}

func (s *SettingsStore) GetReminderStatus() ReminderStatus {
	var status ReminderStatus
	if raw, ok := s.lookup(entities.SettingKeyRemindersLastAt); ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			status.LastRunAt = &ts
		}
	}
	status.Message, _ = s.lookup(entities.SettingKeyRemindersLastMessage)
	return status
}

// SetReminderStatus records the time and summary of a reminder sweep.
func (s *SettingsStore) SetReminderStatus(at time.Time, message string) error {
	if err := s.db.SetSetting(entities.SettingKeyRemindersLastAt, at.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeyRemindersLastMessage, message)
}

// ValidateCronSchedule validates a cron schedule string
func ValidateCronSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	return err
}

// GetCronDescription returns a human-readable description of a cron schedule
func GetCronDescription(schedule string) string {
	switch schedule {
	case "0 8 * * *":
		return "Daily at 08:00"
	case "0 * * * *":
		return "Every hour at :00"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 0 * * *":
		return "Daily at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}

// GetNextRunTime calculates when the schedule fires next
func GetNextRunTime(schedule string) (*time.Time, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(time.Now())
	return &next, nil
}
