package entities

import "time"

// Setting is an admin override of a configured value, or a bit of runtime
// bookkeeping. Values are stored as text and parsed by the reader.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

const (
	SettingKeyDefaultBorrowDays = "borrow_default_days"

	// Outcome of the last reminder sweep, shown on the admin settings page
	SettingKeyRemindersLastAt      = "reminders_last_at"
	SettingKeyRemindersLastMessage = "reminders_last_message"
)
