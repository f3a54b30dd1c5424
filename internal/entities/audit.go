package entities

import "time"

// AuditEventType groups audit events for filtering on the admin page.
type AuditEventType string

const (
	AuditEventAuth       AuditEventType = "auth"
	AuditEventBorrow     AuditEventType = "borrow"
	AuditEventModeration AuditEventType = "moderation"
	AuditEventDownload   AuditEventType = "download"
	AuditEventDelete     AuditEventType = "delete"
	AuditEventSettings   AuditEventType = "settings"
	AuditEventReminder   AuditEventType = "reminder"
)

// AuditEventTypes lists every type in display order.
var AuditEventTypes = []AuditEventType{
	AuditEventAuth, AuditEventBorrow, AuditEventModeration, AuditEventDownload,
	AuditEventDelete, AuditEventSettings, AuditEventReminder,
}

var auditEventLabels = map[AuditEventType]string{
	AuditEventAuth:       "Authentication",
	AuditEventBorrow:     "Borrowing",
	AuditEventModeration: "Moderation",
	AuditEventDownload:   "Downloads",
	AuditEventDelete:     "Deletions",
	AuditEventSettings:   "Settings",
	AuditEventReminder:   "Reminders",
}

func (t AuditEventType) Label() string {
	if label, ok := auditEventLabels[t]; ok {
		return label
	}
	return string(t)
}

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// AuditEvent is one row of the audit log. UserID is the acting user, zero
// for anonymous logins and scheduled jobs. Entity fields point at the
// affected row, such as a book or a borrow request.
type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UserID      uint           `gorm:"index" json:"user_id"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	EntityType  string         `gorm:"size:50" json:"entity_type,omitempty"`
	EntityID    *uint          `gorm:"index" json:"entity_id,omitempty"`
	Description string         `gorm:"size:500" json:"description,omitempty"`
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"`
	IPAddress   string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent   string         `gorm:"size:500" json:"user_agent,omitempty"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
