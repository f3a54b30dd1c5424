// Package audit stores and queries audit events.
package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/entities"
)

const defaultPageSize = 50

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent inserts event, stamping CreatedAt when the caller left it empty.
func (r *Repository) LogEvent(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// Filter narrows an audit listing. Zero fields match everything.
type Filter struct {
	UserID     uint
	EventType  entities.AuditEventType
	EntityType string
	EntityID   uint
	Since      time.Time
}

// scope is a gorm scope adding one condition per non-zero field.
func (f Filter) scope(db *gorm.DB) *gorm.DB {
	conds := map[string]any{}
	if f.UserID != 0 {
		conds["user_id"] = f.UserID
	}
	if f.EventType != "" {
		conds["event_type"] = f.EventType
	}
	if f.EntityType != "" {
		conds["entity_type"] = f.EntityType
	}
	if f.EntityID != 0 {
		conds["entity_id"] = f.EntityID
	}
	if len(conds) > 0 {
		db = db.Where(conds)
	}
	if !f.Since.IsZero() {
		db = db.Where("created_at > ?", f.Since)
	}
	return db
}

// ListEvents returns one page of matching events, newest first, together
// with the number of matches across all pages.
func (r *Repository) ListEvents(f Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	var total int64
	if err := r.db.Model(&entities.AuditEvent{}).Scopes(f.scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	offset = max(offset, 0)

	var events []entities.AuditEvent
	err := r.db.Scopes(f.scope).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&events).Error
	return events, total, err
}

// DeleteOldEvents removes events created before cutoff.
func (r *Repository) DeleteOldEvents(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}
