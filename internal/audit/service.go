package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/bookshare/internal/database/audit"
	"github.com/mrlokans/bookshare/internal/entities"
)

const maxTextLen = 500

// Service writes audit events in the background so request handlers never
// wait on the audit table. Flush blocks until queued writes are done.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
	now     func() time.Time
}

func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Log stores event synchronously.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// Flush waits for background writes started so far.
func (s *Service) Flush() {
	s.pending.Wait()
}

// record fills the outcome, trims free text and stores event in the
// background. Write failures are only logged.
func (s *Service) record(event *entities.AuditEvent, err error) {
	if event.Status == "" {
		event.Status = entities.AuditStatusSuccess
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxTextLen)
	}
	event.Description = truncate(event.Description, maxTextLen)
	event.UserAgent = truncate(event.UserAgent, maxTextLen)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("[AUDIT] Failed to store %s event: %v", event.Action, err)
		}
	}()
}

func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: userAgent,
	}
	if !success {
		event.Status = entities.AuditStatusFailed
	}
	s.record(event, nil)
}

// LogBorrow records a transition ("request", "approve", ...) and whether it
// went through. The request's book, reader, status and due date go into
// the metadata.
func (s *Service) LogBorrow(actorID uint, action string, req *entities.BorrowRequest, err error) {
	event := &entities.AuditEvent{
		UserID:     actorID,
		EventType:  entities.AuditEventBorrow,
		Action:     "borrow_" + action,
		EntityType: "borrow_request",
	}
	if req != nil {
		event.Description = fmt.Sprintf("Borrow request #%d for book #%d: %s", req.ID, req.BookID, action)
		if req.ID != 0 {
			event.EntityID = ref(req.ID)
		}
		details := map[string]any{"book_id": req.BookID, "reader_id": req.ReaderID, "status": req.Status}
		if req.DueDate != nil {
			details["due_date"] = req.DueDate.Format("2006-01-02")
		}
		if raw, e := json.Marshal(details); e == nil {
			event.Metadata = string(raw)
		}
	}
	s.record(event, err)
}

// LogModeration records an admin decision on a book, an account or a role
// change request.
func (s *Service) LogModeration(adminID uint, action, entityType string, entityID uint, description string) {
	s.record(&entities.AuditEvent{
		UserID:      adminID,
		EventType:   entities.AuditEventModeration,
		Action:      action,
		Description: description,
		EntityType:  entityType,
		EntityID:    ref(entityID),
	}, nil)
}

func (s *Service) LogDownload(userID, bookID uint, ipAddr string) {
	s.record(&entities.AuditEvent{
		UserID:     userID,
		EventType:  entities.AuditEventDownload,
		Action:     "book_download",
		EntityType: "book",
		EntityID:   ref(bookID),
		IPAddress:  ipAddr,
	}, nil)
}

func (s *Service) LogDelete(userID uint, entityType string, entityID uint, entityName string) {
	description := "Deleted " + entityType
	if entityName != "" {
		description += ": " + entityName
	}
	s.record(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventDelete,
		Action:      entityType + "_delete",
		Description: description,
		EntityType:  entityType,
		EntityID:    ref(entityID),
	}, nil)
}

func (s *Service) LogSettings(userID uint, action, description string) {
	s.record(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventSettings,
		Action:      action,
		Description: description,
	}, nil)
}

// LogReminders records the outcome of a reminder sweep. The sweep has no
// acting user.
func (s *Service) LogReminders(description string, err error) {
	s.record(&entities.AuditEvent{
		EventType:   entities.AuditEventReminder,
		Action:      "borrow_reminders",
		Description: description,
	}, err)
}

func (s *Service) ListEvents(filter audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.ListEvents(filter, limit, offset)
}

// DeleteOldEvents drops events older than retention and reports how many.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	return s.repo.DeleteOldEvents(s.now().Add(-retention))
}

func ref(id uint) *uint {
	return &id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
