// Package borrowing implements the borrow request lifecycle.
//
// A request moves pending -> approved (-> borrowed) or ends as rejected or
// cancelled. Returning a book stamps ReturnedAt and leaves the status alone.
// Only one request per reader and book may exist in a blocking status;
// the check runs before insert and is not backed by a unique index.
package borrowing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/entities"
	"github.com/mrlokans/bookshare/internal/notify"
)

const DefaultRejectionReason = "Request rejected by author"

// Store is the persistence the manager needs.
type Store interface {
	CreateRequest(req *entities.BorrowRequest) error
	GetRequestByID(id uint) (*entities.BorrowRequest, error)
	UpdateRequest(req *entities.BorrowRequest) error
	HasBlockingRequest(readerID, bookID uint, statuses []entities.BorrowStatus) (bool, error)
	FindActive(readerID, bookID uint) (*entities.BorrowRequest, error)
	ListForReader(readerID uint) ([]entities.BorrowRequest, error)
	ListPendingForAuthor(authorID uint) ([]entities.BorrowRequest, error)
	ListPending() ([]entities.BorrowRequest, error)
}

// DefaultDays supplies the loan length for requests without a chosen duration.
type DefaultDays interface {
	DefaultBorrowDays() int
}

type Manager struct {
	store    Store
	notifier notify.Notifier
	defaults DefaultDays
	now      func() time.Time
}

func NewManager(store Store, notifier notify.Notifier, defaults DefaultDays) *Manager {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Manager{
		store:    store,
		notifier: notifier,
		defaults: defaults,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Today returns the current calendar day.
func (m *Manager) Today() time.Time {
	return entities.Date(m.now())
}

// Create opens a pending request by reader for book.
func (m *Manager) Create(ctx context.Context, reader *entities.User, book *entities.Book, requestedDays *int) (*entities.BorrowRequest, error) {
	if !book.CanBorrow() {
		return nil, apperr.Validation("This book is not available for borrowing.")
	}
	if requestedDays != nil && !entities.IsAllowedBorrowDuration(*requestedDays) {
		return nil, apperr.Validation("Borrow period must be one of %v days.", entities.BorrowDurations)
	}

	blocked, err := m.store.HasBlockingRequest(reader.ID, book.ID, entities.BlockingBorrowStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing requests: %w", err)
	}
	if blocked {
		return nil, apperr.Validation("You already have a pending or active request for this book.")
	}

	req := &entities.BorrowRequest{
		ReaderID:      reader.ID,
		BookID:        book.ID,
		Status:        entities.BorrowStatusPending,
		RequestedAt:   m.now(),
		RequestedDays: requestedDays,
	}
	if err := m.store.CreateRequest(req); err != nil {
		return nil, fmt.Errorf("failed to create borrow request: %w", err)
	}
	req.Reader = *reader
	req.Book = *book

	days := m.defaultDays()
	if requestedDays != nil {
		days = *requestedDays
	}
	m.notifier.Notify(ctx, requestCreatedNotification(req, days))

	return req, nil
}

// Approve grants the request and fixes its due date.
func (m *Manager) Approve(ctx context.Context, requestID uint, actor *entities.User) (*entities.BorrowRequest, error) {
	req, err := m.load(requestID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(&req.Book) {
		return nil, apperr.Authorization("You are not authorized to approve this request.")
	}
	if req.Status != entities.BorrowStatusPending {
		return nil, apperr.InvalidState("Only pending requests can be approved.")
	}

	now := m.now()
	days := m.defaultDays()
	if req.RequestedDays != nil {
		days = *req.RequestedDays
	}
	due := entities.Date(now).AddDate(0, 0, days)

	req.Status = entities.BorrowStatusApproved
	req.ApprovedAt = &now
	req.DueDate = &due
	if err := m.store.UpdateRequest(req); err != nil {
		return nil, fmt.Errorf("failed to approve borrow request: %w", err)
	}

	m.notifier.Notify(ctx, approvedNotification(req, actor))
	return req, nil
}

// Reject declines the request. An empty reason is replaced by DefaultRejectionReason.
func (m *Manager) Reject(ctx context.Context, requestID uint, actor *entities.User, reason string) (*entities.BorrowRequest, error) {
	req, err := m.load(requestID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(&req.Book) {
		return nil, apperr.Authorization("You are not authorized to reject this request.")
	}
	if req.Status != entities.BorrowStatusPending {
		return nil, apperr.InvalidState("Only pending requests can be rejected.")
	}
	if reason == "" {
		reason = DefaultRejectionReason
	}

	req.Status = entities.BorrowStatusRejected
	req.RejectionReason = reason
	if err := m.store.UpdateRequest(req); err != nil {
		return nil, fmt.Errorf("failed to reject borrow request: %w", err)
	}

	m.notifier.Notify(ctx, rejectedNotification(req, actor))
	return req, nil
}

// Cancel withdraws a pending request. Only its reader may cancel.
func (m *Manager) Cancel(ctx context.Context, requestID uint, actor *entities.User) (*entities.BorrowRequest, error) {
	req, err := m.load(requestID)
	if err != nil {
		return nil, err
	}
	if req.ReaderID != actor.ID {
		return nil, apperr.Authorization("You are not authorized to cancel this request.")
	}
	if req.Status != entities.BorrowStatusPending {
		return nil, apperr.InvalidState("You can only cancel pending requests.")
	}

	req.Status = entities.BorrowStatusCancelled
	if err := m.store.UpdateRequest(req); err != nil {
		return nil, fmt.Errorf("failed to cancel borrow request: %w", err)
	}
	return req, nil
}

// Return marks an active loan as returned. The reader or an admin may return it.
func (m *Manager) Return(ctx context.Context, requestID uint, actor *entities.User) (*entities.BorrowRequest, error) {
	req, err := m.load(requestID)
	if err != nil {
		return nil, err
	}
	if req.ReaderID != actor.ID && !actor.IsAdmin() {
		return nil, apperr.Authorization("You are not authorized to return this request.")
	}
	if !req.IsActive() {
		return nil, apperr.InvalidState("Only approved, unreturned loans can be returned.")
	}

	now := m.now()
	req.ReturnedAt = &now
	if err := m.store.UpdateRequest(req); err != nil {
		return nil, fmt.Errorf("failed to return borrow request: %w", err)
	}
	return req, nil
}

// Get loads a request visible to the actor: its reader, the book's author, or an admin.
func (m *Manager) Get(ctx context.Context, requestID uint, actor *entities.User) (*entities.BorrowRequest, error) {
	req, err := m.load(requestID)
	if err != nil {
		return nil, err
	}
	if req.ReaderID != actor.ID && !actor.CanManage(&req.Book) {
		return nil, apperr.Authorization("You are not authorized to view this request.")
	}
	return req, nil
}

// ActiveRequestFor returns the reader's current loan of the book, or nil.
func (m *Manager) ActiveRequestFor(ctx context.Context, reader *entities.User, book *entities.Book) (*entities.BorrowRequest, error) {
	if reader == nil || book == nil {
		return nil, nil
	}
	return m.store.FindActive(reader.ID, book.ID)
}

func (m *Manager) ListForReader(ctx context.Context, reader *entities.User) ([]entities.BorrowRequest, error) {
	return m.store.ListForReader(reader.ID)
}

func (m *Manager) ListPendingForAuthor(ctx context.Context, author *entities.User) ([]entities.BorrowRequest, error) {
	return m.store.ListPendingForAuthor(author.ID)
}

// ListPending returns every pending request. Admin only.
func (m *Manager) ListPending(ctx context.Context, actor *entities.User) ([]entities.BorrowRequest, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Authorization("Only admins can list all pending requests.")
	}
	return m.store.ListPending()
}

func (m *Manager) load(id uint) (*entities.BorrowRequest, error) {
	req, err := m.store.GetRequestByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Borrow request not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load borrow request %d: %w", id, err)
	}
	return req, nil
}

func (m *Manager) defaultDays() int {
	if m.defaults == nil {
		return 14
	}
	return m.defaults.DefaultBorrowDays()
}
