// Package books implements the catalog: submitting, editing, moderating and
// finding books.
//
// Submitted books start as pending and appear in search only once an admin
// approves them. Book files are PDF or EPUB and live either in the books
// table or in the configured file store.
package books

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/apperr"
	booksdb "github.com/mrlokans/bookshare/internal/database/books"
	"github.com/mrlokans/bookshare/internal/entities"
	"github.com/mrlokans/bookshare/internal/notify"
	"github.com/mrlokans/bookshare/internal/storage"
)

// Store is the persistence the catalog needs.
type Store interface {
	CreateBook(book *entities.Book) error
	GetBookByID(id uint) (*entities.Book, error)
	UpdateBook(book *entities.Book, withFile bool) error
	SetStatus(id uint, status entities.BookStatus, reason string) error
	DeleteBook(id uint) error
	ISBNTaken(isbn string, exceptBookID uint) (bool, error)
	Search(filter booksdb.SearchFilter) (*booksdb.SearchResult, error)
	ToggleWishlist(userID, bookID uint) (bool, error)
	GetAuthorStats(authorID uint) (booksdb.AuthorStats, error)
}

// Input holds the editable book fields.
type Input struct {
	Title           string
	OriginalAuthor  string
	Description     string
	Genre           string
	Language        string
	PublicationDate *time.Time
	Publisher       string
	ISBN            string
	Pages           *int
	Availability    entities.Availability
}

type Service struct {
	store     Store
	files     storage.Client
	notifier  notify.Notifier
	maxUpload int64
}

// NewService builds the catalog service. files may be nil to keep file bytes
// in the database. maxUpload <= 0 disables the size check.
func NewService(store Store, files storage.Client, notifier notify.Notifier, maxUpload int64) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{store: store, files: files, notifier: notifier, maxUpload: maxUpload}
}

// Get loads a book without its file bytes.
func (s *Service) Get(ctx context.Context, id uint) (*entities.Book, error) {
	book, err := s.store.GetBookByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Book not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load book %d: %w", id, err)
	}
	return book, nil
}

// Submit adds a book by author and queues it for moderation.
func (s *Service) Submit(ctx context.Context, author *entities.User, in Input, upload *Upload) (*entities.Book, error) {
	if !author.CanPublish() {
		return nil, apperr.Authorization("Only authors can add books.")
	}

	book := &entities.Book{AuthorID: author.ID, Status: entities.BookStatusPending}
	if err := s.apply(book, in); err != nil {
		return nil, err
	}
	if upload == nil && book.Availability != entities.AvailabilityUnavailable {
		return nil, apperr.Validation("A PDF or EPUB file is required when the book is available for borrowing or download.")
	}
	if upload != nil {
		if err := s.attach(ctx, book, upload); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateBook(book); err != nil {
		s.removeFile(ctx, book.FileKey)
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	book.Author = *author
	log.Printf("[BOOKS] %s submitted book %d %q", author.Username, book.ID, book.Title)
	return book, nil
}

// Update edits a book. A rejected book goes back to the moderation queue.
func (s *Service) Update(ctx context.Context, actor *entities.User, bookID uint, in Input, upload *Upload) (*entities.Book, error) {
	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(book) {
		return nil, apperr.Authorization("You are not authorized to edit this book.")
	}

	if err := s.apply(book, in); err != nil {
		return nil, err
	}
	if upload == nil && !book.HasContent() && book.Availability != entities.AvailabilityUnavailable {
		return nil, apperr.Validation("A PDF or EPUB file is required when the book is available for borrowing or download.")
	}
	if book.Status == entities.BookStatusRejected {
		book.Status = entities.BookStatusPending
		book.RejectionReason = ""
	}

	oldKey := book.FileKey
	if upload != nil {
		if err := s.attach(ctx, book, upload); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateBook(book, upload != nil); err != nil {
		if upload != nil {
			s.removeFile(ctx, book.FileKey)
		}
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	if upload != nil && oldKey != book.FileKey {
		s.removeFile(ctx, oldKey)
	}
	return book, nil
}

// Delete removes a book, its dependents and its stored file.
func (s *Service) Delete(ctx context.Context, actor *entities.User, bookID uint) (*entities.Book, error) {
	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(book) {
		return nil, apperr.Authorization("You are not authorized to delete this book.")
	}
	if err := s.store.DeleteBook(book.ID); err != nil {
		return nil, fmt.Errorf("failed to delete book: %w", err)
	}
	s.removeFile(ctx, book.FileKey)
	return book, nil
}

// Moderate approves or rejects a submitted book and tells its author.
func (s *Service) Moderate(ctx context.Context, admin *entities.User, bookID uint, approve bool, reason string) (*entities.Book, error) {
	if !admin.IsAdmin() {
		return nil, apperr.Authorization("Only admins can moderate books.")
	}
	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	status := entities.BookStatusRejected
	if approve {
		status = entities.BookStatusApproved
		reason = ""
	}
	if err := s.store.SetStatus(book.ID, status, reason); err != nil {
		return nil, fmt.Errorf("failed to moderate book: %w", err)
	}
	book.Status = status
	book.RejectionReason = reason

	s.notifier.Notify(ctx, moderationNotification(book))
	return book, nil
}

// Search returns one page of approved books.
func (s *Service) Search(ctx context.Context, filter booksdb.SearchFilter) (*booksdb.SearchResult, error) {
	return s.store.Search(filter)
}

// ToggleWishlist adds the book to the user's wishlist or removes it.
// It reports whether the book is now on the list.
func (s *Service) ToggleWishlist(ctx context.Context, user *entities.User, bookID uint) (bool, error) {
	if _, err := s.Get(ctx, bookID); err != nil {
		return false, err
	}
	return s.store.ToggleWishlist(user.ID, bookID)
}

func (s *Service) AuthorStats(ctx context.Context, author *entities.User) (booksdb.AuthorStats, error) {
	return s.store.GetAuthorStats(author.ID)
}

func (s *Service) apply(book *entities.Book, in Input) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return apperr.Validation("Title is required.")
	}
	if in.Genre != "" && !entities.IsValidGenre(in.Genre) {
		return apperr.Validation("Unknown genre %q.", in.Genre)
	}
	availability := in.Availability
	if availability == "" {
		availability = entities.AvailabilityBorrow
	}
	if !availability.Valid() {
		return apperr.Validation("Unknown availability %q.", in.Availability)
	}
	if in.Pages != nil && *in.Pages < 0 {
		return apperr.Validation("Pages cannot be negative.")
	}

	var isbn *string
	if v := strings.TrimSpace(in.ISBN); v != "" {
		taken, err := s.store.ISBNTaken(v, book.ID)
		if err != nil {
			return fmt.Errorf("failed to check isbn: %w", err)
		}
		if taken {
			return apperr.Validation("A book with this ISBN already exists.")
		}
		isbn = &v
	}

	book.Title = title
	book.OriginalAuthor = strings.TrimSpace(in.OriginalAuthor)
	if book.OriginalAuthor == "" {
		book.OriginalAuthor = "Unknown"
	}
	book.Description = in.Description
	book.Genre = in.Genre
	book.Language = strings.TrimSpace(in.Language)
	if book.Language == "" {
		book.Language = "English"
	}
	book.PublicationDate = in.PublicationDate
	book.Publisher = in.Publisher
	book.ISBN = isbn
	book.Pages = in.Pages
	book.Availability = availability
	return nil
}

func (s *Service) attach(ctx context.Context, book *entities.Book, upload *Upload) error {
	if len(upload.Data) == 0 {
		return apperr.Validation("The uploaded file is empty.")
	}
	if s.maxUpload > 0 && int64(len(upload.Data)) > s.maxUpload {
		return apperr.Validation("The uploaded file is larger than %d MB.", s.maxUpload>>20)
	}
	mime, err := DetectMime(upload)
	if err != nil {
		return err
	}

	if book.Pages == nil && mime == MimePDF {
		if n := pdfPages(upload.Name, upload.Data); n > 0 {
			book.Pages = &n
		}
	}

	book.FileName = upload.Name
	book.FileMime = mime
	book.FileSize = int64(len(upload.Data))

	if s.files == nil {
		book.FileBlob = upload.Data
		book.FileKey = ""
		return nil
	}

	key := storage.NewKey(upload.Name)
	if err := s.files.Put(ctx, key, bytes.NewReader(upload.Data), book.FileSize, mime); err != nil {
		return fmt.Errorf("failed to store book file: %w", err)
	}
	book.FileKey = key
	book.FileBlob = nil
	return nil
}

func (s *Service) removeFile(ctx context.Context, key string) {
	if key == "" || s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		log.Printf("[BOOKS] Failed to delete stored file %s: %v", key, err)
	}
}

func moderationNotification(book *entities.Book) *entities.Notification {
	id := book.ID
	n := &entities.Notification{
		UserID:        book.AuthorID,
		RelatedBookID: &id,
	}
	if book.Status == entities.BookStatusApproved {
		n.Type = entities.NotificationBookApproved
		n.Title = fmt.Sprintf("Book approved: %q", book.Title)
		n.Message = fmt.Sprintf("Your book %q is now visible in the catalog.", book.Title)
		return n
	}
	n.Type = entities.NotificationBookRejected
	n.Title = fmt.Sprintf("Book rejected: %q", book.Title)
	n.Message = fmt.Sprintf("Your book %q was rejected.", book.Title)
	if book.RejectionReason != "" {
		n.Message += " Reason: " + book.RejectionReason
	}
	return n
}
