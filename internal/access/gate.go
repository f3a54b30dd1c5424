// Package access decides who may read a book's file and serves its bytes.
//
// A caller may open a book when the book is published for download, or when
// the caller holds an unreturned approved or borrowed loan whose due date has
// not passed. Authorization is checked before content, so an unauthorized
// caller learns nothing about whether a file exists.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/entities"
	"github.com/mrlokans/bookshare/internal/storage"
)

const DefaultMime = "application/pdf"

// BorrowLookup finds the reader's current loan of a book.
type BorrowLookup interface {
	FindActive(readerID, bookID uint) (*entities.BorrowRequest, error)
}

// ContentLoader loads a book's stored blob.
type ContentLoader interface {
	GetBookContent(id uint) ([]byte, error)
}

// Content is a book file ready to send.
type Content struct {
	Data []byte
	Mime string
	Name string
}

type Gate struct {
	borrows BorrowLookup
	content ContentLoader
	files   storage.Client
	now     func() time.Time
}

// NewGate builds a gate. files may be nil when book bytes live only in the database.
func NewGate(borrows BorrowLookup, content ContentLoader, files storage.Client) *Gate {
	return &Gate{
		borrows: borrows,
		content: content,
		files:   files,
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Authorize reports whether user may open book's file today.
func (g *Gate) Authorize(ctx context.Context, user *entities.User, book *entities.Book) (bool, error) {
	if book == nil {
		return false, nil
	}
	if book.CanDownload() {
		return true, nil
	}
	if user == nil {
		return false, nil
	}

	loan, err := g.borrows.FindActive(user.ID, book.ID)
	if err != nil {
		return false, fmt.Errorf("failed to look up loan: %w", err)
	}
	return loan != nil && loan.GrantsAccess(g.now()), nil
}

// Open authorizes the caller and returns the book's file.
func (g *Gate) Open(ctx context.Context, user *entities.User, book *entities.Book) (*Content, error) {
	ok, err := g.Authorize(ctx, user, book)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("You don't have access to this book.")
	}

	data, err := g.load(ctx, book)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperr.NotFound("Book file not found.")
	}

	mime := book.FileMime
	if mime == "" {
		mime = DefaultMime
	}
	return &Content{Data: data, Mime: mime, Name: book.FileName}, nil
}

func (g *Gate) load(ctx context.Context, book *entities.Book) ([]byte, error) {
	if book.FileKey != "" {
		if g.files == nil {
			return nil, apperr.NotFound("Book file not found.")
		}
		data, err := storage.ReadAll(ctx, g.files, book.FileKey)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("Book file not found.")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read book file: %w", err)
		}
		return data, nil
	}

	if len(book.FileBlob) > 0 {
		return book.FileBlob, nil
	}
	data, err := g.content.GetBookContent(book.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Book not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load book content: %w", err)
	}
	return data, nil
}
