package entities

import "time"

type BookStatus string

const (
	BookStatusDraft    BookStatus = "draft"
	BookStatusPending  BookStatus = "pending"
	BookStatusApproved BookStatus = "approved"
	BookStatusRejected BookStatus = "rejected"
)

type Availability string

const (
	AvailabilityBorrow      Availability = "borrow"
	AvailabilityDownload    Availability = "download"
	AvailabilityBoth        Availability = "both"
	AvailabilityUnavailable Availability = "unavailable"
)

func (a Availability) Valid() bool {
	switch a {
	case AvailabilityBorrow, AvailabilityDownload, AvailabilityBoth, AvailabilityUnavailable:
		return true
	}
	return false
}

// AllowsBorrow reports whether the mode includes borrowing.
func (a Availability) AllowsBorrow() bool {
	return a == AvailabilityBorrow || a == AvailabilityBoth
}

// AllowsDownload reports whether the mode includes direct download.
func (a Availability) AllowsDownload() bool {
	return a == AvailabilityDownload || a == AvailabilityBoth
}

// Genre is a catalog genre key such as "sci-fi".
type Genre struct {
	Key   string
	Label string
}

var Genres = []Genre{
	{"fiction", "Fiction"},
	{"non-fiction", "Non-Fiction"},
	{"mystery", "Mystery"},
	{"romance", "Romance"},
	{"sci-fi", "Science Fiction"},
	{"fantasy", "Fantasy"},
	{"thriller", "Thriller"},
	{"horror", "Horror"},
	{"biography", "Biography"},
	{"history", "History"},
	{"self-help", "Self-Help"},
	{"poetry", "Poetry"},
	{"children", "Children"},
	{"young-adult", "Young Adult"},
	{"educational", "Educational"},
	{"other", "Other"},
}

func IsValidGenre(key string) bool {
	for _, g := range Genres {
		if g.Key == key {
			return true
		}
	}
	return false
}

type Book struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	Title           string       `gorm:"index;size:255" json:"title"`
	OriginalAuthor  string       `gorm:"size:255;default:Unknown" json:"original_author"`
	AuthorID        uint         `gorm:"index" json:"author_id"`
	Author          User         `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Description     string       `gorm:"type:text" json:"description"`
	Genre           string       `gorm:"index;size:50" json:"genre"`
	Language        string       `gorm:"size:50;default:English" json:"language"`
	PublicationDate *time.Time   `json:"publication_date,omitempty"`
	Publisher       string       `gorm:"size:255" json:"publisher,omitempty"`
	ISBN            *string      `gorm:"uniqueIndex;size:20" json:"isbn,omitempty"`
	Pages           *int         `json:"pages,omitempty"`
	Availability    Availability `gorm:"size:20;default:borrow" json:"availability"`
	Status          BookStatus   `gorm:"index;size:20;default:draft" json:"status"`
	RejectionReason string       `gorm:"type:text" json:"rejection_reason,omitempty"`

	// Content is either FileBlob or an object in the file store under FileKey.
	FileBlob []byte `json:"-"`
	FileKey  string `gorm:"size:255" json:"-"`
	FileName string `gorm:"size:255" json:"file_name,omitempty"`
	FileMime string `gorm:"size:100" json:"file_mime,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// HasContent reports whether the book has stored file bytes.
func (b *Book) HasContent() bool {
	return len(b.FileBlob) > 0 || b.FileKey != "" || b.FileSize > 0
}

func (b *Book) IsPublished() bool {
	return b.Status == BookStatusApproved
}

// CanBorrow reports whether readers may request to borrow the book.
func (b *Book) CanBorrow() bool {
	return b.IsPublished() && b.Availability.AllowsBorrow()
}

// CanDownload reports whether anyone may fetch the file without a borrow.
func (b *Book) CanDownload() bool {
	return b.IsPublished() && b.Availability.AllowsDownload() && b.HasContent()
}

func (b *Book) GenreLabel() string {
	for _, g := range Genres {
		if g.Key == b.Genre {
			return g.Label
		}
	}
	return b.Genre
}

type BookWishlist struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UserID  uint      `gorm:"uniqueIndex:idx_wishlist_user_book" json:"user_id"`
	BookID  uint      `gorm:"uniqueIndex:idx_wishlist_user_book" json:"book_id"`
	Book    Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	AddedAt time.Time `gorm:"autoCreateTime" json:"added_at"`
}

func (BookWishlist) TableName() string {
	return "book_wishlists"
}

type ReadingHistory struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"uniqueIndex:idx_history_user_book" json:"user_id"`
	BookID      uint       `gorm:"uniqueIndex:idx_history_user_book" json:"book_id"`
	Book        Book       `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Completed   bool       `json:"completed"`
	AddedAt     time.Time  `gorm:"autoCreateTime" json:"added_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (ReadingHistory) TableName() string {
	return "reading_history"
}

type BookDownload struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index" json:"user_id"`
	User         User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BookID       uint      `gorm:"index" json:"book_id"`
	Book         Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	DownloadedAt time.Time `gorm:"autoCreateTime;index" json:"downloaded_at"`
}

func (BookDownload) TableName() string {
	return "book_downloads"
}
