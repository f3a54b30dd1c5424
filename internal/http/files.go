package http

import (
	"fmt"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/access"
	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/books"
	"github.com/mrlokans/bookshare/internal/borrowing"
	"github.com/mrlokans/bookshare/internal/entities"
	"github.com/mrlokans/bookshare/internal/utils"
)

// FilesController serves book files through the access gate.
type FilesController struct {
	books   *books.Service
	gate    *access.Gate
	borrows *borrowing.Manager
	catalog CatalogStore
	auditor Auditor
	views   *Views
}

func NewFilesController(bookService *books.Service, gate *access.Gate, borrows *borrowing.Manager, catalog CatalogStore, auditor Auditor, views *Views) *FilesController {
	return &FilesController{
		books:   bookService,
		gate:    gate,
		borrows: borrows,
		catalog: catalog,
		auditor: auditor,
		views:   views,
	}
}

// AccessResponse describes what the caller may do with a book.
type AccessResponse struct {
	BookID        uint       `json:"book_id"`
	CanRead       bool       `json:"can_read"`
	CanDownload   bool       `json:"can_download"`
	CanBorrow     bool       `json:"can_borrow"`
	HasContent    bool       `json:"has_content"`
	LoanStatus    string     `json:"loan_status,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	DaysRemaining *int       `json:"days_remaining,omitempty"`
}

// Download sends the file as an attachment. Only books published for download
// qualify; borrowed books are read in the viewer.
// GET /books/:id/download
func (fc *FilesController) Download(c *gin.Context) {
	book, ok := fc.publishedBook(c)
	if !ok {
		return
	}
	if !book.CanDownload() {
		fc.views.fail(c, apperr.Forbidden("This book is not available for download."), "download book")
		return
	}
	user := auth.CurrentUser(c)
	content, err := fc.gate.Open(c.Request.Context(), user, book)
	if err != nil {
		fc.views.fail(c, err, "download book")
		return
	}

	if err := fc.catalog.RecordDownload(user.ID, book.ID); err != nil {
		log.Printf("[FILES] Failed to record download of book %d by user %d: %v", book.ID, user.ID, err)
	}
	fc.auditor.LogDownload(user.ID, book.ID, c.ClientIP())
	fc.send(c, content, book, "attachment")
}

// Viewer renders the in-browser reader for a book the user may open.
// GET /books/:id/view
func (fc *FilesController) Viewer(c *gin.Context) {
	book, ok := fc.loadBook(c)
	if !ok {
		return
	}
	user := auth.CurrentUser(c)
	allowed, err := fc.gate.Authorize(c.Request.Context(), user, book)
	if err != nil {
		fc.views.fail(c, err, "authorize reader")
		return
	}
	if !allowed {
		fc.views.fail(c, apperr.Forbidden("You don't have access to this book."), "authorize reader")
		return
	}
	if !book.HasContent() {
		fc.views.fail(c, apperr.NotFound("Book file not found."), "open reader")
		return
	}

	if err := fc.catalog.RecordReading(user.ID, book.ID); err != nil {
		log.Printf("[FILES] Failed to record reading of book %d by user %d: %v", book.ID, user.ID, err)
	}

	data := gin.H{
		"Title":   book.Title,
		"Book":    book,
		"FileURL": bookPath(book.ID) + "/file",
		"IsPDF":   book.FileMime == "" || book.FileMime == books.MimePDF,
	}
	if loan, err := fc.borrows.ActiveRequestFor(c.Request.Context(), user, book); err == nil && loan != nil {
		data["Loan"] = loan
		data["DaysRemaining"] = loan.DaysRemaining(fc.borrows.Today())
	}
	fc.views.render(c, http.StatusOK, "book_viewer.html", data)
}

// File streams the book inline for the viewer.
// GET /books/:id/file
func (fc *FilesController) File(c *gin.Context) {
	book, ok := fc.loadBook(c)
	if !ok {
		return
	}
	content, err := fc.gate.Open(c.Request.Context(), auth.CurrentUser(c), book)
	if err != nil {
		fc.views.fail(c, err, "open book file")
		return
	}
	fc.send(c, content, book, "inline")
}

// MarkCompleted records that the user finished reading a book.
// POST /books/:id/complete
func (fc *FilesController) MarkCompleted(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)
	if err := fc.catalog.MarkCompleted(user.ID, id, time.Now()); err != nil {
		fc.views.failAction(c, err, bookPath(id), "mark completed")
		return
	}
	fc.views.done(c, "Marked as read.", backURL(c, bookPath(id)), nil)
}

// Access reports the caller's access to a book.
// GET /api/books/:id/access
func (fc *FilesController) Access(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	user := auth.CurrentUser(c)

	book, err := fc.books.Get(ctx, id)
	if err != nil {
		respondAppError(c, err, "book access")
		return
	}
	canRead, err := fc.gate.Authorize(ctx, user, book)
	if err != nil {
		respondAppError(c, err, "book access")
		return
	}
	if !canRead && !book.IsPublished() && (user == nil || !user.CanManage(book)) {
		respondAppError(c, apperr.NotFound("Book not found."), "book access")
		return
	}
	resp := AccessResponse{
		BookID:      book.ID,
		CanRead:     canRead && book.HasContent(),
		CanDownload: book.CanDownload(),
		CanBorrow:   book.CanBorrow(),
		HasContent:  book.HasContent(),
	}
	if loan, err := fc.borrows.ActiveRequestFor(ctx, user, book); err == nil && loan != nil {
		resp.LoanStatus = string(loan.Status)
		resp.DueDate = loan.DueDate
		resp.DaysRemaining = loan.DaysRemaining(fc.borrows.Today())
	}
	c.JSON(http.StatusOK, resp)
}

// loadBook loads :id whatever its status. The gate alone decides who may
// read it, so a live loan survives the book being unpublished.
func (fc *FilesController) loadBook(c *gin.Context) (*entities.Book, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	book, err := fc.books.Get(c.Request.Context(), id)
	if err != nil {
		fc.views.fail(c, err, "load book")
		return nil, false
	}
	return book, true
}

// publishedBook is loadBook that hides unpublished books from everyone but
// their managers.
func (fc *FilesController) publishedBook(c *gin.Context) (*entities.Book, bool) {
	book, ok := fc.loadBook(c)
	if !ok {
		return nil, false
	}
	user := auth.CurrentUser(c)
	if !book.IsPublished() && (user == nil || !user.CanManage(book)) {
		fc.views.fail(c, apperr.NotFound("Book not found."), "load book")
		return nil, false
	}
	return book, true
}

func (fc *FilesController) send(c *gin.Context, content *access.Content, book *entities.Book, disposition string) {
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{
		"filename": downloadName(content, book),
	}))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, content.Mime, content.Data)
}

// downloadName is the stored file name, or the title with an extension for the mime type.
func downloadName(content *access.Content, book *entities.Book) string {
	if name := filepath.Base(content.Name); content.Name != "" && utils.IsBookFile(name) {
		return utils.SanitizeFilename(strings.TrimSuffix(name, filepath.Ext(name))) + strings.ToLower(filepath.Ext(name))
	}
	ext := ".pdf"
	if content.Mime == books.MimeEPUB {
		ext = ".epub"
	}
	title := strings.TrimSpace(book.Title)
	if title == "" {
		title = fmt.Sprintf("book-%d", book.ID)
	}
	return utils.SanitizeFilename(title) + ext
}
