package http

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/access"
	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/books"
	"github.com/mrlokans/bookshare/internal/borrowing"
	booksdb "github.com/mrlokans/bookshare/internal/database/books"
	"github.com/mrlokans/bookshare/internal/entities"
	"github.com/mrlokans/bookshare/internal/metadata"
	"github.com/mrlokans/bookshare/internal/reviews"
)

// Availabilities lists the availability modes in form order.
var Availabilities = []entities.Availability{
	entities.AvailabilityBorrow,
	entities.AvailabilityDownload,
	entities.AvailabilityBoth,
	entities.AvailabilityUnavailable,
}

// CatalogController serves the book catalog and the author's book management.
type CatalogController struct {
	books   *books.Service
	reviews *reviews.Service
	borrows *borrowing.Manager
	gate    *access.Gate
	catalog CatalogStore
	loans   LoanStore
	auditor Auditor
	lookup  ISBNLookup // nil disables ISBN prefill
	views   *Views
}

func NewCatalogController(
	bookService *books.Service,
	reviewService *reviews.Service,
	borrows *borrowing.Manager,
	gate *access.Gate,
	catalog CatalogStore,
	loans LoanStore,
	auditor Auditor,
	views *Views,
) *CatalogController {
	return &CatalogController{
		books:   bookService,
		reviews: reviewService,
		borrows: borrows,
		gate:    gate,
		catalog: catalog,
		loans:   loans,
		auditor: auditor,
		views:   views,
	}
}

// searchFilter reads the catalog filters from the query string.
func searchFilter(c *gin.Context) booksdb.SearchFilter {
	query := c.Query("q")
	if query == "" {
		query = c.Query("query")
	}
	var availability []entities.Availability
	for _, a := range c.QueryArray("availability") {
		availability = append(availability, entities.Availability(a))
	}
	return booksdb.SearchFilter{
		Query:        strings.TrimSpace(query),
		Genres:       c.QueryArray("genre"),
		Availability: availability,
		Language:     strings.TrimSpace(c.Query("language")),
		Sort:         c.Query("sort"),
		Page:         pageParam(c),
	}
}

// List renders the approved catalog with search and filters.
// GET /books, GET /books/search
func (cc *CatalogController) List(c *gin.Context) {
	filter := searchFilter(c)
	result, err := cc.books.Search(c.Request.Context(), filter)
	if err != nil {
		cc.views.fail(c, err, "search books")
		return
	}

	cc.views.render(c, http.StatusOK, "book_list.html", gin.H{
		"Title":          "Books",
		"Result":         result,
		"Filter":         filter,
		"Availabilities": Availabilities,
	})
}

// Detail renders a book page. Unpublished books are visible only to their
// author and admins.
// GET /books/:id
func (cc *CatalogController) Detail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	user := auth.CurrentUser(c)

	book, err := cc.books.Get(ctx, id)
	if err != nil {
		cc.views.fail(c, err, "load book")
		return
	}
	if !book.IsPublished() && (user == nil || !user.CanManage(book)) {
		cc.views.fail(c, apperr.NotFound("Book not found."), "load book")
		return
	}

	summary, err := cc.reviews.ForBook(ctx, book.ID)
	if err != nil {
		cc.views.fail(c, err, "load reviews")
		return
	}
	canRead, err := cc.gate.Authorize(ctx, user, book)
	if err != nil {
		cc.views.fail(c, err, "check access")
		return
	}

	data := gin.H{
		"Title":     book.Title,
		"Book":      book,
		"Reviews":   summary,
		"CanRead":   canRead && book.HasContent(),
		"CanBorrow": book.CanBorrow() && user != nil && !user.IsAuthorOf(book),
		"Durations": entities.BorrowDurations,
	}
	if user != nil {
		userReview, err := cc.reviews.Existing(ctx, user, book.ID)
		if err != nil {
			cc.views.fail(c, err, "load review")
			return
		}
		latest, err := cc.loans.LatestForReader(user.ID, book.ID)
		if err != nil {
			cc.views.fail(c, err, "load borrow request")
			return
		}
		wishlisted, err := cc.catalog.IsWishlisted(user.ID, book.ID)
		if err != nil {
			cc.views.fail(c, err, "load wishlist")
			return
		}
		data["UserReview"] = userReview
		data["Wishlisted"] = wishlisted
		data["CanManage"] = user.CanManage(book)
		if latest != nil {
			data["BorrowRequest"] = latest
			data["DaysRemaining"] = latest.DaysRemaining(cc.borrows.Today())
			data["Overdue"] = latest.IsOverdue(cc.borrows.Today())
		}
	}

	cc.views.render(c, http.StatusOK, "book_detail.html", data)
}

// NewForm renders the book submission form.
// GET /books/add
// With ?isbn= the form is prefilled from the ISBN lookup.
func (cc *CatalogController) NewForm(c *gin.Context) {
	data := gin.H{"CanLookup": cc.lookup != nil}
	isbn := strings.TrimSpace(c.Query("isbn"))
	if isbn != "" && cc.lookup != nil {
		details, err := cc.lookup.LookupISBN(c.Request.Context(), isbn)
		if err != nil {
			log.Printf("[CATALOG] ISBN lookup for %q failed: %v", isbn, err)
			data["Error"] = lookupMessage(err, isbn)
			data["Form"] = map[string]string{"isbn": isbn}
		} else {
			data["Form"] = details.FormValues()
		}
	}
	cc.renderForm(c, http.StatusOK, nil, data)
}

// LookupISBN returns edition details for ?isbn= as JSON.
// GET /api/books/lookup
func (cc *CatalogController) LookupISBN(c *gin.Context) {
	if cc.lookup == nil {
		respondError(c, http.StatusNotFound, "ISBN lookup is disabled")
		return
	}
	isbn := strings.TrimSpace(c.Query("isbn"))
	details, err := cc.lookup.LookupISBN(c.Request.Context(), isbn)
	switch {
	case errors.Is(err, metadata.ErrInvalidISBN):
		respondBadRequest(c, lookupMessage(err, isbn))
	case errors.Is(err, metadata.ErrNotFound):
		respondError(c, http.StatusNotFound, lookupMessage(err, isbn))
	case err != nil:
		log.Printf("[CATALOG] ISBN lookup for %q failed: %v", isbn, err)
		respondError(c, http.StatusBadGateway, lookupMessage(err, isbn))
	default:
		c.JSON(http.StatusOK, details)
	}
}

func lookupMessage(err error, isbn string) string {
	switch {
	case errors.Is(err, metadata.ErrInvalidISBN):
		return "ISBN must have 10 or 13 digits."
	case errors.Is(err, metadata.ErrNotFound):
		return fmt.Sprintf("No edition found for ISBN %s.", isbn)
	}
	return "The book lookup service is unavailable. Please fill in the details yourself."
}

// Create submits a new book for moderation.
// POST /books/add
func (cc *CatalogController) Create(c *gin.Context) {
	in, upload, err := readBookForm(c)
	if err != nil {
		cc.formError(c, err, nil, "submit book")
		return
	}
	book, err := cc.books.Submit(c.Request.Context(), auth.CurrentUser(c), in, upload)
	if err != nil {
		cc.formError(c, err, nil, "submit book")
		return
	}
	cc.views.done(c, fmt.Sprintf("Book %q submitted for review.", book.Title), "/author/books", book)
}

// EditForm renders the edit form for a book the user manages.
// GET /books/:id/edit
func (cc *CatalogController) EditForm(c *gin.Context) {
	book, ok := cc.managedBook(c)
	if !ok {
		return
	}
	cc.renderForm(c, http.StatusOK, book, gin.H{})
}

// Update saves book edits and an optional replacement file.
// POST /books/:id/edit
func (cc *CatalogController) Update(c *gin.Context) {
	book, ok := cc.managedBook(c)
	if !ok {
		return
	}
	in, upload, err := readBookForm(c)
	if err != nil {
		cc.formError(c, err, book, "update book")
		return
	}
	updated, err := cc.books.Update(c.Request.Context(), auth.CurrentUser(c), book.ID, in, upload)
	if err != nil {
		cc.formError(c, err, book, "update book")
		return
	}
	cc.views.done(c, "Book updated.", bookPath(updated.ID), updated)
}

// DeleteConfirm asks before deleting a book.
// GET /books/:id/delete
func (cc *CatalogController) DeleteConfirm(c *gin.Context) {
	book, ok := cc.managedBook(c)
	if !ok {
		return
	}
	cc.views.render(c, http.StatusOK, "book_confirm_delete.html", gin.H{
		"Title": "Delete " + book.Title,
		"Book":  book,
	})
}

// Delete removes a book.
// POST /books/:id/delete
func (cc *CatalogController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)
	book, err := cc.books.Delete(c.Request.Context(), user, id)
	if err != nil {
		cc.views.failAction(c, err, bookPath(id), "delete book")
		return
	}
	cc.auditor.LogDelete(user.ID, "book", book.ID, book.Title)
	cc.views.done(c, fmt.Sprintf("Book %q deleted.", book.Title), "/author/books", nil)
}

// ToggleWishlist adds or removes a book from the user's wishlist.
// POST /books/:id/wishlist
func (cc *CatalogController) ToggleWishlist(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	added, err := cc.books.ToggleWishlist(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		cc.views.failAction(c, err, bookPath(id), "toggle wishlist")
		return
	}
	message := "Removed from your wishlist."
	if added {
		message = "Added to your wishlist."
	}
	cc.views.done(c, message, backURL(c, bookPath(id)), gin.H{"wishlisted": added})
}

// AuthorBooks lists the current author's books in every status.
// GET /author/books
func (cc *CatalogController) AuthorBooks(c *gin.Context) {
	user := auth.CurrentUser(c)
	items, err := cc.catalog.ListByAuthor(user.ID)
	if err != nil {
		cc.views.fail(c, err, "list author books")
		return
	}
	cc.views.render(c, http.StatusOK, "author_books.html", gin.H{
		"Title": "My Books",
		"Books": items,
	})
}

// managedBook loads the :id book and checks the user may change it.
func (cc *CatalogController) managedBook(c *gin.Context) (*entities.Book, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	book, err := cc.books.Get(c.Request.Context(), id)
	if err != nil {
		cc.views.fail(c, err, "load book")
		return nil, false
	}
	if !auth.CurrentUser(c).CanManage(book) {
		cc.views.fail(c, apperr.Authorization("You are not authorized to edit this book."), "load book")
		return nil, false
	}
	return book, true
}

func (cc *CatalogController) renderForm(c *gin.Context, status int, book *entities.Book, data gin.H) {
	data["Book"] = book
	data["Availabilities"] = Availabilities
	if _, ok := data["Form"]; !ok {
		data["Form"] = map[string]string{}
	}
	data["Title"] = "Add Book"
	if book != nil {
		data["Title"] = "Edit " + book.Title
	}
	cc.views.render(c, status, "book_form.html", data)
}

// formError re-renders the book form for input problems and fails otherwise.
func (cc *CatalogController) formError(c *gin.Context, err error, book *entities.Book, context string) {
	if !isUserError(err) {
		cc.views.fail(c, err, context)
		return
	}
	status := http.StatusOK
	if wantsJSON(c) {
		status = statusFor(err)
	}
	cc.renderForm(c, status, book, gin.H{
		"Error": apperr.Message(err, "Please correct the errors below."),
		"Form":  formValues(c),
	})
}

func formValues(c *gin.Context) map[string]string {
	values := map[string]string{}
	if err := c.Request.ParseForm(); err != nil {
		return values
	}
	for key := range c.Request.PostForm {
		values[key] = c.Request.PostForm.Get(key)
	}
	return values
}

func readBookForm(c *gin.Context) (books.Input, *books.Upload, error) {
	in, err := bookInput(c)
	if err != nil {
		return in, nil, err
	}
	upload, err := readUpload(c)
	return in, upload, err
}

// bookInput reads the book form fields.
func bookInput(c *gin.Context) (books.Input, error) {
	in := books.Input{
		Title:          c.PostForm("title"),
		OriginalAuthor: c.PostForm("original_author"),
		Description:    c.PostForm("description"),
		Genre:          c.PostForm("genre"),
		Language:       c.PostForm("language"),
		Publisher:      strings.TrimSpace(c.PostForm("publisher")),
		ISBN:           c.PostForm("isbn"),
		Availability:   entities.Availability(c.PostForm("availability")),
	}
	if raw := strings.TrimSpace(c.PostForm("publication_date")); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return in, apperr.Validation("Enter a valid publication date (YYYY-MM-DD).")
		}
		in.PublicationDate = &date
	}
	pages, err := optionalInt(c.PostForm("pages"))
	if err != nil {
		return in, apperr.Validation("Pages must be a whole number.")
	}
	in.Pages = pages
	return in, nil
}

// readUpload reads the optional "file" part of a multipart form.
func readUpload(c *gin.Context) (*books.Upload, error) {
	header, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation("Could not read the uploaded file.")
	}
	if header.Size == 0 {
		return nil, nil
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return &books.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
