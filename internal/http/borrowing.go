package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/books"
	"github.com/mrlokans/bookshare/internal/borrowing"
	"github.com/mrlokans/bookshare/internal/entities"
)

// BorrowingController drives borrow requests through their lifecycle.
type BorrowingController struct {
	borrows  *borrowing.Manager
	books    *books.Service
	settings BorrowSettings
	auditor  Auditor
	views    *Views
}

func NewBorrowingController(borrows *borrowing.Manager, bookService *books.Service, settings BorrowSettings, auditor Auditor, views *Views) *BorrowingController {
	return &BorrowingController{
		borrows:  borrows,
		books:    bookService,
		settings: settings,
		auditor:  auditor,
		views:    views,
	}
}

// RequestForm shows the borrow form for a book.
// GET /borrowing/request/:bookId
func (bc *BorrowingController) RequestForm(c *gin.Context) {
	book, ok := bc.borrowableBook(c)
	if !ok {
		return
	}
	bc.views.render(c, http.StatusOK, "borrow_request.html", gin.H{
		"Title":       "Borrow " + book.Title,
		"Book":        book,
		"Durations":   entities.BorrowDurations,
		"DefaultDays": bc.settings.DefaultBorrowDays(),
	})
}

// Create opens a borrow request. requested_days is optional.
// POST /borrowing/request/:bookId
func (bc *BorrowingController) Create(c *gin.Context) {
	book, ok := bc.borrowableBook(c)
	if !ok {
		return
	}
	user := auth.CurrentUser(c)

	days, err := optionalInt(c.PostForm("requested_days"))
	if err != nil {
		bc.views.failAction(c, apperr.Validation("Borrow period must be a number of days."), bookPath(book.ID), "create borrow request")
		return
	}

	req, err := bc.borrows.Create(c.Request.Context(), user, book, days)
	bc.auditor.LogBorrow(user.ID, "request", req, err)
	if err != nil {
		bc.views.failAction(c, err, bookPath(book.ID), "create borrow request")
		return
	}
	bc.views.done(c, fmt.Sprintf("Borrow request for %q sent to the author.", book.Title), bookPath(book.ID), req)
}

// Approve grants a pending request.
// POST /borrowing/:id/approve
func (bc *BorrowingController) Approve(c *gin.Context) {
	bc.transition(c, "approve", func(user *entities.User, id uint) (*entities.BorrowRequest, error) {
		return bc.borrows.Approve(c.Request.Context(), id, user)
	}, func(req *entities.BorrowRequest) string {
		return fmt.Sprintf("Approved %s's request for %q.", req.Reader.FullName(), req.Book.Title)
	})
}

// RejectForm asks for a rejection reason.
// GET /borrowing/:id/reject
func (bc *BorrowingController) RejectForm(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	req, err := bc.borrows.Get(c.Request.Context(), id, auth.CurrentUser(c))
	if err != nil {
		bc.views.fail(c, err, "load borrow request")
		return
	}
	bc.views.render(c, http.StatusOK, "borrow_reject.html", gin.H{
		"Title":   "Reject request",
		"Request": req,
	})
}

// Reject declines a pending request with an optional reason.
// POST /borrowing/:id/reject
func (bc *BorrowingController) Reject(c *gin.Context) {
	reason := strings.TrimSpace(c.PostForm("reason"))
	bc.transition(c, "reject", func(user *entities.User, id uint) (*entities.BorrowRequest, error) {
		return bc.borrows.Reject(c.Request.Context(), id, user, reason)
	}, func(req *entities.BorrowRequest) string {
		return fmt.Sprintf("Rejected %s's request for %q.", req.Reader.FullName(), req.Book.Title)
	})
}

// Cancel withdraws the reader's own pending request.
// POST /borrowing/:id/cancel
func (bc *BorrowingController) Cancel(c *gin.Context) {
	bc.transition(c, "cancel", func(user *entities.User, id uint) (*entities.BorrowRequest, error) {
		return bc.borrows.Cancel(c.Request.Context(), id, user)
	}, func(req *entities.BorrowRequest) string {
		return fmt.Sprintf("Cancelled your request for %q.", req.Book.Title)
	})
}

// Return ends an active loan.
// POST /borrowing/:id/return
func (bc *BorrowingController) Return(c *gin.Context) {
	bc.transition(c, "return", func(user *entities.User, id uint) (*entities.BorrowRequest, error) {
		return bc.borrows.Return(c.Request.Context(), id, user)
	}, func(req *entities.BorrowRequest) string {
		return fmt.Sprintf("Returned %q.", req.Book.Title)
	})
}

// PendingRequests lists requests waiting on the current author, or every
// pending request for admins.
// GET /borrowing/requests
func (bc *BorrowingController) PendingRequests(c *gin.Context) {
	ctx := c.Request.Context()
	user := auth.CurrentUser(c)

	var (
		items []entities.BorrowRequest
		err   error
	)
	if user.IsAdmin() {
		items, err = bc.borrows.ListPending(ctx, user)
	} else {
		items, err = bc.borrows.ListPendingForAuthor(ctx, user)
	}
	if err != nil {
		bc.views.fail(c, err, "list borrow requests")
		return
	}
	bc.views.render(c, http.StatusOK, "borrow_requests.html", gin.H{
		"Title":    "Borrow requests",
		"Requests": items,
	})
}

// transition runs a lifecycle step for :id, audits it and redirects back.
func (bc *BorrowingController) transition(
	c *gin.Context,
	action string,
	step func(user *entities.User, id uint) (*entities.BorrowRequest, error),
	message func(req *entities.BorrowRequest) string,
) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)
	fallback := dashboardPath(user.Role)

	req, err := step(user, id)
	if req == nil {
		req = &entities.BorrowRequest{ID: id}
	}
	bc.auditor.LogBorrow(user.ID, action, req, err)
	if err != nil {
		bc.views.failAction(c, err, fallback, action+" borrow request")
		return
	}
	bc.views.done(c, message(req), backURL(c, fallback), req)
}

// borrowableBook loads the :bookId book, which must be published.
func (bc *BorrowingController) borrowableBook(c *gin.Context) (*entities.Book, bool) {
	id, ok := parseIDParam(c, "bookId")
	if !ok {
		return nil, false
	}
	book, err := bc.books.Get(c.Request.Context(), id)
	if err == nil && !book.IsPublished() {
		err = apperr.NotFound("Book not found.")
	}
	if err != nil {
		bc.views.fail(c, err, "load book")
		return nil, false
	}
	return book, true
}
