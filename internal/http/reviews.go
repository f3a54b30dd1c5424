package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/books"
	"github.com/mrlokans/bookshare/internal/entities"
	"github.com/mrlokans/bookshare/internal/reviews"
)

type ReviewsController struct {
	reviews *reviews.Service
	books   *books.Service
	auditor Auditor
	views   *Views
}

func NewReviewsController(reviewService *reviews.Service, bookService *books.Service, auditor Auditor, views *Views) *ReviewsController {
	return &ReviewsController{
		reviews: reviewService,
		books:   bookService,
		auditor: auditor,
		views:   views,
	}
}

// AddForm shows the review form. A user who already reviewed the book is
// sent to edit that review instead.
// GET /reviews/add/:bookId
func (rc *ReviewsController) AddForm(c *gin.Context) {
	book, ok := rc.reviewableBook(c)
	if !ok {
		return
	}
	if rc.redirectExisting(c, book) {
		return
	}
	rc.views.render(c, http.StatusOK, "review_form.html", gin.H{
		"Title": "Review " + book.Title,
		"Book":  book,
	})
}

// Add saves a new review.
// POST /reviews/add/:bookId
func (rc *ReviewsController) Add(c *gin.Context) {
	book, ok := rc.reviewableBook(c)
	if !ok {
		return
	}
	if rc.redirectExisting(c, book) {
		return
	}

	in := reviewInput(c)
	review, err := rc.reviews.Add(c.Request.Context(), auth.CurrentUser(c), book, in)
	if err != nil {
		rc.formError(c, err, book, nil, in)
		return
	}
	rc.views.done(c, "Thanks for your review.", bookPath(book.ID), review)
}

// EditForm shows the form for the user's own review.
// GET /reviews/:id/edit
func (rc *ReviewsController) EditForm(c *gin.Context) {
	review, ok := rc.ownReview(c)
	if !ok {
		return
	}
	rc.views.render(c, http.StatusOK, "review_form.html", gin.H{
		"Title":  "Edit review",
		"Book":   &review.Book,
		"Review": review,
	})
}

// Edit saves changes to a review.
// POST /reviews/:id/edit
func (rc *ReviewsController) Edit(c *gin.Context) {
	current, ok := rc.ownReview(c)
	if !ok {
		return
	}
	in := reviewInput(c)
	review, err := rc.reviews.Edit(c.Request.Context(), auth.CurrentUser(c), current.ID, in)
	if err != nil {
		rc.formError(c, err, &current.Book, current, in)
		return
	}
	rc.views.done(c, "Review updated.", bookPath(review.BookID), review)
}

// Delete removes the user's review.
// POST /reviews/:id/delete
func (rc *ReviewsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user := auth.CurrentUser(c)
	review, err := rc.reviews.Delete(c.Request.Context(), user, id)
	if err != nil {
		rc.views.failAction(c, err, dashboardPath(user.Role), "delete review")
		return
	}
	rc.auditor.LogDelete(user.ID, "review", review.ID, review.Title)
	rc.views.done(c, "Review deleted.", bookPath(review.BookID), nil)
}

func (rc *ReviewsController) reviewableBook(c *gin.Context) (*entities.Book, bool) {
	id, ok := parseIDParam(c, "bookId")
	if !ok {
		return nil, false
	}
	book, err := rc.books.Get(c.Request.Context(), id)
	if err == nil && !book.IsPublished() {
		err = apperr.NotFound("Book not found.")
	}
	if err != nil {
		rc.views.fail(c, err, "load book")
		return nil, false
	}
	return book, true
}

func (rc *ReviewsController) redirectExisting(c *gin.Context, book *entities.Book) bool {
	existing, err := rc.reviews.Existing(c.Request.Context(), auth.CurrentUser(c), book.ID)
	if err != nil || existing == nil {
		return false
	}
	rc.views.flash(c, flashError, "You have already reviewed this book. You can edit your review instead.")
	c.Redirect(http.StatusFound, "/reviews/"+strconv.FormatUint(uint64(existing.ID), 10)+"/edit")
	return true
}

// ownReview loads :id and checks the current user wrote it.
func (rc *ReviewsController) ownReview(c *gin.Context) (*entities.Review, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	review, err := rc.reviews.Get(c.Request.Context(), id)
	if err == nil && review.ReviewerID != auth.GetUserID(c) {
		err = apperr.Authorization("You can only edit your own reviews.")
	}
	if err != nil {
		rc.views.fail(c, err, "load review")
		return nil, false
	}
	if review.Book.ID == 0 {
		if book, err := rc.books.Get(c.Request.Context(), review.BookID); err == nil {
			review.Book = *book
		}
	}
	return review, true
}

func (rc *ReviewsController) formError(c *gin.Context, err error, book *entities.Book, review *entities.Review, in reviews.Input) {
	rc.views.formError(c, err, "review_form.html", gin.H{
		"Title":  "Review " + book.Title,
		"Book":   book,
		"Review": review,
		"Form":   in,
	}, "save review")
}

func reviewInput(c *gin.Context) reviews.Input {
	rating, _ := strconv.Atoi(c.PostForm("rating"))
	return reviews.Input{
		Rating:  rating,
		Title:   strings.TrimSpace(c.PostForm("title")),
		Content: strings.TrimSpace(c.PostForm("content")),
	}
}
