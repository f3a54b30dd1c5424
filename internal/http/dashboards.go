package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/books"
	"github.com/mrlokans/bookshare/internal/borrowing"
	"github.com/mrlokans/bookshare/internal/entities"
)

const dashboardListLimit = 10

// LoanView pairs a borrow request with its remaining days for templates.
type LoanView struct {
	Request       entities.BorrowRequest `json:"request"`
	DaysRemaining *int                   `json:"days_remaining,omitempty"`
	Overdue       bool                   `json:"overdue"`
}

type DashboardController struct {
	books   *books.Service
	borrows *borrowing.Manager
	catalog CatalogStore
	loans   LoanStore
	views   *Views
}

func NewDashboardController(bookService *books.Service, borrows *borrowing.Manager, catalog CatalogStore, loans LoanStore, views *Views) *DashboardController {
	return &DashboardController{
		books:   bookService,
		borrows: borrows,
		catalog: catalog,
		loans:   loans,
		views:   views,
	}
}

// Dashboard sends the user to the dashboard for their role.
// GET /dashboard
func (dc *DashboardController) Dashboard(c *gin.Context) {
	c.Redirect(http.StatusFound, dashboardPath(auth.CurrentUser(c).Role))
}

// Reader shows the reader's loans, requests and shelves.
// GET /reader/dashboard
func (dc *DashboardController) Reader(c *gin.Context) {
	ctx := c.Request.Context()
	user := auth.CurrentUser(c)

	requests, err := dc.borrows.ListForReader(ctx, user)
	if err != nil {
		dc.views.fail(c, err, "load borrow requests")
		return
	}
	active, pending, past := splitLoans(requests, dc.borrows)

	wishlist, err := dc.catalog.ListWishlist(user.ID)
	if err != nil {
		dc.views.fail(c, err, "load wishlist")
		return
	}
	downloads, err := dc.catalog.RecentDownloads(user.ID, dashboardListLimit)
	if err != nil {
		dc.views.fail(c, err, "load downloads")
		return
	}
	history, err := dc.catalog.ListReadingHistory(user.ID, dashboardListLimit)
	if err != nil {
		dc.views.fail(c, err, "load reading history")
		return
	}

	dc.views.render(c, http.StatusOK, "reader_dashboard.html", gin.H{
		"Title":          "My dashboard",
		"ActiveLoans":    active,
		"PendingLoans":   pending,
		"PastLoans":      past,
		"Wishlist":       wishlist,
		"Downloads":      downloads,
		"ReadingHistory": history,
	})
}

// Author shows the author's books, incoming requests and lent books.
// GET /author/dashboard
func (dc *DashboardController) Author(c *gin.Context) {
	ctx := c.Request.Context()
	user := auth.CurrentUser(c)

	stats, err := dc.books.AuthorStats(ctx, user)
	if err != nil {
		dc.views.fail(c, err, "load author stats")
		return
	}
	pending, err := dc.borrows.ListPendingForAuthor(ctx, user)
	if err != nil {
		dc.views.fail(c, err, "load borrow requests")
		return
	}
	lent, err := dc.loans.ListActiveForAuthor(user.ID)
	if err != nil {
		dc.views.fail(c, err, "load active loans")
		return
	}
	authored, err := dc.catalog.ListByAuthor(user.ID)
	if err != nil {
		dc.views.fail(c, err, "load books")
		return
	}

	active, _, _ := splitLoans(lent, dc.borrows)
	dc.views.render(c, http.StatusOK, "author_dashboard.html", gin.H{
		"Title":           "Author dashboard",
		"Stats":           stats,
		"PendingRequests": pending,
		"ActiveLoans":     active,
		"Books":           authored,
	})
}

// splitLoans groups requests into active loans, pending requests and finished ones.
func splitLoans(requests []entities.BorrowRequest, borrows *borrowing.Manager) (active []LoanView, pending, past []entities.BorrowRequest) {
	today := borrows.Today()
	for _, req := range requests {
		switch {
		case req.IsActive():
			active = append(active, LoanView{
				Request:       req,
				DaysRemaining: req.DaysRemaining(today),
				Overdue:       req.IsOverdue(today),
			})
		case req.Status == entities.BorrowStatusPending:
			pending = append(pending, req)
		default:
			past = append(past, req)
		}
	}
	return active, pending, past
}
