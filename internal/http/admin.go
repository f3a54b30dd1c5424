package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/books"
	"github.com/mrlokans/bookshare/internal/borrowing"
	"github.com/mrlokans/bookshare/internal/entities"
	"github.com/mrlokans/bookshare/internal/settingsstore"
)

// AdminController serves the moderation queues, the user list and borrow settings.
type AdminController struct {
	books     *books.Service
	borrows   *borrowing.Manager
	accounts  *auth.Accounts
	authSvc   *auth.Service
	catalog   CatalogStore
	users     UserStore
	stats     StatsSource
	settings  BorrowSettings
	reminders ReminderTrigger
	auditor   Auditor
	views     *Views
}

// AdminDeps groups the collaborators of AdminController.
type AdminDeps struct {
	Books     *books.Service
	Borrowing *borrowing.Manager
	Accounts  *auth.Accounts
	Auth      *auth.Service
	Catalog   CatalogStore
	Users     UserStore
	Stats     StatsSource
	Settings  BorrowSettings
	Reminders ReminderTrigger
	Auditor   Auditor
}

func NewAdminController(deps AdminDeps, views *Views) *AdminController {
	return &AdminController{
		books:     deps.Books,
		borrows:   deps.Borrowing,
		accounts:  deps.Accounts,
		authSvc:   deps.Auth,
		catalog:   deps.Catalog,
		users:     deps.Users,
		stats:     deps.Stats,
		settings:  deps.Settings,
		reminders: deps.Reminders,
		auditor:   deps.Auditor,
		views:     views,
	}
}

// Dashboard shows site totals and the head of each queue.
// GET /admin/dashboard
func (ac *AdminController) Dashboard(c *gin.Context) {
	user := auth.CurrentUser(c)

	stats, err := ac.stats.GetStats()
	if err != nil {
		ac.views.fail(c, err, "load stats")
		return
	}
	pendingBooks, err := ac.catalog.ListByStatus(entities.BookStatusPending)
	if err != nil {
		ac.views.fail(c, err, "load pending books")
		return
	}
	pendingBorrows, err := ac.borrows.ListPending(c.Request.Context(), user)
	if err != nil {
		ac.views.fail(c, err, "load pending borrows")
		return
	}
	roleRequests, err := ac.accounts.PendingRoleChanges(c.Request.Context(), user)
	if err != nil {
		ac.views.fail(c, err, "load role requests")
		return
	}

	ac.views.render(c, http.StatusOK, "admin_dashboard.html", gin.H{
		"Title":          "Admin dashboard",
		"Stats":          stats,
		"PendingBooks":   pendingBooks,
		"PendingBorrows": pendingBorrows,
		"RoleRequests":   roleRequests,
	})
}

// BookRequests lists books waiting for moderation.
// GET /admin/book-requests
func (ac *AdminController) BookRequests(c *gin.Context) {
	pending, err := ac.catalog.ListByStatus(entities.BookStatusPending)
	if err != nil {
		ac.views.fail(c, err, "load pending books")
		return
	}
	ac.views.render(c, http.StatusOK, "admin_book_requests.html", gin.H{
		"Title": "Book requests",
		"Books": pending,
	})
}

// ModerateBook approves or rejects a submitted book.
// POST /admin/book-requests/:id
func (ac *AdminController) ModerateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	approve, ok := decision(c)
	if !ok {
		return
	}
	admin := auth.CurrentUser(c)
	reason := strings.TrimSpace(c.PostForm("reason"))

	book, err := ac.books.Moderate(c.Request.Context(), admin, id, approve, reason)
	if err != nil {
		ac.views.failAction(c, err, "/admin/book-requests", "moderate book")
		return
	}

	action, verb := "book_reject", "rejected"
	if approve {
		action, verb = "book_approve", "approved"
	}
	ac.auditor.LogModeration(admin.ID, action, "book", book.ID, fmt.Sprintf("Book %q %s", book.Title, verb))
	ac.views.done(c, fmt.Sprintf("%q has been %s.", book.Title, verb), "/admin/book-requests", book)
}

// Users lists accounts, optionally filtered by ?role=.
// GET /admin/users
func (ac *AdminController) Users(c *gin.Context) {
	role := entities.UserRole(c.Query("role"))
	if role != "" && !role.Valid() {
		role = ""
	}
	list, err := ac.users.ListUsers(role)
	if err != nil {
		ac.views.fail(c, err, "list users")
		return
	}
	counts, err := ac.users.CountByRole()
	if err != nil {
		ac.views.fail(c, err, "count users")
		return
	}
	ac.views.render(c, http.StatusOK, "admin_users.html", gin.H{
		"Title":  "Users",
		"Users":  list,
		"Counts": counts,
		"Role":   string(role),
	})
}

// SetUserApproval enables or disables login for an account.
// POST /admin/users/:id/approval
func (ac *AdminController) SetUserApproval(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	admin := auth.CurrentUser(c)
	if id == admin.ID {
		ac.views.failAction(c, apperr.Validation("You cannot change your own approval."), "/admin/users", "set approval")
		return
	}
	approved, _ := strconv.ParseBool(c.PostForm("approved"))

	err := ac.authSvc.SetApproved(id, approved)
	if errors.Is(err, auth.ErrUserNotFound) {
		err = apperr.NotFound("User not found.")
	}
	if err != nil {
		ac.views.failAction(c, err, "/admin/users", "set approval")
		return
	}

	verb := "disabled"
	if approved {
		verb = "approved"
	}
	ac.auditor.LogModeration(admin.ID, "user_"+verb, "user", id, fmt.Sprintf("User #%d %s", id, verb))
	ac.views.done(c, "Account "+verb+".", backURL(c, "/admin/users"), gin.H{"approved": approved})
}

// RoleRequests lists pending role change requests.
// GET /admin/role-requests
func (ac *AdminController) RoleRequests(c *gin.Context) {
	reqs, err := ac.accounts.PendingRoleChanges(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		ac.views.fail(c, err, "load role requests")
		return
	}
	ac.views.render(c, http.StatusOK, "admin_role_requests.html", gin.H{
		"Title":    "Role requests",
		"Requests": reqs,
	})
}

// DecideRoleRequest approves or rejects a role change.
// POST /admin/role-requests/:id
func (ac *AdminController) DecideRoleRequest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	approve, ok := decision(c)
	if !ok {
		return
	}
	admin := auth.CurrentUser(c)

	req, err := ac.accounts.DecideRoleChange(c.Request.Context(), admin, id, approve, c.PostForm("comment"))
	if err != nil {
		ac.views.failAction(c, err, "/admin/role-requests", "decide role request")
		return
	}

	verb := "rejected"
	if approve {
		verb = "approved"
	}
	ac.auditor.LogModeration(admin.ID, "role_change_"+verb, "role_change_request", req.ID,
		fmt.Sprintf("Request of user #%d to become %s %s", req.UserID, req.RequestedRole, verb))
	ac.views.done(c, "Role change request "+verb+".", "/admin/role-requests", req)
}

// Settings shows the borrowing settings.
// GET /admin/settings
func (ac *AdminController) Settings(c *gin.Context) {
	ac.views.render(c, http.StatusOK, "admin_settings.html", gin.H{
		"Title":    "Settings",
		"Settings": ac.settings.BorrowSettingsInfo(),
		"MinDays":  settingsstore.MinBorrowDays,
		"MaxDays":  settingsstore.MaxBorrowDays,
	})
}

// UpdateSettings sets the default borrow days, or clears the override when
// the field is empty.
// POST /admin/settings
func (ac *AdminController) UpdateSettings(c *gin.Context) {
	admin := auth.CurrentUser(c)
	raw := strings.TrimSpace(c.PostForm("default_borrow_days"))

	if raw == "" {
		if err := ac.settings.ClearDefaultBorrowDays(); err != nil {
			ac.views.failAction(c, err, "/admin/settings", "clear borrow days")
			return
		}
		ac.auditor.LogSettings(admin.ID, "borrow_days_clear", "Default borrow days reset")
		ac.views.done(c, "Default borrow period reset.", "/admin/settings", ac.settings.BorrowSettingsInfo())
		return
	}

	days, err := strconv.Atoi(raw)
	if err != nil || days < settingsstore.MinBorrowDays || days > settingsstore.MaxBorrowDays {
		ac.views.failAction(c, apperr.Validation("Borrow days must be a number between %d and %d.",
			settingsstore.MinBorrowDays, settingsstore.MaxBorrowDays), "/admin/settings", "set borrow days")
		return
	}
	if err := ac.settings.SetDefaultBorrowDays(days); err != nil {
		ac.views.failAction(c, err, "/admin/settings", "set borrow days")
		return
	}
	ac.auditor.LogSettings(admin.ID, "borrow_days_set", fmt.Sprintf("Default borrow days set to %d", days))
	ac.views.done(c, fmt.Sprintf("Default borrow period set to %d days.", days), "/admin/settings", ac.settings.BorrowSettingsInfo())
}

// RunReminders starts a reminder sweep now.
// POST /admin/settings/reminders/run
func (ac *AdminController) RunReminders(c *gin.Context) {
	if ac.reminders == nil {
		ac.views.failAction(c, apperr.InvalidState("Reminders are disabled."), "/admin/settings", "run reminders")
		return
	}
	ac.reminders.RunNow()
	log.Printf("[ADMIN] Reminder sweep triggered by user %d", auth.GetUserID(c))
	ac.auditor.LogSettings(auth.GetUserID(c), "reminders_run", "Reminder sweep triggered manually")
	ac.views.done(c, "Reminder sweep started.", "/admin/settings", nil)
}

// decision reads the approve/reject choice from the "decision" form field.
func decision(c *gin.Context) (approve, ok bool) {
	switch c.PostForm("decision") {
	case "approve":
		return true, true
	case "reject":
		return false, true
	}
	respondBadRequest(c, "decision must be approve or reject")
	return false, false
}
