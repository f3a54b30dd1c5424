package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/auth"
)

const notificationsPageSize = 20

type NotificationsController struct {
	store NotificationStore
	views *Views
}

func NewNotificationsController(store NotificationStore, views *Views) *NotificationsController {
	return &NotificationsController{store: store, views: views}
}

// List renders the user's inbox, newest first.
// GET /notifications
func (nc *NotificationsController) List(c *gin.Context) {
	userID := auth.GetUserID(c)
	page := pageParam(c)

	items, total, err := nc.store.ListForUser(userID, notificationsPageSize, (page-1)*notificationsPageSize)
	if err != nil {
		nc.views.fail(c, err, "list notifications")
		return
	}
	unread, err := nc.store.UnreadCount(userID)
	if err != nil {
		nc.views.fail(c, err, "count notifications")
		return
	}

	nc.views.render(c, http.StatusOK, "notifications.html", gin.H{
		"Title":         "Notifications",
		"Notifications": items,
		"Unread":        unread,
		"CurrentPage":   page,
		"TotalPages":    totalPages(total, notificationsPageSize),
		"Total":         total,
	})
}

// MarkRead flags one notification as read.
// POST /notifications/:id/read
func (nc *NotificationsController) MarkRead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	err := nc.store.MarkRead(auth.GetUserID(c), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = apperr.NotFound("Notification not found.")
	}
	if err != nil {
		nc.views.failAction(c, err, "/notifications", "mark notification read")
		return
	}
	nc.views.done(c, "", backURL(c, "/notifications"), nil)
}

// MarkAllRead flags every unread notification as read.
// POST /notifications/read-all
func (nc *NotificationsController) MarkAllRead(c *gin.Context) {
	count, err := nc.store.MarkAllRead(auth.GetUserID(c))
	if err != nil {
		nc.views.failAction(c, err, "/notifications", "mark notifications read")
		return
	}
	nc.views.done(c, "All notifications marked as read.", backURL(c, "/notifications"), gin.H{"updated": count})
}

// UnreadCount reports the unread badge count.
// GET /api/notifications/unread-count
func (nc *NotificationsController) UnreadCount(c *gin.Context) {
	count, err := nc.store.UnreadCount(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "count notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}
