package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	auditdb "github.com/mrlokans/bookshare/internal/database/audit"
	"github.com/mrlokans/bookshare/internal/entities"
)

const auditPageSize = 25

type AuditController struct {
	log   AuditLog
	views *Views
}

func NewAuditController(log AuditLog, views *Views) *AuditController {
	return &AuditController{
		log:   log,
		views: views,
	}
}

// AuditLogPage renders the audit log UI
// GET /admin/audit
func (ac *AuditController) AuditLogPage(c *gin.Context) {
	page := pageParam(c)
	filter := auditFilter(c)

	events, total, err := ac.log.ListEvents(filter, auditPageSize, (page-1)*auditPageSize)
	if err != nil {
		ac.views.fail(c, err, "load audit events")
		return
	}

	ac.views.render(c, http.StatusOK, "admin_audit.html", gin.H{
		"Title":       "Audit log",
		"Events":      events,
		"CurrentPage": page,
		"TotalPages":  totalPages(total, auditPageSize),
		"TotalEvents": total,
		"EventType":   string(filter.EventType),
		"EventTypes":  eventTypeOptions(),
	})
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/admin/audit
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page := pageParam(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(auditPageSize)))
	if limit < 1 || limit > 100 {
		limit = auditPageSize
	}

	events, total, err := ac.log.ListEvents(auditFilter(c), limit, (page-1)*limit)
	if err != nil {
		respondInternalError(c, err, "load audit events")
		return
	}

	offset := (page - 1) * limit
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       events,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    int64(offset+len(events)) < total,
		TotalPages: totalPages(total, limit),
	})
}

func auditFilter(c *gin.Context) auditdb.Filter {
	filter := auditdb.Filter{
		EventType:  entities.AuditEventType(c.Query("type")),
		EntityType: c.Query("entity"),
	}
	if id, err := strconv.ParseUint(c.Query("user"), 10, 32); err == nil {
		filter.UserID = uint(id)
	}
	return filter
}

func totalPages(total int64, limit int) int {
	pages := (int(total) + limit - 1) / limit
	if pages < 1 {
		return 1
	}
	return pages
}

// eventTypeOptions feeds the filter dropdown, "All events" first.
func eventTypeOptions() []EventTypeOption {
	options := []EventTypeOption{{Value: "", Label: "All events"}}
	for _, t := range entities.AuditEventTypes {
		options = append(options, EventTypeOption{Value: string(t), Label: t.Label()})
	}
	return options
}

type EventTypeOption struct {
	Value string
	Label string
}
