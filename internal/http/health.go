package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/database"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

type HealthReport struct {
	Status  string            `json:"status"`
	Time    time.Time         `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	version string
	checks  map[string]HealthCheck
	now     func() time.Time
}

// NewHealthController probes db, when given, as "database" alongside the
// named extra checks (file store, task queue).
func NewHealthController(db *database.Database, version string, extra map[string]HealthCheck) *HealthController {
	checks := make(map[string]HealthCheck, len(extra)+1)
	for name, check := range extra {
		checks[name] = check
	}
	if db != nil {
		checks["database"] = db.Ping
	}
	return &HealthController{version: version, checks: checks, now: time.Now}
}

// Status answers 503 when any check fails. All checks share one deadline.
// GET /health
func (h *HealthController) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	report := HealthReport{
		Status:  "healthy",
		Time:    h.now().UTC(),
		Version: h.version,
		Checks:  make(map[string]string, len(h.checks)),
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			report.Checks[name] = "error: " + err.Error()
			report.Status = "unhealthy"
			continue
		}
		report.Checks[name] = "ok"
	}

	code := http.StatusOK
	if report.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, report)
}
