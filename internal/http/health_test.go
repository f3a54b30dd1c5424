package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshare/internal/database"
)

func healthDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	return db
}

func getHealth(t *testing.T, controller *HealthController) (int, HealthReport) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", controller.Status)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var report HealthReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	return w.Code, report
}

func TestHealthController_Healthy(t *testing.T) {
	db := healthDB(t)
	defer db.Close()

	controller := NewHealthController(db, "1.0.0", nil)
	controller.now = func() time.Time { return time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC) }
	code, report := getHealth(t, controller)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", report.Status)
	assert.Equal(t, "1.0.0", report.Version)
	assert.Equal(t, map[string]string{"database": "ok"}, report.Checks)
	assert.True(t, report.Time.Equal(time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)))
}

func TestHealthController_NoDatabase(t *testing.T) {
	code, report := getHealth(t, NewHealthController(nil, "", nil))

	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, report.Checks)
}

func TestHealthController_ClosedDatabase(t *testing.T) {
	db := healthDB(t)
	require.NoError(t, db.Close())

	code, report := getHealth(t, NewHealthController(db, "1.0.0", nil))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", report.Status)
	assert.Contains(t, report.Checks["database"], "error")
}

func TestHealthController_ExtraChecks(t *testing.T) {
	db := healthDB(t)
	defer db.Close()

	var deadline bool
	checks := map[string]HealthCheck{
		"storage": func(ctx context.Context) error {
			_, deadline = ctx.Deadline()
			return nil
		},
		"tasks": func(context.Context) error { return errors.New("queue unavailable") },
	}
	code, report := getHealth(t, NewHealthController(db, "2.5.3", checks))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", report.Status)
	assert.Equal(t, "ok", report.Checks["database"])
	assert.Equal(t, "ok", report.Checks["storage"])
	assert.Equal(t, "error: queue unavailable", report.Checks["tasks"])
	assert.True(t, deadline, "checks run under the health deadline")
}
