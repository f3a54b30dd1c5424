package auth

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSanitizeRedirectPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "/dashboard"},
		{"/", "/"},
		{"/books/3", "/books/3"},
		{"/books/search?q=dune", "/books/search?q=dune"},
		{"//evil.com", "/dashboard"},
		{"https://evil.com", "/dashboard"},
		{"/https://evil.com", "/dashboard"},
		{"/foo\\bar", "/dashboard"},
		{"\\evil.com", "/dashboard"},
		{"javascript:alert(1)", "/dashboard"},
		{"evil.com", "/dashboard"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeRedirectPath(tt.input), tt.input)
	}
}

type throttleClock struct{ now time.Time }

func (c *throttleClock) Now() time.Time { return c.now }

func newTestThrottle(limit int) (*LoginThrottle, *throttleClock) {
	clock := &throttleClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	th := NewLoginThrottle(limit, 10*time.Minute, 30*time.Minute)
	th.now = clock.Now
	return th, clock
}

func TestLoginThrottle_BlocksAfterLimit(t *testing.T) {
	th, clock := newTestThrottle(3)

	for i := 0; i < 2; i++ {
		_, ok := th.Check("10.0.0.1", "reader")
		assert.True(t, ok)
		assert.False(t, th.Failed("10.0.0.1", "reader"))
	}
	assert.True(t, th.Failed("10.0.0.1", "reader"))

	wait, ok := th.Check("10.0.0.1", "reader")
	assert.False(t, ok)
	assert.Equal(t, 30*time.Minute, wait)

	// Other pairs are unaffected
	_, ok = th.Check("10.0.0.2", "reader")
	assert.True(t, ok)
	_, ok = th.Check("10.0.0.1", "author")
	assert.True(t, ok)

	clock.now = clock.now.Add(30 * time.Minute)
	_, ok = th.Check("10.0.0.1", "reader")
	assert.True(t, ok)
}

func TestLoginThrottle_WindowResetsCount(t *testing.T) {
	th, clock := newTestThrottle(2)

	th.Failed("10.0.0.1", "reader")
	clock.now = clock.now.Add(11 * time.Minute)
	assert.False(t, th.Failed("10.0.0.1", "reader"), "the first failure fell out of the window")

	_, ok := th.Check("10.0.0.1", "reader")
	assert.True(t, ok)
}

func TestLoginThrottle_SuccessClears(t *testing.T) {
	th, _ := newTestThrottle(2)

	th.Failed("10.0.0.1", "reader")
	th.Succeeded("10.0.0.1", "reader")
	assert.False(t, th.Failed("10.0.0.1", "reader"))
}

func TestLoginThrottle_PrunesExpiredEntries(t *testing.T) {
	th, clock := newTestThrottle(5)

	for i := 0; i < pruneAbove; i++ {
		th.Failed("10.0.0.1", fmt.Sprintf("user%d", i))
	}
	clock.now = clock.now.Add(time.Hour)
	th.Failed("10.0.0.9", "late")

	assert.Len(t, th.entries, 1)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	serve := func(hsts int, req *http.Request) http.Header {
		router := gin.New()
		router.Use(SecurityHeadersMiddleware(hsts))
		router.GET("/books", func(c *gin.Context) { c.Status(http.StatusOK) })
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Header()
	}

	h := serve(0, httptest.NewRequest(http.MethodGet, "/books", nil))
	assert.Equal(t, "SAMEORIGIN", h.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
	assert.NotEmpty(t, h.Get("Permissions-Policy"))

	csp := h.Get("Content-Security-Policy")
	assert.Contains(t, csp, "frame-src 'self'", "the viewer embeds the book file")
	assert.Contains(t, csp, "object-src 'none'")
	assert.Empty(t, h.Get("Strict-Transport-Security"))

	// HSTS needs both the option and an HTTPS request
	h = serve(3600, httptest.NewRequest(http.MethodGet, "/books", nil))
	assert.Empty(t, h.Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	h = serve(3600, req)
	assert.Equal(t, "max-age=3600; includeSubDomains", h.Get("Strict-Transport-Security"))

	req = httptest.NewRequest(http.MethodGet, "/books", nil)
	req.TLS = &tls.ConnectionState{}
	h = serve(3600, req)
	assert.NotEmpty(t, h.Get("Strict-Transport-Security"))
}

func TestUsernamePattern(t *testing.T) {
	tests := []struct {
		username string
		valid    bool
	}{
		{"ab", false},
		{"abc", true},
		{"reader_01", true},
		{"jane.doe", true},
		{"jane@home", true},
		{"jane+books", true},
		{"jane-doe", true},
		{"jane doe", false},
		{"jane/doe", false},
		{strings.Repeat("a", 64), true},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, usernamePattern.MatchString(tt.username), tt.username)
	}
}

func TestEmailPattern(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"reader@example.com", true},
		{"jane.doe+books@mail.example.org", true},
		{"invalid", false},
		{"@example.com", false},
		{"reader@", false},
		{"reader@.com", false},
		{"reader@example", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, emailPattern.MatchString(tt.email), tt.email)
	}
}
