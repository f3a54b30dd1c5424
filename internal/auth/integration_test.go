package auth

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/config"
	"github.com/mrlokans/bookshare/internal/entities"
)

type authEvent struct {
	userID  uint
	action  string
	success bool
}

type fakeAuditor struct {
	mu     sync.Mutex
	events []authEvent
}

func (f *fakeAuditor) LogAuth(userID uint, action string, _, _ string, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, authEvent{userID, action, success})
}

type testServer struct {
	router  *gin.Engine
	svc     *Service
	sm      *SessionManager
	auditor *fakeAuditor
}

func setupTestRouter(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get SQL DB: %v", err)
	}

	cfg := config.Auth{
		SessionLifetime: 24 * time.Hour,
		BcryptCost:      4,
		SecureCookies:   false, // For testing
	}

	svc := NewService(db, cfg)
	sm, err := NewSessionManager(sqlDB, cfg)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	auditor := &fakeAuditor{}

	// No templates directory: the controller answers with JSON
	controller, err := NewAuthController(svc, sm, t.TempDir(), cfg, auditor)
	if err != nil {
		t.Fatalf("failed to create controller: %v", err)
	}

	router := gin.New()
	router.Use(sm.GinMiddleware())
	router.Use(NewMiddleware(svc, sm).Handler())
	controller.RegisterRoutes(router)

	router.GET("/books/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	router.GET("/dashboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": GetUserRole(c)})
	})
	router.GET("/api/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})

	return &testServer{router: router, svc: svc, sm: sm, auditor: auditor}
}

func (s *testServer) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "text/html")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// sessionCookie reads the cookie from the headers directly, since the
// recorder's Result() misses headers written after the body.
func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	header := http.Header{}
	for _, v := range w.Header().Values("Set-Cookie") {
		header.Add("Set-Cookie", v)
	}
	resp := http.Response{Header: header}
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatalf("No session cookie found in Set-Cookie header: %v", w.Header().Values("Set-Cookie"))
	return nil
}

func TestIntegration_RegisterLoginLogoutFlow(t *testing.T) {
	s := setupTestRouter(t)

	// Step 1: Register as an author and land on the dashboard already logged in
	w := s.postForm("/register", url.Values{
		"username":         {"ursula"},
		"email":            {"ursula@example.com"},
		"first_name":       {"Ursula"},
		"last_name":        {"Le Guin"},
		"role":             {"author"},
		"password":         {testPassword},
		"confirm_password": {testPassword},
	}, nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("Register returned %d to %q: %s", w.Code, w.Header().Get("Location"), w.Body.String())
	}
	cookie := sessionCookie(t, w)

	w = s.get("/dashboard", cookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"role":"author"`) {
		t.Errorf("Dashboard after register returned %d: %s", w.Code, w.Body.String())
	}

	// Step 2: Logout drops the session
	w = s.get("/logout", cookie)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/books" {
		t.Errorf("Logout returned %d to %q", w.Code, w.Header().Get("Location"))
	}
	w = s.get("/dashboard", cookie)
	if w.Code != http.StatusFound {
		t.Errorf("Dashboard after logout returned %d, expected redirect", w.Code)
	}

	// Step 3: Login again and follow next
	w = s.postForm("/login", url.Values{
		"username": {"ursula"},
		"password": {testPassword},
		"next":     {"/books/3"},
	}, nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/books/3" {
		t.Fatalf("Login returned %d to %q: %s", w.Code, w.Header().Get("Location"), w.Body.String())
	}

	s.auditor.mu.Lock()
	defer s.auditor.mu.Unlock()
	var actions []string
	for _, e := range s.auditor.events {
		actions = append(actions, e.action)
	}
	if strings.Join(actions, ",") != "register,logout,login" {
		t.Errorf("audit actions = %v", actions)
	}
}

func TestIntegration_RegisterValidation(t *testing.T) {
	s := setupTestRouter(t)

	w := s.postForm("/register", url.Values{
		"username":         {"grace"},
		"email":            {"grace@example.com"},
		"first_name":       {"Grace"},
		"role":             {"reader"},
		"password":         {"nouppercase1!"},
		"confirm_password": {"nouppercase1!"},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected form re-render (200), got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Password must contain at least one uppercase letter (A-Z).") {
		t.Errorf("Expected password rule message, got %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"Username":"grace"`) {
		t.Errorf("Expected the form to keep its values, got %s", w.Body.String())
	}
}

func TestIntegration_LoginRejectsUnapproved(t *testing.T) {
	s := setupTestRouter(t)

	user, err := s.svc.Register(registration("held", "held@example.com"))
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if err := s.svc.SetApproved(user.ID, false); err != nil {
		t.Fatalf("SetApproved() error = %v", err)
	}

	w := s.postForm("/login", url.Values{"username": {"held"}, "password": {testPassword}}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected login form (200), got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Your account is not yet approved by admin.") {
		t.Errorf("Expected not-approved message, got %s", w.Body.String())
	}
}

func TestIntegration_BearerTokenAuth(t *testing.T) {
	s := setupTestRouter(t)

	user, err := s.svc.CreateUser("testuser", "test@example.com", "password12345", entities.UserRoleAdmin)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	token, err := s.svc.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with valid token, got %d: %s", w.Code, w.Body.String())
	}

	if err := s.svc.RevokeToken(user.ID); err != nil {
		t.Fatalf("Failed to revoke token: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with revoked token, got %d", w.Code)
	}
}

func TestIntegration_CatalogIsPublic(t *testing.T) {
	s := setupTestRouter(t)

	w := s.get("/books/42", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Book page returned %d for a visitor, expected 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"user_id":0`) {
		t.Errorf("Expected anonymous user id, got %s", w.Body.String())
	}

	w = s.get("/dashboard", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("Expected redirect (302), got %d", w.Code)
	}
	if location := w.Header().Get("Location"); location != "/login?next=%2Fdashboard" {
		t.Errorf("Expected redirect to login with next, got %s", location)
	}
}

func TestIntegration_LoggedInUserSkipsLoginPage(t *testing.T) {
	s := setupTestRouter(t)

	if _, err := s.svc.Register(registration("ada", "ada@example.com")); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	w := s.postForm("/login", url.Values{"username": {"ada"}, "password": {testPassword}}, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("Login returned %d: %s", w.Code, w.Body.String())
	}
	cookie := sessionCookie(t, w)

	for _, path := range []string{"/login", "/register"} {
		w = s.get(path, cookie)
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
			t.Errorf("%s returned %d to %q, expected redirect to /dashboard", path, w.Code, w.Header().Get("Location"))
		}
	}
}

type failingSessions struct{}

func (failingSessions) CreateSession(*http.Request, *entities.User) error {
	return errors.New("session store unavailable")
}

func (failingSessions) DestroySession(*http.Request) error { return nil }

func TestIntegration_RegisterLogsSessionFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(setupTestDB(t), config.Auth{BcryptCost: 4})
	controller, err := NewAuthController(svc, nil, t.TempDir(), config.Auth{}, &fakeAuditor{})
	if err != nil {
		t.Fatalf("failed to create controller: %v", err)
	}
	controller.sessions = failingSessions{}
	router := gin.New()
	controller.RegisterRoutes(router)

	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	form := url.Values{
		"username":         {"octavia"},
		"email":            {"octavia@example.com"},
		"first_name":       {"Octavia"},
		"role":             {"reader"},
		"password":         {testPassword},
		"confirm_password": {testPassword},
	}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
		t.Errorf("Register returned %d to %q", w.Code, w.Header().Get("Location"))
	}
	if !strings.Contains(logs.String(), "[AUTH] Failed to start session for new user") ||
		!strings.Contains(logs.String(), "session store unavailable") {
		t.Errorf("Expected the session failure to be logged, got %q", logs.String())
	}
}
