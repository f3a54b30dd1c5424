package auth

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/config"
	"github.com/mrlokans/bookshare/internal/entities"
)

const homePath = "/dashboard"

// LoginAuditor records authentication events.
type LoginAuditor interface {
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
}

// sanitizeRedirectPath keeps next parameters on this site. Anything that a
// browser could read as another host falls back to the dashboard.
func sanitizeRedirectPath(path string) string {
	switch {
	case !strings.HasPrefix(path, "/"),
		strings.HasPrefix(path, "//"),
		strings.Contains(path, "://"),
		strings.ContainsRune(path, '\\'):
		return homePath
	}
	return path
}

// sessionStore is the part of SessionManager the pages use.
type sessionStore interface {
	CreateSession(r *http.Request, user *entities.User) error
	DestroySession(r *http.Request) error
}

// AuthController serves the login, logout and signup pages.
type AuthController struct {
	service   *Service
	sessions  sessionStore
	templates *template.Template
	throttle  *LoginThrottle
	auditor   LoginAuditor
}

// NewAuthController parses templates/auth/*.html under templatesPath. When
// none are found the pages answer with their data as JSON. auditor may be
// nil.
func NewAuthController(service *Service, sessions *SessionManager, templatesPath string, cfg config.Auth, auditor LoginAuditor) (*AuthController, error) {
	ac := &AuthController{
		service:  service,
		throttle: NewLoginThrottle(cfg.MaxLoginAttempts, cfg.RateLimitWindow, cfg.LockoutDuration),
		auditor:  auditor,
	}
	if sessions != nil {
		ac.sessions = sessions
	}
	if tmpl, err := template.ParseGlob(filepath.Join(templatesPath, "auth", "*.html")); err == nil {
		ac.templates = tmpl
	}
	return ac, nil
}

func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.GET("/logout", ac.Logout)
	router.POST("/logout", ac.Logout)
	router.GET("/register", ac.RegisterPage)
	router.POST("/register", ac.Register)
}

func (ac *AuthController) audit(c *gin.Context, userID uint, action string, success bool) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}

func (ac *AuthController) LoginPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, homePath)
		return
	}
	ac.render(c, "login.html", ac.loginData(c, sanitizeRedirectPath(c.Query("next")), "", c.Query("error")))
}

func (ac *AuthController) loginData(c *gin.Context, next, username, errMsg string) gin.H {
	return gin.H{
		"Title":     "Login",
		"Next":      next,
		"Username":  username,
		"CSRFToken": CSRFToken(c),
		"Error":     errMsg,
	}
}

// Login checks the throttle before the password so a locked out client
// learns nothing about the credentials it sends.
func (ac *AuthController) Login(c *gin.Context) {
	username := c.PostForm("username")
	next := sanitizeRedirectPath(c.PostForm("next"))
	ip := c.ClientIP()

	if wait, ok := ac.throttle.Check(ip, username); !ok {
		wait = wait.Round(time.Second)
		c.Header("Retry-After", strconv.Itoa(int(wait/time.Second)))
		data := ac.loginData(c, next, username, "Too many login attempts. Please try again later.")
		data["RetryAfter"] = wait.String()
		ac.render(c, "login.html", data)
		return
	}

	user, err := ac.service.Authenticate(username, c.PostForm("password"))
	if err != nil {
		ac.throttle.Failed(ip, username)
		ac.audit(c, 0, "login", false)
		ac.render(c, "login.html", ac.loginData(c, next, username, loginMessage(err)))
		return
	}
	ac.throttle.Succeeded(ip, username)

	if err := ac.startSession(c, user); err != nil {
		ac.render(c, "login.html", ac.loginData(c, next, username, "Failed to create session"))
		return
	}
	ac.audit(c, user.ID, "login", true)
	c.Redirect(http.StatusFound, next)
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, ErrAccountLocked):
		return "Account is locked. Please try again later."
	case errors.Is(err, ErrAccountNotApproved):
		return "Your account is not yet approved by admin."
	}
	return "Invalid username or password"
}

func (ac *AuthController) startSession(c *gin.Context, user *entities.User) error {
	if ac.sessions == nil {
		return nil
	}
	return ac.sessions.CreateSession(c.Request, user)
}

// Logout sends everyone back to the public catalog, signed in or not.
func (ac *AuthController) Logout(c *gin.Context) {
	if ac.sessions != nil {
		_ = ac.sessions.DestroySession(c.Request)
	}
	if id := GetUserID(c); id != AnonymousUserID {
		ac.audit(c, id, "logout", true)
	}
	c.Redirect(http.StatusFound, "/books")
}

func (ac *AuthController) RegisterPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, homePath)
		return
	}
	ac.render(c, "register.html", ac.registerData(c, Registration{Role: entities.UserRoleReader}, c.Query("error")))
}

// registerData echoes the submitted form back, passwords excluded.
func (ac *AuthController) registerData(c *gin.Context, form Registration, errMsg string) gin.H {
	return gin.H{
		"Title":     "Register",
		"Username":  form.Username,
		"Email":     form.Email,
		"FirstName": form.FirstName,
		"LastName":  form.LastName,
		"Bio":       form.Bio,
		"Role":      string(form.Role),
		"CSRFToken": CSRFToken(c),
		"Error":     errMsg,
	}
}

// Register creates a reader or author account and signs it in. A failed
// session start still leaves the account usable through the login page.
func (ac *AuthController) Register(c *gin.Context) {
	var form Registration
	if err := c.ShouldBind(&form); err != nil {
		ac.render(c, "register.html", ac.registerData(c, form, "Registration failed. Please try again."))
		return
	}

	user, err := ac.service.Register(form)
	if err != nil {
		ac.audit(c, 0, "register", false)
		ac.render(c, "register.html", ac.registerData(c, form, registrationMessage(err)))
		return
	}
	ac.audit(c, user.ID, "register", true)

	if err := ac.startSession(c, user); err != nil {
		log.Printf("[AUTH] Failed to start session for new user %d: %v", user.ID, err)
	}
	c.Redirect(http.StatusFound, homePath)
}

var registrationErrors = []error{
	ErrRegistrationRole, ErrFirstNameRequired, ErrUsernameRequired, ErrUsernameInvalid,
	ErrUsernameTaken, ErrEmailRequired, ErrEmailInvalid, ErrEmailTaken,
	ErrPasswordRequired, ErrPasswordsDontMatch, ErrPasswordTooShort, ErrPasswordTooLong,
	ErrPasswordNoUpper, ErrPasswordNoDigit, ErrPasswordNoSpecial,
}

// registrationMessage turns a validation error into a sentence for the form.
func registrationMessage(err error) string {
	for _, known := range registrationErrors {
		if errors.Is(err, known) {
			msg := known.Error()
			return strings.ToUpper(msg[:1]) + msg[1:] + "."
		}
	}
	return "Registration failed. Please try again."
}

func (ac *AuthController) render(c *gin.Context, name string, data gin.H) {
	if ac.templates == nil {
		c.JSON(http.StatusOK, data)
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		c.String(http.StatusInternalServerError, "Template error: %v", err)
	}
}

// APITokenController lets a signed in user issue or revoke their bearer
// token.
type APITokenController struct {
	service *Service
}

func NewAPITokenController(service *Service) *APITokenController {
	return &APITokenController{service: service}
}

func (tc *APITokenController) GenerateToken(c *gin.Context) {
	userID, ok := tc.requireUser(c)
	if !ok {
		return
	}
	token, err := tc.service.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely, it is shown only once",
	})
}

func (tc *APITokenController) RevokeToken(c *gin.Context) {
	userID, ok := tc.requireUser(c)
	if !ok {
		return
	}
	if err := tc.service.RevokeToken(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}

func (tc *APITokenController) requireUser(c *gin.Context) (uint, bool) {
	id := GetUserID(c)
	if id == AnonymousUserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return 0, false
	}
	return id, true
}
