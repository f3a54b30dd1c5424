package auth

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/entities"
)

const (
	ctxUser     = "auth.user"
	ctxAuthType = "auth.type"
)

// AuthType records how the caller proved who they are.
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// AnonymousUserID is the user ID of an unauthenticated visitor.
const AnonymousUserID = uint(0)

var publicPaths = map[string]bool{
	"/":            true,
	"/health":      true,
	"/ping":        true,
	"/login":       true,
	"/register":    true,
	"/favicon.ico": true,
}

// Catalog pages anyone may browse.
var publicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^/books/?$`),
	regexp.MustCompile(`^/books/search/?$`),
	regexp.MustCompile(`^/books/\d+/?$`),
	regexp.MustCompile(`^/api/books/\d+/access$`),
}

func isPublicPath(path string) bool {
	if publicPaths[path] || strings.HasPrefix(path, "/static/") {
		return true
	}
	for _, p := range publicPatterns {
		if p.MatchString(path) {
			return true
		}
	}
	return false
}

// Middleware identifies the caller on every request and turns visitors away
// from pages that need an account.
type Middleware struct {
	service  *Service
	sessions *SessionManager
}

func NewMiddleware(service *Service, sessions *SessionManager) *Middleware {
	return &Middleware{service: service, sessions: sessions}
}

// Handler resolves the user from a bearer token or the session cookie. The
// user is loaded from the database each time, so role changes and a revoked
// approval apply to the next request.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, how := m.identify(c.Request)
		if user != nil {
			c.Set(ctxUser, user)
		}
		c.Set(ctxAuthType, how)

		if user == nil && !isPublicPath(c.Request.URL.Path) {
			unauthenticated(c)
			return
		}
		c.Next()
	}
}

func (m *Middleware) identify(r *http.Request) (*entities.User, AuthType) {
	if token, ok := bearerToken(r); ok {
		if user, err := m.service.ValidateToken(token); err == nil {
			return user, AuthTypeBearer
		}
	}
	if m.sessions == nil {
		return nil, AuthTypeNone
	}
	id := m.sessions.GetUserID(r)
	if id == AnonymousUserID {
		return nil, AuthTypeNone
	}
	user, err := m.service.GetUserByID(id)
	if err != nil || !user.IsApproved {
		return nil, AuthTypeNone
	}
	return user, AuthTypeSession
}

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// scheme is case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// unauthenticated answers 401 to API clients and sends browsers to the login
// page with a return path.
func unauthenticated(c *gin.Context) {
	if IsAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}

// IsAPIRequest reports whether the caller expects JSON rather than HTML. Any
// Authorization header counts, even one that did not resolve to a user.
func IsAPIRequest(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/") ||
		strings.Contains(c.GetHeader("Accept"), "application/json") ||
		c.GetHeader("Authorization") != ""
}

// RequireRole lets through signed-in users holding one of roles.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	allowed := make(map[entities.UserRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		user := CurrentUser(c)
		switch {
		case user == nil:
			unauthenticated(c)
		case !allowed[user.Role]:
			if IsAPIRequest(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			} else {
				c.AbortWithStatus(http.StatusForbidden)
			}
		default:
			c.Next()
		}
	}
}

// CurrentUser returns the authenticated user, or nil for visitors.
func CurrentUser(c *gin.Context) *entities.User {
	user, _ := c.Value(ctxUser).(*entities.User)
	return user
}

// GetUserID is the current user's ID, AnonymousUserID for visitors.
func GetUserID(c *gin.Context) uint {
	if user := CurrentUser(c); user != nil {
		return user.ID
	}
	return AnonymousUserID
}

// GetUserRole is the current user's role, empty for visitors.
func GetUserRole(c *gin.Context) entities.UserRole {
	if user := CurrentUser(c); user != nil {
		return user.Role
	}
	return ""
}

func GetAuthType(c *gin.Context) AuthType {
	if how, ok := c.Value(ctxAuthType).(AuthType); ok {
		return how
	}
	return AuthTypeNone
}

func IsAuthenticated(c *gin.Context) bool {
	return CurrentUser(c) != nil
}
