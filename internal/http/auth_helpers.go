package http

import (
	"html/template"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/entities"
)

// AuthTemplateData holds authentication info for templates.
type AuthTemplateData struct {
	LoggedIn    bool              // Whether user is logged in
	User        *entities.User    // Current user (nil for visitors)
	Username    string            // Current user's username (empty if not logged in)
	Role        entities.UserRole // Current user's role
	CSRFToken   string            // CSRF token for forms (empty when CSRF is off)
	CSRFField   template.HTML     // Hidden input carrying CSRFToken
	UnreadCount int64             // Unread notifications badge
}

// UnreadCounter counts a user's unread notifications.
type UnreadCounter interface {
	UnreadCount(userID uint) (int64, error)
}

// AuthContextMiddleware injects authentication data into Gin context for templates.
// Templates can access auth data via .Auth in the template data. unread may be nil.
func AuthContextMiddleware(unread UnreadCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		authData := AuthTemplateData{
			CSRFToken: auth.CSRFToken(c),
			CSRFField: auth.CSRFField(c),
		}

		if user := auth.CurrentUser(c); user != nil {
			authData.LoggedIn = true
			authData.User = user
			authData.Username = user.Username
			authData.Role = user.Role

			if unread != nil && auth.GetAuthType(c) == auth.AuthTypeSession {
				count, err := unread.UnreadCount(user.ID)
				if err != nil {
					log.Printf("[HTTP] Failed to count unread notifications for user %d: %v", user.ID, err)
				}
				authData.UnreadCount = count
			}
		}

		c.Set("auth_template_data", authData)
		c.Next()
	}
}

// GetAuthTemplateData retrieves auth data from context for use in templates.
func GetAuthTemplateData(c *gin.Context) AuthTemplateData {
	if data, exists := c.Get("auth_template_data"); exists {
		if authData, ok := data.(AuthTemplateData); ok {
			return authData
		}
	}
	return AuthTemplateData{}
}
