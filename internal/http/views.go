package http

import (
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/entities"
)

// Session keys for one-shot messages shown on the next page.
const (
	flashSuccess = "flash_success"
	flashError   = "flash_error"
)

// Flash holds the messages popped for the current page.
type Flash struct {
	Success string `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Views renders pages. Without templates every page is answered as JSON,
// which is what API clients and tests see.
type Views struct {
	templates *template.Template
	sessions  *auth.SessionManager
}

// NewViews loads *.html from templatesPath. sessions may be nil.
func NewViews(templatesPath string, sessions *auth.SessionManager) *Views {
	return &Views{templates: loadTemplates(templatesPath), sessions: sessions}
}

// Templates returns the parsed page templates, or nil.
func (v *Views) Templates() *template.Template {
	return v.templates
}

func loadTemplates(dir string) *template.Template {
	if dir == "" {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil || len(files) == 0 {
		log.Printf("[HTTP] No page templates in %q, pages render as JSON", dir)
		return nil
	}
	return template.Must(template.New("").Funcs(templateFuncs()).ParseFiles(files...))
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"add":      func(a, b int) int { return a + b },
		"subtract": func(a, b int) int { return a - b },
		"date": func(t any) string {
			switch v := t.(type) {
			case time.Time:
				return v.Format("Jan 2, 2006")
			case *time.Time:
				if v != nil {
					return v.Format("Jan 2, 2006")
				}
			}
			return ""
		},
		"derefInt": func(p *int) int {
			if p == nil {
				return 0
			}
			return *p
		},
		"genres": func() []entities.Genre { return entities.Genres },
		"hasGenre": func(selected []string, key string) bool {
			for _, s := range selected {
				if s == key {
					return true
				}
			}
			return false
		},
	}
}

// render writes a page, adding auth data and pending flash messages.
func (v *Views) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if flash := v.popFlash(c); flash != (Flash{}) {
		data["Flash"] = flash
	}
	if v.templates == nil || wantsJSON(c) {
		c.JSON(status, data)
		return
	}
	data["Auth"] = GetAuthTemplateData(c)
	c.HTML(status, name, data)
}

// fail answers a request that could not be served.
func (v *Views) fail(c *gin.Context, err error, context string) {
	if v.templates == nil || wantsJSON(c) {
		respondAppError(c, err, context)
		return
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("Internal error (%s): %v", context, err)
	}
	c.HTML(status, "error.html", gin.H{
		"Status":  status,
		"Message": apperr.Message(err, "Something went wrong. Please try again."),
		"Auth":    GetAuthTemplateData(c),
	})
}

// failAction reports a failed form post. Validation and state errors go back
// to the previous page as a flash message.
func (v *Views) failAction(c *gin.Context, err error, fallback, context string) {
	if isUserError(err) && !wantsJSON(c) {
		v.flash(c, flashError, apperr.Message(err, "Request failed."))
		c.Redirect(http.StatusFound, backURL(c, fallback))
		return
	}
	v.fail(c, err, context)
}

// formError re-renders a form with the error message of a validation or state
// error. Other errors go to fail.
func (v *Views) formError(c *gin.Context, err error, name string, data gin.H, context string) {
	if !isUserError(err) {
		v.fail(c, err, context)
		return
	}
	status := http.StatusOK
	if wantsJSON(c) {
		status = statusFor(err)
	}
	data["Error"] = apperr.Message(err, "Please correct the errors below.")
	v.render(c, status, name, data)
}

// done completes a form post with a success message and a redirect.
func (v *Views) done(c *gin.Context, message, target string, data any) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, SuccessResponse{Message: message, Data: data})
		return
	}
	v.flash(c, flashSuccess, message)
	c.Redirect(http.StatusFound, target)
}

func (v *Views) flash(c *gin.Context, key, message string) {
	if v.sessions == nil || message == "" {
		return
	}
	v.sessions.Put(c.Request.Context(), key, message)
}

func (v *Views) popFlash(c *gin.Context) Flash {
	if v.sessions == nil {
		return Flash{}
	}
	ctx := c.Request.Context()
	return Flash{
		Success: v.sessions.PopString(ctx, flashSuccess),
		Error:   v.sessions.PopString(ctx, flashError),
	}
}
