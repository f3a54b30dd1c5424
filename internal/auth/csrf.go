package auth

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRFTokenHeader carries the token for scripted requests. Forms post it in
// the gorilla.csrf.Token field.
const CSRFTokenHeader = "X-CSRF-Token"

const formExpiredPage = `<!DOCTYPE html>
<html>
<head><title>Form expired</title></head>
<body style="font-family: system-ui; max-width: 400px; margin: 100px auto; text-align: center;">
<h1>Form expired</h1>
<p>The page you submitted from is too old. Reload it and try again.</p>
<p><a href="/books">Back to the catalog</a></p>
</body>
</html>`

// CSRFMiddleware checks the token on unsafe methods. Requests with a bearer
// token that resolves to a user are exempt since browsers never attach one on
// their own. With secure off the app is served over plain HTTP and the
// TLS-only Referer check is skipped.
func CSRFMiddleware(secret []byte, secure bool, tokens *Service) gin.HandlerFunc {
	protect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.ErrorHandler(http.HandlerFunc(formExpired)),
	)

	return func(c *gin.Context) {
		if tokens != nil {
			if token, ok := bearerToken(c.Request); ok {
				if _, err := tokens.ValidateToken(token); err == nil {
					c.Next()
					return
				}
			}
		}

		r := c.Request
		if !secure {
			r = csrf.PlaintextHTTPRequest(r)
		}

		passed := false
		protect(http.HandlerFunc(func(_ http.ResponseWriter, checked *http.Request) {
			passed = true
			c.Request = checked
			c.Next()
		})).ServeHTTP(c.Writer, r)

		if !passed {
			c.Abort()
		}
	}
}

// formExpired answers a failed check: JSON for API callers, a redirect back
// to the form when it came from this site, and a short page otherwise.
func formExpired(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"CSRF token invalid or missing"}`))
		return
	}

	if back, ok := sameSiteReferer(r); ok {
		q := back.Query()
		q.Set("error", "Your form expired. Please try again.")
		back.RawQuery = q.Encode()
		http.Redirect(w, r, back.String(), http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(formExpiredPage))
}

func sameSiteReferer(r *http.Request) (*url.URL, bool) {
	if r.Referer() == "" {
		return nil, false
	}
	u, err := url.Parse(r.Referer())
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return nil, false
	}
	return u, true
}

// CSRFToken is the masked token for the current request, empty when CSRF
// protection is off.
func CSRFToken(c *gin.Context) string {
	if c.Request == nil {
		return ""
	}
	return csrf.Token(c.Request)
}

// CSRFField is the hidden form input carrying CSRFToken.
func CSRFField(c *gin.Context) template.HTML {
	if c.Request == nil {
		return ""
	}
	return csrf.TemplateField(c.Request)
}
