package http

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/entities"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	HasMore    bool  `json:"has_more"`
	TotalPages int   `json:"total_pages,omitempty"`
}

// --- Error Response Helpers ---

// respondError sends an error response with the given status.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, message)
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// --- Domain Errors ---

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrAuthorization), errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrInvalidState):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// isUserError reports whether err should be shown back on the submitted form.
func isUserError(err error) bool {
	return errors.Is(err, apperr.ErrValidation) || errors.Is(err, apperr.ErrInvalidState)
}

// respondAppError sends a JSON error for a service error. Unknown errors are
// logged and reported as 500.
func respondAppError(c *gin.Context, err error, context string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		respondInternalError(c, err, context)
		return
	}
	respondError(c, status, apperr.Message(err, http.StatusText(status)))
}

// wantsJSON reports whether the client should get JSON rather than a page.
func wantsJSON(c *gin.Context) bool {
	if auth.IsAPIRequest(c) {
		return true
	}
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// optionalInt parses a form value, returning nil when it is blank.
func optionalInt(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// pageParam reads ?page=, defaulting to 1.
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// --- Redirects ---

// isLocalPath accepts only same-site absolute paths.
func isLocalPath(path string) bool {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return false
	}
	return !strings.Contains(path, "://") && !strings.Contains(path, "\\")
}

// backURL returns the Referer when it points back into this site, else fallback.
func backURL(c *gin.Context, fallback string) string {
	ref := c.GetHeader("Referer")
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil {
		return fallback
	}
	if u.Host != "" && u.Host != c.Request.Host {
		return fallback
	}
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if !isLocalPath(path) {
		return fallback
	}
	return path
}

// dashboardPath is the landing page for a role.
func dashboardPath(role entities.UserRole) string {
	switch role {
	case entities.UserRoleAdmin:
		return "/admin/dashboard"
	case entities.UserRoleAuthor:
		return "/author/dashboard"
	}
	return "/reader/dashboard"
}

// bookPath is the detail page URL of a book.
func bookPath(id uint) string {
	return "/books/" + strconv.FormatUint(uint64(id), 10)
}
