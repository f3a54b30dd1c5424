package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/database/users"
	"github.com/mrlokans/bookshare/internal/entities"
)

// ProfileController handles user profile operations.
type ProfileController struct {
	authService *auth.Service
	accounts    *auth.Accounts
	views       *Views
}

// NewProfileController creates a new ProfileController.
func NewProfileController(authService *auth.Service, accounts *auth.Accounts, views *Views) *ProfileController {
	return &ProfileController{
		authService: authService,
		accounts:    accounts,
		views:       views,
	}
}

// ProfilePage renders the user profile page.
// GET /profile
func (pc *ProfileController) ProfilePage(c *gin.Context) {
	pc.renderProfile(c, "profile.html", gin.H{})
}

// EditForm renders the profile edit form.
// GET /profile/edit
func (pc *ProfileController) EditForm(c *gin.Context) {
	pc.renderProfile(c, "profile_edit.html", gin.H{})
}

// Edit saves the profile fields.
// POST /profile/edit
func (pc *ProfileController) Edit(c *gin.Context) {
	user := auth.CurrentUser(c)
	update := users.ProfileUpdate{
		FirstName:      c.PostForm("first_name"),
		LastName:       c.PostForm("last_name"),
		Email:          c.PostForm("email"),
		Bio:            strings.TrimSpace(c.PostForm("bio")),
		FavoriteGenres: strings.Join(c.PostFormArray("favorite_genres"), ","),
	}
	if err := pc.accounts.UpdateProfile(c.Request.Context(), user, update); err != nil {
		pc.views.formError(c, err, "profile_edit.html", gin.H{
			"Title":   "Edit profile",
			"Profile": user,
			"Form":    update,
		}, "update profile")
		return
	}
	pc.views.done(c, "Profile updated.", "/profile", user)
}

// ChangePassword handles password change requests.
// POST /profile/password
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	err := pc.authService.ChangePassword(
		auth.GetUserID(c),
		c.PostForm("current_password"),
		c.PostForm("new_password"),
		c.PostForm("confirm_password"),
	)
	if err != nil {
		pc.views.failAction(c, passwordError(err), "/profile", "change password")
		return
	}
	pc.views.done(c, "Password changed.", "/profile", nil)
}

// RequestRole files a role change request.
// POST /profile/role-request
func (pc *ProfileController) RequestRole(c *gin.Context) {
	role := entities.UserRole(c.PostForm("role"))
	req, err := pc.accounts.RequestRoleChange(c.Request.Context(), auth.CurrentUser(c), role, c.PostForm("reason"))
	if err != nil {
		pc.views.failAction(c, err, "/profile", "request role change")
		return
	}
	pc.views.done(c, "Your request was sent to the administrators.", "/profile", req)
}

// GenerateToken creates a new API token for the user, replacing any existing one.
// The token is shown once.
// POST /profile/token
func (pc *ProfileController) GenerateToken(c *gin.Context) {
	token, err := pc.authService.GenerateToken(auth.GetUserID(c))
	if err != nil {
		pc.views.fail(c, err, "generate token")
		return
	}
	pc.renderProfile(c, "profile.html", gin.H{"Token": token})
}

// RevokeToken removes the user's API token.
// POST /profile/token/revoke
func (pc *ProfileController) RevokeToken(c *gin.Context) {
	if err := pc.authService.RevokeToken(auth.GetUserID(c)); err != nil {
		pc.views.fail(c, err, "revoke token")
		return
	}
	pc.views.done(c, "API token revoked.", "/profile", nil)
}

func (pc *ProfileController) renderProfile(c *gin.Context, name string, data gin.H) {
	user := auth.CurrentUser(c)
	pending, err := pc.accounts.PendingRoleChange(user.ID)
	if err != nil {
		pc.views.fail(c, err, "load role change request")
		return
	}
	data["Title"] = "Profile"
	data["Profile"] = user
	data["HasToken"] = user.TokenHash != ""
	data["PendingRoleChange"] = pending
	data["Genres"] = entities.Genres
	pc.views.render(c, http.StatusOK, name, data)
}

// passwordError turns password failures into messages for the form.
func passwordError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidPassword):
		return apperr.Validation("Current password is incorrect.")
	case errors.Is(err, auth.ErrPasswordsDontMatch),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrPasswordNoUpper),
		errors.Is(err, auth.ErrPasswordNoDigit),
		errors.Is(err, auth.ErrPasswordNoSpecial):
		msg := err.Error()
		return apperr.Validation("%s.", strings.ToUpper(msg[:1])+msg[1:])
	}
	return err
}
