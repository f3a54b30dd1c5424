package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/database/users"
	"github.com/mrlokans/bookshare/internal/entities"
	"github.com/mrlokans/bookshare/internal/notify"
)

// AccountStore is the persistence behind profiles and role changes.
type AccountStore interface {
	GetUserByID(id uint) (*entities.User, error)
	UpdateProfile(userID uint, p users.ProfileUpdate) error
	EmailTaken(email string, exceptUserID uint) (bool, error)
	SaveRoleChangeRequest(req *entities.RoleChangeRequest) error
	GetRoleChangeRequest(userID uint) (*entities.RoleChangeRequest, error)
	GetRoleChangeRequestByID(id uint) (*entities.RoleChangeRequest, error)
	ListPendingRoleChangeRequests() ([]entities.RoleChangeRequest, error)
	ApproveRoleChange(req *entities.RoleChangeRequest) error
	RejectRoleChange(req *entities.RoleChangeRequest, comment string) error
}

// Accounts manages profile edits and the role change workflow.
type Accounts struct {
	store    AccountStore
	notifier notify.Notifier
}

func NewAccounts(store AccountStore, notifier notify.Notifier) *Accounts {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Accounts{store: store, notifier: notifier}
}

// UpdateProfile saves the editable profile fields. First name and a unique
// email are required.
func (a *Accounts) UpdateProfile(ctx context.Context, user *entities.User, p users.ProfileUpdate) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = strings.TrimSpace(p.Email)

	if p.FirstName == "" {
		return apperr.Validation("First name is required.")
	}
	if len(p.Email) > 254 || !emailPattern.MatchString(p.Email) {
		return apperr.Validation("Enter a valid email address.")
	}
	taken, err := a.store.EmailTaken(p.Email, user.ID)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return apperr.Validation("This email is already registered.")
	}

	if err := a.store.UpdateProfile(user.ID, p); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("User not found.")
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	user.FirstName, user.LastName, user.Email = p.FirstName, p.LastName, p.Email
	user.Bio, user.FavoriteGenres = p.Bio, p.FavoriteGenres
	return nil
}

// PendingRoleChange returns the user's pending request, or nil.
func (a *Accounts) PendingRoleChange(userID uint) (*entities.RoleChangeRequest, error) {
	req, err := a.store.GetRoleChangeRequest(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load role change request: %w", err)
	}
	if req == nil || req.Status != entities.RoleChangePending {
		return nil, nil
	}
	return req, nil
}

// RequestRoleChange files a request to switch role. A pending request blocks a
// new one; a decided request is replaced.
func (a *Accounts) RequestRoleChange(ctx context.Context, user *entities.User, role entities.UserRole, reason string) (*entities.RoleChangeRequest, error) {
	if !role.Valid() {
		return nil, apperr.Validation("Choose a valid role.")
	}
	if role == user.Role {
		return nil, apperr.Validation("You already have the %s role.", role.Label())
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("Please tell us why you need this role.")
	}

	pending, err := a.PendingRoleChange(user.ID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, apperr.InvalidState("You already have a pending role change request.")
	}

	req := &entities.RoleChangeRequest{
		UserID:        user.ID,
		RequestedRole: role,
		Reason:        reason,
	}
	if err := a.store.SaveRoleChangeRequest(req); err != nil {
		return nil, fmt.Errorf("failed to save role change request: %w", err)
	}
	return req, nil
}

// PendingRoleChanges lists the admin review queue.
func (a *Accounts) PendingRoleChanges(ctx context.Context, admin *entities.User) ([]entities.RoleChangeRequest, error) {
	if !admin.IsAdmin() {
		return nil, apperr.Authorization("Only admins can review role change requests.")
	}
	reqs, err := a.store.ListPendingRoleChangeRequests()
	if err != nil {
		return nil, fmt.Errorf("failed to list role change requests: %w", err)
	}
	return reqs, nil
}

// DecideRoleChange approves or rejects a pending request and notifies the user.
func (a *Accounts) DecideRoleChange(ctx context.Context, admin *entities.User, requestID uint, approve bool, comment string) (*entities.RoleChangeRequest, error) {
	if !admin.IsAdmin() {
		return nil, apperr.Authorization("Only admins can review role change requests.")
	}

	req, err := a.store.GetRoleChangeRequestByID(requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Role change request not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load role change request %d: %w", requestID, err)
	}
	if req.Status != entities.RoleChangePending {
		return nil, apperr.InvalidState("This request has already been %s.", req.Status)
	}

	n := &entities.Notification{UserID: req.UserID, RelatedUserID: &admin.ID}
	if approve {
		if err := a.store.ApproveRoleChange(req); err != nil {
			return nil, fmt.Errorf("failed to approve role change %d: %w", requestID, err)
		}
		n.Type = entities.NotificationRoleChangeApproved
		n.Title = "Role change approved"
		n.Message = fmt.Sprintf("You are now registered as %s.", req.RequestedRole.Label())
	} else {
		comment = strings.TrimSpace(comment)
		if err := a.store.RejectRoleChange(req, comment); err != nil {
			return nil, fmt.Errorf("failed to reject role change %d: %w", requestID, err)
		}
		n.Type = entities.NotificationRoleChangeRejected
		n.Title = "Role change rejected"
		n.Message = fmt.Sprintf("Your request to become %s was rejected.", req.RequestedRole.Label())
		if comment != "" {
			n.Message += " Comment: " + comment
		}
	}
	a.notifier.Notify(ctx, n)
	return req, nil
}
