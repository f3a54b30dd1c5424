// Package users provides database operations for accounts and role changes.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByID(id)
package users

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookshare/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns users ordered by join date, optionally filtered by role.
func (r *Repository) ListUsers(role entities.UserRole) ([]entities.User, error) {
	var users []entities.User
	query := r.db.Order("created_at DESC")
	if role != "" {
		query = query.Where("role = ?", role)
	}
	err := query.Find(&users).Error
	return users, err
}

// CountByRole returns the number of users per role.
func (r *Repository) CountByRole() (map[entities.UserRole]int64, error) {
	var rows []struct {
		Role  entities.UserRole
		Count int64
	}
	err := r.db.Model(&entities.User{}).Select("role, COUNT(*) AS count").Group("role").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[entities.UserRole]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

// ProfileUpdate holds the editable profile fields.
type ProfileUpdate struct {
	FirstName      string
	LastName       string
	Email          string
	Bio            string
	FavoriteGenres string
}

// UpdateProfile saves the editable profile fields of a user.
func (r *Repository) UpdateProfile(userID uint, p ProfileUpdate) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"first_name":      p.FirstName,
		"last_name":       p.LastName,
		"email":           p.Email,
		"bio":             p.Bio,
		"favorite_genres": p.FavoriteGenres,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// EmailTaken reports whether another user already uses the email.
func (r *Repository) EmailTaken(email string, exceptUserID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Where("email = ? AND id <> ?", email, exceptUserID).Count(&count).Error
	return count > 0, err
}

// SetRole changes a user's role.
func (r *Repository) SetRole(userID uint, role entities.UserRole) error {
	return r.db.Model(&entities.User{}).Where("id = ?", userID).Update("role", role).Error
}

// SaveRoleChangeRequest stores a pending request for the user, replacing any earlier one.
func (r *Repository) SaveRoleChangeRequest(req *entities.RoleChangeRequest) error {
	req.Status = entities.RoleChangePending
	req.AdminComment = ""
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"requested_role", "status", "reason", "admin_comment", "updated_at"}),
	}).Omit("User").Create(req).Error
}

// GetRoleChangeRequest returns the user's request, or nil when there is none.
func (r *Repository) GetRoleChangeRequest(userID uint) (*entities.RoleChangeRequest, error) {
	var req entities.RoleChangeRequest
	err := r.db.Where("user_id = ?", userID).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetRoleChangeRequestByID retrieves a request with its user.
func (r *Repository) GetRoleChangeRequestByID(id uint) (*entities.RoleChangeRequest, error) {
	var req entities.RoleChangeRequest
	err := r.db.Preload("User").First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListPendingRoleChangeRequests returns pending requests, oldest first.
func (r *Repository) ListPendingRoleChangeRequests() ([]entities.RoleChangeRequest, error) {
	var reqs []entities.RoleChangeRequest
	err := r.db.Preload("User").
		Where("status = ?", entities.RoleChangePending).
		Order("created_at ASC").
		Find(&reqs).Error
	return reqs, err
}

// ApproveRoleChange marks the request approved and applies the role in one transaction.
func (r *Repository) ApproveRoleChange(req *entities.RoleChangeRequest) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.User{}).Where("id = ?", req.UserID).Update("role", req.RequestedRole).Error; err != nil {
			return err
		}
		req.Status = entities.RoleChangeApproved
		return tx.Model(req).Update("status", req.Status).Error
	})
}

// RejectRoleChange marks the request rejected with the admin's comment.
func (r *Repository) RejectRoleChange(req *entities.RoleChangeRequest, comment string) error {
	req.Status = entities.RoleChangeRejected
	req.AdminComment = comment
	return r.db.Model(req).Updates(map[string]any{
		"status":        req.Status,
		"admin_comment": comment,
	}).Error
}
