package entities

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleReader UserRole = "reader"
	UserRoleAuthor UserRole = "author"
	UserRoleAdmin  UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleReader, UserRoleAuthor, UserRoleAdmin:
		return true
	}
	return false
}

func (r UserRole) Label() string {
	switch r {
	case UserRoleReader:
		return "Reader"
	case UserRoleAuthor:
		return "Author"
	case UserRoleAdmin:
		return "Admin"
	}
	return string(r)
}

type User struct {
	ID             uint     `gorm:"primaryKey" json:"id"`
	Username       string   `gorm:"uniqueIndex;size:100" json:"username"`
	Email          string   `gorm:"uniqueIndex;size:255" json:"email"`
	FirstName      string   `gorm:"size:150" json:"first_name"`
	LastName       string   `gorm:"size:150" json:"last_name"`
	Bio            string   `gorm:"type:text" json:"bio,omitempty"`
	FavoriteGenres string   `gorm:"size:255" json:"favorite_genres,omitempty"` // comma separated genre keys
	Role           UserRole `gorm:"size:20;index;default:reader" json:"role"`
	IsApproved     bool     `gorm:"not null" json:"is_approved"` // set explicitly on create

	PasswordHash     string     `gorm:"size:255" json:"-"`
	TokenHash        string     `gorm:"index;size:64" json:"-"`
	TokenCreatedAt   *time.Time `json:"-"`
	FailedLoginCount int        `json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// FullName returns "First Last", or the username when both are empty.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// GenreKeys splits FavoriteGenres into keys.
func (u *User) GenreKeys() []string {
	var keys []string
	for _, k := range strings.Split(u.FavoriteGenres, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func (u *User) IsReader() bool { return u.Role == UserRoleReader }
func (u *User) IsAuthor() bool { return u.Role == UserRoleAuthor }
func (u *User) IsAdmin() bool  { return u.Role == UserRoleAdmin }

// CanPublish reports whether the user may submit books.
func (u *User) CanPublish() bool {
	return u.IsAuthor() || u.IsAdmin()
}

// IsAuthorOf reports whether the user owns the book.
func (u *User) IsAuthorOf(book *Book) bool {
	return u != nil && book != nil && book.AuthorID == u.ID
}

// CanManage reports whether the user may act on behalf of the book's owner.
func (u *User) CanManage(book *Book) bool {
	return u.IsAuthorOf(book) || u.IsAdmin()
}

type RoleChangeStatus string

const (
	RoleChangePending  RoleChangeStatus = "pending"
	RoleChangeApproved RoleChangeStatus = "approved"
	RoleChangeRejected RoleChangeStatus = "rejected"
)

// RoleChangeRequest is a user's request to switch role. A user has at most one.
type RoleChangeRequest struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	UserID        uint             `gorm:"uniqueIndex" json:"user_id"`
	User          User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	RequestedRole UserRole         `gorm:"size:20" json:"requested_role"`
	Status        RoleChangeStatus `gorm:"size:20;index;default:pending" json:"status"`
	Reason        string           `gorm:"type:text" json:"reason"`
	AdminComment  string           `gorm:"type:text" json:"admin_comment,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (RoleChangeRequest) TableName() string {
	return "role_change_requests"
}
