package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/config"
	"github.com/mrlokans/bookshare/internal/entities"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.@+-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("this username is already taken, please choose another one")
	ErrEmailTaken         = errors.New("this email is already registered")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUsernameRequired   = errors.New("username is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrFirstNameRequired  = errors.New("first name is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrAccountLocked      = errors.New("account is locked due to too many failed login attempts")
	ErrAccountNotApproved = errors.New("your account is not yet approved by admin")
	ErrUsernameInvalid    = errors.New("username must be 3-64 characters: letters, digits and @.+-_ only")
	ErrEmailInvalid       = errors.New("invalid email format")
	ErrRegistrationRole   = errors.New("you can register as a reader or an author")
)

const (
	defaultMaxLoginAttempts = 5
	defaultLockoutDuration  = 30 * time.Minute
)

// Registration is the self-service signup form.
type Registration struct {
	Username        string            `form:"username"`
	Email           string            `form:"email"`
	FirstName       string            `form:"first_name"`
	LastName        string            `form:"last_name"`
	Bio             string            `form:"bio"`
	Role            entities.UserRole `form:"role"`
	Password        string            `form:"password"`
	PasswordConfirm string            `form:"confirm_password"`
}

// Service handles authentication and user management.
type Service struct {
	db     *gorm.DB
	config config.Auth
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		config: cfg,
		now:    time.Now,
	}
}

// Register creates a reader or author account from the signup form.
// New accounts are approved immediately.
func (s *Service) Register(r Registration) (*entities.User, error) {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)

	if r.Role == "" {
		r.Role = entities.UserRoleReader
	}
	if r.Role != entities.UserRoleReader && r.Role != entities.UserRoleAuthor {
		return nil, ErrRegistrationRole
	}
	if r.FirstName == "" {
		return nil, ErrFirstNameRequired
	}
	if err := s.validateIdentity(r.Username, r.Email); err != nil {
		return nil, err
	}
	if r.Password == "" {
		return nil, ErrPasswordRequired
	}
	if r.Password != r.PasswordConfirm {
		return nil, ErrPasswordsDontMatch
	}
	if err := CheckPasswordStrength(r.Password); err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:   r.Username,
		Email:      r.Email,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Bio:        r.Bio,
		Role:       r.Role,
		IsApproved: true,
	}
	if err := s.create(user, r.Password); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser creates an approved account with any role. Used by the CLI.
func (s *Service) CreateUser(username, email, password string, role entities.UserRole) (*entities.User, error) {
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if err := s.validateIdentity(username, email); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	user := &entities.User{
		Username:   username,
		Email:      email,
		Role:       role,
		IsApproved: true,
	}
	if err := s.create(user, password); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) validateIdentity(username, email string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if email == "" {
		return ErrEmailRequired
	}
	if !usernamePattern.MatchString(username) {
		return ErrUsernameInvalid
	}
	// RFC 5321 caps addresses at 254 characters
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}

	var existing entities.User
	err := s.db.Unscoped().Where("username = ?", username).First(&existing).Error
	if err == nil {
		return ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	err = s.db.Unscoped().Where("email = ?", email).First(&existing).Error
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	return nil
}

func (s *Service) create(user *entities.User, password string) error {
	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		if errors.Is(err, ErrPasswordTooShort) || errors.Is(err, ErrPasswordTooLong) {
			return err
		}
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = passwordHash

	if err := s.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Authenticate accepts a username or an email address. Wrong passwords
// count towards the account lockout; an unapproved account with the right
// password does not.
func (s *Service) Authenticate(login, password string) (*entities.User, error) {
	user, err := s.findUser(s.db.Where("username = ? OR email = ?", login, login), ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	if user.LockedUntil != nil && s.now().Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}
	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(user)
		return nil, err
	}
	if !user.IsApproved {
		return nil, ErrAccountNotApproved
	}

	s.db.Model(user).Updates(map[string]any{
		"last_login_at":      s.now(),
		"failed_login_count": 0,
		"locked_until":       nil,
	})
	return user, nil
}

func (s *Service) recordFailedLogin(user *entities.User) {
	user.FailedLoginCount++
	updates := map[string]any{"failed_login_count": user.FailedLoginCount}

	limit, lockout := s.config.MaxLoginAttempts, s.config.LockoutDuration
	if limit <= 0 {
		limit = defaultMaxLoginAttempts
	}
	if lockout <= 0 {
		lockout = defaultLockoutDuration
	}
	if user.FailedLoginCount >= limit {
		updates["locked_until"] = s.now().Add(lockout)
	}
	s.db.Model(user).Updates(updates)
}

// findUser runs query for a single user, mapping a missing row to notFound.
func (s *Service) findUser(query *gorm.DB, notFound error) (*entities.User, error) {
	var user entities.User
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	return s.findUser(s.db.Where("id = ?", id), ErrUserNotFound)
}

// ValidateToken resolves a plaintext bearer token. Only its hash is ever
// stored, and tokens older than TokenExpiry are refused when it is set.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.findUser(s.db.Where("token_hash = ?", HashToken(token)), ErrInvalidToken)
	if err != nil {
		return nil, err
	}
	if expiry := s.config.TokenExpiry; expiry > 0 && user.TokenCreatedAt != nil &&
		s.now().Sub(*user.TokenCreatedAt) > expiry {
		return nil, ErrTokenExpired
	}
	if !user.IsApproved {
		return nil, ErrAccountNotApproved
	}
	return user, nil
}

// GenerateToken replaces the user's token and returns the plaintext, which
// cannot be recovered later.
func (s *Service) GenerateToken(userID uint) (string, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	if err := s.updateUser(userID, map[string]any{"token_hash": hash, "token_created_at": s.now()}); err != nil {
		return "", err
	}
	return plaintext, nil
}

// RevokeToken is a no-op for users without a token.
func (s *Service) RevokeToken(userID uint) error {
	err := s.updateUser(userID, map[string]any{"token_hash": "", "token_created_at": nil})
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	return err
}

// updateUser applies columns to one user and reports ErrUserNotFound when
// no row matched.
func (s *Service) updateUser(userID uint, columns map[string]any) error {
	result := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(columns)
	if result.Error != nil {
		return fmt.Errorf("failed to update user %d: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ChangePassword requires the current password even for signed in users.
func (s *Service) ChangePassword(userID uint, current, next, confirm string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(current, user.PasswordHash); err != nil {
		return err
	}
	if next != confirm {
		return ErrPasswordsDontMatch
	}
	if err := CheckPasswordStrength(next); err != nil {
		return err
	}
	hash, err := HashPassword(next, s.config.BcryptCost)
	if err != nil {
		return err
	}
	return s.db.Model(user).Update("password_hash", hash).Error
}

// SetApproved toggles whether a user may log in.
func (s *Service) SetApproved(userID uint, approved bool) error {
	return s.updateUser(userID, map[string]any{"is_approved": approved})
}

// HasUsers is false only on a fresh install.
func (s *Service) HasUsers() (bool, error) {
	var ids []uint
	err := s.db.Model(&entities.User{}).Limit(1).Pluck("id", &ids).Error
	return len(ids) > 0, err
}

func (s *Service) GetUserCount() (int64, error) {
	var count int64
	err := s.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}
