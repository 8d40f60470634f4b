package authorization

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidEmail = errors.New("authorization: invalid email address")
	ErrEmailTaken   = errors.New("authorization: email already registered")
	ErrWeakPassword = errors.New("authorization: password must be at least 6 characters")
)

// User represents an application account. PasswordHash stays empty for
// accounts provisioned through an external identity provider.
type User struct {
	ID           uint              `gorm:"primaryKey"`
	Username     string            `gorm:"size:50;not null"`
	Email        string            `gorm:"uniqueIndex;size:100;not null"`
	PasswordHash string            `gorm:"size:255"`
	AuthProvider string            `gorm:"size:50;default:'local'"`
	GoogleID     *string           `gorm:"size:200"`
	Preferences  datatypes.JSONMap `gorm:"type:json"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserStore provides data access helpers backed by GORM.
type UserStore struct {
	db *gorm.DB
}

// FindByID loads a user by primary key.
func (s *UserStore) FindByID(ctx context.Context, id uint) (*User, error) {
	if s == nil {
		return nil, errors.New("authorization: user store not initialized")
	}
	var user User
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// FindByEmail loads a user by unique email address.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	result := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// Create inserts a new user record.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// TouchLastLogin stamps the login time without touching other fields.
func (s *UserStore) TouchLastLogin(ctx context.Context, userID uint) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"last_login_at": now, "updated_at": now}).Error
}

// UpdateProfileParams holds the fields eligible for profile updates.
type UpdateProfileParams struct {
	Username    *string
	Preferences map[string]interface{}
}

// UpdateProfile persists profile fields for the given user id.
func (s *UserStore) UpdateProfile(ctx context.Context, userID uint, params UpdateProfileParams) (*User, error) {
	if s == nil {
		return nil, errors.New("authorization: user store not initialized")
	}

	updates := make(map[string]interface{})

	if params.Username != nil {
		name := strings.TrimSpace(*params.Username)
		if name == "" {
			return nil, errors.New("authorization: username cannot be empty")
		}
		updates["username"] = name
	}

	if params.Preferences != nil {
		updates["preferences"] = datatypes.JSONMap(params.Preferences)
	}

	if len(updates) == 0 {
		return s.FindByID(ctx, userID)
	}

	updates["updated_at"] = time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	return s.FindByID(ctx, userID)
}

// AuthService handles account creation and credential checks.
type AuthService struct {
	users *UserStore
}

// Signup validates and creates a local account.
func (s *AuthService) Signup(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)

	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < 6 {
		return nil, ErrWeakPassword
	}
	if username == "" {
		username = email[:strings.Index(email, "@")]
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("authorization: check existing email: %w", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		AuthProvider: "local",
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("authorization: create user: %w", err)
	}

	return user, nil
}

// Authenticate validates email credentials and returns the matching user.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil, errors.New("authorization: missing credentials")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !verifyPassword(password, user.PasswordHash) {
		return nil, errors.New("authorization: invalid credentials")
	}

	_ = s.users.TouchLastLogin(ctx, user.ID)
	return user, nil
}

// hashPassword pre-hashes with SHA-256 before bcrypt so passwords longer
// than bcrypt's 72-byte input limit still hash deterministically.
func hashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("authorization: password cannot be empty")
	}

	digest := sha256.Sum256([]byte(password))
	encoded := base64.StdEncoding.EncodeToString(digest[:])

	hash, err := bcrypt.GenerateFromPassword([]byte(encoded), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("authorization: hash password: %w", err)
	}
	return string(hash), nil
}

func verifyPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	digest := sha256.Sum256([]byte(password))
	encoded := base64.StdEncoding.EncodeToString(digest[:])
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(encoded)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	// mail.ParseAddress accepts local domains like "user@host"; require a dot
	// so throwaway values do not slip through.
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}
