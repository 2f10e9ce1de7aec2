package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/haimhm/datacatalog/catalog/schema"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrGeneratingJwt        = errors.New("error generating jwt")
	ErrUsernameAlreadyInUse = errors.New("username already exists")
	ErrInvalidUsername      = errors.New("username must be 3-80 characters of letters, digits or underscores")
	ErrInvalidPassword      = errors.New("password must not be empty")
	ErrInvalidRole          = errors.New("role must be 'admin' or 'standard'")
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,80}$`)

func ValidUsername(username string) bool {
	return usernameRegex.MatchString(username)
}

func ValidRole(role string) bool {
	return role == schema.AdminRole || role == schema.StandardRole
}

const bcryptCost = 10

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("error encrypting password: %w", err)
	}
	return string(hashed), nil
}

type LoginResult struct {
	User        schema.User
	AccessToken string
	Expiry      time.Time
}

type IdentityProvider interface {
	// SessionMiddleware attaches the request Identity. Requests without a valid session
	// continue as guest.
	SessionMiddleware() chi.Middlewares

	Login(username, password string) (LoginResult, error)

	StartSession(w http.ResponseWriter, login LoginResult)

	EndSession(w http.ResponseWriter)

	CreateUser(username, password, role string) (schema.User, error)
}

// EnsureUser creates the user if no user with the username exists. Existing accounts are
// never modified. The return value reports whether a user was created.
func EnsureUser(db *gorm.DB, username, password, role string) (bool, error) {
	if username == "" {
		return false, nil
	}
	if !ValidUsername(username) {
		return false, fmt.Errorf("invalid bootstrap username '%v': %w", username, ErrInvalidUsername)
	}
	if password == "" {
		return false, fmt.Errorf("missing password for bootstrap user '%v': %w", username, ErrInvalidPassword)
	}

	created := false
	err := db.Transaction(func(txn *gorm.DB) error {
		var existingUser schema.User
		result := txn.Limit(1).Find(&existingUser, "username = ?", username)
		if result.Error != nil {
			slog.Error("sql error checking if user has already been added", "username", username, "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		if result.RowsAffected != 0 {
			return nil
		}

		hashed, err := HashPassword(password)
		if err != nil {
			return err
		}

		result = txn.Create(&schema.User{Username: username, PasswordHash: hashed, Role: role})
		if result.Error != nil {
			slog.Error("sql error creating bootstrap user", "username", username, "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		created = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("error adding user %v to db: %w", username, err)
	}

	if created {
		slog.Info("created bootstrap user", "username", username, "role", role)
	}
	return created, nil
}

type BootstrapUser struct {
	Username string
	Password string
}

// EnsureBootstrapUsers creates the configured admin and the optional default standard
// user when they do not exist yet.
func EnsureBootstrapUsers(db *gorm.DB, admin, defaultUser BootstrapUser) error {
	if _, err := EnsureUser(db, admin.Username, admin.Password, schema.AdminRole); err != nil {
		return fmt.Errorf("error adding initial admin to db: %w", err)
	}
	if _, err := EnsureUser(db, defaultUser.Username, defaultUser.Password, schema.StandardRole); err != nil {
		return fmt.Errorf("error adding default user to db: %w", err)
	}
	return nil
}

// SetPassword overwrites the password of an existing user.
func SetPassword(db *gorm.DB, username, password string) error {
	if password == "" {
		return ErrInvalidPassword
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}

	result := db.Model(&schema.User{}).Where("username = ?", username).Update("password_hash", hashed)
	if result.Error != nil {
		slog.Error("sql error updating password", "username", username, "error", result.Error)
		return schema.ErrDbAccessFailed
	}
	if result.RowsAffected == 0 {
		return schema.ErrUserNotFound
	}
	return nil
}
