package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/haimhm/datacatalog/catalog/schema"
	"github.com/haimhm/datacatalog/utils"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type BasicIdentityProvider struct {
	sessions *SessionManager
	db       *gorm.DB

	// compared against when the user does not exist so unknown usernames take as long
	// as wrong passwords.
	dummyHash []byte
}

type BasicProviderArgs struct {
	Sessions *SessionManager
}

func NewBasicIdentityProvider(db *gorm.DB, args BasicProviderArgs) (*BasicIdentityProvider, error) {
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("error encrypting placeholder password: %w", err)
	}

	return &BasicIdentityProvider{sessions: args.Sessions, db: db, dummyHash: dummyHash}, nil
}

func (auth *BasicIdentityProvider) addIdentityToContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			identity := Guest()

			if userId, ok := userIdFromContext(r); ok {
				user, err := schema.GetUser(userId, auth.db)
				switch {
				case err == nil:
					identity = IdentityFromUser(user)
				case errors.Is(err, schema.ErrUserNotFound):
					// The session outlived its user.
				default:
					utils.WriteError(w, "internal server error", http.StatusInternalServerError)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		}

		return http.HandlerFunc(handler)
	}
}

func (auth *BasicIdentityProvider) SessionMiddleware() chi.Middlewares {
	return chi.Middlewares{auth.sessions.Verifier(), auth.addIdentityToContext()}
}

func (auth *BasicIdentityProvider) Login(username, password string) (LoginResult, error) {
	if !ValidUsername(username) {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := schema.GetUserByUsername(username, auth.db)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(auth.dummyHash, []byte(password))
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, expiry, err := auth.sessions.CreateSessionToken(user.Id)
	if err != nil {
		return LoginResult{}, ErrGeneratingJwt
	}

	return LoginResult{User: user, AccessToken: token, Expiry: expiry}, nil
}

func (auth *BasicIdentityProvider) StartSession(w http.ResponseWriter, login LoginResult) {
	auth.sessions.SetCookie(w, login.AccessToken, login.Expiry)
}

func (auth *BasicIdentityProvider) EndSession(w http.ResponseWriter) {
	auth.sessions.ClearCookie(w)
}

func (auth *BasicIdentityProvider) CreateUser(username, password, role string) (schema.User, error) {
	if !ValidUsername(username) {
		return schema.User{}, ErrInvalidUsername
	}
	if password == "" {
		return schema.User{}, ErrInvalidPassword
	}
	if role == "" {
		role = schema.StandardRole
	}
	if !ValidRole(role) {
		return schema.User{}, ErrInvalidRole
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return schema.User{}, err
	}

	newUser := schema.User{Username: username, PasswordHash: hashed, Role: role}

	err = auth.db.Transaction(func(txn *gorm.DB) error {
		var existingUser schema.User
		result := txn.Limit(1).Find(&existingUser, "username = ?", username)
		if result.Error != nil {
			slog.Error("sql error checking for existing username", "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		if result.RowsAffected != 0 {
			return ErrUsernameAlreadyInUse
		}

		result = txn.Create(&newUser)
		if result.Error != nil {
			if schema.IsDuplicateKey(result.Error) {
				return ErrUsernameAlreadyInUse
			}
			slog.Error("sql error creating new user entry", "error", result.Error)
			return schema.ErrDbAccessFailed
		}

		return nil
	})

	if err != nil {
		return schema.User{}, fmt.Errorf("error creating new user: %w", err)
	}

	return newUser, nil
}
