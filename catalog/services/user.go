package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/haimhm/datacatalog/catalog/auth"
	"github.com/haimhm/datacatalog/catalog/schema"
	"github.com/haimhm/datacatalog/utils"
	"github.com/haimhm/datacatalog/utils/logging"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type UserService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
	audit    auth.AuditLogger
}

func (s *UserService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(auth.AdminOnly())

	r.Get("/", s.List)

	r.Group(func(r chi.Router) {
		r.Use(s.audit.Middleware)

		r.Post("/", s.CreateUser)
		r.Delete("/{user_id}", s.DeleteUser)
	})

	return r
}

type userInfo struct {
	Id       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func convertToUserInfo(user schema.User) userInfo {
	return userInfo{Id: user.Id, Username: user.Username, Role: user.Role}
}

func (s *UserService) List(w http.ResponseWriter, r *http.Request) {
	var users []schema.User
	result := s.db.Order("username").Find(&users)
	if result.Error != nil {
		slog.Error("sql error listing users", "error", result.Error)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	infos := make([]userInfo, 0, len(users))
	for _, user := range users {
		infos = append(infos, convertToUserInfo(user))
	}

	utils.WriteJsonResponse(w, infos)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *UserService) CreateUser(w http.ResponseWriter, r *http.Request) {
	var params createUserRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	user, err := s.userAuth.CreateUser(params.Username, params.Password, params.Role)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameAlreadyInUse):
			utils.WriteError(w, "Username already exists", http.StatusBadRequest)
		case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword), errors.Is(err, auth.ErrInvalidRole):
			utils.WriteError(w, err.Error(), http.StatusBadRequest)
		default:
			slog.Error("error creating user", "username", params.Username, "error", err, "code", logging.AUTH_USERS)
			utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	recordMutation("user", "create")
	slog.Info("created user", "user_id", user.Id, "username", user.Username, "role", user.Role, "code", logging.AUTH_USERS)

	utils.WriteJsonResponseWithStatus(w, http.StatusCreated, convertToUserInfo(user))
}

func (s *UserService) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userId, ok := urlParamId(w, r, "user_id")
	if !ok {
		return
	}

	identity := auth.IdentityFromContext(r)
	if userId == identity.UserId {
		utils.WriteError(w, "Cannot delete yourself", http.StatusBadRequest)
		return
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		result := txn.Delete(&schema.User{}, "id = ?", userId)
		if result.Error != nil {
			slog.Error("sql error deleting user", "user_id", userId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected == 0 {
			return CodedError(fmt.Errorf("user %d does not exist", userId), http.StatusNotFound)
		}
		return nil
	})

	if err != nil {
		writeCodedError(w, err)
		return
	}

	recordMutation("user", "delete")
	slog.Info("deleted user", "user_id", userId, "deleted_by", identity.Username, "code", logging.AUTH_USERS)

	utils.WriteSuccess(w)
}
