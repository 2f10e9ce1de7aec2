package services

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/haimhm/datacatalog/catalog/auth"
	"github.com/haimhm/datacatalog/utils"
	"github.com/haimhm/datacatalog/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

type SessionService struct {
	userAuth       auth.IdentityProvider
	loginRateLimit int
}

// AddRoutes registers login, logout and the current user endpoint on the api router.
func (s *SessionService) AddRoutes(r chi.Router) {
	r.With(httprate.Limit(
		s.loginRateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			loginMetric.WithLabelValues("rate_limited").Inc()
			utils.WriteError(w, "too many login attempts, try again later", http.StatusTooManyRequests)
		}),
	)).Post("/login", s.Login)

	r.Post("/logout", s.Logout)
	r.Get("/user", s.CurrentUser)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success  bool   `json:"success"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

type loginFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *SessionService) Login(w http.ResponseWriter, r *http.Request) {
	var params loginRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	login, err := s.userAuth.Login(params.Username, params.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			loginMetric.WithLabelValues("rejected").Inc()
			slog.Info("login rejected", "username", params.Username, "code", logging.AUTH_LOGIN)
			utils.WriteJsonResponseWithStatus(w, http.StatusUnauthorized, loginFailure{Success: false, Error: "Invalid credentials"})
			return
		}
		loginMetric.WithLabelValues("error").Inc()
		slog.Error("login failed", "username", params.Username, "error", err, "code", logging.AUTH_LOGIN)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.userAuth.StartSession(w, login)

	loginMetric.WithLabelValues("success").Inc()
	slog.Info("user logged in", "username", login.User.Username, "role", login.User.Role, "code", logging.AUTH_LOGIN)

	utils.WriteJsonResponse(w, loginResponse{Success: true, Role: login.User.Role, Username: login.User.Username})
}

func (s *SessionService) Logout(w http.ResponseWriter, r *http.Request) {
	s.userAuth.EndSession(w)
	utils.WriteSuccess(w)
}

type currentUserResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role"`
}

func (s *SessionService) CurrentUser(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r)

	if !identity.IsAuthenticated() {
		utils.WriteJsonResponse(w, currentUserResponse{Authenticated: false, Role: auth.GuestRole})
		return
	}

	utils.WriteJsonResponse(w, currentUserResponse{Authenticated: true, Username: identity.Username, Role: identity.Role})
}
