package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"
)

const (
	SessionCookieName = "session"

	userIdKey = "user_id"
)

type SessionManager struct {
	auth   *jwtauth.JWTAuth
	ttl    time.Duration
	secure bool
}

func NewSessionManager(secret []byte, ttl time.Duration, secureCookies bool) *SessionManager {
	return &SessionManager{auth: jwtauth.New("HS256", secret, nil), ttl: ttl, secure: secureCookies}
}

func tokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Verifier checks the session cookie and then the bearer token, the first one that
// verifies wins. The outcome is stored in the request context for userIdFromContext and
// never rejects the request itself.
func (m *SessionManager) Verifier() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			verifyErr := jwtauth.ErrNoTokenFound

			for _, findToken := range []func(*http.Request) string{tokenFromCookie, jwtauth.TokenFromHeader} {
				raw := findToken(r)
				if raw == "" {
					continue
				}
				token, err := jwtauth.VerifyToken(m.auth, raw)
				if err != nil {
					verifyErr = err
					continue
				}
				next.ServeHTTP(w, r.WithContext(jwtauth.NewContext(r.Context(), token, nil)))
				return
			}

			next.ServeHTTP(w, r.WithContext(jwtauth.NewContext(r.Context(), nil, verifyErr)))
		}

		return http.HandlerFunc(handler)
	}
}

func (m *SessionManager) createToken(key, value string, exp time.Duration) (string, time.Time, error) {
	expiry := time.Now().Add(exp)
	claims := map[string]interface{}{
		key:   value,
		"exp": expiry,
		"iat": time.Now(),
	}
	_, token, err := m.auth.Encode(claims)
	if err != nil {
		slog.Error("error generating jwt", "error", err)
		return "", time.Time{}, fmt.Errorf("error generating session token: %w", err)
	}
	return token, expiry, nil
}

func (m *SessionManager) CreateSessionToken(userId uint) (string, time.Time, error) {
	return m.createToken(userIdKey, strconv.FormatUint(uint64(userId), 10), m.ttl)
}

func (m *SessionManager) SetCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiry,
		MaxAge:   int(time.Until(expiry).Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// userIdFromContext returns the user id of a verified session token. ok is false when
// no valid token was presented.
func userIdFromContext(r *http.Request) (uint, bool) {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return 0, false
	}

	value, ok := claims[userIdKey].(string)
	if !ok {
		return 0, false
	}

	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
