package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/loopfeed/apiserver/internal/services"
	"github.com/loopfeed/apiserver/internal/session"
	"github.com/loopfeed/apiserver/internal/store"
	"github.com/loopfeed/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// The cookie lifetime matches the session record TTL, but the cookie is
// only the weaker authority: a valid cookie without a live cache record
// is still an expired session.
const sessionCookieName = "loopfeed_session"
const defaultTokenTTL = session.DefaultTTL
const minPasswordLength = 8

// AuthHandler provides signup, login and session endpoints.
type AuthHandler struct {
	userService *services.UserService
	sessions    *session.Manager
	secret      []byte
	tokenTTL    time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, sessions *session.Manager, sessionSecret string) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
		secret:      []byte(sessionSecret),
		tokenTTL:    defaultTokenTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, sessions *session.Manager, sessionSecret string) {
	handler := NewAuthHandler(userService, sessions, sessionSecret)
	authMiddleware := RequireAuth(sessionSecret, sessions)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.Post("/session/check", handler.SessionCheck)
	r.With(authMiddleware).Post("/logout", handler.Logout)
	r.With(authMiddleware).Get("/me", handler.Me)
	r.With(authMiddleware).Put("/password", handler.ChangePassword)
	r.With(authMiddleware).Delete("/account", handler.DeleteAccount)
}

// RequireAuth enforces authentication for protected routes. The cookie
// token identifies the user; the cache-backed session record decides
// whether the session is still live. A missing record forces logout even
// while the cookie itself is still valid.
func RequireAuth(sessionSecret string, sessions *session.Manager) func(http.Handler) http.Handler {
	secret := []byte(sessionSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || strings.TrimSpace(cookie.Value) == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			subject, err := parseTokenSubject(cookie.Value, secret)
			if err != nil {
				clearSessionCookie(w)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			userID, err := strconv.Atoi(subject)
			if err != nil || userID < 1 {
				clearSessionCookie(w)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if _, err := sessions.Validate(r.Context(), userID); err != nil {
				clearSessionCookie(w)
				if errors.Is(err, session.ErrExpired) {
					writeError(w, http.StatusUnauthorized, "session expired, please login again")
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to verify session")
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Signup creates a new user account (with its profile) and logs it in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password is too short")
		return
	}

	if _, err := h.userService.GetByUsername(r.Context(), req.Username); err == nil {
		writeError(w, http.StatusConflict, "username already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to check user")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "username already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{User: user})
}

// Login verifies credentials, sets the session cookie, and writes the
// session record to the cache.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{User: user})
}

// Logout deletes the session record and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.sessions.End(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ChangePassword verifies the current password and stores a new hash.
// The session record is rewritten so the user stays logged in.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password is too short")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}
	if err := h.userService.UpdatePassword(r.Context(), userID, string(hashed)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}

	// Keep the user logged in across the password change.
	if err := h.sessions.Start(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to refresh session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAccount removes the account after confirming the password. The
// database cascades the user's profile, posts, comments and likes; the
// session ends immediately.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "password is incorrect")
		return
	}

	if err := h.userService.Delete(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}
	if err := h.sessions.End(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// SessionCheck reports whether a user's session record is live. It is a
// public probe so other services can validate sessions centrally.
func (h *AuthHandler) SessionCheck(w http.ResponseWriter, r *http.Request) {
	var req SessionCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, SessionCheckResponse{Valid: false, Message: "invalid request"})
		return
	}
	if req.UserID < 1 {
		writeJSON(w, http.StatusBadRequest, SessionCheckResponse{Valid: false, Message: "user id required"})
		return
	}

	record, err := h.sessions.Validate(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, session.ErrExpired) {
			writeJSON(w, http.StatusOK, SessionCheckResponse{Valid: false, Message: "session expired"})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to verify session")
		return
	}
	writeJSON(w, http.StatusOK, SessionCheckResponse{Valid: true, User: &record})
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

type SessionCheckRequest struct {
	UserID int `json:"user_id"`
}

type SessionCheckResponse struct {
	Valid   bool            `json:"valid"`
	User    *session.Record `json:"user,omitempty"`
	Message string          `json:"message,omitempty"`
}

type AuthResponse struct {
	User types.User `json:"user"`
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user types.User) error {
	token, err := issueToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		return err
	}
	if err := h.sessions.Start(r.Context(), user); err != nil {
		return err
	}
	setSessionCookie(w, token, h.tokenTTL)
	return nil
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func issueToken(userID int, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}
