// Package handler exposes the auth lifecycle over HTTP. Access tokens travel
// as bearer headers, refresh tokens as an HTTP-only cookie.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"auth-service/internal/auth/service"
	sessiondomain "auth-service/internal/session/domain"
	"auth-service/internal/token"
	userdomain "auth-service/internal/user/domain"
)

// AuthService is the slice of the lifecycle manager the HTTP layer needs.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*userdomain.User, error)
	Login(ctx context.Context, login, password, userAgent string) (*service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken, userAgent string) (*service.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken, userAgent string) error
	LogoutAll(ctx context.Context, accessToken string) error
	ChangePassword(ctx context.Context, accessToken, refreshToken, oldPassword, newPassword, userAgent string) error
	Deactivate(ctx context.Context, accessToken string) error
	UserData(ctx context.Context, accessToken string) (*userdomain.User, error)
	UserRoles(ctx context.Context, accessToken string) ([]string, error)
	EntryHistory(ctx context.Context, accessToken string, unique bool) ([]*sessiondomain.Session, error)
	UpdateUserData(ctx context.Context, accessToken string, in service.UpdateUserInput) (*userdomain.User, error)
}

// Handler serves the /auth endpoints.
type Handler struct {
	svc        AuthService
	cookieName string
	refreshTTL time.Duration
	logger     *slog.Logger
}

// New returns a Handler. logger may be nil; slog.Default() is used then.
func New(svc AuthService, cookieName string, refreshTTL time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, cookieName: cookieName, refreshTTL: refreshTTL, logger: logger}
}

// RegisterRoutes attaches the auth endpoints to mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("POST /auth/refresh", h.refresh)
	mux.HandleFunc("GET /auth/me", h.me)
	mux.HandleFunc("GET /auth/entries", h.entries)
	mux.HandleFunc("GET /auth/role", h.roles)
	mux.HandleFunc("GET /auth/logout", h.logout)
	mux.HandleFunc("GET /auth/logout_all", h.logoutAll)
	mux.HandleFunc("POST /auth/change_pwd", h.changePassword)
	mux.HandleFunc("POST /auth/change_user_data", h.changeUserData)
	mux.HandleFunc("POST /auth/deactivate_user", h.deactivate)
}

type registerRequest struct {
	Login     string `json:"login"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Login     string    `json:"login"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *userdomain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Login:     u.Login,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errBadRequest)
		return
	}
	if req.Login == "" || req.Email == "" || req.Password == "" {
		h.writeError(w, r, errBadRequest)
		return
	}
	u, err := h.svc.Register(r.Context(), service.RegisterInput{
		Login:     req.Login,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toUserResponse(u))
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errBadRequest)
		return
	}
	pair, err := h.svc.Login(r.Context(), req.Login, req.Password, r.UserAgent())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken)
	h.writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	refresh := h.refreshFromCookie(r)
	if refresh == "" {
		h.writeError(w, r, token.ErrMalformedToken)
		return
	}
	pair, err := h.svc.Refresh(r.Context(), refresh, r.UserAgent())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken)
	h.writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	access, ok := bearerToken(r)
	if !ok {
		h.writeError(w, r, errNoBearer)
		return
	}
	u, err := h.svc.UserData(r.Context(), access)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(u))
}

type entryResponse struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) entries(w http.ResponseWriter, r *http.Request) {
	access, ok := bearerToken(r)
	if !ok {
		h.writeError(w, r, errNoBearer)
		return
	}
	unique := r.URL.Query().Get("unique") == "true"
	sessions, err := h.svc.EntryHistory(r.Context(), access, unique)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]entryResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, entryResponse{
			ID:        s.ID,
			UserAgent: s.UserAgent,
			IsActive:  s.IsActive,
			CreatedAt: s.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) roles(w http.ResponseWriter, r *http.Request) {
	access, ok := bearerToken(r)
	if !ok {
		h.writeError(w, r, errNoBearer)
		return
	}
	roles, err := h.svc.UserRoles(r.Context(), access)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if roles == nil {
		roles = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"roles": roles})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	access, ok := bearerToken(r)
	if !ok {
		h.writeError(w, r, errNoBearer)
		return
	}
	if err := h.svc.Logout(r.Context(), access, h.refreshFromCookie(r), r.UserAgent()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logoutAll(w http.ResponseWriter, r *http.Request) {
	access, ok := bearerToken(r)
	if !ok {
		h.writeError(w, r, errNoBearer)
		return
	}
	if err := h.svc.LogoutAll(r.Context(), access); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	access, ok := bearerToken(r)
	if !ok {
		h.writeError(w, r, errNoBearer)
		return
	}
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errBadRequest)
		return
	}
	if req.NewPassword == "" {
		h.writeError(w, r, errBadRequest)
		return
	}
	err := h.svc.ChangePassword(r.Context(), access, h.refreshFromCookie(r), req.OldPassword, req.NewPassword, r.UserAgent())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type changeUserDataRequest struct {
	Login     string `json:"login"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *Handler) changeUserData(w http.ResponseWriter, r *http.Request) {
	access, ok := bearerToken(r)
	if !ok {
		h.writeError(w, r, errNoBearer)
		return
	}
	var req changeUserDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errBadRequest)
		return
	}
	u, err := h.svc.UpdateUserData(r.Context(), access, service.UpdateUserInput{
		Login:     req.Login,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	access, ok := bearerToken(r)
	if !ok {
		h.writeError(w, r, errNoBearer)
		return
	}
	if err := h.svc.Deactivate(r.Context(), access); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

var (
	errBadRequest = errors.New("bad request")
	errNoBearer   = errors.New("missing bearer token")
)

type ctxKey int

// ClientIPKey is the context key under which WithClientIP stores the caller's
// IP for the audit logger.
const ClientIPKey ctxKey = 0

// WithClientIP resolves the caller's IP (first X-Forwarded-For hop, falling
// back to the peer address) and stores it on the request context.
func WithClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip != "" {
			ip = strings.TrimSpace(strings.Split(ip, ",")[0])
		}
		if ip == "" {
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				ip = host
			} else {
				ip = r.RemoteAddr
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClientIPKey, ip)))
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(auth[len(prefix):]), true
}

func (h *Handler) refreshFromCookie(r *http.Request) string {
	c, err := r.Cookie(h.cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    refreshToken,
		Path:     "/auth",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("write response", "err", err)
	}
}

// writeError maps lifecycle errors onto HTTP statuses. Credential and token
// failures never surface as 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var msg string
	switch {
	case errors.Is(err, errBadRequest):
		status, msg = http.StatusBadRequest, "bad request"
	case errors.Is(err, service.ErrPasswordReuse):
		status, msg = http.StatusBadRequest, "new password must differ from the old one"
	case errors.Is(err, errNoBearer),
		errors.Is(err, service.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, service.ErrTokenExpired):
		status, msg = http.StatusUnauthorized, "token expired"
	case errors.Is(err, service.ErrTokenRevoked):
		status, msg = http.StatusUnauthorized, "token revoked"
	case errors.Is(err, token.ErrMalformedToken):
		status, msg = http.StatusForbidden, "invalid token"
	case errors.Is(err, service.ErrAccountInactive):
		status, msg = http.StatusForbidden, "account inactive"
	case errors.Is(err, service.ErrConflict):
		status, msg = http.StatusConflict, "login or email already in use"
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, "user not found"
	case errors.Is(err, service.ErrStoreUnavailable):
		status, msg = http.StatusServiceUnavailable, "temporarily unavailable"
	default:
		h.logger.Error("internal error", "path", r.URL.Path, "err", err)
		status, msg = http.StatusInternalServerError, "internal error"
	}
	h.writeJSON(w, status, errorResponse{Error: msg})
}
