// Package service implements the session and token lifecycle: issuance,
// verification, rotation, and revocation of paired access/refresh tokens.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/audit"
	"auth-service/internal/revocation"
	"auth-service/internal/security"
	sessiondomain "auth-service/internal/session/domain"
	"auth-service/internal/token"
	userdomain "auth-service/internal/user/domain"
)

var (
	// ErrInvalidCredentials is returned on unknown login or wrong password.
	// Callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive is returned when the account is deactivated.
	ErrAccountInactive = errors.New("account inactive")
	// ErrConflict is returned when a login or email is already taken.
	ErrConflict = errors.New("login or email already in use")
	// ErrTokenExpired is returned when a token's lifetime is over.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned when a token has a live denylist entry.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrNotFound is returned when the token's subject no longer exists.
	ErrNotFound = errors.New("user not found")
	// ErrPasswordReuse is returned when the new password equals the old one.
	ErrPasswordReuse = errors.New("new password must differ from the old one")
	// ErrStoreUnavailable is returned when the revocation store cannot answer.
	// Verification fails closed: an unreachable denylist never admits a token.
	ErrStoreUnavailable = errors.New("revocation store unavailable")
)

// UserRepo is the slice of the user repository the lifecycle needs.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByLogin(ctx context.Context, login string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	Update(ctx context.Context, u *userdomain.User) error
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
	SetActive(ctx context.Context, userID string, active bool) error
}

// RoleRepo resolves role IDs at issuance time. Tokens carry the snapshot;
// verification never goes back to the store.
type RoleRepo interface {
	IDsForUser(ctx context.Context, userID string) ([]string, error)
}

// SessionRepo is the slice of the session repository the lifecycle needs.
type SessionRepo interface {
	Open(ctx context.Context, userID, userAgent string) (*sessiondomain.Session, error)
	BindRefreshToken(ctx context.Context, sessionID, refreshToken string) error
	Close(ctx context.Context, sessionID string) error
	FindActiveByDevice(ctx context.Context, userID, userAgent string) (*sessiondomain.Session, error)
	ListActive(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
	ListByUser(ctx context.Context, userID string, uniqueAgents bool) ([]*sessiondomain.Session, error)
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput carries the fields for account creation.
type RegisterInput struct {
	Login     string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UpdateUserInput carries profile changes. Empty fields are left unchanged.
type UpdateUserInput struct {
	Login     string
	Email     string
	FirstName string
	LastName  string
}

// AuthService drives the session lifecycle against the injected stores.
type AuthService struct {
	users    UserRepo
	roles    RoleRepo
	sessions SessionRepo
	denylist revocation.Store
	codec    *token.Codec
	hasher   *security.Hasher
	audit    audit.AuditLogger
	now      func() time.Time
}

// NewAuthService wires the lifecycle manager. auditLogger may be nil.
func NewAuthService(
	users UserRepo,
	roles RoleRepo,
	sessions SessionRepo,
	denylist revocation.Store,
	codec *token.Codec,
	hasher *security.Hasher,
	auditLogger audit.AuditLogger,
) *AuthService {
	return &AuthService{
		users:    users,
		roles:    roles,
		sessions: sessions,
		denylist: denylist,
		codec:    codec,
		hasher:   hasher,
		audit:    auditLogger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account. Both uniqueness checks run before any write so
// a conflicting request leaves no partial state.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*userdomain.User, error) {
	existing, err := s.users.GetByLogin(ctx, in.Login)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}
	existing, err = s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}

	hash, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, err
	}
	u := &userdomain.User{
		ID:           uuid.New().String(),
		Login:        in.Login,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     true,
		CreatedAt:    s.now(),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logEvent(ctx, u.ID, audit.ActionRegister, "user", "")
	return u, nil
}

// Login verifies credentials and opens a session for the device. An existing
// active session for the same (user, user agent) is closed first, so a device
// holds at most one live session.
func (s *AuthService) Login(ctx context.Context, login, password, userAgent string) (*TokenPair, error) {
	u, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if u == nil {
		s.logEvent(ctx, "", audit.ActionLoginFailure, "session", "login="+login)
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(password)); err != nil {
		s.logEvent(ctx, u.ID, audit.ActionLoginFailure, "session", "")
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}

	existing, err := s.sessions.FindActiveByDevice(ctx, u.ID, userAgent)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.closeSession(ctx, existing); err != nil {
			return nil, err
		}
	}

	pair, err := s.openSession(ctx, u, userAgent)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, u.ID, audit.ActionLoginSuccess, "session", "agent="+userAgent)
	return pair, nil
}

// Refresh rotates a refresh token: the presented token is consumed (denied for
// its remaining lifetime, its session closed) and a fresh session with a new
// pair is opened for the device.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, userAgent string) (*TokenPair, error) {
	claims, err := s.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if err := s.deny(ctx, refreshToken, claims.Subject, claims.Remaining(s.now())); err != nil {
		return nil, err
	}
	if err := s.sessions.Close(ctx, claims.SessionID); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}

	pair, err := s.openSession(ctx, u, userAgent)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, u.ID, audit.ActionRefresh, "session", "")
	return pair, nil
}

// Logout revokes the access token and closes the session behind the refresh
// token, or behind the device when no refresh token is presented. Repeating a
// logout with the same tokens succeeds without further effect.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken, userAgent string) error {
	claims, err := s.codec.ParseAccess(accessToken)
	if err != nil {
		return err
	}
	if claims.Expired(s.now()) {
		return ErrTokenExpired
	}
	if err := s.deny(ctx, accessToken, claims.Subject, claims.Remaining(s.now())); err != nil {
		return err
	}

	if refreshToken != "" {
		rc, err := s.codec.ParseRefresh(refreshToken)
		if err != nil {
			return err
		}
		if !rc.Expired(s.now()) {
			if err := s.deny(ctx, refreshToken, rc.Subject, rc.Remaining(s.now())); err != nil {
				return err
			}
		}
		if err := s.sessions.Close(ctx, rc.SessionID); err != nil {
			return err
		}
	} else {
		sess, err := s.sessions.FindActiveByDevice(ctx, claims.Subject, userAgent)
		if err != nil {
			return err
		}
		if sess != nil {
			if err := s.closeSession(ctx, sess); err != nil {
				return err
			}
		}
	}
	s.logEvent(ctx, claims.Subject, audit.ActionLogout, "session", "")
	return nil
}

// LogoutAll revokes the access token and closes every active session of its
// subject, denying each bound refresh token for its remaining lifetime.
func (s *AuthService) LogoutAll(ctx context.Context, accessToken string) error {
	claims, err := s.codec.ParseAccess(accessToken)
	if err != nil {
		return err
	}
	if claims.Expired(s.now()) {
		return ErrTokenExpired
	}
	if err := s.deny(ctx, accessToken, claims.Subject, claims.Remaining(s.now())); err != nil {
		return err
	}

	sessions, err := s.sessions.ListActive(ctx, claims.Subject)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if err := s.closeSession(ctx, sess); err != nil {
			return err
		}
	}
	s.logEvent(ctx, claims.Subject, audit.ActionLogoutAll, "session", "")
	return nil
}

// ChangePassword swaps the password after checking the old one, then logs the
// caller out so the presented tokens cannot outlive the credential change.
func (s *AuthService) ChangePassword(ctx context.Context, accessToken, refreshToken, oldPassword, newPassword, userAgent string) error {
	claims, err := s.VerifyAccess(ctx, accessToken)
	if err != nil {
		return err
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrNotFound
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(newPassword)); err == nil {
		return ErrPasswordReuse
	}

	hash, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return err
	}
	if err := s.Logout(ctx, accessToken, refreshToken, userAgent); err != nil {
		return err
	}
	s.logEvent(ctx, u.ID, audit.ActionPasswordChange, "user", "")
	return nil
}

// Deactivate closes every session of the caller and marks the account
// inactive. There is no reactivation path.
func (s *AuthService) Deactivate(ctx context.Context, accessToken string) error {
	claims, err := s.VerifyAccess(ctx, accessToken)
	if err != nil {
		return err
	}
	if err := s.LogoutAll(ctx, accessToken); err != nil {
		return err
	}
	if err := s.users.SetActive(ctx, claims.Subject, false); err != nil {
		return err
	}
	s.logEvent(ctx, claims.Subject, audit.ActionDeactivate, "user", "")
	return nil
}

// VerifyAccess checks an access token: signature and shape, then expiry, then
// the denylist. Roles come from the claims; no store round trip.
func (s *AuthService) VerifyAccess(ctx context.Context, accessToken string) (*token.Claims, error) {
	claims, err := s.codec.ParseAccess(accessToken)
	if err != nil {
		return nil, err
	}
	return s.checkLive(ctx, accessToken, claims)
}

// VerifyRefresh checks a refresh token the same way and additionally requires
// a session binding.
func (s *AuthService) VerifyRefresh(ctx context.Context, refreshToken string) (*token.Claims, error) {
	claims, err := s.codec.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.SessionID == "" {
		return nil, token.ErrMalformedToken
	}
	return s.checkLive(ctx, refreshToken, claims)
}

func (s *AuthService) checkLive(ctx context.Context, raw string, claims *token.Claims) (*token.Claims, error) {
	if claims.Expired(s.now()) {
		return nil, ErrTokenExpired
	}
	denied, err := s.denylist.IsDenied(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if denied {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// UserData returns the account behind a live access token.
func (s *AuthService) UserData(ctx context.Context, accessToken string) (*userdomain.User, error) {
	claims, err := s.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

// UserRoles returns the role snapshot carried by the access token.
func (s *AuthService) UserRoles(ctx context.Context, accessToken string) ([]string, error) {
	claims, err := s.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return claims.Roles, nil
}

// EntryHistory returns the caller's sessions, newest first. With unique only
// the most recent session per user agent is returned.
func (s *AuthService) EntryHistory(ctx context.Context, accessToken string, unique bool) ([]*sessiondomain.Session, error) {
	claims, err := s.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.sessions.ListByUser(ctx, claims.Subject, unique)
}

// UpdateUserData changes profile fields, enforcing login/email uniqueness.
func (s *AuthService) UpdateUserData(ctx context.Context, accessToken string, in UpdateUserInput) (*userdomain.User, error) {
	claims, err := s.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}

	if in.Login != "" && in.Login != u.Login {
		taken, err := s.users.GetByLogin(ctx, in.Login)
		if err != nil {
			return nil, err
		}
		if taken != nil {
			return nil, ErrConflict
		}
		u.Login = in.Login
	}
	if in.Email != "" && in.Email != u.Email {
		taken, err := s.users.GetByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if taken != nil {
			return nil, ErrConflict
		}
		u.Email = in.Email
	}
	if in.FirstName != "" {
		u.FirstName = in.FirstName
	}
	if in.LastName != "" {
		u.LastName = in.LastName
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// openSession opens a session for the device, mints the pair, and binds the
// refresh token to the session.
func (s *AuthService) openSession(ctx context.Context, u *userdomain.User, userAgent string) (*TokenPair, error) {
	roleIDs, err := s.roles.IDsForUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Open(ctx, u.ID, userAgent)
	if err != nil {
		return nil, err
	}
	access, err := s.codec.IssueAccess(u.ID, u.Login, roleIDs)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefresh(u.ID, u.Login, roleIDs, sess.ID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.BindRefreshToken(ctx, sess.ID, refresh); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// closeSession denies the session's bound refresh token for its remaining
// lifetime and closes the session. A session with no bound token, or one whose
// token no longer parses, is just closed.
func (s *AuthService) closeSession(ctx context.Context, sess *sessiondomain.Session) error {
	if sess.RefreshToken != "" {
		claims, err := s.codec.ParseRefresh(sess.RefreshToken)
		if err == nil && !claims.Expired(s.now()) {
			if err := s.deny(ctx, sess.RefreshToken, claims.Subject, claims.Remaining(s.now())); err != nil {
				return err
			}
		}
	}
	return s.sessions.Close(ctx, sess.ID)
}

func (s *AuthService) deny(ctx context.Context, raw, subject string, ttl time.Duration) error {
	if err := s.denylist.Deny(ctx, raw, subject, ttl); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *AuthService) logEvent(ctx context.Context, userID, action, resource, metadata string) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, userID, action, resource, metadata)
	}
}
