// Package token issues and parses the paired access/refresh JWTs. The codec is
// stateless: expiry and revocation policy belong to the lifecycle manager.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is returned when a token cannot be parsed, carries an
	// unexpected signing method, or fails signature verification.
	ErrMalformedToken = errors.New("malformed token")
)

// Claims is the decoded payload of an access or refresh token.
// SessionID is set only on refresh tokens.
type Claims struct {
	Subject   string
	Login     string
	Roles     []string
	SessionID string
	ExpiresAt time.Time
}

// Expired reports whether the claims are expired at now. The boundary is
// inclusive: a token whose exp equals now is already expired.
func (c *Claims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Remaining returns the time left until expiry, or 0 if already expired.
// Used as the denylist TTL when a live token is revoked.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.Expired(now) {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// wireClaims is the JWT payload shape. Role is a list even for single-role
// users; session_id appears only on refresh tokens.
type wireClaims struct {
	jwt.RegisteredClaims
	Login     string   `json:"login"`
	Roles     []string `json:"role"`
	SessionID string   `json:"session_id,omitempty"`
}

// Codec signs and parses tokens with HS256 using an independent secret per
// token kind, so an access token can never verify as a refresh token.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewCodec returns a Codec with the given per-kind secrets and lifetimes.
func NewCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs a short-lived access token for the given subject.
func (c *Codec) IssueAccess(userID, login string, roles []string) (string, error) {
	return c.sign(c.accessSecret, c.accessTTL, userID, login, roles, "")
}

// IssueRefresh signs a long-lived refresh token bound to sessionID.
func (c *Codec) IssueRefresh(userID, login string, roles []string, sessionID string) (string, error) {
	return c.sign(c.refreshSecret, c.refreshTTL, userID, login, roles, sessionID)
}

func (c *Codec) sign(secret []byte, ttl time.Duration, userID, login string, roles []string, sessionID string) (string, error) {
	now := time.Now().UTC()
	claims := wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Login:     login,
		Roles:     roles,
		SessionID: sessionID,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// ParseAccess verifies the signature and shape of an access token and returns
// its claims. Expiry is not checked here; callers decide what expired means.
func (c *Codec) ParseAccess(raw string) (*Claims, error) {
	return c.parse(raw, c.accessSecret)
}

// ParseRefresh verifies the signature and shape of a refresh token and returns
// its claims, including the session it is bound to.
func (c *Codec) ParseRefresh(raw string) (*Claims, error) {
	return c.parse(raw, c.refreshSecret)
}

func (c *Codec) parse(raw string, secret []byte) (*Claims, error) {
	t, err := jwt.ParseWithClaims(raw, &wireClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrMalformedToken
		}
		return secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, ErrMalformedToken
	}
	wc, ok := t.Claims.(*wireClaims)
	if !ok || !t.Valid {
		return nil, ErrMalformedToken
	}
	if wc.ExpiresAt == nil || wc.Subject == "" {
		return nil, ErrMalformedToken
	}
	return &Claims{
		Subject:   wc.Subject,
		Login:     wc.Login,
		Roles:     wc.Roles,
		SessionID: wc.SessionID,
		ExpiresAt: wc.ExpiresAt.Time.UTC(),
	}, nil
}
