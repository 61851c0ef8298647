// Package session carries the browser identity as a signed cookie.
//
// Every browser gets an anonymous session id on first contact. Completing
// the Google Drive OAuth flow rebinds that session to the connected email,
// which is what later requests use to find the user's connection.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const CookieName = "tekton_session"

var ErrInvalidToken = errors.New("invalid session token")

// Identity is who the current request belongs to.
type Identity struct {
	SessionID string
	Email     string
}

// Connected reports whether the session is bound to a Google account.
func (i Identity) Connected() bool { return i.Email != "" }

type Claims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

// NewIdentity returns an anonymous identity with a fresh session id.
func NewIdentity() Identity {
	return Identity{SessionID: uuid.NewString()}
}

func (m *Manager) Issue(id Identity) (string, error) {
	now := m.now().UTC()
	claims := &Claims{
		SessionID: id.SessionID,
		Email:     id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

func (m *Manager) Parse(token string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.SessionID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{SessionID: claims.SessionID, Email: claims.Email}, nil
}

// SetCookie issues a token for id and writes it as the session cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, id Identity) error {
	token, err := m.Issue(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest reads the session from the cookie or an Authorization bearer.
func (m *Manager) FromRequest(r *http.Request) (Identity, error) {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return m.Parse(strings.TrimPrefix(auth, "Bearer "))
	}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return m.Parse(c.Value)
}

// Middleware attaches the caller's identity to the request context, issuing
// an anonymous session when none or an invalid one was presented.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.FromRequest(r)
		if err != nil {
			id = NewIdentity()
			if err := m.SetCookie(w, id); err != nil {
				http.Error(w, "failed to start session", http.StatusInternalServerError)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
