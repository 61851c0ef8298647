package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueParse(t *testing.T) {
	m := NewManager("secret", time.Hour, false)

	token, err := m.Issue(Identity{SessionID: "sid", Email: "ada@example.com"})
	require.NoError(t, err)

	id, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "sid", id.SessionID)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.True(t, id.Connected())
}

func TestParse_Rejects(t *testing.T) {
	m := NewManager("secret", time.Hour, false)
	other := NewManager("other", time.Hour, false)

	foreign, err := other.Issue(Identity{SessionID: "sid"})
	require.NoError(t, err)

	expiredMgr := NewManager("secret", time.Minute, false)
	expiredMgr.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredMgr.Issue(Identity{SessionID: "sid"})
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-jwt",
		"wrong secret": foreign,
		"expired":      expired,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestMiddleware_IssuesAnonymousSession(t *testing.T) {
	m := NewManager("secret", time.Hour, true)

	var seen Identity
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.NotEmpty(t, seen.SessionID)
	assert.False(t, seen.Connected())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	id, err := m.Parse(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, seen.SessionID, id.SessionID)
}

func TestMiddleware_ReusesExistingSession(t *testing.T) {
	m := NewManager("secret", time.Hour, false)
	token, err := m.Issue(Identity{SessionID: "sid", Email: "ada@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: token}) }},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen Identity
			h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = FromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, "sid", seen.SessionID)
			assert.Equal(t, "ada@example.com", seen.Email)
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestClear(t *testing.T) {
	m := NewManager("secret", time.Hour, false)
	rec := httptest.NewRecorder()
	m.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
