package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pysugar/tekton-studio/internal/db"
	"github.com/pysugar/tekton-studio/internal/db/models"
	"github.com/pysugar/tekton-studio/internal/metrics"
	"github.com/pysugar/tekton-studio/internal/session"
	"github.com/pysugar/tekton-studio/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	gdb, err := db.InitDB(db.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	return store.New(gdb)
}

// connectUser stores an active connection and returns its user id.
func connectUser(t *testing.T, st *store.Store, email string) string {
	t.Helper()
	conn, err := st.SaveGoogleDriveConnection(context.Background(), store.ConnectionInput{
		Email:       email,
		AccessToken: "ya29.token",
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return conn.UserID
}

func seedUsage(t *testing.T, st *store.Store, userID, project string) *models.ProjectUsage {
	t.Helper()
	ctx := context.Background()
	p, _, err := st.FindOrCreateProject(ctx, userID, project, "details for "+project)
	require.NoError(t, err)
	u, err := st.CreateProjectUsage(ctx, store.UsageInput{
		UserID:           userID,
		ProjectID:        p.ID,
		ProjectName:      p.ProjectName,
		BusinessDetails:  p.BusinessDetails,
		WebsiteStructure: "Home, About",
	})
	require.NoError(t, err)
	return u
}

func asUser(r *http.Request, email string) *http.Request {
	return r.WithContext(session.WithIdentity(r.Context(), session.Identity{SessionID: "sid", Email: email}))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCallbackHandler(t *testing.T) {
	st := newTestStore(t)
	userID := connectUser(t, st, "ada@example.com")
	m := metrics.New()
	h := CallbackHandler(st, m)

	ready := seedUsage(t, st, userID, "One")
	failed := seedUsage(t, st, userID, "Two")
	bystander := seedUsage(t, st, userID, "Three")
	custom := seedUsage(t, st, userID, "Four")
	noStatus := seedUsage(t, st, userID, "Five")

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   map[string]any
	}{
		{"invalid json", `{not json`, http.StatusBadRequest, map[string]any{"error": "Invalid request body"}},
		{"missing id", `{"status":"ready"}`, http.StatusBadRequest, map[string]any{"error": "Missing ID in callback"}},
		{"unknown id", `{"id":"` + uuid.NewString() + `","status":"ready"}`, http.StatusNotFound, map[string]any{"error": "Project usage not found"}},
		{"unlisted status", `{"id":"` + custom.ID + `","status":"completed","outputLink":"https://drive.example/other"}`, http.StatusOK, map[string]any{"message": "Callback processed successfully"}},
		{"missing status", `{"id":"` + noStatus.ID + `","errorMessage":"still working"}`, http.StatusOK, map[string]any{"message": "Callback processed successfully"}},
		{"ready", `{"id":"` + ready.ID + `","status":"ready","outputLink":"https://drive.example/doc"}`, http.StatusOK, map[string]any{"message": "Callback processed successfully"}},
		{"duplicate ready", `{"id":"` + ready.ID + `","status":"ready"}`, http.StatusOK, map[string]any{"message": "Callback processed successfully"}},
		{"error", `{"id":"` + failed.ID + `","status":"error","errorMessage":"quota"}`, http.StatusOK, nil},
		{"terminal conflict", `{"id":"` + failed.ID + `","status":"ready"}`, http.StatusConflict, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(h, "/api/callback", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.wantBody != nil {
				assert.Equal(t, tt.wantBody, decodeBody(t, rec))
			}
		})
	}

	ctx := context.Background()
	got, err := st.GetProjectUsage(ctx, ready.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusReady, got.Status)
	assert.Equal(t, "https://drive.example/doc", got.OutputLink)

	got, err = st.GetProjectUsage(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusError, got.Status)
	assert.Equal(t, "quota", got.ErrorMessage)

	got, err = st.GetProjectUsage(ctx, bystander.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, got.Status)

	got, err = st.GetProjectUsage(ctx, custom.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, "https://drive.example/other", got.OutputLink)

	got, err = st.GetProjectUsage(ctx, noStatus.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, got.Status)
	assert.Equal(t, "still working", got.ErrorMessage)

	// unknown id, ready, duplicate ready and the conflict all report "ready".
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CallbacksTotal.WithLabelValues("ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallbacksTotal.WithLabelValues("other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallbacksTotal.WithLabelValues("unchanged")))
}

type brokenUpdater struct{}

func (brokenUpdater) UpdateProjectUsageStatus(context.Context, string, store.StatusUpdate) (*models.ProjectUsage, error) {
	return nil, errors.New("database is locked")
}

func TestCallbackHandler_StoreFailure(t *testing.T) {
	rec := postJSON(CallbackHandler(brokenUpdater{}, metrics.NewNoopMetrics()), "/api/callback", `{"id":"x","status":"ready"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to update project usage: database is locked", decodeBody(t, rec)["error"])
}

func TestLogoutHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LogoutHandler(session.NewManager("s", time.Hour, false)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func location(t *testing.T, rec *httptest.ResponseRecorder) *url.URL {
	t.Helper()
	u, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return u
}
