package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pysugar/tekton-studio/internal/generation"
	"github.com/pysugar/tekton-studio/internal/store"
	"github.com/pysugar/tekton-studio/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerationService(t *testing.T, st *store.Store, upstreamStatus int) *generation.Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(upstreamStatus)
	}))
	t.Cleanup(srv.Close)
	return generation.NewService(st, webhook.NewClient(srv.URL), "https://studio.example.com/api/callback", nil)
}

const generateBody = `{"projectName":"Bakery","businessDetails":"Bread","websiteStructure":"Home"}`

func TestGenerateAPIHandler(t *testing.T) {
	st := newTestStore(t)
	connectUser(t, st, "ada@example.com")

	tests := []struct {
		name       string
		email      string
		body       string
		upstream   int
		wantStatus int
	}{
		{"accepted", "ada@example.com", generateBody, http.StatusOK, http.StatusAccepted},
		{"anonymous", "", generateBody, http.StatusOK, http.StatusUnauthorized},
		{"invalid json", "ada@example.com", `{`, http.StatusOK, http.StatusBadRequest},
		{"missing field", "ada@example.com", `{"projectName":"Bakery"}`, http.StatusOK, http.StatusBadRequest},
		{"webhook down", "ada@example.com", generateBody, http.StatusServiceUnavailable, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := GenerateAPIHandler(newGenerationService(t, st, tt.upstream))
			req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(tt.body))
			req = asUser(req, tt.email)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			if tt.wantStatus == http.StatusAccepted {
				assert.Equal(t, "pending", body["status"])
				assert.NotEmpty(t, body["id"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
			if tt.name == "webhook down" {
				assert.NotEmpty(t, body["id"], "the pending row id is still reported")
			}
		})
	}
}

func TestGenerateFormHandler(t *testing.T) {
	st := newTestStore(t)
	connectUser(t, st, "ada@example.com")

	form := url.Values{
		"projectName":      {"Bakery"},
		"businessDetails":  {"Bread"},
		"websiteStructure": {"Home"},
	}

	tests := []struct {
		name     string
		email    string
		form     url.Values
		upstream int
		wantKey  string
		wantVal  string
	}{
		{"submitted", "ada@example.com", form, http.StatusOK, "submitted", "true"},
		{"not connected", "", form, http.StatusOK, "error", "not_connected"},
		{"missing fields", "ada@example.com", url.Values{"projectName": {"x"}}, http.StatusOK, "error", "missing_fields"},
		{"webhook failed", "ada@example.com", form, http.StatusBadGateway, "error", "webhook_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := GenerateFormHandler(newGenerationService(t, st, tt.upstream))
			req := httptest.NewRequest(http.MethodPost, "/dashboard/generate", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req = asUser(req, tt.email)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusSeeOther, rec.Code)
			loc := location(t, rec)
			assert.Equal(t, "/dashboard", loc.Path)
			assert.Equal(t, tt.wantVal, loc.Query().Get(tt.wantKey))
		})
	}
}
