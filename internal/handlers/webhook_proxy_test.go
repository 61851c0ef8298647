package handlers

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pysugar/tekton-studio/internal/webhook"
	"github.com/stretchr/testify/assert"
)

func TestWebhookProxyHandler_NotConfigured(t *testing.T) {
	rec := postJSON(WebhookProxyHandler(webhook.NewClient("")), "/api/webhook-proxy", `{"a":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "N8N_WEBHOOK_URL is not configured", decodeBody(t, rec)["error"])
}

func TestWebhookProxyHandler(t *testing.T) {
	var calls atomic.Int32
	var lastBody string
	var status int
	var reply string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		lastBody = readAll(t, r.Body)
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	defer srv.Close()
	h := WebhookProxyHandler(webhook.NewClient(srv.URL))

	tests := []struct {
		name         string
		body         string
		upStatus     int
		upReply      string
		wantStatus   int
		wantBody     string
		wantUpstream bool
	}{
		{"invalid json", `{oops`, 0, "", http.StatusBadRequest, `{"error":"Invalid request body"}`, false},
		{"empty body", ``, 0, "", http.StatusBadRequest, `{"error":"Invalid request body"}`, false},
		{"json reply", `{"id":"u1"}`, http.StatusOK, `{"started":true}`, http.StatusOK, `{"started":true}`, true},
		{"text reply", `{"id":"u1"}`, http.StatusOK, `Workflow was started`, http.StatusOK, `{"response":"Workflow was started"}`, true},
		{"empty reply", `{"id":"u1"}`, http.StatusOK, ``, http.StatusOK, `{"status":"ok"}`, true},
		{"upstream 404", `{"id":"u1"}`, http.StatusNotFound, `webhook not registered`, http.StatusNotFound, `{"error":"n8n webhook failed: webhook not registered"}`, true},
		{"upstream 500", `{"id":"u1"}`, http.StatusInternalServerError, `boom`, http.StatusInternalServerError, `{"error":"n8n webhook failed: boom"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := calls.Load()
			status, reply = tt.upStatus, tt.upReply

			rec := postJSON(h, "/api/webhook-proxy", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())

			if tt.wantUpstream {
				assert.Equal(t, before+1, calls.Load())
				assert.JSONEq(t, tt.body, lastBody)
			} else {
				assert.Equal(t, before, calls.Load())
			}
		})
	}
}

func TestWebhookProxyHandler_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	rec := postJSON(WebhookProxyHandler(webhook.NewClient(url)), "/api/webhook-proxy", `{"a":1}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["error"])
}
