// Package webhook forwards JSON payloads to the n8n workflow trigger.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pysugar/tekton-studio/internal/logging"
	"github.com/pysugar/tekton-studio/internal/metrics"
	"github.com/pysugar/tekton-studio/internal/util"
)

const maxBodySize = 4 << 20

var ErrNotConfigured = errors.New("N8N_WEBHOOK_URL is not configured")

// UpstreamError is a non-2xx answer from the webhook.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	text := strings.TrimSpace(e.Body)
	if text == "" {
		text = http.StatusText(e.StatusCode)
	}
	return "n8n webhook failed: " + text
}

// Response is a successful webhook answer.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// JSON returns the body as a JSON document. An empty body becomes
// {"status":"ok"} and a non-JSON body is wrapped as {"response": "..."}.
func (r *Response) JSON() json.RawMessage {
	body := bytes.TrimSpace(r.Body)
	if len(body) == 0 {
		return json.RawMessage(`{"status":"ok"}`)
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	wrapped, _ := json.Marshal(map[string]string{"response": string(body)})
	return wrapped
}

type Client struct {
	url        string
	httpClient *http.Client
	recorder   metrics.Recorder
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRecorder(rec metrics.Recorder) Option {
	return func(c *Client) { c.recorder = rec }
}

// NewClient returns a client for url. An empty url yields a client whose
// calls fail with ErrNotConfigured. The client sets no timeout of its own;
// a call ends when the caller's context does.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{},
		recorder:   metrics.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool { return c.url != "" }

// ForwardJSON marshals v and forwards it.
func (c *Client) ForwardJSON(ctx context.Context, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode webhook payload: %w", err)
	}
	return c.Forward(ctx, body)
}

// Forward POSTs body once. There is no retry.
func (c *Client) Forward(ctx context.Context, body []byte) (*Response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	log := logging.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		c.recorder.RecordWebhookForward(metrics.ResultError)
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := logging.GetRequestID(ctx); id != "" {
		req.Header.Set(logging.RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recorder.RecordWebhookForward(metrics.ResultError)
		log.Error("webhook request failed", "error", err)
		return nil, fmt.Errorf("n8n webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.recorder.RecordWebhookForward(metrics.ResultError)
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.recorder.RecordWebhookForward(metrics.ResultError)
		log.Warn("webhook returned error",
			"status", resp.StatusCode,
			"body", util.TruncateBytes(respBody),
			"duration", time.Since(start))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.recorder.RecordWebhookForward(metrics.ResultSuccess)
	log.Info("webhook forwarded", "status", resp.StatusCode, "duration", time.Since(start))
	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}
