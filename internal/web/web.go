// Package web renders the dashboard and history pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pysugar/tekton-studio/internal/db/models"
	"github.com/pysugar/tekton-studio/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"dashboard", "history"}

type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"badgeClass": BadgeClass,
		"date":       formatDate,
	}
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.Must(base.Clone()).ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes page into a buffer first so a template error never
// leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// BadgeClass maps a usage status to its badge colour.
func BadgeClass(status string) string {
	switch status {
	case store.StatusReady:
		return "badge-green"
	case store.StatusPending:
		return "badge-yellow"
	case store.StatusError:
		return "badge-red"
	default:
		return "badge-gray"
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// Flash is the one-line notice shown at the top of the dashboard.
type Flash struct {
	Kind    string // success or error
	Message string
}

var errorMessages = map[string]string{
	"auth_denied":    "Google authorization was denied.",
	"no_code":        "Google did not return an authorization code.",
	"auth_failed":    "Google authorization failed. Please try again.",
	"db_save_failed": "Your Google Drive connection could not be saved.",
	"not_connected":  "Connect Google Drive before submitting a request.",
	"missing_fields": "Please fill in the project name, business details and website structure.",
	"webhook_failed": "Your request was saved but the generation workflow could not be reached.",
	"save_failed":    "Your request could not be saved.",
}

// FlashFromQuery turns the redirect flags into a notice, or nil.
func FlashFromQuery(q url.Values) *Flash {
	if code := q.Get("error"); code != "" {
		msg, ok := errorMessages[code]
		if !ok {
			msg = "Something went wrong."
		}
		return &Flash{Kind: "error", Message: msg}
	}
	if q.Get("google_drive_connected") == "true" {
		return &Flash{Kind: "success", Message: "Google Drive connected successfully."}
	}
	if q.Get("submitted") == "true" {
		return &Flash{Kind: "success", Message: "Request submitted. Your website copy is being generated."}
	}
	return nil
}

type DashboardData struct {
	Email             string
	Connected         bool
	OAuthConfigured   bool
	WebhookConfigured bool
	Flash             *Flash
	Projects          []models.Project
}

// HistoryRow is one usage entry flattened for display and the JSON API.
type HistoryRow struct {
	ID               string    `json:"id"`
	ProjectName      string    `json:"project_name"`
	BusinessDetails  string    `json:"business_details"`
	WebsiteStructure string    `json:"website_structure"`
	Status           string    `json:"status"`
	OutputLink       string    `json:"output_link,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewHistoryRow falls back to the JSON columns when the flat ones are empty.
func NewHistoryRow(u models.ProjectUsage) HistoryRow {
	req := u.RequestData.Data()
	resp := u.ResponseData.Data()
	row := HistoryRow{
		ID:               u.ID,
		ProjectName:      "Unknown Project",
		WebsiteStructure: firstNonEmpty(u.WebsiteStructure, req.WebsiteStructure),
		Status:           u.Status,
		OutputLink:       firstNonEmpty(u.OutputLink, resp.OutputLink),
		ErrorMessage:     firstNonEmpty(u.ErrorMessage, resp.ErrorMessage),
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
	if u.Project != nil {
		row.ProjectName = u.Project.ProjectName
		row.BusinessDetails = u.Project.BusinessDetails
	}
	return row
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// FilterHistory keeps rows whose project name, business details or
// structure contain term, ignoring case.
func FilterHistory(rows []HistoryRow, term string) []HistoryRow {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return rows
	}
	out := make([]HistoryRow, 0, len(rows))
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.ProjectName), term) ||
			strings.Contains(strings.ToLower(r.BusinessDetails), term) ||
			strings.Contains(strings.ToLower(r.WebsiteStructure), term) {
			out = append(out, r)
		}
	}
	return out
}

type HistoryData struct {
	Email     string
	Connected bool
	Query     string
	Rows      []HistoryRow
}
