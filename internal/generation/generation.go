// Package generation turns a dashboard submission into a pending usage row
// and hands it to the n8n workflow.
package generation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pysugar/tekton-studio/internal/db/models"
	"github.com/pysugar/tekton-studio/internal/logging"
	"github.com/pysugar/tekton-studio/internal/metrics"
	"github.com/pysugar/tekton-studio/internal/session"
	"github.com/pysugar/tekton-studio/internal/store"
	"github.com/pysugar/tekton-studio/internal/webhook"
)

var (
	ErrNotConnected = errors.New("google drive is not connected")
	ErrForward      = errors.New("failed to forward to workflow")
)

// Request is one submission from the dashboard form or the JSON API.
type Request struct {
	ProjectName      string `json:"projectName" validate:"required"`
	BusinessDetails  string `json:"businessDetails" validate:"required"`
	WebsiteStructure string `json:"websiteStructure" validate:"required"`
}

func (r *Request) normalize() {
	r.ProjectName = strings.TrimSpace(r.ProjectName)
	r.BusinessDetails = strings.TrimSpace(r.BusinessDetails)
	r.WebsiteStructure = strings.TrimSpace(r.WebsiteStructure)
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f + " is required"
	}
	return strings.Join(msgs, "; ")
}

// DriveCredentials are handed to the workflow so it can write to Drive.
type DriveCredentials struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at"`
	GoogleEmail  string     `json:"google_email"`
}

// Payload is the body POSTed to the n8n webhook.
type Payload struct {
	ID                     string           `json:"id"`
	ProjectName            string           `json:"projectName"`
	BusinessDetails        string           `json:"businessDetails"`
	WebsiteStructure       string           `json:"websiteStructure"`
	CallbackURL            string           `json:"callbackUrl"`
	GoogleDriveCredentials DriveCredentials `json:"googleDriveCredentials"`
}

type Result struct {
	UsageID        string `json:"id"`
	Status         string `json:"status"`
	ProjectID      string `json:"projectId"`
	ProjectName    string `json:"projectName"`
	ProjectCreated bool   `json:"projectCreated"`
}

// Store is the persistence a submission touches.
type Store interface {
	GetGoogleDriveConnection(ctx context.Context, email string) (*models.GoogleDriveConnection, error)
	FindOrCreateProject(ctx context.Context, userID, name, businessDetails string) (*models.Project, bool, error)
	CreateProjectUsage(ctx context.Context, in store.UsageInput) (*models.ProjectUsage, error)
	TouchConnection(ctx context.Context, id string) error
}

type Forwarder interface {
	ForwardJSON(ctx context.Context, v any) (*webhook.Response, error)
}

type Service struct {
	store       Store
	forwarder   Forwarder
	callbackURL string
	recorder    metrics.Recorder
	validate    *validator.Validate
}

func NewService(st Store, fwd Forwarder, callbackURL string, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.NewNoopMetrics()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return &Service{
		store:       st,
		forwarder:   fwd,
		callbackURL: callbackURL,
		recorder:    rec,
		validate:    v,
	}
}

// Submit records the request as pending and forwards it. When forwarding
// fails the row stays pending, the Result is still returned and the error
// wraps ErrForward.
func (s *Service) Submit(ctx context.Context, id session.Identity, req Request) (*Result, error) {
	res, err := s.submit(ctx, id, req)
	if err != nil {
		s.recorder.RecordGeneration(metrics.ResultError)
	} else {
		s.recorder.RecordGeneration(metrics.ResultSuccess)
	}
	return res, err
}

func (s *Service) submit(ctx context.Context, id session.Identity, req Request) (*Result, error) {
	log := logging.FromContext(ctx)

	if !id.Connected() {
		return nil, ErrNotConnected
	}

	req.normalize()
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			ve := &ValidationError{}
			for _, fe := range verrs {
				ve.Fields = append(ve.Fields, fe.Field())
			}
			return nil, ve
		}
		return nil, err
	}

	conn, err := s.store.GetGoogleDriveConnection(ctx, id.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}

	project, created, err := s.store.FindOrCreateProject(ctx, conn.UserID, req.ProjectName, req.BusinessDetails)
	if err != nil {
		return nil, err
	}

	usage, err := s.store.CreateProjectUsage(ctx, store.UsageInput{
		UserID:           conn.UserID,
		ProjectID:        project.ID,
		RequestType:      store.RequestTypeWebsiteGeneration,
		ProjectName:      project.ProjectName,
		BusinessDetails:  project.BusinessDetails,
		WebsiteStructure: req.WebsiteStructure,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		UsageID:        usage.ID,
		Status:         usage.Status,
		ProjectID:      project.ID,
		ProjectName:    project.ProjectName,
		ProjectCreated: created,
	}

	payload := Payload{
		ID:               usage.ID,
		ProjectName:      project.ProjectName,
		BusinessDetails:  project.BusinessDetails,
		WebsiteStructure: req.WebsiteStructure,
		CallbackURL:      s.callbackURL,
		GoogleDriveCredentials: DriveCredentials{
			AccessToken:  conn.AccessToken,
			RefreshToken: conn.RefreshToken,
			ExpiresAt:    conn.TokenExpiresAt,
			GoogleEmail:  conn.GoogleEmail,
		},
	}
	if _, err := s.forwarder.ForwardJSON(ctx, payload); err != nil {
		log.Error("generation forward failed", "usage_id", usage.ID, "error", err)
		return result, fmt.Errorf("%w: %w", ErrForward, err)
	}

	if err := s.store.TouchConnection(ctx, conn.ID); err != nil {
		log.Warn("failed to stamp connection last_used", "connection_id", conn.ID, "error", err)
	}
	log.Info("generation submitted", "usage_id", usage.ID, "project", project.ProjectName, "project_created", created)
	return result, nil
}
