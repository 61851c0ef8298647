package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/pysugar/tekton-studio/internal/db/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	StatusPending = "pending"
	StatusReady   = "ready"
	StatusError   = "error"

	RequestTypeWebsiteGeneration = "website_generation"
)

// KnownStatus reports whether s is one of the statuses the workflow is
// documented to send. Other values are stored as given.
func KnownStatus(s string) bool {
	switch s {
	case StatusPending, StatusReady, StatusError:
		return true
	}
	return false
}

// IsTerminal is true for every status past pending. A terminal row may only
// be re-sent the same status.
func IsTerminal(s string) bool {
	return s != "" && s != StatusPending
}

type UsageInput struct {
	UserID           string
	ProjectID        string
	RequestType      string
	ProjectName      string
	BusinessDetails  string
	WebsiteStructure string
}

// StatusUpdate is what the workflow reports back. Empty fields leave the
// stored values alone.
type StatusUpdate struct {
	Status       string
	OutputLink   string
	ErrorMessage string
}

// CreateProjectUsage records a new pending generation request.
func (s *Store) CreateProjectUsage(ctx context.Context, in UsageInput) (*models.ProjectUsage, error) {
	if in.UserID == "" {
		return nil, missing("user_id")
	}
	if in.ProjectID == "" {
		return nil, missing("project_id")
	}
	reqType := in.RequestType
	if reqType == "" {
		reqType = RequestTypeWebsiteGeneration
	}

	now := s.timestamp()
	usage := &models.ProjectUsage{
		UserID:      in.UserID,
		ProjectID:   in.ProjectID,
		RequestType: reqType,
		RequestData: datatypes.NewJSONType(models.RequestData{
			WebsiteStructure: in.WebsiteStructure,
			ProjectName:      in.ProjectName,
			BusinessDetails:  in.BusinessDetails,
		}),
		ResponseData:     datatypes.NewJSONType(models.ResponseData{}),
		Status:           StatusPending,
		WebsiteStructure: in.WebsiteStructure,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(usage).Error; err != nil {
		return nil, fmt.Errorf("failed to create project usage: %w", err)
	}
	return usage, nil
}

// GetProjectUsage loads one row with its project.
func (s *Store) GetProjectUsage(ctx context.Context, id string) (*models.ProjectUsage, error) {
	var usage models.ProjectUsage
	err := s.db.WithContext(ctx).Preload("Project").Where("id = ?", id).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project usage: %w", err)
	}
	return &usage, nil
}

// ListProjectUsage returns the user's requests with their project, newest first.
func (s *Store) ListProjectUsage(ctx context.Context, userID string) ([]models.ProjectUsage, error) {
	var rows []models.ProjectUsage
	err := s.db.WithContext(ctx).
		Preload("Project").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list project usage: %w", err)
	}
	return rows, nil
}

// UpdateProjectUsageStatus applies a workflow callback. It never creates rows.
func (s *Store) UpdateProjectUsageStatus(ctx context.Context, id string, upd StatusUpdate) (*models.ProjectUsage, error) {
	if id == "" {
		return nil, missing("id")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.ProjectUsage
		err := tx.Where("id = ?", id).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load project usage: %w", err)
		}
		status := upd.Status
		if status == "" {
			status = current.Status
		}
		if IsTerminal(current.Status) && current.Status != status {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
		}

		resp := current.ResponseData.Data()
		updates := map[string]any{
			"status":     status,
			"updated_at": s.timestamp(),
		}
		if upd.OutputLink != "" {
			updates["output_link"] = upd.OutputLink
			resp.OutputLink = upd.OutputLink
		}
		if upd.ErrorMessage != "" {
			updates["error_message"] = upd.ErrorMessage
			resp.ErrorMessage = upd.ErrorMessage
		}
		updates["response_data"] = datatypes.NewJSONType(resp)

		return tx.Model(&models.ProjectUsage{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetProjectUsage(ctx, id)
}
