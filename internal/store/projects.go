package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/pysugar/tekton-studio/internal/db/models"
	"gorm.io/gorm/clause"
)

const ProjectStatusActive = "active"

// ListProjects returns the user's projects, newest first.
func (s *Store) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// CreateProject inserts a new project. A duplicate name for the same user fails.
func (s *Store) CreateProject(ctx context.Context, userID, name, businessDetails string) (*models.Project, error) {
	p, err := s.newProject(userID, name, businessDetails)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

// FindOrCreateProject returns the project with exactly this name, inserting it
// when missing. An existing project keeps its business details. created
// reports whether this call inserted the row.
func (s *Store) FindOrCreateProject(ctx context.Context, userID, name, businessDetails string) (project *models.Project, created bool, err error) {
	p, err := s.newProject(userID, name, businessDetails)
	if err != nil {
		return nil, false, err
	}

	db := s.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "project_name"}},
		DoNothing: true,
	}).Create(p)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to create project: %w", res.Error)
	}

	var out models.Project
	if err := db.Where("user_id = ? AND project_name = ?", p.UserID, p.ProjectName).First(&out).Error; err != nil {
		return nil, false, fmt.Errorf("failed to load project: %w", err)
	}
	return &out, res.RowsAffected > 0, nil
}

func (s *Store) newProject(userID, name, businessDetails string) (*models.Project, error) {
	if userID == "" {
		return nil, missing("user_id")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, missing("project_name")
	}
	now := s.timestamp()
	return &models.Project{
		UserID:          userID,
		ProjectName:     name,
		BusinessDetails: businessDetails,
		Status:          ProjectStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
