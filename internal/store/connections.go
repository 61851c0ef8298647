package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pysugar/tekton-studio/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConnectionInput is the result of a completed OAuth exchange.
type ConnectionInput struct {
	Email        string
	Name         string
	GoogleUserID string
	ClientID     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // zero when Google did not report an expiry
	Scope        string
}

// SaveGoogleDriveConnection upserts the connection for in.Email, creating the
// user first if needed. An empty refresh token keeps the stored one.
func (s *Store) SaveGoogleDriveConnection(ctx context.Context, in ConnectionInput) (*models.GoogleDriveConnection, error) {
	email := strings.TrimSpace(in.Email)
	if in.AccessToken == "" {
		return nil, missing("access_token")
	}
	if email == "" {
		return nil, missing("google_email")
	}

	var conn models.GoogleDriveConnection
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.getOrCreateUser(tx, email, in.Name, in.GoogleUserID)
		if err != nil {
			return err
		}

		now := s.timestamp()
		row := &models.GoogleDriveConnection{
			UserID:       user.ID,
			ClientID:     in.ClientID,
			AccessToken:  in.AccessToken,
			RefreshToken: in.RefreshToken,
			Scope:        in.Scope,
			GoogleEmail:  email,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if !in.ExpiresAt.IsZero() {
			exp := in.ExpiresAt.UTC()
			row.TokenExpiresAt = &exp
		}

		columns := []string{"user_id", "client_id", "access_token", "token_expires_at", "scope", "is_active", "error_message", "updated_at"}
		if in.RefreshToken != "" {
			columns = append(columns, "refresh_token")
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "google_email"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).Create(row).Error; err != nil {
			return fmt.Errorf("failed to save connection: %w", err)
		}

		return tx.Where("google_email = ?", email).First(&conn).Error
	})
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetGoogleDriveConnection returns the active, unexpired connection for email.
func (s *Store) GetGoogleDriveConnection(ctx context.Context, email string) (*models.GoogleDriveConnection, error) {
	var conn models.GoogleDriveConnection
	err := s.db.WithContext(ctx).
		Where("google_email = ? AND is_active = ?", strings.TrimSpace(email), true).
		Where("token_expires_at IS NULL OR token_expires_at > ?", s.timestamp()).
		Order("updated_at DESC").
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	return &conn, nil
}

// HasGoogleDriveConnection reports whether GetGoogleDriveConnection would succeed.
func (s *Store) HasGoogleDriveConnection(ctx context.Context, email string) (bool, error) {
	_, err := s.GetGoogleDriveConnection(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// TouchConnection stamps last_used after the tokens were handed to a workflow.
func (s *Store) TouchConnection(ctx context.Context, id string) error {
	now := s.timestamp()
	return s.db.WithContext(ctx).Model(&models.GoogleDriveConnection{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_used": now}).Error
}
