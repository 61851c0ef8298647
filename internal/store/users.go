package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pysugar/tekton-studio/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetOrCreateUserByEmail returns the user for email, creating it when absent.
// Non-empty name and Google id refresh the stored profile.
func (s *Store) GetOrCreateUserByEmail(ctx context.Context, email, name, googleUserID string) (*models.User, error) {
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.getOrCreateUser(tx, email, name, googleUserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) getOrCreateUser(tx *gorm.DB, email, name, googleUserID string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, missing("email")
	}

	now := s.timestamp()
	candidate := &models.User{
		Email:        email,
		Name:         name,
		GoogleUserID: googleUserID,
		LastActive:   &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// A concurrent insert for the same email loses here and falls through to the read.
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(candidate).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	var user models.User
	if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	updates := map[string]any{}
	if name != "" && name != user.Name {
		updates["name"] = name
	}
	if googleUserID != "" && googleUserID != user.GoogleUserID {
		updates["google_user_id"] = googleUserID
	}
	if len(updates) > 0 {
		updates["updated_at"] = now
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		if v, ok := updates["name"]; ok {
			user.Name = v.(string)
		}
		if v, ok := updates["google_user_id"]; ok {
			user.GoogleUserID = v.(string)
		}
	}
	return &user, nil
}

// GetUserByEmail looks up an existing user.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// AttachSession records the browser session currently bound to the user.
func (s *Store) AttachSession(ctx context.Context, userID, sessionID string) error {
	now := s.timestamp()
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"session_id": sessionID, "last_active": now, "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("failed to attach session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
