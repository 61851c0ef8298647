// Package store is the persistence layer for users, Drive connections,
// projects and generation requests.
package store

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for expiry checks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) timestamp() time.Time { return s.now().UTC() }

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// TableNames lists the tables the application expects.
var TableNames = []string{"users", "google_drive_connections", "projects", "project_usage", "app_configs"}

// Tables reports which expected tables exist.
func (s *Store) Tables(ctx context.Context) map[string]bool {
	m := s.db.WithContext(ctx).Migrator()
	out := make(map[string]bool, len(TableNames))
	for _, name := range TableNames {
		out[name] = m.HasTable(name)
	}
	return out
}
