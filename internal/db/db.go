package db

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pysugar/tekton-studio/internal/db/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	sessionSecretKey = "session_secret"
)

// Open connects to the configured database without migrating it.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "", DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  newLogger(),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if dialector.Name() == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.GoogleDriveConnection{},
		&models.Project{},
		&models.ProjectUsage{},
		&models.Setting{},
	)
}

// InitDB opens the database and runs migrations.
func InitDB(driver, dsn string) (*gorm.DB, error) {
	db, err := Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetSetting returns the stored value for key, or "" when absent.
func GetSetting(db *gorm.DB, key string) (string, error) {
	var s models.Setting
	err := db.Where("key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.Value, nil
}

// SetSetting inserts or replaces a value.
func SetSetting(db *gorm.DB, key, value string) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.Setting{Key: key, Value: value}).Error
}

// EnsureSessionSecret returns the persisted session signing key, generating
// one on first run.
func EnsureSessionSecret(db *gorm.DB) (string, error) {
	secret, err := GetSetting(db, sessionSecretKey)
	if err != nil {
		return "", err
	}
	if secret != "" {
		return secret, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	secret = hex.EncodeToString(buf)
	if err := SetSetting(db, sessionSecretKey, secret); err != nil {
		return "", err
	}
	slog.Info("generated new session secret")
	return secret, nil
}
