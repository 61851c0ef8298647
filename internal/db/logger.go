package db

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm/logger"
)

// newLogger sends gorm's warnings and errors through slog. Lookups that find
// nothing are expected on many paths and are not logged.
func newLogger() logger.Interface {
	return logger.New(slogWriter{}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type slogWriter struct{}

// Printf receives gorm's trace lines. Failed statements carry the error as
// an argument; slow ones carry the "SLOW SQL" marker.
func (slogWriter) Printf(format string, args ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	for _, a := range args {
		if err, ok := a.(error); ok {
			slog.Error("database error", "error", err, "details", msg)
			return
		}
	}
	if strings.Contains(msg, "SLOW SQL") {
		slog.Warn("slow query", "details", msg)
		return
	}
	slog.Warn("database", "details", msg)
}
