package testfixtures

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"venue-billing-backend/config"
	"venue-billing-backend/internal/db"
)

// OpenSQLite returns a migrated database backed by a temporary sqlite file.
func OpenSQLite(tb testing.TB) *gorm.DB {
	tb.Helper()

	cfg := &config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(tb.TempDir(), "venue.db"),
		LogLevel: "silent",
	}
	gormDB, err := db.Init(cfg, zap.NewNop())
	if err != nil {
		tb.Fatalf("failed to open sqlite: %v", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		tb.Fatalf("failed to get sql.DB: %v", err)
	}
	tb.Cleanup(func() { _ = sqlDB.Close() })
	return gormDB
}
