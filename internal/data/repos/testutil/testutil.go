package testutil

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/convoroute-backend/internal/domain"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

// DB opens a fresh in-memory SQLite database with the full schema migrated.
// Each test gets its own database so tests stay independent.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.Organization{},
		&domain.AgentDefinition{},
		&domain.ConversationCheckpoint{},
		&domain.ConversationArchive{},
	); err != nil {
		tb.Fatalf("automigrate: %v", err)
	}
	return db
}

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewNop()
}
