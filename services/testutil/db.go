package testutil

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bantudesa/pkg/db"
)

// NewTestDB opens a private shared-cache SQLite database named after the test
// and migrates models into it. A single connection keeps concurrent writers in
// tests serialized the way row locks would on postgres.
func NewTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: db.NewZapGormLogger(zap.NewNop(), logger.Silent, false),
	})
	if err != nil {
		t.Fatalf("open test database %s: %v", name, err)
	}

	if len(models) > 0 {
		if err := gdb.AutoMigrate(models...); err != nil {
			t.Fatalf("migrate test database %s: %v", name, err)
		}
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap test database %s: %v", name, err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return gdb
}
