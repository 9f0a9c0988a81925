package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported database types.
const (
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"
	DBTypeMySQL    = "mysql"
)

// Open connects to the journal database and migrates its tables.
func Open(ctx context.Context, dbType, dsn string, log *slog.Logger) (*gorm.DB, error) {
	if log == nil {
		log = slog.Default()
	}
	var dialector gorm.Dialector
	switch strings.ToLower(dbType) {
	case DBTypeSQLite, "":
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	case DBTypePostgres:
		if dsn == "" {
			return nil, fmt.Errorf("journal: DSN is required for %s", dbType)
		}
		dialector = postgres.Open(dsn)
	case DBTypeMySQL:
		if dsn == "" {
			return nil, fmt.Errorf("journal: DSN is required for %s", dbType)
		}
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("journal: unsupported database type %q (expected sqlite, postgres or mysql)", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: connect %s: %w", dbType, err)
	}
	if err := Migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	log.Info("journal database ready", "type", dbType)
	return db, nil
}
