package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ilinks-dev/ilinks/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// ConnectDatabase opens a gorm handle for the given driver. Duplicate key
// violations are translated to gorm.ErrDuplicatedKey for every dialect.
func ConnectDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(sqliteDSN(dsn))
	case DriverPostgres, "postgresql":
		dialector = postgres.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		return nil, err
	}

	return db, nil
}

// sqliteDefaults are appended to a sqlite DSN unless it sets them itself.
// Foreign keys make ON DELETE CASCADE work. Immediate transactions take the
// write lock at BEGIN, so overlapping read-then-write transactions wait on
// the busy timeout rather than failing with "database is locked".
var sqliteDefaults = []struct{ key, value string }{
	{"_foreign_keys", "on"},
	{"_busy_timeout", "5000"},
	{"_txlock", "immediate"},
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "ilinks.db"
	}

	for _, param := range sqliteDefaults {
		if strings.Contains(dsn, param.key+"=") {
			continue
		}

		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}

		dsn += sep + param.key + "=" + param.value
	}

	return dsn
}

// MigrateDatabase creates or extends the schema. AutoMigrate is additive, so
// columns added later (wallpaper, ui_settings) reach existing databases.
func MigrateDatabase(db *gorm.DB) error {
	models := []interface{}{
		&models.User{},
		&models.Category{},
		&models.Link{},
	}

	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			return err
		}
	}

	return nil
}

// Ping checks that the underlying connection pool can reach the database.
func Ping(ctx context.Context, db *gorm.DB, timeout time.Duration) error {
	sqlDB, err := db.DB()

	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %v", err)
	}

	return nil
}
