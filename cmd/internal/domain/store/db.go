package store

import (
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Options mirror the database section of the config file.
type Options struct {
	DSN                    string
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMinutes int
}

// Open connects to the database named by the DSN. A postgres:// DSN selects
// the postgres driver, anything else is treated as a SQLite file path.
func Open(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	isPostgres := strings.HasPrefix(opts.DSN, "postgres://") || strings.HasPrefix(opts.DSN, "postgresql://")
	if isPostgres {
		dialector = postgres.Open(opts.DSN)
	} else {
		dialector = sqlite.Open(opts.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if !isPostgres {
		// SQLite has a single writer; one connection keeps booking
		// transactions strictly serialized.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		}
	}
	lifetime := time.Hour
	if opts.ConnMaxLifetimeMinutes > 0 {
		lifetime = time.Duration(opts.ConnMaxLifetimeMinutes) * time.Minute
	}
	sqlDB.SetConnMaxLifetime(lifetime)

	return db, nil
}
