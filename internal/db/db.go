package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ringer-dashboard/config"
	"ringer-dashboard/internal/model"
)

// Models lists every table the application owns, in migration order.
var Models = []any{
	&model.Session{},
	&model.PushSubscription{},
	&model.DeviceState{},
}

// LogLevel maps a configured level name to the gorm logger level. Unknown or
// empty names log at Info.
func LogLevel(name string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn", "warning":
		return logger.Warn
	default:
		return logger.Info
	}
}

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(Dialector(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(LogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Dialector selects postgres for postgres DSNs and sqlite for everything else.
func Dialector(dsn string) gorm.Dialector {
	if IsPostgres(dsn) {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// IsPostgres reports whether dsn is a postgres URL or keyword/value DSN.
func IsPostgres(dsn string) bool {
	d := strings.TrimSpace(dsn)
	return strings.HasPrefix(d, "postgres://") ||
		strings.HasPrefix(d, "postgresql://") ||
		strings.Contains(d, "host=")
}
