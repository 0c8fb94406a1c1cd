package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kasturi-ledger/internal/config"
	applog "kasturi-ledger/pkg/logger"
)

// Connect opens the database selected by cfg.DB.Driver and applies pool settings.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DB.Driver {
	case "sqlite":
		return OpenSQLite(cfg.DB.SQLitePath, newGormLogger(logger.Warn))
	case "postgres", "":
		return ConnectPostgres(cfg.DB.DSN(cfg.App.StoreTimezone), cfg.DB)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}
}

func ConnectPostgres(dsn string, pool config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // poolers in transaction mode reject implicit prepared statements
	}), &gorm.Config{
		Logger:      newGormLogger(logger.Info),
		PrepareStmt: false,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	applog.Info("Database connection established")
	return db, nil
}

func newGormLogger(level logger.LogLevel) logger.Interface {
	return logger.New(
		applog.L(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
