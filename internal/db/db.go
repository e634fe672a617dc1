package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ilaif/athena-cycle/internal/config"
)

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

func Open(cfg config.DBConfig) (*DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	return Wrap(gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}))
}

// Wrap applies to an already opened gorm handle; tests use it with SQLite.
func Wrap(gdb *gorm.DB, err error) (*DB, error) {
	if err != nil {
		return nil, err
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

func Configure(db *DB, cfg config.DBConfig) {
	if db == nil || db.SQL == nil {
		return
	}
	if cfg.MaxOpenConns > 0 {
		db.SQL.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SQL.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SQL.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SQL.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func Ping(ctx context.Context, db *DB) error {
	if db == nil || db.SQL == nil {
		return errors.New("database is not open")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return db.SQL.PingContext(ctx)
}

func SetTimezone(db *DB, tz string) error {
	if tz == "" || db == nil || db.Gorm == nil {
		return nil
	}
	return db.Gorm.Exec("SELECT set_config('TimeZone', ?, false)", tz).Error
}
