package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmehdipour/qmail/internal/config"
	"github.com/jmoiron/sqlx"
)

const defaultPingTimeout = 5 * time.Second

// NewMySQLConnection opens the serial store.
func NewMySQLConnection(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	return open("mysql", cfg)
}

// NewClickHouseConnection opens the registrations archive.
// DSN e.g. clickhouse://default:@localhost:9000/qmail?dial_timeout=5s&compress=true
func NewClickHouseConnection(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	return open("clickhouse", cfg)
}

func open(driver string, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("empty %s DSN", driver)
	}

	db, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, nil
}
