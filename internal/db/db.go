package db

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Connect opens a pooled connection for driver "mysql" or "postgres" and
// pings it before returning.
func Connect(driver, url string) (*sqlx.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	driverName, dsn, err := DriverDSN(driver, url)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// DriverDSN maps a configured driver onto the registered database/sql driver
// name. MySQL DSNs always get parseTime so DATE columns scan into time.Time.
func DriverDSN(driver, url string) (string, string, error) {
	switch driver {
	case "mysql":
		cfg, err := mysql.ParseDSN(url)
		if err != nil {
			return "", "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		return "mysql", cfg.FormatDSN(), nil
	case "postgres":
		return "pgx", url, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", driver)
	}
}
