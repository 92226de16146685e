package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq" // registers the postgres driver
)

// openPostgres connects to a Postgres-backed metadata store.
func openPostgres(ctx context.Context, cfg Config) (*DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping metadata store: %w", err)
	}

	return &DB{DB: db, dialect: DialectPostgres}, nil
}

func buildPostgresDSN(cfg Config) (string, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return "", errors.New("postgres host is required")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return "", errors.New("postgres database is required")
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   host,
		Path:   "/" + cfg.Database,
	}
	if cfg.Port > 0 {
		u.Host = fmt.Sprintf("%s:%d", host, cfg.Port)
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}

	sslMode := strings.TrimSpace(cfg.SSLMode)
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
