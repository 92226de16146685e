package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies the SQL backend a store handle speaks.
type Dialect string

const (
	// DialectSQLite is the embedded backend used by tests and single-node setups.
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres is the deployment backend.
	DialectPostgres Dialect = "postgres"
)

// ErrNotFound reports that a requested row does not exist.
var ErrNotFound = errors.New("not found")

// StateError reports a job operation rejected because of the job's current status.
type StateError struct {
	JobID  string
	Status JobStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("job %s is in state %s", e.JobID, e.Status)
}

type Config struct {
	// Driver picks the backend. Inferred when empty: postgres when Host is
	// set, sqlite otherwise.
	Driver string

	// Path is a local filesystem path for the sqlite backend.
	// ":memory:" is supported for tests.
	Path string

	// Postgres connection parameters.
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DB is an open metadata store handle.
type DB struct {
	*sql.DB
	dialect Dialect
}

// Tx is a transaction scoped to one store handle.
type Tx struct {
	*sql.Tx
	dialect Dialect
}

// Dialect reports the backend this handle speaks.
func (db *DB) Dialect() Dialect { return db.dialect }

// Open opens the configured backend and verifies connectivity.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		if strings.TrimSpace(cfg.Host) != "" {
			driver = string(DialectPostgres)
		} else {
			driver = string(DialectSQLite)
		}
	}

	switch Dialect(driver) {
	case DialectSQLite:
		return openSQLite(ctx, cfg)
	case DialectPostgres:
		return openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// WithTx runs fn inside a transaction. The transaction rolls back unless fn
// returns nil and the commit succeeds.
func WithTx(ctx context.Context, db *DB, fn func(*Tx) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Tx{Tx: tx, dialect: db.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// querier is satisfied by both DB and Tx so row-level helpers can run inside
// or outside an explicit transaction.
type querier interface {
	exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	queryRow(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.ExecContext(ctx, rebind(db.dialect, query), args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.QueryContext(ctx, rebind(db.dialect, query), args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.QueryRowContext(ctx, rebind(db.dialect, query), args...)
}

func (tx *Tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return tx.ExecContext(ctx, rebind(tx.dialect, query), args...)
}

func (tx *Tx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return tx.QueryContext(ctx, rebind(tx.dialect, query), args...)
}

func (tx *Tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return tx.QueryRowContext(ctx, rebind(tx.dialect, query), args...)
}

// rebind rewrites ? placeholders to $n for backends that require them.
// Queries in this package never carry ? inside string literals.
func rebind(d Dialect, query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
