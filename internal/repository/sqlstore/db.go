package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps the connection pool together with the dialect details the
// repositories need: placeholder format and column types for the schema.
type DB struct {
	*sqlx.DB
	driver  string
	builder sq.StatementBuilderType
	types   *strings.Replacer
}

// Open connects to the configured store. For sqlite the dsn is a file path
// (directories are created) or a "file:" URI.
func Open(driver, dsn string) (*DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		return openSQLite(dsn)
	case DriverPostgres:
		return openPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func openSQLite(path string) (*DB, error) {
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// a single connection keeps PRAGMA state and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{
		DB:      db,
		driver:  DriverSQLite,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		types: strings.NewReplacer(
			"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{timestamp}}", "DATETIME",
		),
	}, nil
}

func openPostgres(dsn string) (*DB, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}

	return &DB{
		DB:      db,
		driver:  DriverPostgres,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		types: strings.NewReplacer(
			"{{pk}}", "BIGSERIAL PRIMARY KEY",
			"{{timestamp}}", "TIMESTAMPTZ",
		),
	}, nil
}

// Driver reports which dialect the store was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// Ping checks that the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// migrate runs each statement of a schema template in order.
func (db *DB) migrate(ctx context.Context, schema string) error {
	for _, stmt := range strings.Split(db.types.Replace(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func execBuilt(ctx context.Context, ex sqlx.ExecerContext, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	return ex.ExecContext(ctx, query, args...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
