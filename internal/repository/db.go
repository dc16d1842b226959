package repository

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/happyheadlines/headlines-backend/migrations"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store names a migration set under migrations/<driver>/.
type Store string

const (
	ArticleStore Store = "articles"
	CommentStore Store = "comments"
)

// Open connects to a SQLite or PostgreSQL database.
func Open(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		db, err := sqlx.Connect(DriverSQLite, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}
		// An in-memory database exists per connection.
		if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
			db.SetMaxOpenConns(1)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		return db, nil
	case DriverPostgres:
		db, err := sqlx.Connect(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate applies the embedded migrations of store in lexical order.
// Every migration is idempotent, so it runs on each startup.
func Migrate(db *sqlx.DB, store Store) error {
	dir := path.Join(db.DriverName(), string(store))
	files, err := fs.Glob(migrations.FS, dir+"/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations %s: %w", dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations for %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		body, err := fs.ReadFile(migrations.FS, f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := db.Exec(string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", f, err)
		}
	}
	return nil
}

// OpenStore opens a database and brings its schema up to date.
func OpenStore(driver, dsn string, store Store) (*sqlx.DB, error) {
	db, err := Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, store); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// dbTime normalizes a timestamp before it is written, so stored values compare in order.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
