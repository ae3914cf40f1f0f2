package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/tenantscope/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: Store implements domain.Store.
var _ domain.Store = (*Store)(nil)

// Store implements domain.Store using SQLite. A NULL tenant_id column is the
// tenant-less value.
type Store struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready store.
func New(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready store.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
//
// The pool is limited to one connection: SQLite has a single writer, and
// version allocation plus "latest" reads rely on seeing each other serialized.
func NewFromDB(db *sql.DB) (*Store, error) {
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (s *Store) DB() *sql.DB {
	return s.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// timeFormat is fixed-width so that text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

// nullTenant maps NoTenant to NULL.
func nullTenant(t domain.TenantID) any {
	if t.IsNone() {
		return nil
	}
	return string(t)
}

func tenantOf(ns sql.NullString) domain.TenantID {
	if !ns.Valid {
		return domain.NoTenant
	}
	return domain.TenantID(ns.String)
}

// where accumulates the conditions of a query.
type where struct {
	conds []string
	args  []any
}

func (w *where) eq(col string, v string) {
	if v == "" {
		return
	}
	w.conds = append(w.conds, col+" = ?")
	w.args = append(w.args, v)
}

// tenants adds the tenant predicates and the caller's visibility.
func (w *where) tenants(col string, q domain.TenantQuery, v domain.Visibility) {
	switch ids := q.IDs(); {
	case q.Without():
		w.conds = append(w.conds, col+" IS NULL")
	case len(ids) > 0:
		in := col + " IN (" + placeholders(len(ids)) + ")"
		if q.IncludeWithout() {
			in = "(" + in + " OR " + col + " IS NULL)"
		}
		w.conds = append(w.conds, in)
		for _, id := range ids {
			w.args = append(w.args, string(id))
		}
	}

	if !v.Restricted {
		return
	}
	if len(v.Tenants) == 0 {
		w.conds = append(w.conds, col+" IS NULL")
		return
	}
	w.conds = append(w.conds, "("+col+" IS NULL OR "+col+" IN ("+placeholders(len(v.Tenants))+"))")
	for _, id := range v.Tenants {
		w.args = append(w.args, string(id))
	}
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// tenantOrder renders ORDER BY for a tenant sort; NULL sorts first ascending.
func tenantOrder(col string, order domain.SortOrder, tail string) string {
	switch order {
	case domain.SortAsc:
		return " ORDER BY " + col + " IS NOT NULL, " + col + ", " + tail
	case domain.SortDesc:
		return " ORDER BY " + col + " IS NULL, " + col + " DESC, " + tail
	default:
		return " ORDER BY " + tail
	}
}
