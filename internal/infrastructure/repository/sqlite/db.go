package sqlite

import (
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	_ "modernc.org/sqlite"

	"github.com/riskibarqy/nba-stats/internal/infrastructure/repository/sqlite/migrations"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

type Options struct {
	Path         string
	BusyTimeout  time.Duration
	MaxOpenConns int
	// TraceOptions are passed to the otelsql wrapper.
	TraceOptions []otelsql.Option
}

// DSN builds a modernc connection string that enables foreign keys, a busy
// timeout and WAL journaling on every pooled connection.
func DSN(path string, busyTimeout time.Duration) string {
	path = strings.TrimSpace(path)
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	query := url.Values{}
	query.Add("_pragma", "foreign_keys(1)")
	query.Add("_pragma", "busy_timeout("+strconv.FormatInt(busyTimeout.Milliseconds(), 10)+")")
	if !isMemoryPath(path) {
		query.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + path + "?" + query.Encode()
}

func isMemoryPath(path string) bool {
	return strings.TrimSpace(path) == ":memory:"
}

// Open returns an instrumented handle. The caller owns Close.
func Open(opts Options) (*sqlx.DB, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, crerr.New("sqlite path is required")
	}

	traceOpts := append([]otelsql.Option{otelsql.WithDBSystem("sqlite")}, opts.TraceOptions...)
	db, err := otelsqlx.Open(DriverName, DSN(opts.Path, opts.BusyTimeout), traceOpts...)
	if err != nil {
		return nil, crerr.Wrapf(err, "open sqlite %s", opts.Path)
	}
	maxOpen := opts.MaxOpenConns
	if isMemoryPath(opts.Path) {
		// Every connection to :memory: is a separate database, so the pool
		// must hold exactly one connection and never recycle it.
		maxOpen = 1
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, crerr.Wrapf(err, "ping sqlite %s", opts.Path)
	}

	return db, nil
}

// NewMigrator binds the embedded migrations to db. Closing the returned
// migrator also closes db.
func NewMigrator(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, crerr.Wrap(err, "load embedded migrations")
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return nil, crerr.Wrap(err, "create sqlite migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, DriverName, driver)
	if err != nil {
		return nil, crerr.Wrap(err, "create migrator")
	}
	return m, nil
}

// Migrate applies every pending migration. db stays open.
func Migrate(db *sql.DB) error {
	m, err := NewMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return crerr.Wrap(err, "apply migrations")
	}
	return nil
}
