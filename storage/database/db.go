package database

import (
	"context"
	"embed"
	"io"
	"log"
	"net/url"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
)

const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

//go:embed migrations/*/*.sql
var migrations embed.FS

var ErrUnknownEngine = errors.New("unknown database engine")

func postgresDSN(conf *core.Config) string {
	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(conf.Database.User, conf.Database.Password),
		Host:     conf.Database.Address(),
		Path:     conf.Database.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func sqliteDSN(path string) string {
	if path == "" || path == ":memory:" {
		return ":memory:"
	}
	return filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}

// Open opens the configured database. It does not ping it.
func Open(conf *core.Config) (*sqlx.DB, error) {
	switch conf.Database.Engine {
	case EnginePostgres:
		return sqlx.Open("postgres", postgresDSN(conf))
	case EngineSQLite:
		db, err := sqlx.Open("sqlite", sqliteDSN(conf.Database.Path))
		if err != nil {
			return nil, err
		}
		// one writer at a time; also keeps ":memory:" databases alive across queries.
		db.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, errors.Wrap(ErrUnknownEngine, conf.Database.Engine)
	}
}

// Ping waits for the database to be ready. Waits 100ms longer between each attempt.
func Ping(ctx context.Context, db core.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// MigrationsDir returns the embedded migrations directory of an engine.
func MigrationsDir(engine string) string {
	return "migrations/" + engine
}

// SetupGoose points goose at the embedded migrations of the db's engine.
func SetupGoose(db *sqlx.DB) (string, error) {
	goose.SetBaseFS(migrations)
	goose.SetLogger(log.New(io.Discard, "", 0))

	engine := db.DriverName()
	dialect := engine
	switch engine {
	case EnginePostgres:
	case EngineSQLite:
		dialect = "sqlite3"
	default:
		return "", errors.Wrap(ErrUnknownEngine, engine)
	}
	if err := goose.SetDialect(dialect); err != nil {
		return "", errors.Wrap(err, "setting goose dialect")
	}
	return MigrationsDir(engine), nil
}

// Migrate applies every pending migration.
func Migrate(db *sqlx.DB) error {
	dir, err := SetupGoose(db)
	if err != nil {
		return err
	}
	if err := goose.Up(db.DB, dir); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
