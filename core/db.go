package core

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
)

var (
	orderingFieldRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	likeEscaper        = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

// LikeEscape is the ESCAPE clause matching LikeContains patterns.
const LikeEscape = `ESCAPE '\'`

// LikeContains returns a LIKE pattern matching s anywhere, its wildcards taken literally.
func LikeContains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

type (
	// DBExecutor is satisfied by *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		Rebind(query string) string
	}

	DB interface {
		DBExecutor

		Ping() error
		Close() error
		DriverName() string
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// IsValid reports whether the ordering field is a plain identifier present in `allowed`.
func (ord DBOrdering) IsValid(allowed ...string) bool {
	if !orderingFieldRegex.MatchString(ord.Field) {
		return false
	}
	for _, f := range allowed {
		if f == ord.Field {
			return true
		}
	}
	return false
}
