package docstore

import (
	"fmt"
	"regexp"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

var identRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// dialect renders JSON field access for an engine. Field names must pass checkIdent.
type dialect struct {
	placeholder sq.PlaceholderFormat
	like        string
	text        func(field string) string
	number      func(field string) string
	integer     func(field string) string
}

var (
	postgres = dialect{
		placeholder: sq.Dollar,
		like:        "ILIKE",
		text:        func(f string) string { return fmt.Sprintf("data->>'%s'", f) },
		number:      func(f string) string { return fmt.Sprintf("(data->>'%s')::numeric", f) },
		integer:     func(f string) string { return fmt.Sprintf("(data->>'%s')::bigint", f) },
	}
	sqlite = dialect{
		placeholder: sq.Question,
		like:        "LIKE",
		text:        func(f string) string { return fmt.Sprintf("json_extract(data, '$.%s')", f) },
		number:      func(f string) string { return fmt.Sprintf("json_extract(data, '$.%s')", f) },
		integer:     func(f string) string { return fmt.Sprintf("CAST(json_extract(data, '$.%s') AS INTEGER)", f) },
	}
)

func dialectFor(driverName string) (dialect, error) {
	switch driverName {
	case "postgres":
		return postgres, nil
	case "sqlite":
		return sqlite, nil
	}
	return dialect{}, errors.Errorf("docstore: unsupported driver %q", driverName)
}

func checkIdent(field string) error {
	if !identRegex.MatchString(field) {
		return errors.Errorf("docstore: invalid field name %q", field)
	}
	return nil
}
