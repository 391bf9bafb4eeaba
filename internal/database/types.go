// Package database is a thin helper around an embedded SQLite database:
// column metadata, an in-memory table cache with a keyword index, and a
// Database that prepares and connects a set of tables.
package database

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrInvalidIdentifier is returned for table or column names that are not
// plain identifiers.
var ErrInvalidIdentifier = errors.New("database: invalid identifier")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// checkIdent validates name for use as a table or column identifier.
func checkIdent(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// quote validates name and wraps it in double quotes.
func quote(name string) (string, error) {
	if err := checkIdent(name); err != nil {
		return "", err
	}
	return `"` + name + `"`, nil
}

func quoteAll(names []string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		q, err := quote(n)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// Type is a column storage type.
type Type int

const (
	Integer Type = iota
	Float
	String
	Bool
	Timestamp
	Blob
)

// SQL returns the declared column type.
func (t Type) SQL() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Float:
		return "REAL"
	case String:
		return "TEXT"
	case Bool:
		return "BOOLEAN"
	case Timestamp:
		return "TIMESTAMP"
	case Blob:
		return "BLOB"
	default:
		return "TEXT"
	}
}

// Zero returns the value a fresh record holds for this type.
func (t Type) Zero() any {
	switch t {
	case Integer:
		return int64(0)
	case Float:
		return 0.0
	case Bool:
		return false
	case Timestamp:
		return time.Time{}
	case Blob:
		return []byte(nil)
	default:
		return ""
	}
}

func (t Type) String() string { return t.SQL() }

// Column describes one table column.
type Column struct {
	Name       string
	Type       Type
	Unique     bool
	PrimaryKey bool
}

// Create renders the column definition used in CREATE TABLE.
func (c Column) Create() string {
	def := fmt.Sprintf(`"%s" %s`, c.Name, c.Type.SQL())
	if c.PrimaryKey {
		def += " PRIMARY KEY"
	}
	return def
}

// SelectInterval returns the progress interval used when loading count
// rows: every row below 100 rows, about one hundred updates above.
func SelectInterval(count int) int {
	if count < 100 {
		return 0
	}
	return count / 100
}
