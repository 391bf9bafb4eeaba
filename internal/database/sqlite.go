package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"modernc.org/sqlite"

	"github.com/laburec/bbutil/internal/logging"
)

// ErrNotConnected is returned by operations that need an open connection.
var ErrNotConnected = errors.New("database: no valid connection")

// sqliteConstraint is the primary result code for constraint violations.
const sqliteConstraint = 19

// insertBatch bounds the rows per multi-row INSERT to stay below the
// bound-variable limit.
const insertBatch = 500

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SchemeColumn is one row of PRAGMA table_info.
type SchemeColumn struct {
	Name string
	Type string
}

// SQLite owns one connection. Connect takes the instance lock and holds it
// until Disconnect, so users of the same instance serialize fully. Writes
// share one transaction that Disconnect commits when something changed.
type SQLite struct {
	Name      string
	Filename  string
	UseMemory bool
	Log       *logging.Logging

	lock   sync.Mutex
	db     *sql.DB
	tx     *sql.Tx
	commit bool
}

// NewSQLite returns an unconnected SQLite.
func NewSQLite(name, filename string, log *logging.Logging) *SQLite {
	return &SQLite{Name: name, Filename: filename, Log: log}
}

func (s *SQLite) debug(content string) {
	if s.Log != nil {
		s.Log.Debug1(s.Name, content)
	}
}

func (s *SQLite) fail(content string, err error) {
	if s.Log == nil {
		return
	}
	s.Log.Error(content)
	if err != nil {
		s.Log.Exception(err)
	}
}

// Connect opens the database file, or an in-memory database with UseMemory.
func (s *SQLite) Connect(ctx context.Context) error {
	if s.Name == "" {
		s.fail("Connection is unnamed!", nil)
		return errors.New("database: connection is unnamed")
	}
	if s.Filename == "" && !s.UseMemory {
		s.fail("No filename given!", nil)
		return errors.New("database: no filename given")
	}

	s.debug("Acquire Lock")
	s.lock.Lock()

	dsn := s.Filename
	if s.UseMemory {
		dsn = ":memory:"
	} else if s.Log != nil {
		s.Log.Inform(s.Name, "Connect to "+s.Filename)
	}

	db, err := sql.Open("sqlite", dsn)
	if err == nil {
		// One connection: an in-memory database lives and dies with it.
		db.SetMaxOpenConns(1)
		err = db.PingContext(ctx)
	}
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		s.lock.Unlock()
		s.fail("Unable to create database: "+dsn, err)
		return fmt.Errorf("database: open %s: %w", dsn, err)
	}

	s.db = db
	return nil
}

// Disconnect commits pending writes when the commit flag is set, rolls them
// back otherwise, closes the database and releases the lock.
func (s *SQLite) Disconnect() error {
	if s.db == nil {
		return nil
	}

	var errs []error
	if s.tx != nil {
		var err error
		if s.commit {
			err = s.tx.Commit()
		} else {
			err = s.tx.Rollback()
		}
		s.tx = nil
		if err != nil {
			s.fail("Unable to commit to database!", err)
			errs = append(errs, fmt.Errorf("database: commit: %w", err))
		}
	}
	s.commit = false

	s.debug("Close " + s.target())
	if err := s.db.Close(); err != nil {
		s.fail("Unable to close connection!", err)
		errs = append(errs, fmt.Errorf("database: close: %w", err))
	}
	s.db = nil
	s.lock.Unlock()
	return errors.Join(errs...)
}

func (s *SQLite) target() string {
	if s.UseMemory {
		return "memory"
	}
	return s.Filename
}

// IsConnected reports whether Connect succeeded and Disconnect has not run.
func (s *SQLite) IsConnected() bool {
	return s.db != nil
}

// q returns the handle for reads: the open transaction if any.
func (s *SQLite) q() (querier, error) {
	if s.db == nil {
		s.fail("No valid connection!", nil)
		return nil, ErrNotConnected
	}
	if s.tx != nil {
		return s.tx, nil
	}
	return s.db, nil
}

// w returns the write transaction, beginning it on first use.
func (s *SQLite) w(ctx context.Context) (querier, error) {
	if s.db == nil {
		s.fail("No valid connection!", nil)
		return nil, ErrNotConnected
	}
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("database: begin: %w", err)
		}
		s.tx = tx
	}
	return s.tx, nil
}

// commitNow commits the open transaction immediately.
func (s *SQLite) commitNow() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("database: commit: %w", err)
	}
	return nil
}

// CheckTable reports whether the table exists.
func (s *SQLite) CheckTable(ctx context.Context, table string) bool {
	q, err := s.q()
	if err != nil {
		return false
	}

	s.debug("Check for table: " + table)
	var name string
	err = q.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		s.fail("Unable to check for table: "+table, err)
		return false
	}
	return true
}

// Count returns the number of rows in the table, or -1 on error.
func (s *SQLite) Count(ctx context.Context, table string) int {
	q, err := s.q()
	if err != nil {
		return -1
	}
	qt, err := quote(table)
	if err != nil {
		s.fail("Unable to count rows: "+table, err)
		return -1
	}
	query, _, err := sq.Select("count(*)").From(qt).ToSql()
	if err != nil {
		s.fail("Unable to count rows: "+table, err)
		return -1
	}

	var count int
	if err := q.QueryRowContext(ctx, query).Scan(&count); err != nil {
		s.fail("Unable to count rows: "+table, err)
		return -1
	}
	s.debug(fmt.Sprintf("Count table: %s, %d", table, count))
	return count
}

// PrepareTable creates the table unless it exists. Columns in uniques are
// combined into one UNIQUE constraint. The creation is committed at once.
func (s *SQLite) PrepareTable(ctx context.Context, table string, columns []Column, uniques []string) error {
	if _, err := s.q(); err != nil {
		return err
	}
	if s.CheckTable(ctx, table) {
		return nil
	}

	stmt, err := createStatement(table, columns, uniques)
	if err != nil {
		s.fail("Unable to create table: "+table, err)
		return err
	}

	w, err := s.w(ctx)
	if err != nil {
		return err
	}
	if _, err := w.ExecContext(ctx, stmt); err != nil {
		s.fail("Unable to create table: "+table, err)
		return fmt.Errorf("database: create %s: %w", table, err)
	}
	s.debug("Create table: " + table)
	return s.commitNow()
}

func createStatement(table string, columns []Column, uniques []string) (string, error) {
	qt, err := quote(table)
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("database: table %s has no columns", table)
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		if err := checkIdent(c.Name); err != nil {
			return "", err
		}
		defs[i] = c.Create()
	}

	constraint := ""
	if len(uniques) > 0 {
		qu, err := quoteAll(uniques)
		if err != nil {
			return "", err
		}
		constraint = fmt.Sprintf(", CONSTRAINT constraint_%s UNIQUE (%s)", table, strings.Join(qu, ", "))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s%s)", qt, strings.Join(defs, ", "), constraint), nil
}

// RenameTable renames a table.
func (s *SQLite) RenameTable(ctx context.Context, from, to string) error {
	qf, err := quote(from)
	if err != nil {
		return err
	}
	qt, err := quote(to)
	if err != nil {
		return err
	}
	w, err := s.w(ctx)
	if err != nil {
		return err
	}
	if _, err := w.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", qf, qt)); err != nil {
		s.fail(fmt.Sprintf("Unable to rename table %s to %s", from, to), err)
		return fmt.Errorf("database: rename %s: %w", from, err)
	}
	s.debug(fmt.Sprintf("Rename table: %s -> %s", from, to))
	s.commit = true
	return nil
}

// Scheme returns the declared columns of a table.
func (s *SQLite) Scheme(ctx context.Context, table string) ([]SchemeColumn, error) {
	qt, err := quote(table)
	if err != nil {
		return nil, err
	}
	q, err := s.q()
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, "PRAGMA table_info("+qt+")")
	if err != nil {
		s.fail("Unable to read scheme: "+table, err)
		return nil, fmt.Errorf("database: scheme %s: %w", table, err)
	}
	defer rows.Close()

	var out []SchemeColumn
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("database: scheme %s: %w", table, err)
		}
		out = append(out, SchemeColumn{Name: name, Type: ctype})
	}
	return out, rows.Err()
}

func isConstraint(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqliteConstraint
}

func values(names []string, d *Data) ([]any, error) {
	out := make([]any, len(names))
	for i, n := range names {
		v, ok := d.Get(n)
		if !ok {
			return nil, fmt.Errorf("database: data has no column %q", n)
		}
		out[i] = v
	}
	return out, nil
}

// Insert stores rows and returns how many were inserted, or -1 on error.
// One row uses INSERT; several rows use INSERT OR IGNORE so duplicates are
// skipped. A constraint violation on a single row returns -1 quietly.
func (s *SQLite) Insert(ctx context.Context, table string, names []string, rows ...*Data) int {
	if _, err := s.q(); err != nil {
		return -1
	}
	qt, err := quote(table)
	if err != nil {
		s.fail("Unable to insert into: "+table, err)
		return -1
	}
	cols, err := quoteAll(names)
	if err != nil {
		s.fail("Unable to insert into: "+table, err)
		return -1
	}
	if len(rows) == 0 {
		return 0
	}

	w, err := s.w(ctx)
	if err != nil {
		s.fail("Unable to insert into: "+table, err)
		return -1
	}

	total := 0
	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))

		b := sq.Insert(qt).Columns(cols...)
		if len(rows) > 1 {
			b = b.Options("OR IGNORE")
		}
		for _, row := range rows[start:end] {
			vals, err := values(names, row)
			if err != nil {
				s.fail("Data format does not fit database table!", err)
				return -1
			}
			b = b.Values(vals...)
		}

		query, args, err := b.ToSql()
		if err != nil {
			s.fail("Unable to build insert for: "+table, err)
			return -1
		}

		res, err := w.ExecContext(ctx, query, args...)
		if err != nil {
			if isConstraint(err) {
				return -1
			}
			s.fail("SQL:  "+query, err)
			if s.Log != nil {
				s.Log.Error(fmt.Sprintf("DATA: %v", args))
			}
			return -1
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}

	if total > 0 {
		s.commit = true
	}
	return total
}

// Update sets names from data on every row matching filter, a SQL
// condition with ? placeholders bound to args.
func (s *SQLite) Update(ctx context.Context, table string, names []string, data *Data, filter string, args ...any) bool {
	qt, err := quote(table)
	if err != nil {
		s.fail("Unable to update: "+table, err)
		return false
	}
	w, err := s.w(ctx)
	if err != nil {
		return false
	}

	b := sq.Update(qt)
	for _, n := range names {
		qn, err := quote(n)
		if err != nil {
			s.fail("Unable to update: "+table, err)
			return false
		}
		v, ok := data.Get(n)
		if !ok {
			s.fail("Data format does not fit database table!", fmt.Errorf("database: data has no column %q", n))
			return false
		}
		b = b.Set(qn, v)
	}
	if filter != "" {
		b = b.Where(filter, args...)
	}

	query, bound, err := b.ToSql()
	if err != nil {
		s.fail("Unable to build update for: "+table, err)
		return false
	}
	if _, err := w.ExecContext(ctx, query, bound...); err != nil {
		if isConstraint(err) {
			return false
		}
		s.fail("SQL:  "+query, err)
		if s.Log != nil {
			s.Log.Error("DATA: " + data.format())
		}
		return false
	}

	s.commit = true
	return true
}

// Select returns raw rows. With no names every column is selected; filter
// is an optional SQL condition with ? placeholders bound to args.
func (s *SQLite) Select(ctx context.Context, table, filter string, names []string, args ...any) ([][]any, error) {
	qt, err := quote(table)
	if err != nil {
		return nil, err
	}
	cols := []string{"*"}
	if len(names) > 0 {
		if cols, err = quoteAll(names); err != nil {
			return nil, err
		}
	}
	q, err := s.q()
	if err != nil {
		return nil, err
	}

	b := sq.Select(cols...).From(qt)
	if filter != "" {
		b = b.Where(filter, args...)
	}
	query, bound, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("database: build select: %w", err)
	}
	s.debug(query)

	rows, err := q.QueryContext(ctx, query, bound...)
	if err != nil {
		s.fail("Unable to search table: "+table, err)
		return nil, fmt.Errorf("database: select %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("database: select %s: %w", table, err)
	}

	var out [][]any
	for rows.Next() {
		row := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("database: scan %s: %w", table, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
