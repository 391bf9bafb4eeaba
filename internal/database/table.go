package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/laburec/bbutil/internal/logging"
)

// ColumnOption modifies a column added with AddColumn.
type ColumnOption func(*columnOptions)

type columnOptions struct {
	unique     bool
	primaryKey bool
	keyword    bool
}

// Unique adds the column to the table's UNIQUE constraint.
func Unique() ColumnOption { return func(o *columnOptions) { o.unique = true } }

// PrimaryKey marks the column as the primary key.
func PrimaryKey() ColumnOption { return func(o *columnOptions) { o.primaryKey = true } }

// Keyword makes the column the key of the in-memory index.
func Keyword() ColumnOption { return func(o *columnOptions) { o.keyword = true } }

// Table is one table definition plus the rows held in memory.
type Table struct {
	Name             string
	OldName          string
	Keyword          string
	SuppressWarnings bool

	sql     *SQLite
	log     *logging.Logging
	columns []Column
	names   []string
	data    []*Data
	index   map[any]*Data
	drop    []string
}

// NewTable returns an empty table bound to a connection.
func NewTable(name string, conn *SQLite, log *logging.Logging) *Table {
	return &Table{Name: name, sql: conn, log: log, index: make(map[any]*Data)}
}

// AddColumn appends a column. Adding an existing name is a no-op.
func (t *Table) AddColumn(name string, typ Type, opts ...ColumnOption) error {
	if err := checkIdent(name); err != nil {
		return err
	}
	if _, ok := t.GetColumn(name); ok {
		return nil
	}

	var o columnOptions
	for _, opt := range opts {
		opt(&o)
	}

	t.columns = append(t.columns, Column{Name: name, Type: typ, Unique: o.unique, PrimaryKey: o.primaryKey})
	if o.keyword {
		t.Keyword = name
	}
	if !o.primaryKey {
		t.names = append(t.names, name)
	}
	return nil
}

// GetColumn returns the named column.
func (t *Table) GetColumn(name string) (Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// DropColumn removes a column from the definition. The primary key cannot
// be dropped.
func (t *Table) DropColumn(name string) error {
	col, ok := t.GetColumn(name)
	if !ok {
		return fmt.Errorf("database: %s: unknown column %q", t.Name, name)
	}
	if col.PrimaryKey {
		return fmt.Errorf("database: %s: cannot drop primary key %q", t.Name, name)
	}

	t.columns = removeColumn(t.columns, name)
	t.names = removeName(t.names, name)
	if t.Keyword == name {
		t.Keyword = ""
	}
	t.drop = append(t.drop, name)
	return nil
}

// Dropped lists the columns removed with DropColumn.
func (t *Table) Dropped() []string {
	return append([]string(nil), t.drop...)
}

func removeColumn(cols []Column, name string) []Column {
	out := cols[:0]
	for _, c := range cols {
		if c.Name != name {
			out = append(out, c)
		}
	}
	return out
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// Columns returns the column definitions.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// Names returns the non primary key column names, the ones written by
// Store and Update.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// ColumnList renders the column definitions for CREATE TABLE.
func (t *Table) ColumnList() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Create()
	}
	return out
}

// UniqueList returns the names of the unique columns.
func (t *Table) UniqueList() []string {
	var out []string
	for _, c := range t.columns {
		if c.Unique {
			out = append(out, c.Name)
		}
	}
	return out
}

// NewData returns a record with every column at its zero value.
func (t *Table) NewData() *Data {
	d := NewData()
	for _, c := range t.columns {
		d.Set(c.Name, c.Type.Zero())
	}
	return d
}

// Init makes sure the table exists: an existing table is used, a table
// under OldName is renamed, otherwise it is created. It returns the row
// count.
func (t *Table) Init(ctx context.Context) (int, error) {
	switch {
	case t.sql.CheckTable(ctx, t.Name):
	case t.OldName != "" && t.sql.CheckTable(ctx, t.OldName):
		if err := t.sql.RenameTable(ctx, t.OldName, t.Name); err != nil {
			return -1, err
		}
	default:
		if err := t.sql.PrepareTable(ctx, t.Name, t.columns, t.UniqueList()); err != nil {
			return -1, err
		}
	}

	count := t.sql.Count(ctx, t.Name)
	if count < 0 {
		return -1, fmt.Errorf("database: %s: unable to count rows", t.Name)
	}
	return count, nil
}

// Add appends a record and indexes it by its keyword value.
func (t *Table) Add(d *Data) error {
	if t.Keyword != "" {
		key, ok := d.Get(t.Keyword)
		if !ok {
			return fmt.Errorf("database: %s: record has no keyword %q", t.Name, t.Keyword)
		}
		t.index[indexKey(key)] = d
	}
	t.data = append(t.data, d)
	return nil
}

// Lookup returns the record indexed under key. Integer keys match
// whatever integer type the record holds.
func (t *Table) Lookup(key any) (*Data, bool) {
	d, ok := t.index[indexKey(key)]
	return d, ok
}

// indexKey maps byte slices to strings and every integer type to int64.
func indexKey(key any) any {
	switch k := key.(type) {
	case []byte:
		return string(k)
	case int:
		return int64(k)
	case int8:
		return int64(k)
	case int16:
		return int64(k)
	case int32:
		return int64(k)
	case uint:
		return int64(k)
	case uint8:
		return int64(k)
	case uint16:
		return int64(k)
	case uint32:
		return int64(k)
	case uint64:
		return int64(k)
	}
	return key
}

// Data returns the records held in memory.
func (t *Table) Data() []*Data {
	return append([]*Data(nil), t.data...)
}

// Select reads rows into records. With no names every column is read;
// BOOLEAN columns are converted from their stored integers.
func (t *Table) Select(ctx context.Context, filter string, names []string, args ...any) ([]*Data, error) {
	return t.selectRows(ctx, filter, names, true, args...)
}

// selectRows reports progress only when progress is set and the log level
// is above zero.
func (t *Table) selectRows(ctx context.Context, filter string, names []string, progress bool, args ...any) ([]*Data, error) {
	if len(names) == 0 {
		names = make([]string, len(t.columns))
		for i, c := range t.columns {
			names[i] = c.Name
		}
	}

	rows, err := t.sql.Select(ctx, t.Name, filter, names, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		if !t.SuppressWarnings && t.log != nil {
			t.log.Warn(t.Name, "No data!")
		}
		return nil, nil
	}

	var bar *logging.Progress
	if progress && t.log != nil && t.log.Level() > 0 {
		bar = t.log.Progress(len(rows), SelectInterval(len(rows)))
	}

	out := make([]*Data, 0, len(rows))
	for _, row := range rows {
		d := NewData()
		for i, n := range names {
			v := row[i]
			if col, ok := t.GetColumn(n); ok && col.Type == Bool {
				v = toBool(v)
			}
			d.Set(n, v)
		}
		out = append(out, d)
		if bar != nil {
			bar.Inc()
		}
	}
	return out, nil
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case float64:
		return b != 0
	case string:
		return b == "1" || b == "true"
	}
	return false
}

// Store inserts rows, or every record held in memory when none are given.
// It returns the inserted count, or -1 on error.
func (t *Table) Store(ctx context.Context, rows ...*Data) int {
	if len(rows) == 0 {
		rows = t.data
	}
	return t.sql.Insert(ctx, t.Name, t.names, rows...)
}

// Update writes the non primary key columns of d to the rows matching filter.
func (t *Table) Update(ctx context.Context, d *Data, filter string, args ...any) bool {
	return t.sql.Update(ctx, t.Name, t.names, d, filter, args...)
}

// CheckScheme compares the declared columns against the database table.
func (t *Table) CheckScheme(ctx context.Context) error {
	scheme, err := t.sql.Scheme(ctx, t.Name)
	if err != nil {
		return err
	}
	declared := make(map[string]string, len(scheme))
	for _, sc := range scheme {
		declared[sc.Name] = sc.Type
	}

	var errs []error
	for _, c := range t.columns {
		typ, ok := declared[c.Name]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("database: %s: column %q is missing", t.Name, c.Name))
		case typ != c.Type.SQL():
			errs = append(errs, fmt.Errorf("database: %s: column %q is %s, want %s", t.Name, c.Name, typ, c.Type.SQL()))
		}
	}
	if err := errors.Join(errs...); err != nil {
		if t.log != nil {
			t.log.Error(fmt.Sprintf("Scheme of table %s does not match!", t.Name))
			t.log.Exception(err)
		}
		return err
	}
	return nil
}

// Load replaces the records in memory with the whole table and returns
// the record count.
func (t *Table) Load(ctx context.Context) (int, error) {
	t.Clear()

	rows, err := t.selectRows(ctx, "", nil, false)
	if err != nil {
		return -1, err
	}

	var progress *logging.Progress
	if t.log != nil {
		t.log.Inform(t.Name, fmt.Sprintf("Load %d entries", len(rows)))
		progress = t.log.Progress(len(rows), SelectInterval(len(rows)))
	}
	for _, d := range rows {
		if err := t.Add(d); err != nil {
			return -1, err
		}
		if progress != nil {
			progress.Inc()
		}
	}
	if t.log != nil {
		t.log.Clear()
	}
	return t.DataCount(), nil
}

// Clear drops the records held in memory.
func (t *Table) Clear() {
	t.data = nil
	t.index = make(map[any]*Data)
}

// DataCount returns the number of records held in memory.
func (t *Table) DataCount() int {
	return len(t.data)
}

// Check returns the number of rows in the database table, or -1.
func (t *Table) Check(ctx context.Context) int {
	return t.sql.Count(ctx, t.Name)
}
