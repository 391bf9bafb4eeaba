package database

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/laburec/bbutil/internal/logging"
)

// Schema declares the tables of a Database. Init runs first in Start and
// typically calls AddTable and AddColumn.
type Schema interface {
	Init(db *Database) error
}

// SchemaFunc adapts a function to Schema.
type SchemaFunc func(db *Database) error

func (f SchemaFunc) Init(db *Database) error { return f(db) }

// Database is a named SQLite file with a set of tables.
type Database struct {
	Name      string
	Filename  string
	UseMemory bool
	Schema    Schema
	Log       *logging.Logging

	sql    *SQLite
	tables map[string]*Table
	order  []string
}

// New returns a Database. Tables are declared by schema during Start.
func New(name, filename string, schema Schema, log *logging.Logging) *Database {
	return &Database{
		Name:     name,
		Filename: filename,
		Schema:   schema,
		Log:      log,
		tables:   make(map[string]*Table),
	}
}

// SQL returns the connection, nil before Start.
func (db *Database) SQL() *SQLite {
	return db.sql
}

// Start declares the tables, connects and makes sure every table exists.
func (db *Database) Start(ctx context.Context) error {
	if db.tables == nil {
		db.tables = make(map[string]*Table)
	}

	var errs []error
	if db.Name == "" {
		errs = append(errs, errors.New("database: name is required"))
	}
	if db.Filename == "" && !db.UseMemory {
		errs = append(errs, errors.New("database: filename is required"))
	}
	if err := errors.Join(errs...); err != nil {
		if db.Log != nil {
			db.Log.Error(err.Error())
		}
		return err
	}

	db.sql = NewSQLite(db.Name, db.Filename, db.Log)
	db.sql.UseMemory = db.UseMemory
	for _, t := range db.tables {
		t.sql = db.sql
	}

	if db.Schema != nil {
		if err := db.Schema.Init(db); err != nil {
			return fmt.Errorf("database: %s: schema: %w", db.Name, err)
		}
	}

	if err := db.sql.Connect(ctx); err != nil {
		return err
	}

	for _, name := range db.order {
		if _, err := db.tables[name].Init(ctx); err != nil {
			_ = db.sql.Disconnect()
			return fmt.Errorf("database: %s: init table %s: %w", db.Name, name, err)
		}
	}
	return nil
}

// Stop disconnects and forgets every table.
func (db *Database) Stop() error {
	var err error
	if db.sql != nil {
		err = db.sql.Disconnect()
	}
	db.tables = make(map[string]*Table)
	db.order = nil
	return err
}

// AddTable creates and registers a table. Tables added before Start are
// bound to the connection when it is created.
func (db *Database) AddTable(name string) (*Table, error) {
	if err := checkIdent(name); err != nil {
		return nil, err
	}
	if db.tables == nil {
		db.tables = make(map[string]*Table)
	}
	if t, ok := db.tables[name]; ok {
		return t, nil
	}
	t := NewTable(name, db.sql, db.Log)
	db.tables[name] = t
	db.order = append(db.order, name)
	return t, nil
}

// GetTable returns a registered table.
func (db *Database) GetTable(name string) (*Table, bool) {
	t, ok := db.tables[name]
	return t, ok
}

// Tables returns the registered table names in declaration order.
func (db *Database) Tables() []string {
	return append([]string(nil), db.order...)
}

// Info logs the row count of every table.
func (db *Database) Info(ctx context.Context) {
	if db.Log == nil {
		return
	}
	names := db.Tables()
	sort.Strings(names)
	db.Log.Inform(db.Name, "Database: "+db.target())
	for _, name := range names {
		db.Log.Inform(db.Name, fmt.Sprintf("Table %s: %d entries", name, db.tables[name].Check(ctx)))
	}
}

func (db *Database) target() string {
	if db.UseMemory {
		return "memory"
	}
	return db.Filename
}

// Store inserts the in-memory records of every table and reports whether
// all inserts succeeded.
func (db *Database) Store(ctx context.Context) bool {
	ok := true
	for _, name := range db.order {
		t := db.tables[name]
		if t.DataCount() == 0 {
			continue
		}
		if t.Store(ctx) < 0 {
			ok = false
		}
	}
	return ok
}
