package database

import (
	"context"
	"fmt"
)

const versionTable = "_table_version"

var versionColumns = []Column{
	{Name: "table", Type: String, PrimaryKey: true},
	{Name: "version", Type: Integer},
}

func (db *Database) prepareVersions(ctx context.Context) error {
	if db.sql == nil {
		return ErrNotConnected
	}
	return db.sql.PrepareTable(ctx, versionTable, versionColumns, nil)
}

// SetVersion records the schema version of a table.
func (db *Database) SetVersion(ctx context.Context, table string, version int) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	if err := db.prepareVersions(ctx); err != nil {
		return err
	}

	w, err := db.sql.w(ctx)
	if err != nil {
		return err
	}
	_, err = w.ExecContext(ctx,
		`INSERT INTO "_table_version" ("table", "version") VALUES (?, ?) ON CONFLICT("table") DO UPDATE SET "version" = excluded."version"`,
		table, version)
	if err != nil {
		return fmt.Errorf("database: set version %s: %w", table, err)
	}
	db.sql.commit = true
	return nil
}

// Version returns the recorded schema version of a table, 0 when none.
func (db *Database) Version(ctx context.Context, table string) (int, error) {
	if err := db.prepareVersions(ctx); err != nil {
		return 0, err
	}
	rows, err := db.sql.Select(ctx, versionTable, `"table" = ?`, []string{"version"}, table)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	v, _ := rows[0][0].(int64)
	return int(v), nil
}
