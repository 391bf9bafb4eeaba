package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laburec/bbutil/internal/logging"
)

func newLog(t *testing.T) (*logging.Logging, *logging.Memory) {
	t.Helper()
	log := logging.New(logging.WithApp("test"), logging.WithLevel(1))
	mem := logging.NewMemory("mem")
	log.Register(mem)
	require.NoError(t, log.Open())
	t.Cleanup(func() { _ = log.Close() })
	return log, mem
}

func memorySQL(t *testing.T, log *logging.Logging) *SQLite {
	t.Helper()
	s := NewSQLite("test", "", log)
	s.UseMemory = true
	require.NoError(t, s.Connect(context.Background()))
	t.Cleanup(func() { _ = s.Disconnect() })
	return s
}

func userSchema(db *Database) error {
	users, err := db.AddTable("users")
	if err != nil {
		return err
	}
	if err := users.AddColumn("id", Integer, PrimaryKey()); err != nil {
		return err
	}
	if err := users.AddColumn("name", String, Unique(), Keyword()); err != nil {
		return err
	}
	if err := users.AddColumn("active", Bool); err != nil {
		return err
	}
	return users.AddColumn("score", Float)
}

func startUsers(t *testing.T, log *logging.Logging) (*Database, *Table) {
	t.Helper()
	db := New("test", "", SchemaFunc(userSchema), log)
	db.UseMemory = true
	require.NoError(t, db.Start(context.Background()))
	t.Cleanup(func() { _ = db.Stop() })

	users, ok := db.GetTable("users")
	require.True(t, ok)
	return db, users
}

func user(t *Table, name string, active bool, score float64) *Data {
	return t.NewData().Set("name", name).Set("active", active).Set("score", score)
}

func TestColumnList(t *testing.T) {
	tbl := NewTable("test", nil, nil)
	require.NoError(t, tbl.AddColumn("testid", Integer))
	require.NoError(t, tbl.AddColumn("testid", String), "duplicate names are ignored")
	require.NoError(t, tbl.AddColumn("id", Integer, PrimaryKey()))
	require.NoError(t, tbl.AddColumn("label", String, Unique()))

	assert.Equal(t, []string{`"testid" INTEGER`, `"id" INTEGER PRIMARY KEY`, `"label" TEXT`}, tbl.ColumnList())
	assert.Equal(t, []string{"label"}, tbl.UniqueList())
	assert.Equal(t, []string{"testid", "label"}, tbl.Names())
}

func TestAddColumn_InvalidIdentifier(t *testing.T) {
	tbl := NewTable("test", nil, nil)
	err := tbl.AddColumn(`name"; DROP TABLE x; --`, String)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	assert.Empty(t, tbl.Columns())
}

func TestDropColumn(t *testing.T) {
	tbl := NewTable("test", nil, nil)
	require.NoError(t, tbl.AddColumn("id", Integer, PrimaryKey()))
	require.NoError(t, tbl.AddColumn("name", String, Keyword()))

	assert.Error(t, tbl.DropColumn("missing"))
	assert.Error(t, tbl.DropColumn("id"))

	require.NoError(t, tbl.DropColumn("name"))
	assert.Empty(t, tbl.Keyword)
	assert.Empty(t, tbl.Names())
	assert.Equal(t, []string{"name"}, tbl.Dropped())
}

func TestNewData_ZeroValues(t *testing.T) {
	tbl := NewTable("test", nil, nil)
	require.NoError(t, tbl.AddColumn("n", Integer))
	require.NoError(t, tbl.AddColumn("s", String))
	require.NoError(t, tbl.AddColumn("b", Bool))

	d := tbl.NewData()
	assert.Equal(t, []string{"n", "s", "b"}, d.Keys())
	assert.Equal(t, int64(0), d.Int("n"))
	assert.Equal(t, "", d.String("s"))
	assert.False(t, d.Bool("b"))
}

func TestSelectInterval(t *testing.T) {
	tests := []struct {
		count, want int
	}{
		{0, 0},
		{99, 0},
		{100, 1},
		{250, 2},
		{10000, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SelectInterval(tt.count), "count %d", tt.count)
	}
}

func TestConnect_Validation(t *testing.T) {
	ctx := context.Background()

	assert.Error(t, NewSQLite("", "x.db", nil).Connect(ctx))
	assert.Error(t, NewSQLite("test", "", nil).Connect(ctx))

	s := NewSQLite("test", "", nil)
	assert.False(t, s.IsConnected())
	assert.NoError(t, s.Disconnect(), "disconnect without connection is a no-op")
	assert.Equal(t, -1, s.Count(ctx, "users"))
	assert.Equal(t, -1, s.Insert(ctx, "users", []string{"name"}, NewData().Set("name", "x")))
}

func TestSQLite_PrepareInsertSelect(t *testing.T) {
	ctx := context.Background()
	s := memorySQL(t, nil)

	cols := []Column{
		{Name: "id", Type: Integer, PrimaryKey: true},
		{Name: "name", Type: String, Unique: true},
		{Name: "age", Type: Integer},
	}
	require.NoError(t, s.PrepareTable(ctx, "people", cols, []string{"name"}))
	assert.True(t, s.CheckTable(ctx, "people"))
	assert.False(t, s.CheckTable(ctx, "animals"))
	require.NoError(t, s.PrepareTable(ctx, "people", cols, []string{"name"}), "existing table is left alone")

	names := []string{"name", "age"}
	assert.Equal(t, 1, s.Insert(ctx, "people", names, NewData().Set("name", "ada").Set("age", 36)))
	assert.Equal(t, -1, s.Insert(ctx, "people", names, NewData().Set("name", "ada").Set("age", 1)), "unique violation")
	assert.Equal(t, 2, s.Insert(ctx, "people", names,
		NewData().Set("name", "ada").Set("age", 2),
		NewData().Set("name", "bob").Set("age", 40),
		NewData().Set("name", "cyd").Set("age", 50),
	), "multi-row insert skips duplicates")
	assert.Equal(t, 3, s.Count(ctx, "people"))

	rows, err := s.Select(ctx, "people", `"age" > ?`, []string{"name"}, 38)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"bob"}, {"cyd"}}, rows)

	assert.True(t, s.Update(ctx, "people", []string{"age"}, NewData().Set("age", 37), `"name" = ?`, "ada"))
	rows, err = s.Select(ctx, "people", `"name" = ?`, []string{"age"}, "ada")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(37)}}, rows)

	scheme, err := s.Scheme(ctx, "people")
	require.NoError(t, err)
	assert.Equal(t, []SchemeColumn{{"id", "INTEGER"}, {"name", "TEXT"}, {"age", "INTEGER"}}, scheme)
}

func TestSQLite_InvalidIdentifiers(t *testing.T) {
	ctx := context.Background()
	s := memorySQL(t, nil)

	err := s.PrepareTable(ctx, "bad table", []Column{{Name: "a", Type: String}}, nil)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	assert.Equal(t, -1, s.Insert(ctx, "t", []string{`a" OR 1=1`}, NewData().Set(`a" OR 1=1`, 1)))

	_, err = s.Select(ctx, "t; DROP TABLE t", "", nil)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	assert.ErrorIs(t, s.RenameTable(ctx, "a", "b-c"), ErrInvalidIdentifier)
}

func TestSQLite_RollbackWithoutChanges(t *testing.T) {
	ctx := context.Background()
	s := NewSQLite("test", "", nil)
	s.UseMemory = true
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.PrepareTable(ctx, "t", []Column{{Name: "a", Type: String}}, nil))
	assert.Equal(t, 0, s.Insert(ctx, "t", []string{"a"}))
	require.NoError(t, s.Disconnect())
	assert.False(t, s.IsConnected())

	// The lock was released: a second connect does not block.
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Disconnect())
}

func TestDatabase_StoreLoad(t *testing.T) {
	ctx := context.Background()
	log, mem := newLog(t)
	db, users := startUsers(t, log)

	assert.Equal(t, []string{"users"}, db.Tables())
	assert.Equal(t, 0, users.Check(ctx))

	require.NoError(t, users.Add(user(users, "ada", true, 1.5)))
	require.NoError(t, users.Add(user(users, "bob", false, 2.5)))
	require.True(t, db.Store(ctx))
	assert.Equal(t, 2, users.Check(ctx))

	n, err := users.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ada, ok := users.Lookup("ada")
	require.True(t, ok)
	assert.True(t, ada.Bool("active"))
	assert.Equal(t, 1.5, ada.Float("score"))
	assert.NotZero(t, ada.Int("id"))

	bob, ok := users.Lookup("bob")
	require.True(t, ok)
	active, _ := bob.Get("active")
	assert.Equal(t, false, active, "BOOLEAN columns come back as bool")

	db.Info(ctx)
	log.Flush()
	assert.Contains(t, mem.Contents(logging.LevelInform), "Table users: 2 entries")
	assert.Positive(t, mem.Clears(), "load clears the progress line")
}

func TestTable_LoadReportsOneProgress(t *testing.T) {
	ctx := context.Background()
	log, mem := newLog(t)
	_, users := startUsers(t, log)

	for _, name := range []string{"ada", "bob", "cy"} {
		require.NoError(t, users.Add(user(users, name, true, 1)))
	}
	require.Equal(t, 3, users.Store(ctx))

	n, err := users.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	log.Flush()
	finished := 0
	for _, m := range mem.Messages() {
		if m.Level == logging.LevelProgress && m.Counter == m.Limit {
			finished++
		}
	}
	assert.Equal(t, 1, finished)

	// A plain Select still reports its own progress.
	_, err = users.Select(ctx, "", nil)
	require.NoError(t, err)
	log.Flush()
	finished = 0
	for _, m := range mem.Messages() {
		if m.Level == logging.LevelProgress && m.Counter == m.Limit {
			finished++
		}
	}
	assert.Equal(t, 2, finished)
}

func TestTable_LookupIntegerKeys(t *testing.T) {
	tbl := NewTable("codes", nil, nil)
	require.NoError(t, tbl.AddColumn("code", Integer, Keyword()))
	require.NoError(t, tbl.AddColumn("label", String))

	require.NoError(t, tbl.Add(tbl.NewData().Set("code", int32(7)).Set("label", "seven")))
	require.NoError(t, tbl.Add(tbl.NewData().Set("code", int64(8)).Set("label", "eight")))
	require.NoError(t, tbl.Add(tbl.NewData().Set("code", []byte("nine")).Set("label", "nine")))

	for _, key := range []any{7, int8(7), int64(7), uint(7), uint16(7)} {
		d, ok := tbl.Lookup(key)
		require.True(t, ok, "key %T", key)
		assert.Equal(t, "seven", d.String("label"))
	}
	_, ok := tbl.Lookup(8)
	assert.True(t, ok)
	_, ok = tbl.Lookup("nine")
	assert.True(t, ok)
	_, ok = tbl.Lookup([]byte("nine"))
	assert.True(t, ok)
	_, ok = tbl.Lookup("7")
	assert.False(t, ok)
}

func TestTable_SelectWarnsOnEmpty(t *testing.T) {
	ctx := context.Background()
	log, mem := newLog(t)
	_, users := startUsers(t, log)

	rows, err := users.Select(ctx, `"name" = ?`, nil, "nobody")
	require.NoError(t, err)
	assert.Empty(t, rows)

	users.SuppressWarnings = true
	_, err = users.Select(ctx, "", nil)
	require.NoError(t, err)

	log.Flush()
	assert.Equal(t, []string{"No data!"}, mem.Contents(logging.LevelWarn))
}

func TestTable_Update(t *testing.T) {
	ctx := context.Background()
	_, users := startUsers(t, nil)

	require.Equal(t, 1, users.Store(ctx, user(users, "ada", false, 0)))
	require.True(t, users.Update(ctx, user(users, "ada", true, 9), `"name" = ?`, "ada"))

	rows, err := users.Select(ctx, `"name" = ?`, []string{"active", "score"}, "ada")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Bool("active"))
	assert.Equal(t, 9.0, rows[0].Float("score"))
}

func TestTable_AddRequiresKeyword(t *testing.T) {
	_, users := startUsers(t, nil)
	assert.Error(t, users.Add(NewData().Set("score", 1.0)))
	assert.Zero(t, users.DataCount())

	require.NoError(t, users.Add(user(users, "x", false, 0)))
	assert.Equal(t, 1, users.DataCount())
	users.Clear()
	assert.Zero(t, users.DataCount())
	_, ok := users.Lookup("x")
	assert.False(t, ok)
}

func TestTable_CheckScheme(t *testing.T) {
	ctx := context.Background()
	log, mem := newLog(t)
	_, users := startUsers(t, log)

	require.NoError(t, users.CheckScheme(ctx))

	require.NoError(t, users.AddColumn("email", String))
	err := users.CheckScheme(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "email" is missing`)

	log.Flush()
	assert.Contains(t, mem.Contents(logging.LevelError), "Scheme of table users does not match!")
}

func TestTable_InitRenamesOldTable(t *testing.T) {
	ctx := context.Background()
	s := memorySQL(t, nil)
	cols := []Column{{Name: "a", Type: String}}
	require.NoError(t, s.PrepareTable(ctx, "legacy", cols, nil))
	require.Equal(t, 1, s.Insert(ctx, "legacy", []string{"a"}, NewData().Set("a", "kept")))

	tbl := NewTable("current", s, nil)
	tbl.OldName = "legacy"
	require.NoError(t, tbl.AddColumn("a", String))

	n, err := tbl.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, s.CheckTable(ctx, "current"))
	assert.False(t, s.CheckTable(ctx, "legacy"))
}

func TestDatabase_StartValidation(t *testing.T) {
	db := New("", "", nil, nil)
	err := db.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "filename is required")
}

func TestDatabase_FileRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/test.db"

	db := New("test", path, SchemaFunc(userSchema), nil)
	require.NoError(t, db.Start(ctx))
	users, _ := db.GetTable("users")
	require.Equal(t, 1, users.Store(ctx, user(users, "ada", true, 1)))
	require.NoError(t, db.Stop())

	db = New("test", path, SchemaFunc(userSchema), nil)
	require.NoError(t, db.Start(ctx))
	defer db.Stop()
	users, _ = db.GetTable("users")
	assert.Equal(t, 1, users.Check(ctx), "commit on disconnect persisted the row")
}

func TestVersions(t *testing.T) {
	ctx := context.Background()
	db, _ := startUsers(t, nil)

	v, err := db.Version(ctx, "users")
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, db.SetVersion(ctx, "users", 2))
	require.NoError(t, db.SetVersion(ctx, "users", 3))
	v, err = db.Version(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	assert.ErrorIs(t, db.SetVersion(ctx, "bad name", 1), ErrInvalidIdentifier)
}
