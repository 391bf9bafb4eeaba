package file

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laburec/bbutil/internal/logging"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	t.Run("filename", func(t *testing.T) {
		w, err := New(Config{Filename: filepath.Join(dir, "a.log")})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "a.log"), w.Filename)
		assert.Equal(t, FormatText, w.Format)
	})

	t.Run("path and name", func(t *testing.T) {
		w, err := New(Config{Path: dir, Name: "app"})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "app.log"), w.Filename)
	})

	t.Run("append datetime", func(t *testing.T) {
		w, err := New(Config{Path: dir, Name: "app", AppendDatetime: true})
		require.NoError(t, err)
		base := filepath.Base(w.Filename)
		assert.True(t, strings.HasPrefix(base, "app-"))
		assert.Len(t, base, len("app-20060102-150405.log"))
	})

	t.Run("append datetime without name", func(t *testing.T) {
		_, err := New(Config{Path: dir, AppendDatetime: true})
		assert.ErrorIs(t, err, ErrNoLogname)
	})

	t.Run("nothing set", func(t *testing.T) {
		_, err := New(Config{})
		assert.ErrorIs(t, err, ErrNoFilename)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := New(Config{Filename: "x.log", Format: "xml"})
		assert.Error(t, err)
	})
}

func TestOpen_WithoutFilename(t *testing.T) {
	w := &Writer{}
	assert.ErrorIs(t, w.Open(), ErrNoFilename)
}

func TestWrite_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")
	w, err := New(Config{Filename: path})
	require.NoError(t, err)
	require.NoError(t, w.Open())

	w.Write(logging.Message{App: "TEST", Level: logging.LevelInform, Tag: "TAG", Content: "This is a test!"})
	w.Write(logging.Message{App: "TEST", Raw: true, Content: "raw content"})
	require.NoError(t, w.Close())

	assert.Equal(t, []string{"TEST INFORM TAG: This is a test!", "raw content"}, readLines(t, path))
}

func TestWrite_AppendData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0644))

	w, err := New(Config{Filename: path, AppendData: true})
	require.NoError(t, err)
	require.NoError(t, w.Open())
	w.Write(logging.Message{App: "A", Level: logging.LevelWarn, Content: "next"})
	require.NoError(t, w.Close())

	assert.Equal(t, []string{"existing", "A WARN: next"}, readLines(t, path))

	w, err = New(Config{Filename: path})
	require.NoError(t, err)
	require.NoError(t, w.Open())
	require.NoError(t, w.Close())
	assert.Empty(t, readLines(t, path))
}

func TestWrite_JSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.jsonl")
	w, err := New(Config{Filename: path, Format: FormatJSONL})
	require.NoError(t, err)
	require.NoError(t, w.Open())

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w.Write(logging.Message{Time: at, App: "APP", Level: logging.LevelProgress, Counter: 3, Limit: 4, Value: 75})
	require.NoError(t, w.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 1)

	var got logging.Message
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, logging.LevelProgress, got.Level)
	assert.Equal(t, 3, got.Counter)
	assert.Equal(t, 75.0, got.Value)
	assert.True(t, at.Equal(got.Time))
}

func TestWrite_NotOpen(t *testing.T) {
	w, err := New(Config{Filename: filepath.Join(t.TempDir(), "x.log")})
	require.NoError(t, err)
	var fallback bytes.Buffer
	w.Fallback = &fallback

	w.Write(logging.Message{Level: logging.LevelInform, Content: "lost"})
	assert.Contains(t, fallback.String(), ErrNotOpen.Error())
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotating.log")
	w, err := New(Config{Filename: path, MaxSizeMB: 1, MaxBackups: 2})
	require.NoError(t, err)
	require.NoError(t, w.Open())

	w.Write(logging.Message{App: "A", Level: logging.LevelInform, Content: "rotated"})
	require.NoError(t, w.Close())

	assert.Equal(t, []string{"A INFORM: rotated"}, readLines(t, path))
}

func TestDispatcherIntegration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := New(Config{Filename: path, Index: []logging.Level{logging.LevelError}})
	require.NoError(t, err)

	log := logging.New(logging.WithApp("APP"), logging.WithThreaded(true))
	log.Register(w)
	require.NoError(t, log.Open())

	log.Inform("Tag", "skipped")
	log.Error("kept")
	require.NoError(t, log.Close())

	assert.Equal(t, []string{"APP ERROR: kept"}, readLines(t, path))
}
