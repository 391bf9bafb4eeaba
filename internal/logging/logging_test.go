package logging

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// failingWriter fails Open or Close on demand.
type failingWriter struct {
	*Memory
	openErr  error
	closeErr error
}

func (w *failingWriter) Open() error {
	if w.openErr != nil {
		return w.openErr
	}
	return w.Memory.Open()
}

func (w *failingWriter) Close() error {
	_ = w.Memory.Close()
	return w.closeErr
}

func TestDefaultIndex(t *testing.T) {
	idx := DefaultIndex()

	tests := []struct {
		level   int
		allowed []Level
		denied  []Level
	}{
		{0, []Level{LevelInform, LevelWarn, LevelError, LevelException, LevelTimer, LevelProgress}, []Level{LevelDebug1, LevelDebug2, LevelDebug3}},
		{1, []Level{LevelInform, LevelDebug1}, []Level{LevelDebug2, LevelDebug3}},
		{2, []Level{LevelDebug1, LevelDebug2}, []Level{LevelDebug3}},
		{3, []Level{LevelDebug1, LevelDebug2, LevelDebug3, LevelTimer}, nil},
	}

	for _, tt := range tests {
		for _, l := range tt.allowed {
			assert.True(t, idx.Allows(tt.level, l), "level %d should allow %s", tt.level, l)
		}
		for _, l := range tt.denied {
			assert.False(t, idx.Allows(tt.level, l), "level %d should deny %s", tt.level, l)
		}
	}
	assert.False(t, idx.Allows(4, LevelInform))
}

func TestAppend_FiltersByVerbosity(t *testing.T) {
	for level := 0; level <= MaxVerbosity; level++ {
		log := New(WithApp("TEST"), WithLevel(level))
		w := NewMemory("mem")
		log.Register(w)
		require.NoError(t, log.Open())

		log.Inform("tag", "inform")
		log.Debug1("tag", "debug1")
		log.Debug2("tag", "debug2")
		log.Debug3("tag", "debug3")
		log.Warn("tag", "warn")

		require.NoError(t, log.Close())

		var got []Level
		for _, m := range w.Messages() {
			got = append(got, m.Level)
			assert.Equal(t, "TEST", m.App)
		}

		want := []Level{LevelInform}
		for i, l := range []Level{LevelDebug1, LevelDebug2, LevelDebug3} {
			if level > i {
				want = append(want, l)
			}
		}
		want = append(want, LevelWarn)
		assert.Equal(t, want, got, "verbosity %d", level)
	}
}

func TestAppend_RawBypassesFilter(t *testing.T) {
	log := New(WithIndex(Index{0: {LevelError}}))
	w := NewMemory("mem")
	log.Register(w)
	require.NoError(t, log.Open())

	log.Inform("tag", "dropped")
	log.Raw("raw line")
	log.Flush()

	msgs := w.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Raw)
	assert.Equal(t, "raw line", msgs[0].Content)
	require.NoError(t, log.Close())
}

func TestDebug3_FilteredAtAppend(t *testing.T) {
	log := New(WithLevel(2), WithThreaded(true))
	w := NewMemory("test", LevelInform, LevelDebug1, LevelDebug2)
	log.Register(w)
	require.NoError(t, log.Open())

	log.Debug3("tag", "never")
	assert.Equal(t, 0, log.Pending())

	require.NoError(t, log.Close())
	assert.Empty(t, w.Messages())
}

func TestError_ReachesOnlyAcceptingWriter(t *testing.T) {
	log := New(WithThreaded(true))
	all := NewMemory("all", LevelInform)
	errs := NewMemory("errors", LevelError)
	log.Register(all)
	log.Register(errs)
	require.NoError(t, log.Open())

	log.Error("x")

	require.NoError(t, log.Close())
	assert.Empty(t, all.Messages())
	assert.Equal(t, []string{"x"}, errs.Contents(LevelError))
}

func TestOpen(t *testing.T) {
	t.Run("no writers", func(t *testing.T) {
		log := New()
		assert.ErrorIs(t, log.Open(), ErrNoWriters)
		assert.False(t, log.Running())
	})

	t.Run("installs default index", func(t *testing.T) {
		log := New()
		log.Register(NewMemory("mem"))
		require.NoError(t, log.Open())
		assert.Equal(t, DefaultIndex(), log.index)
		require.NoError(t, log.Close())
	})

	t.Run("writer failure aborts", func(t *testing.T) {
		log := New()
		first := &failingWriter{Memory: NewMemory("first"), openErr: errors.New("boom")}
		second := NewMemory("second")
		log.Register(first)
		log.Register(second)

		err := log.Open()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "first")
		assert.False(t, second.IsOpen())
		assert.False(t, log.Running())
	})

	t.Run("writer failure closes opened writers", func(t *testing.T) {
		log := New()
		first := NewMemory("first")
		second := NewMemory("second")
		bad := &failingWriter{Memory: NewMemory("bad"), openErr: errors.New("boom")}
		log.Register(first)
		log.Register(second)
		log.Register(bad)

		err := log.Open()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad")
		assert.False(t, first.IsOpen())
		assert.False(t, second.IsOpen())
		assert.False(t, log.Running())

		// The logger can be opened again once the writer recovers.
		bad.openErr = nil
		require.NoError(t, log.Open())
		assert.True(t, first.IsOpen())
		require.NoError(t, log.Close())
	})

	t.Run("second open while running", func(t *testing.T) {
		log := New(WithThreaded(true))
		log.Register(NewMemory("mem"))
		require.NoError(t, log.Open())
		assert.ErrorIs(t, log.Open(), ErrRunning)
		assert.True(t, log.Running())
		require.NoError(t, log.Close())
	})
}

func TestClose(t *testing.T) {
	t.Run("drains queue", func(t *testing.T) {
		log := New(WithThreaded(true))
		w := NewMemory("mem")
		log.Register(w)
		require.NoError(t, log.Open())

		for i := 0; i < 500; i++ {
			log.Inform("tag", "line")
		}
		require.NoError(t, log.Close())
		assert.Len(t, w.Messages(), 500)
		assert.False(t, w.IsOpen())
	})

	t.Run("not running", func(t *testing.T) {
		assert.NoError(t, New().Close())
	})

	t.Run("first failure returned, all writers closed", func(t *testing.T) {
		log := New()
		bad := &failingWriter{Memory: NewMemory("bad"), closeErr: errors.New("disk gone")}
		good := NewMemory("good")
		log.Register(bad)
		log.Register(good)
		require.NoError(t, log.Open())

		err := log.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk gone")
		assert.False(t, good.IsOpen())
	})
}

func TestFlush_NonThreaded(t *testing.T) {
	log := New()
	w := NewMemory("mem")
	log.Register(w)
	require.NoError(t, log.Open())

	log.Inform("a", "1")
	log.Inform("b", "2")
	assert.Equal(t, 2, log.Pending())
	assert.Empty(t, w.Messages())

	log.Flush()
	assert.Equal(t, 0, log.Pending())
	assert.Equal(t, []string{"1", "2"}, w.Contents(LevelInform))
	require.NoError(t, log.Close())
}

func TestException(t *testing.T) {
	log := New()
	w := NewMemory("mem")
	log.Register(w)
	require.NoError(t, log.Open())

	log.Exception(errors.New("bad things"))
	log.Exception(nil)
	log.Flush()

	got := w.Contents(LevelException)
	require.Len(t, got, 2)
	assert.Equal(t, "An exception of type *errors.errorString occurred.", got[0])
	assert.Equal(t, "Arguments:\nbad things", got[1])
	require.NoError(t, log.Close())
}

func TestTraceback(t *testing.T) {
	log := New(WithIndex(Index{0: {LevelError}}))
	w := NewMemory("mem", LevelError)
	log.Register(w)
	require.NoError(t, log.Open())

	log.Traceback(errors.New("oops"))
	log.Flush()

	assert.Equal(t, []string{"Uncaught exception", "Type:  *errors.errorString", "Value: oops"}, w.Contents(LevelError))

	var raw []string
	for _, m := range w.Messages() {
		if m.Raw {
			raw = append(raw, m.Content)
		}
	}
	require.NotEmpty(t, raw)
	assert.True(t, strings.HasPrefix(raw[0], "goroutine "))
	require.NoError(t, log.Close())
}

func TestClear_InOrder(t *testing.T) {
	log := New()
	w := NewMemory("mem")
	log.Register(w)
	require.NoError(t, log.Open())

	log.Inform("tag", "before")
	log.Clear()
	assert.Equal(t, 0, w.Clears())

	log.Flush()
	assert.Equal(t, 1, w.Clears())
	assert.Len(t, w.Messages(), 1)
	require.NoError(t, log.Close())
}

func TestWriterLookup(t *testing.T) {
	log := New()
	w := NewMemory("console")
	log.Register(w)

	assert.Same(t, w, log.Writer("console"))
	assert.Nil(t, log.Writer("file"))
}

func TestMessageLine(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"full", Message{App: "APP", Level: LevelInform, Tag: "Tag", Content: "hello"}, "APP INFORM Tag: hello"},
		{"no tag", Message{App: "APP", Level: LevelError, Content: "bad"}, "APP ERROR: bad"},
		{"raw", Message{App: "APP", Raw: true, Content: "  exact"}, "  exact"},
		{"progress", Message{App: "APP", Level: LevelProgress, Counter: 5, Limit: 10, Value: 50}, "APP PROGRESS: 5/10 50.00%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.Line())
		})
	}
}
