package logging

// Level is a message category such as INFORM or DEBUG2.
type Level string

const (
	LevelInform    Level = "INFORM"
	LevelWarn      Level = "WARN"
	LevelError     Level = "ERROR"
	LevelException Level = "EXCEPTION"
	LevelTimer     Level = "TIMER"
	LevelProgress  Level = "PROGRESS"
	LevelDebug1    Level = "DEBUG1"
	LevelDebug2    Level = "DEBUG2"
	LevelDebug3    Level = "DEBUG3"
)

// MaxVerbosity is the highest verbosity understood by DefaultIndex.
const MaxVerbosity = 3

// AllLevels returns every known category in display order.
func AllLevels() []Level {
	return []Level{
		LevelInform,
		LevelDebug1,
		LevelDebug2,
		LevelDebug3,
		LevelWarn,
		LevelError,
		LevelException,
		LevelTimer,
		LevelProgress,
	}
}

// Index maps a verbosity to the categories allowed at that verbosity.
type Index map[int][]Level

// DefaultIndex returns the built-in verbosity table installed by Open when
// no index was configured.
func DefaultIndex() Index {
	base := []Level{LevelInform, LevelWarn, LevelError, LevelException, LevelTimer, LevelProgress}
	with := func(extra ...Level) []Level {
		out := make([]Level, 0, len(base)+len(extra))
		out = append(out, base...)
		return append(out, extra...)
	}
	return Index{
		0: with(),
		1: with(LevelDebug1),
		2: with(LevelDebug1, LevelDebug2),
		3: with(LevelDebug1, LevelDebug2, LevelDebug3),
	}
}

// Allows reports whether level is allowed at verbosity v.
func (idx Index) Allows(v int, level Level) bool {
	return contains(idx[v], level)
}

func contains(levels []Level, level Level) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}
