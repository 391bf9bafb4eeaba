package logging

import "sync"

// Writer renders messages to a destination. Write errors are the writer's
// own concern; the dispatcher never sees them.
type Writer interface {
	Name() string
	Accepts(level Level) bool
	Open() error
	Close() error
	Write(m Message)
	Clear() error
}

// Filter is the per-writer category index. An empty filter accepts every
// category. Writers embed it to satisfy Accepts.
type Filter struct {
	Index []Level
}

// Accepts reports whether level is in the filter.
func (f Filter) Accepts(level Level) bool {
	if len(f.Index) == 0 {
		return true
	}
	return contains(f.Index, level)
}

// Memory is a Writer that keeps every delivered message in memory.
type Memory struct {
	Filter

	name string

	mu       sync.Mutex
	messages []Message
	clears   int
	opened   bool
}

// NewMemory returns a Memory writer accepting the given categories, or all
// categories when none are given.
func NewMemory(name string, index ...Level) *Memory {
	return &Memory{Filter: Filter{Index: index}, name: name}
}

func (w *Memory) Name() string { return w.name }

func (w *Memory) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opened = true
	return nil
}

func (w *Memory) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opened = false
	return nil
}

func (w *Memory) Write(m Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, m)
}

func (w *Memory) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clears++
	return nil
}

// Messages returns a copy of everything written so far.
func (w *Memory) Messages() []Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Message, len(w.messages))
	copy(out, w.messages)
	return out
}

// Contents returns the content of every written message of the given level.
func (w *Memory) Contents(level Level) []string {
	var out []string
	for _, m := range w.Messages() {
		if m.Level == level {
			out = append(out, m.Content)
		}
	}
	return out
}

// Clears returns how many times Clear was called.
func (w *Memory) Clears() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.clears
}

// IsOpen reports whether the writer is between Open and Close.
func (w *Memory) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.opened
}
