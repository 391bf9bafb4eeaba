// Package logging implements a buffered log dispatcher. Messages are
// filtered by a verbosity table when appended, queued in FIFO order and
// fanned out to registered writers, either by one background goroutine or
// by an explicit Flush.
package logging

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
)

var (
	// ErrNoWriters is returned by Open when no writer is registered.
	ErrNoWriters = errors.New("logging: no writers registered")
	// ErrRunning is returned by Open when the dispatcher is already open.
	ErrRunning = errors.New("logging: already running")
)

// Option configures a Logging.
type Option func(*Logging)

// WithApp sets the application name stamped on every message.
func WithApp(app string) Option {
	return func(l *Logging) { l.app = app }
}

// WithLevel sets the verbosity (0..3 with the default index).
func WithLevel(level int) Option {
	return func(l *Logging) { l.level = level }
}

// WithIndex replaces the verbosity table.
func WithIndex(idx Index) Option {
	return func(l *Logging) { l.index = idx }
}

// WithThreaded selects background delivery on one goroutine.
func WithThreaded(threaded bool) Option {
	return func(l *Logging) { l.threaded = threaded }
}

// Logging is the dispatcher. The zero value is not usable; call New.
type Logging struct {
	mu       sync.Mutex
	app      string
	level    int
	index    Index
	threaded bool
	queue    []Message
	writers  []Writer
	running  bool

	// deliver serializes fan-out so writers see messages in queue order.
	deliver sync.Mutex

	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}
}

// New returns a dispatcher configured by opts. Delivery does not start
// until Open.
func New(opts ...Option) *Logging {
	l := &Logging{notify: make(chan struct{}, 1)}
	l.Setup(opts...)
	return l
}

// Setup applies opts. It can be called again before or after Open; a
// changed threaded flag takes effect on the next Open.
func (l *Logging) Setup(opts ...Option) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, opt := range opts {
		opt(l)
	}
}

// Register appends w to the writer list. Registration order is delivery
// order; duplicates are not detected.
func (l *Logging) Register(w Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writers = append(l.writers, w)
}

// Writer returns the first registered writer with the given name.
func (l *Logging) Writer(name string) Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.writers {
		if w.Name() == name {
			return w
		}
	}
	return nil
}

// App returns the configured application name.
func (l *Logging) App() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.app
}

// Level returns the configured verbosity.
func (l *Logging) Level() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Running reports whether Open succeeded and Close has not been called.
func (l *Logging) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Pending returns the number of queued, undelivered messages.
func (l *Logging) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Append stamps m with the application name and queues it. Messages whose
// category is not allowed at the current verbosity are dropped unless raw.
func (l *Logging) Append(m Message) {
	l.mu.Lock()
	idx := l.index
	if len(idx) == 0 {
		idx = DefaultIndex()
	}
	if !m.Raw && !idx.Allows(l.level, m.Level) {
		l.mu.Unlock()
		return
	}
	m.App = l.app
	l.queue = append(l.queue, m)
	l.mu.Unlock()

	l.wake()
}

func (l *Logging) wake() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

func (l *Logging) Inform(tag, content string) { l.Append(NewMessage(LevelInform, tag, content)) }
func (l *Logging) Warn(tag, content string)   { l.Append(NewMessage(LevelWarn, tag, content)) }
func (l *Logging) Debug1(tag, content string) { l.Append(NewMessage(LevelDebug1, tag, content)) }
func (l *Logging) Debug2(tag, content string) { l.Append(NewMessage(LevelDebug2, tag, content)) }
func (l *Logging) Debug3(tag, content string) { l.Append(NewMessage(LevelDebug3, tag, content)) }

// Error queues an ERROR message without a tag.
func (l *Logging) Error(content string) { l.Append(NewMessage(LevelError, "", content)) }

// Raw queues content that bypasses category filtering and formatting.
func (l *Logging) Raw(content string) {
	m := NewMessage("", "", content)
	m.Raw = true
	l.Append(m)
}

// Exception reports err as two EXCEPTION messages: its type, then its text.
func (l *Logging) Exception(err error) {
	if err == nil {
		return
	}
	l.Append(NewMessage(LevelException, "", fmt.Sprintf("An exception of type %T occurred.", err)))
	l.Append(NewMessage(LevelException, "", "Arguments:\n"+err.Error()))
}

// Traceback reports err followed by the current goroutine stack, one raw
// message per stack line.
func (l *Logging) Traceback(err error) {
	l.Error("Uncaught exception")
	if err != nil {
		l.Error(fmt.Sprintf("Type:  %T", err))
		l.Error("Value: " + err.Error())
	}
	for _, line := range strings.Split(strings.TrimRight(string(debug.Stack()), "\n"), "\n") {
		l.Raw(line)
	}
}

// Clear asks every writer to reset its current line once all messages
// queued before the call have been delivered.
func (l *Logging) Clear() {
	l.mu.Lock()
	l.queue = append(l.queue, Message{clear: true})
	l.mu.Unlock()
	l.wake()
}

// Progress returns a Progress reporting through this dispatcher.
func (l *Logging) Progress(limit, interval int) *Progress {
	return NewProgress(limit, interval, l.Append)
}

// Timer starts a Timer reporting through this dispatcher.
func (l *Logging) Timer(content string) *Timer {
	return NewTimer(content, l.Append)
}

// Open installs the default index when none is set, opens every writer and
// starts delivery. The first writer failure aborts Open.
func (l *Logging) Open() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrRunning
	}
	if len(l.index) == 0 {
		l.index = DefaultIndex()
	}
	if len(l.writers) == 0 {
		l.mu.Unlock()
		return ErrNoWriters
	}
	writers := append([]Writer(nil), l.writers...)
	l.running = true
	l.mu.Unlock()

	for i, w := range writers {
		if err := w.Open(); err != nil {
			// Writers opened so far are closed again.
			for _, opened := range writers[:i] {
				_ = opened.Close()
			}
			l.mu.Lock()
			l.running = false
			l.mu.Unlock()
			return fmt.Errorf("logging: open writer %s: %w", w.Name(), err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.threaded {
		l.stop = make(chan struct{})
		l.done = make(chan struct{})
		go l.loop(l.stop, l.done)
	}
	return nil
}

// Close stops delivery, delivers whatever is still queued, then closes the
// writers in registration order. The first close failure is returned after
// every writer had its chance to close.
func (l *Logging) Close() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	stop, done := l.stop, l.done
	l.stop, l.done = nil, nil
	writers := append([]Writer(nil), l.writers...)
	l.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	} else {
		l.Flush()
	}

	var first error
	for _, w := range writers {
		if err := w.Close(); err != nil && first == nil {
			first = fmt.Errorf("logging: close writer %s: %w", w.Name(), err)
		}
	}
	return first
}

// Flush delivers every queued message synchronously. It is the delivery
// path for non-threaded dispatchers and is safe to call in threaded mode.
func (l *Logging) Flush() {
	l.deliver.Lock()
	defer l.deliver.Unlock()
	for {
		m, ok := l.pop()
		if !ok {
			return
		}
		l.process(m)
	}
}

func (l *Logging) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		l.Flush()
		select {
		case <-l.notify:
		case <-stop:
			l.Flush()
			return
		}
	}
}

func (l *Logging) pop() (Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return Message{}, false
	}
	m := l.queue[0]
	l.queue[0] = Message{}
	l.queue = l.queue[1:]
	return m, true
}

func (l *Logging) process(m Message) {
	l.mu.Lock()
	writers := append([]Writer(nil), l.writers...)
	l.mu.Unlock()

	for _, w := range writers {
		if m.clear {
			_ = w.Clear()
			continue
		}
		if !m.Raw && !w.Accepts(m.Level) {
			continue
		}
		w.Write(m)
	}
}
