package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/laburec/bbutil/internal/logging"
)

// DefaultBuffer is the channel capacity between dispatcher and viewer.
const DefaultBuffer = 256

// Writer is a logging.Writer that hands messages to a bubbletea program.
// Once the buffer is full, Write blocks until the viewer catches up or
// detaches.
type Writer struct {
	logging.Filter

	mu     sync.RWMutex
	ch     chan tea.Msg
	closed bool

	detach     chan struct{}
	detachOnce sync.Once
}

// NewWriter returns a Writer accepting the given categories (all when empty).
func NewWriter(index ...logging.Level) *Writer {
	return &Writer{
		Filter: logging.Filter{Index: index},
		ch:     make(chan tea.Msg, DefaultBuffer),
		detach: make(chan struct{}),
	}
}

// Events is the channel consumed by the Model.
func (w *Writer) Events() <-chan tea.Msg {
	return w.ch
}

// Detach makes further writes drop instead of block. Run calls it when the
// viewer exits before the log is closed.
func (w *Writer) Detach() {
	w.detachOnce.Do(func() { close(w.detach) })
}

func (w *Writer) Name() string { return "tui" }

func (w *Writer) Open() error { return nil }

// Close closes the event channel; the Model quits once it drains.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
	return nil
}

func (w *Writer) Write(m logging.Message) {
	w.send(logMessageMsg(m))
}

func (w *Writer) Clear() error {
	w.send(clearMsg{})
	return nil
}

func (w *Writer) send(msg tea.Msg) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.ch <- msg:
	case <-w.detach:
	}
}
