// Package worker runs a task through a fixed prepare → run → close
// lifecycle, inline or on one goroutine, with a one-shot abort.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/laburec/bbutil/internal/logging"
)

// ErrAborted is returned by Execute when an abort skipped the remaining phases.
var ErrAborted = errors.New("worker: aborted")

// Task is the user-supplied work.
type Task interface {
	Prepare(ctx context.Context) error
	Run(ctx context.Context) error
	Close(ctx context.Context) error
}

// Funcs adapts plain functions to Task. Nil phases succeed.
type Funcs struct {
	PrepareFunc func(ctx context.Context) error
	RunFunc     func(ctx context.Context) error
	CloseFunc   func(ctx context.Context) error
}

func (f Funcs) Prepare(ctx context.Context) error { return call(ctx, f.PrepareFunc) }
func (f Funcs) Run(ctx context.Context) error     { return call(ctx, f.RunFunc) }
func (f Funcs) Close(ctx context.Context) error   { return call(ctx, f.CloseFunc) }

func call(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Callbacks observe lifecycle transitions. Nil entries are skipped.
type Callbacks struct {
	Start   func()
	Stop    func()
	Prepare func()
	Run     func()
	Close   func()
	Abort   func()
}

func fire(fn func()) {
	if fn != nil {
		fn()
	}
}

type phase struct {
	name     string
	run      func(context.Context) error
	callback func()
}

// Worker executes one Task.
type Worker struct {
	ID        string
	Task      Task
	Callbacks Callbacks
	Threaded  bool
	Log       *logging.Logging

	mu      sync.Mutex
	abort   chan struct{}
	failed  bool
	aborted bool
	running bool
}

// New returns a Worker with a random ID.
func New(task Task, log *logging.Logging) *Worker {
	return &Worker{
		ID:    uuid.NewString(),
		Task:  task,
		Log:   log,
		abort: make(chan struct{}),
	}
}

// Failed reports whether the last Execute stopped on a failing phase.
func (w *Worker) Failed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failed
}

// Aborted reports whether the last Execute was cut short by an abort.
func (w *Worker) Aborted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.aborted
}

// Running reports whether Execute is in progress.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Abort trips the cancellation token. The next phase boundary observes it,
// skips the remaining phases and re-arms the token.
func (w *Worker) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensureToken()
	select {
	case <-w.abort:
	default:
		close(w.abort)
	}
}

func (w *Worker) ensureToken() {
	if w.abort == nil {
		w.abort = make(chan struct{})
	}
}

// takeAbort reports a pending abort and re-arms the token.
func (w *Worker) takeAbort(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensureToken()
	select {
	case <-w.abort:
		w.abort = make(chan struct{})
		return true
	default:
	}
	return ctx.Err() != nil
}

// Execute runs prepare, run and close in order. A failing phase marks the
// worker failed and stops the sequence, so close never runs after a failed
// run. With Threaded set the phases run on their own goroutine and Execute
// waits for it.
func (w *Worker) Execute(ctx context.Context) error {
	if w.Task == nil {
		return fmt.Errorf("worker %s: no task", w.ID)
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	if !w.Threaded {
		return w.execute(ctx)
	}

	done := make(chan error, 1)
	go func() {
		done <- w.execute(ctx)
	}()
	return <-done
}

// Start launches the phases on a new goroutine and returns a channel that
// receives the result once they finish.
func (w *Worker) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	if w.Task == nil {
		done <- fmt.Errorf("worker %s: no task", w.ID)
		return done
	}
	go func() {
		done <- w.execute(ctx)
	}()
	return done
}

func (w *Worker) execute(ctx context.Context) error {
	w.mu.Lock()
	w.running = true
	w.failed = false
	w.aborted = false
	w.mu.Unlock()

	fire(w.Callbacks.Start)
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		fire(w.Callbacks.Stop)
	}()

	phases := []phase{
		{"prepare", w.Task.Prepare, w.Callbacks.Prepare},
		{"run", w.Task.Run, w.Callbacks.Run},
		{"close", w.Task.Close, w.Callbacks.Close},
	}

	for _, p := range phases {
		if w.takeAbort(ctx) {
			w.mu.Lock()
			w.aborted = true
			w.mu.Unlock()
			fire(w.Callbacks.Abort)
			w.debug(fmt.Sprintf("%s: aborted before %s", w.ID, p.name))
			return ErrAborted
		}

		fire(p.callback)
		if err := p.run(ctx); err != nil {
			w.mu.Lock()
			w.failed = true
			w.mu.Unlock()
			if w.Log != nil {
				w.Log.Error(fmt.Sprintf("%s: %s failed!", w.ID, p.name))
				w.Log.Exception(err)
			}
			return fmt.Errorf("worker %s: %s: %w", w.ID, p.name, err)
		}
	}
	return nil
}

func (w *Worker) debug(content string) {
	if w.Log != nil {
		w.Log.Debug1("Worker", content)
	}
}
