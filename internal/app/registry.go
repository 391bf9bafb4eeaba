// Package app wires a command line application out of modules. A Module
// names a command and loads the workers that implement it; the Registry maps
// command names to modules; the Console resolves a command and drives the
// start, load, execute and stop sequence.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/spf13/pflag"

	"github.com/laburec/bbutil/internal/config"
	"github.com/laburec/bbutil/internal/logging"
	"github.com/laburec/bbutil/internal/worker"
)

// ErrUnknownCommand is returned when no registered module matches.
var ErrUnknownCommand = errors.New("app: unknown command")

// Context carries the services a module needs. Each Console run gets its
// own Context, so independent applications can coexist in one process.
type Context struct {
	Log      *logging.Logging
	Config   *config.Config
	Registry *Registry

	// Flags holds the command line flags of the running command, including
	// the ones the module declared.
	Flags *pflag.FlagSet
	Args  []string
	Out   io.Writer
}

// Stdout returns Out, or os.Stdout when unset.
func (c *Context) Stdout() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

// Module is one command.
type Module struct {
	ID          string
	Description string

	// Flags declares command specific flags. Optional.
	Flags func(fs *pflag.FlagSet)

	// Load builds the workers that run the command, in order.
	Load func(ctx *Context) ([]*worker.Worker, error)
}

// Registry maps command names to modules.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Register adds modules. An empty ID, a missing Load or a name that is
// already taken is an error; nothing after the failing module is added.
func (r *Registry) Register(mods ...*Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.modules == nil {
		r.modules = make(map[string]*Module)
	}

	for _, m := range mods {
		switch {
		case m == nil || m.ID == "":
			return errors.New("app: register: module without id")
		case m.Load == nil:
			return fmt.Errorf("app: register %s: module has no loader", m.ID)
		}
		if _, ok := r.modules[m.ID]; ok {
			return fmt.Errorf("app: register %s: duplicate command", m.ID)
		}
		r.modules[m.ID] = m
	}
	return nil
}

// Has reports whether command is registered.
func (r *Registry) Has(command string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modules[command]
	return ok
}

// Get returns the module registered for command.
func (r *Registry) Get(command string) (*Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[command]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	return m, nil
}

// Commands returns the registered command names, sorted.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.modules))
	for id := range r.modules {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Modules returns the registered modules sorted by command name.
func (r *Registry) Modules() []*Module {
	ids := r.Commands()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Module, len(ids))
	for i, id := range ids {
		out[i] = r.modules[id]
	}
	return out
}
