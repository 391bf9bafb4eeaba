package app

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

// Exit codes returned by Console.Execute.
const (
	ExitOK = iota
	ExitStart
	ExitLoad
	ExitWorker
	ExitStop
)

// Console runs one command through its lifecycle.
type Console struct {
	Registry *Registry

	// Start prepares shared resources before the module loads. Optional.
	Start func(ctx *Context) error
	// Stop releases them after every worker finished. Optional.
	Stop func(ctx *Context) error
}

// Resolve returns the module of the first argument that names a registered
// command.
func (c *Console) Resolve(args ...string) (*Module, error) {
	for _, arg := range args {
		if c.Registry.Has(arg) {
			return c.Registry.Get(arg)
		}
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: none given (want one of %s)", ErrUnknownCommand, strings.Join(c.Registry.Commands(), ", "))
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
}

// Execute resolves command and runs it:
//
//	start → load workers → execute each worker in order → stop → close log
//
// The result is one of the Exit codes. The first failing step decides it and
// nothing after it runs, so the logger stays open for the caller to report.
func (c *Console) Execute(ctx context.Context, actx *Context, command string) int {
	if actx.Registry == nil {
		actx.Registry = c.Registry
	}

	mod, err := c.Resolve(command)
	if err != nil {
		c.fail(actx, "Command is not known: "+command, err)
		return ExitStart
	}
	c.debug(actx, "Console", mod.ID)
	c.debug(actx, "Go", runtime.Version())

	if c.Start != nil {
		if err := c.Start(actx); err != nil {
			c.fail(actx, "Start failed!", err)
			return ExitStart
		}
	}

	workers, err := mod.Load(actx)
	if err != nil {
		c.fail(actx, "Unable to load "+mod.ID+"!", err)
		return ExitLoad
	}

	for _, w := range workers {
		if w.Log == nil {
			w.Log = actx.Log
		}
		if err := w.Execute(ctx); err != nil {
			// A failing worker logs its own error.
			if w.Aborted() {
				c.fail(actx, "Worker "+w.ID+" aborted!", nil)
			}
			return ExitWorker
		}
	}

	if c.Stop != nil {
		if err := c.Stop(actx); err != nil {
			c.fail(actx, "Stop failed!", err)
			return ExitStop
		}
	}

	if actx.Log != nil {
		if err := actx.Log.Close(); err != nil {
			return ExitStop
		}
	}
	return ExitOK
}

func (c *Console) fail(actx *Context, content string, err error) {
	if actx.Log == nil {
		return
	}
	actx.Log.Error(content)
	if err != nil {
		actx.Log.Exception(err)
	}
}

func (c *Console) debug(actx *Context, tag, content string) {
	if actx.Log != nil {
		actx.Log.Debug1(tag, content)
	}
}
