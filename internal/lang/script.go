package lang

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// ScriptPath returns path with the platform script extension, .cmd on
// Windows and .sh elsewhere, unless it already has one.
func (p *Parser) ScriptPath(path string) string {
	if filepath.Ext(path) != "" {
		return path
	}
	if p.opts.Windows {
		return path + ".cmd"
	}
	return path + ".sh"
}

// ScriptLines renders the full script: header, directory setup and the
// accumulated command lines.
func (p *Parser) ScriptLines(path string) []string {
	var out []string
	if strings.EqualFold(filepath.Ext(path), ".cmd") {
		out = append(out, "@echo off")
	} else {
		out = append(out, "#!/bin/bash")
		seen := make(map[string]bool)
		for _, d := range p.domains {
			dir := filepath.Dir(d.Pot)
			if !seen[dir] {
				seen[dir] = true
				out = append(out, "mkdir -p "+dir)
			}
		}
	}
	return append(out, p.lines...)
}

// WriteScript writes the script and makes it executable. It returns the
// path written.
func (p *Parser) WriteScript(path string) (string, error) {
	path = p.ScriptPath(path)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("lang: create %s: %w", dir, err)
		}
	}

	content := strings.Join(p.ScriptLines(path), "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return "", fmt.Errorf("lang: write script: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o755); err != nil {
		return "", fmt.Errorf("lang: chmod script: %w", err)
	}

	p.inform("Script", path)
	return path, nil
}

// Run executes a written script in the root directory. Each output line is
// passed to the logger as a raw message.
func (p *Parser) Run(ctx context.Context, path string) error {
	var cmd *exec.Cmd
	if strings.EqualFold(filepath.Ext(path), ".cmd") {
		cmd = exec.CommandContext(ctx, "cmd", "/C", path)
	} else {
		cmd = exec.CommandContext(ctx, "bash", path)
	}
	cmd.Dir = p.opts.RootPath

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("lang: run %s: %w", path, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("lang: run %s: %w", path, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("lang: run %s: %w", path, err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.stream(stdout, nil)
	}()
	go func() {
		defer wg.Done()
		p.stream(stderr, func(line string) {
			mu.Lock()
			errs = append(errs, line)
			mu.Unlock()
		})
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		msg := strings.TrimSpace(strings.Join(errs, "\n"))
		if msg == "" {
			return fmt.Errorf("lang: run %s: %w", path, err)
		}
		return fmt.Errorf("lang: run %s: %s: %w", path, msg, err)
	}
	return nil
}

func (p *Parser) stream(r io.Reader, collect func(string)) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if p.log != nil {
			p.log.Raw(line)
		}
		if collect != nil {
			collect(line)
		}
	}
}
