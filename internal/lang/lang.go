// Package lang builds gettext maintenance scripts for a Python source tree.
//
// Parse walks the package, reads the translation domain each module
// declares and groups the modules by domain. The command generators then
// render the xgettext, msgcat, msgmerge and msgfmt invocations that extract,
// merge, update and compile the catalogs, and WriteScript stores them as a
// shell or batch script.
package lang

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/language"

	"github.com/laburec/bbutil/internal/logging"
)

// Defaults applied by Setup when the option is empty.
var (
	DefaultLanguages = []string{"en", "de"}
	DefaultInclude   = []string{"**/*.py"}
	DefaultExclude   = []string{"**/__pycache__/**"}
)

// DefaultDomainAttribute is the module attribute naming a file's domain.
const DefaultDomainAttribute = "__domain__"

// Options configure a Parser.
type Options struct {
	RootPath        string
	PackagePath     string
	Module          string
	Filter          string
	Windows         bool
	Script          string
	Locales         string
	Languages       []string
	Include         []string
	Exclude         []string
	DomainAttribute string
}

// Parser holds the discovered files and domains of one tree.
type Parser struct {
	opts Options
	ext  string
	log  *logging.Logging

	files   []*SourceFile
	domains []*Domain
	lines   []string
}

// Setup validates opts, fills in defaults and returns a Parser.
func Setup(opts Options, log *logging.Logging) (*Parser, error) {
	var errs []error
	if opts.Module == "" {
		errs = append(errs, errors.New("module name is required"))
	}
	if opts.Locales == "" {
		errs = append(errs, errors.New("locales path is required"))
	}

	if opts.RootPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("lang: setup: %w", err)
		}
		opts.RootPath = wd
	}
	if len(opts.Languages) == 0 {
		opts.Languages = DefaultLanguages
	}
	if len(opts.Include) == 0 {
		opts.Include = DefaultInclude
	}
	if len(opts.Exclude) == 0 {
		opts.Exclude = DefaultExclude
	}
	if opts.DomainAttribute == "" {
		opts.DomainAttribute = DefaultDomainAttribute
	}

	for _, l := range opts.Languages {
		if _, err := language.Parse(l); err != nil {
			errs = append(errs, fmt.Errorf("language %q: %w", l, err))
		}
	}
	for _, p := range append(append([]string(nil), opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("invalid pattern %q", p))
		}
	}

	if err := errors.Join(errs...); err != nil {
		if log != nil {
			log.Error(err.Error())
		}
		return nil, fmt.Errorf("lang: setup: %w", err)
	}

	p := &Parser{opts: opts, log: log}
	if opts.Windows {
		p.ext = ".exe"
	}
	return p, nil
}

// Options returns the effective options.
func (p *Parser) Options() Options {
	return p.opts
}

// Files returns the parsed source files.
func (p *Parser) Files() []*SourceFile {
	return append([]*SourceFile(nil), p.files...)
}

// Domains returns the domains sorted by name.
func (p *Parser) Domains() []*Domain {
	return append([]*Domain(nil), p.domains...)
}

// Domain returns the named domain.
func (p *Parser) Domain(name string) (*Domain, bool) {
	for _, d := range p.domains {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Lines returns the script lines accumulated by the generators.
func (p *Parser) Lines() []string {
	return append([]string(nil), p.lines...)
}

// Reset drops the accumulated script lines.
func (p *Parser) Reset() {
	p.lines = nil
}

func (p *Parser) packageDir() string {
	return filepath.Join(p.opts.RootPath, p.opts.PackagePath)
}

func (p *Parser) inform(tag, content string) {
	if p.log != nil {
		p.log.Inform(tag, content)
	}
}

func (p *Parser) debug(tag, content string) {
	if p.log != nil {
		p.log.Debug2(tag, content)
	}
}
