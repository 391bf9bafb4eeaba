package lang

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// SourceFile is one module that declares a translation domain.
type SourceFile struct {
	Path      string
	ClassName string
	Domain    string
	Pot       string
}

// Language is the catalog location of one domain in one language.
type Language struct {
	Name string
	Path string
	Po   string
	Mo   string
}

// Domain groups the files whose strings share one catalog.
type Domain struct {
	Name      string
	Pot       string
	Files     []*SourceFile
	Languages []Language
}

// scanLimit bounds the files read concurrently.
const scanLimit = 8

// Parse walks the package directory and collects every matching file that
// declares a domain.
func (p *Parser) Parse(ctx context.Context) error {
	dir := p.packageDir()
	p.inform("Check", dir)

	candidates, err := p.walk(dir)
	if err != nil {
		return err
	}

	attr, err := domainPattern(p.opts.DomainAttribute)
	if err != nil {
		return fmt.Errorf("lang: parse: %w", err)
	}

	results := make([]*SourceFile, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanLimit)
	for i, path := range candidates {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := p.readFile(dir, path, attr)
			if err != nil {
				return err
			}
			results[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("lang: parse: %w", err)
	}

	p.files = p.files[:0]
	for _, f := range results {
		if f != nil {
			p.files = append(p.files, f)
		}
	}
	p.group()

	p.inform("Files", strconv.Itoa(len(p.files)))
	p.inform("Domain", strconv.Itoa(len(p.domains)))
	return nil
}

// walk returns the files under dir matching Include and not Exclude, in
// lexical order.
func (p *Parser) walk(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matchAny(p.opts.Include, rel) && !matchAny(p.opts.Exclude, rel) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lang: walk %s: %w", dir, err)
	}
	return out, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// domainPattern matches `<attr> = "name"` at the start of a line.
func domainPattern(attr string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?m)^\s*` + regexp.QuoteMeta(attr) + `\s*(?::\s*\w+\s*)?=\s*["']([^"']+)["']`)
}

// readFile returns nil for files that declare no domain or fall outside
// the module filter.
func (p *Parser) readFile(dir, path string, attr *regexp.Regexp) (*SourceFile, error) {
	className := p.className(dir, path)
	if p.opts.Filter != "" && !strings.HasPrefix(className, p.opts.Filter) {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	m := attr.FindSubmatch(data)
	if m == nil {
		return nil, nil
	}
	domain := string(m[1])
	p.debug("Parse", path)

	return &SourceFile{
		Path:      path,
		ClassName: className,
		Domain:    domain,
		Pot:       filepath.Join(p.opts.RootPath, ".locales", domain, "_"+className+".pot"),
	}, nil
}

// className renders path as a dotted module name below Module. A package
// __init__ file names the package itself.
func (p *Parser) className(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))

	parts := []string{p.opts.Module}
	for _, part := range strings.Split(rel, "/") {
		if part == "__init__" || part == "" || part == "." {
			continue
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ".")
}

func (p *Parser) group() {
	byName := make(map[string]*Domain)
	p.domains = p.domains[:0]
	for _, f := range p.files {
		d, ok := byName[f.Domain]
		if !ok {
			d = p.newDomain(f.Domain)
			byName[f.Domain] = d
			p.domains = append(p.domains, d)
		}
		d.Files = append(d.Files, f)
	}
	sort.Slice(p.domains, func(i, j int) bool { return p.domains[i].Name < p.domains[j].Name })
}

func (p *Parser) newDomain(name string) *Domain {
	d := &Domain{
		Name: name,
		Pot:  filepath.Join(p.opts.RootPath, ".locales", name, name+".pot"),
	}
	for _, l := range p.opts.Languages {
		path := filepath.Join(p.opts.Locales, l, "LC_MESSAGES")
		d.Languages = append(d.Languages, Language{
			Name: l,
			Path: path,
			Po:   filepath.Join(path, name+".po"),
			Mo:   filepath.Join(path, name+".mo"),
		})
	}
	return d
}
