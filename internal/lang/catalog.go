package lang

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/leonelquinteros/gotext"

	"github.com/laburec/bbutil/internal/logging"
)

// IgnoreEnv disables translation when it is set, whatever its value.
const IgnoreEnv = "IGNORE_GETTEXT"

// DefaultLanguage is used by Translator.Setup when no language is given.
const DefaultLanguage = "en"

// TranslateFunc returns the translation of a message id.
type TranslateFunc func(msgid string) string

// Identity returns msgid unchanged.
func Identity(msgid string) string { return msgid }

// ErrCatalogNotFound is returned when no .mo or .po file exists for a
// domain and language.
var ErrCatalogNotFound = errors.New("lang: catalog not found")

type getter interface {
	Get(str string, vars ...interface{}) string
}

// Catalog is one gettext domain loaded for one language.
type Catalog struct {
	LocaleDir string
	Name      string
	Language  string
	UseDummy  bool
	Ignore    bool

	translate TranslateFunc
	loaded    bool
	callbacks []func(TranslateFunc)
}

// NewCatalog returns an unloaded catalog.
func NewCatalog(localeDir, name, language string, useDummy, ignore bool) *Catalog {
	return &Catalog{
		LocaleDir: localeDir,
		Name:      name,
		Language:  language,
		UseDummy:  useDummy,
		Ignore:    ignore,
	}
}

// Create loads the catalog file. It does nothing once loaded; Reset
// allows a reload. An ignored or dummy catalog translates to the message
// id itself.
func (c *Catalog) Create() error {
	if c.loaded {
		return nil
	}
	if c.Ignore {
		c.UseDummy = true
	}
	if c.UseDummy {
		c.translate = Identity
		c.loaded = true
		return nil
	}

	path, err := FindCatalog(c.LocaleDir, c.Language, c.Name)
	if err != nil {
		return err
	}

	var tr getter
	if filepath.Ext(path) == ".po" {
		po := gotext.NewPo()
		po.ParseFile(path)
		tr = po
	} else {
		mo := gotext.NewMo()
		mo.ParseFile(path)
		tr = mo
	}
	c.translate = func(msgid string) string { return tr.Get(msgid) }
	c.loaded = true
	return nil
}

// Reset marks the catalog for reloading on the next Create.
func (c *Catalog) Reset() {
	c.loaded = false
}

// Loaded reports whether Create succeeded.
func (c *Catalog) Loaded() bool { return c.loaded }

// Translate returns the current translate function, nil before Create.
func (c *Catalog) Translate() TranslateFunc { return c.translate }

// Get translates msgid, or returns it unchanged before Create.
func (c *Catalog) Get(msgid string) string {
	if c.translate == nil {
		return msgid
	}
	return c.translate(msgid)
}

// OnLoad registers fn to receive the translate function on every Load.
func (c *Catalog) OnLoad(fn func(TranslateFunc)) {
	if fn != nil {
		c.callbacks = append(c.callbacks, fn)
	}
}

// Load hands the translate function to every registered callback.
func (c *Catalog) Load() {
	for _, fn := range c.callbacks {
		fn(c.translate)
	}
}

// FindCatalog returns the catalog file of domain for language below
// localeDir. It looks for <lang>/LC_MESSAGES/<domain>.mo, then .po, first
// for the full language and then for its base ("de" for "de_DE.UTF-8").
func FindCatalog(localeDir, language, domain string) (string, error) {
	langs := []string{language}
	if base, _, ok := strings.Cut(language, "."); ok {
		langs = append(langs, base)
		language = base
	}
	if base, _, ok := strings.Cut(language, "_"); ok {
		langs = append(langs, base)
	}

	for _, l := range langs {
		for _, ext := range []string{".mo", ".po"} {
			path := filepath.Join(localeDir, l, "LC_MESSAGES", domain+ext)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%w: domain %q, language %q in %s", ErrCatalogNotFound, domain, language, localeDir)
}

// Translator manages the catalogs of an application and switches their
// language at runtime. It is safe for concurrent use.
type Translator struct {
	mu sync.Mutex

	localeDir string
	language  string
	useDummy  bool
	ignore    bool
	ready     bool
	catalogs  map[string]*Catalog

	log *logging.Logging
}

// NewTranslator returns a Translator. Translation is disabled when
// IgnoreEnv is set.
func NewTranslator(log *logging.Logging) *Translator {
	_, ignore := os.LookupEnv(IgnoreEnv)
	return &Translator{
		ignore:   ignore,
		catalogs: make(map[string]*Catalog),
		log:      log,
	}
}

// Setup points the translator at localeDir. The first language set sticks
// until SetLanguage; an empty language means DefaultLanguage. A missing
// directory switches to dummy translations. It reports whether the
// translator is ready.
func (t *Translator) Setup(localeDir, language string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ready = false
	if localeDir == "" {
		return false
	}
	if _, err := os.Stat(localeDir); err != nil {
		t.useDummy = true
		if t.log != nil {
			t.log.Warn("Lang", "locale directory missing, translations disabled: "+localeDir)
		}
		return false
	}

	t.localeDir = localeDir
	if t.language == "" {
		if language == "" {
			language = DefaultLanguage
		}
		t.language = language
	}
	if t.ignore {
		t.useDummy = true
	}
	t.ready = true
	return true
}

// Ready reports whether the last Setup succeeded.
func (t *Translator) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

// Language returns the active language.
func (t *Translator) Language() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.language
}

// UseDummy reports whether catalogs translate to the message id.
func (t *Translator) UseDummy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.useDummy
}

// Add registers fn for domain, loading the domain's catalog on first use,
// and hands fn the current translate function. A catalog that fails to
// load falls back to Identity and the error is returned. Callbacks run
// with the translator locked and must not call back into it.
func (t *Translator) Add(domain string, fn func(TranslateFunc)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	c, ok := t.catalogs[domain]
	if !ok {
		c = NewCatalog(t.localeDir, domain, t.language, t.useDummy, t.ignore)
		t.catalogs[domain] = c
		err = t.create(c)
	}
	c.OnLoad(fn)
	c.Load()
	return err
}

// SetLanguage reloads every catalog for language and calls their
// callbacks again.
func (t *Translator) SetLanguage(language string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.language = language
	var errs []error
	for _, name := range t.names() {
		c := t.catalogs[name]
		c.Language = language
		c.Reset()
		if err := t.create(c); err != nil {
			errs = append(errs, err)
		}
		c.Load()
	}
	return errors.Join(errs...)
}

// Catalog returns the named catalog.
func (t *Translator) Catalog(domain string) (*Catalog, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.catalogs[domain]
	return c, ok
}

// Get translates msgid in domain. Unknown domains return msgid.
func (t *Translator) Get(domain, msgid string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.catalogs[domain]
	if !ok {
		return msgid
	}
	return c.Get(msgid)
}

func (t *Translator) create(c *Catalog) error {
	err := c.Create()
	if err == nil {
		if t.log != nil {
			t.log.Debug1("Lang", fmt.Sprintf("%s: %s loaded", c.Name, c.Language))
		}
		return nil
	}
	c.translate = Identity
	if t.log != nil {
		t.log.Warn("Lang", err.Error())
	}
	return err
}

func (t *Translator) names() []string {
	names := make([]string, 0, len(t.catalogs))
	for name := range t.catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
