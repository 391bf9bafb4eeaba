// Package config loads bbutil.json, bbutil.toml or bbutil.yaml application
// configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultAccentColor is the default TUI accent color (indigo).
const DefaultAccentColor = "#7D56F4"

// MaxVerbose is the highest accepted verbosity.
const MaxVerbose = 3

// ErrNotFound is returned by Load when no configuration file is found.
var ErrNotFound = errors.New("config: no configuration file found")

// FileNames lists the names findConfig looks for, in order.
var FileNames = []string{"bbutil.json", "bbutil.toml", "bbutil.yaml", "bbutil.yml"}

// hexColorRe matches a 6-digit hex color string like "#7D56F4".
var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Config is the application configuration.
type Config struct {
	App       string         `json:"app" toml:"app" yaml:"app"`
	Verbose   int            `json:"verbose" toml:"verbose" yaml:"verbose"`
	Threaded  bool           `json:"threaded" toml:"threaded" yaml:"threaded"`
	LogFile   string         `json:"log_file" toml:"log_file" yaml:"log_file"`
	LogFormat string         `json:"log_format" toml:"log_format" yaml:"log_format"`
	LogSizeMB int            `json:"log_size_mb" toml:"log_size_mb" yaml:"log_size_mb"` // rotate above this size; 0 = never
	Database  DatabaseConfig `json:"database" toml:"database" yaml:"database"`
	Lang      LangConfig     `json:"lang" toml:"lang" yaml:"lang"`
	TUI       TUIConfig      `json:"tui" toml:"tui" yaml:"tui"`
	Values    map[string]any `json:"values,omitempty" toml:"values,omitempty" yaml:"values,omitempty"`

	// Path is the file the configuration was loaded from.
	Path string `json:"-" toml:"-" yaml:"-"`
}

// DatabaseConfig names the SQLite database used by the db module.
type DatabaseConfig struct {
	Name     string `json:"name" toml:"name" yaml:"name"`
	Filename string `json:"filename" toml:"filename" yaml:"filename"`
	Memory   bool   `json:"memory" toml:"memory" yaml:"memory"`
}

// LangConfig holds the defaults of the lang module.
type LangConfig struct {
	Root      string   `json:"root" toml:"root" yaml:"root"`
	Package   string   `json:"package" toml:"package" yaml:"package"`
	Module    string   `json:"module" toml:"module" yaml:"module"`
	Filter    string   `json:"filter" toml:"filter" yaml:"filter"`
	Locales   string   `json:"locales" toml:"locales" yaml:"locales"`
	Script    string   `json:"script" toml:"script" yaml:"script"`
	Windows   bool     `json:"windows" toml:"windows" yaml:"windows"`
	Languages []string `json:"languages" toml:"languages" yaml:"languages"`
}

// TUIConfig controls the terminal log viewer.
type TUIConfig struct {
	AccentColor string `json:"accent_color" toml:"accent_color" yaml:"accent_color"`
	MaxLines    int    `json:"max_lines" toml:"max_lines" yaml:"max_lines"` // 0 = default retention
}

// Validate checks the configuration and returns every issue joined together.
func (c *Config) Validate() error {
	var errs []error

	if c.Verbose < 0 || c.Verbose > MaxVerbose {
		errs = append(errs, fmt.Errorf("verbose must be within 0..%d", MaxVerbose))
	}
	switch c.LogFormat {
	case "", "text", "jsonl", "zap":
	default:
		errs = append(errs, fmt.Errorf("log_format must be one of \"text\", \"jsonl\" or \"zap\""))
	}
	if c.LogSizeMB < 0 {
		errs = append(errs, fmt.Errorf("log_size_mb must be >= 0 (0 = no rotation)"))
	}

	if c.Database.Filename == "" && !c.Database.Memory && c.Database.Name != "" {
		errs = append(errs, fmt.Errorf("database.filename must be set unless database.memory is true"))
	}

	if c.Lang.Filter != "" && c.Lang.Module != "" && !strings.HasPrefix(c.Lang.Filter, c.Lang.Module) {
		errs = append(errs, fmt.Errorf("lang.filter must start with lang.module %q", c.Lang.Module))
	}
	if c.Lang.Module != "" && c.Lang.Locales == "" {
		errs = append(errs, fmt.Errorf("lang.locales must be set when lang.module is set"))
	}

	if c.TUI.AccentColor != "" && !hexColorRe.MatchString(c.TUI.AccentColor) {
		errs = append(errs, fmt.Errorf("tui.accent_color must be a hex color (e.g. \"#7D56F4\")"))
	}
	if c.TUI.MaxLines < 0 {
		errs = append(errs, fmt.Errorf("tui.max_lines must be >= 0 (0 = default)"))
	}

	return errors.Join(errs...)
}

// Defaults returns a Config with the built-in defaults.
func Defaults() Config {
	return Config{
		Threaded:  true,
		LogFormat: "text",
		Database: DatabaseConfig{
			Name:     "bbutil",
			Filename: "bbutil.sqlite",
		},
		Lang: LangConfig{
			Languages: []string{"en", "de"},
		},
		TUI: TUIConfig{
			AccentColor: DefaultAccentColor,
		},
	}
}

// Load reads the configuration at path, choosing the decoder by extension.
// If path is empty, it walks up from the current working directory looking
// for one of FileNames. Every key in required must be present at the top
// level of the file. Top-level keys without a Config field are kept in
// Values.
func Load(path string, required ...string) (*Config, error) {
	if path == "" {
		found, err := findConfig()
		if err != nil {
			return nil, err
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	raw, err := decodeMap(path, data)
	if err != nil {
		return nil, err
	}
	if err := CheckKeys(raw, required...); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	cfg := Defaults()
	if err := decode(path, data, &cfg); err != nil {
		return nil, err
	}
	collectValues(raw, &cfg)
	cfg.Path = path

	if cfg.App == "" {
		cfg.App = DetectAppName(filepath.Dir(path))
	}
	return &cfg, nil
}

func format(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return "json", nil
	case ".toml":
		return "toml", nil
	case ".yaml", ".yml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("config: unsupported file type %q for %s", ext, path)
	}
}

func decodeMap(path string, data []byte) (map[string]any, error) {
	kind, err := format(path)
	if err != nil {
		return nil, err
	}

	m := make(map[string]any)
	switch kind {
	case "json":
		err = json.Unmarshal(data, &m)
	case "toml":
		err = toml.Unmarshal(data, &m)
	case "yaml":
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return m, nil
}

func decode(path string, data []byte, cfg *Config) error {
	kind, err := format(path)
	if err != nil {
		return err
	}

	switch kind {
	case "json":
		err = json.Unmarshal(data, cfg)
	case "toml":
		_, err = toml.Decode(string(data), cfg)
	case "yaml":
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

// knownKeys are the top-level keys decoded into Config fields.
var knownKeys = map[string]bool{
	"app": true, "verbose": true, "threaded": true,
	"log_file": true, "log_format": true, "log_size_mb": true,
	"database": true, "lang": true, "tui": true, "values": true,
}

// collectValues copies the top-level keys of raw that have no Config field
// into cfg.Values.
func collectValues(raw map[string]any, cfg *Config) {
	for k, v := range raw {
		if knownKeys[k] {
			continue
		}
		if cfg.Values == nil {
			cfg.Values = make(map[string]any)
		}
		cfg.Values[k] = v
	}
}

// CheckKeys reports every key of keys missing from m.
func CheckKeys(m map[string]any, keys ...string) error {
	var errs []error
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			errs = append(errs, fmt.Errorf("missing key %q", k))
		}
	}
	return errors.Join(errs...)
}

// findConfig walks up from the current directory looking for a config file.
func findConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("config: get working directory: %w", err)
	}

	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched up from %s)", ErrNotFound, dir)
		}
		dir = parent
	}
}

// Store writes the configuration as indented JSON to path, or to the path
// it was loaded from. The file is replaced atomically.
func (c *Config) Store(path string) error {
	if path == "" {
		path = c.Path
	}
	if path == "" {
		return errors.New("config: no filename for storing")
	}

	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("config: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".bbutil-config-*.tmp")
	if err != nil {
		return fmt.Errorf("config: create temp: %w", err)
	}
	if _, writeErr := tmp.Write(data); writeErr != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("config: write %s: %w", path, writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("config: close %s: %w", path, closeErr)
	}
	if renameErr := os.Rename(tmp.Name(), path); renameErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("config: finalize %s: %w", path, renameErr)
	}
	return nil
}

// CheckPath returns an error when path is empty or does not exist.
func CheckPath(path string) error {
	if path == "" {
		return errors.New("config: invalid path")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config: unable to find %s: %w", path, err)
	}
	return nil
}

// PathExists reports whether path is set and exists.
func PathExists(path string) bool {
	return CheckPath(path) == nil
}

// InitFile writes a default bbutil.json to the given directory.
func InitFile(dir string) (string, error) {
	path := filepath.Join(dir, FileNames[0])
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config: %s already exists at %s", FileNames[0], path)
	}

	cfg := Defaults()
	cfg.App = DetectAppName(dir)
	if err := cfg.Store(path); err != nil {
		return "", err
	}
	return path, nil
}
