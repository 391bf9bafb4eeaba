package lang

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laburec/bbutil/internal/logging"
)

// writeTree creates a small Python package under a temp root and returns
// the root.
func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"pkg/__init__.py":             "__domain__ = \"gui\"\n",
		"pkg/view.py":                 "import os\n\n__domain__: str = \"gui\"\n",
		"pkg/core/engine.py":          "__domain__ = 'core'\n",
		"pkg/plain.py":                "print('no domain here')\n",
		"pkg/__pycache__/view.py":     "__domain__ = \"gui\"\n",
		"pkg/readme.txt":              "__domain__ = \"gui\"\n",
		"other/outside.py":            "__domain__ = \"gui\"\n",
		"pkg/core/nested/__init__.py": "x = 1\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func setup(t *testing.T, root string, mutate func(*Options)) *Parser {
	t.Helper()
	opts := Options{
		RootPath:    root,
		PackagePath: "pkg",
		Module:      "app",
		Locales:     filepath.Join(root, "locales"),
	}
	if mutate != nil {
		mutate(&opts)
	}
	p, err := Setup(opts, nil)
	require.NoError(t, err)
	require.NoError(t, p.Parse(context.Background()))
	return p
}

func TestSetup_Validation(t *testing.T) {
	_, err := Setup(Options{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module name is required")
	assert.Contains(t, err.Error(), "locales path is required")

	_, err = Setup(Options{Module: "m", Locales: "l", Languages: []string{"en", "e!"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `language "e!"`)

	_, err = Setup(Options{Module: "m", Locales: "l", Include: []string{"[a-"}}, nil)
	assert.Error(t, err)
}

func TestSetup_Defaults(t *testing.T) {
	p, err := Setup(Options{Module: "m", Locales: "l"}, nil)
	require.NoError(t, err)

	opts := p.Options()
	assert.NotEmpty(t, opts.RootPath)
	assert.Equal(t, []string{"en", "de"}, opts.Languages)
	assert.Equal(t, DefaultInclude, opts.Include)
	assert.Equal(t, DefaultExclude, opts.Exclude)
	assert.Equal(t, "__domain__", opts.DomainAttribute)
}

func TestParse(t *testing.T) {
	root := writeTree(t)
	p := setup(t, root, nil)

	var classes []string
	for _, f := range p.Files() {
		classes = append(classes, f.ClassName+"@"+f.Domain)
	}
	if diff := cmp.Diff([]string{"app@gui", "app.core.engine@core", "app.view@gui"}, classes); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	domains := p.Domains()
	require.Len(t, domains, 2)
	assert.Equal(t, "core", domains[0].Name)
	assert.Equal(t, "gui", domains[1].Name)

	gui, ok := p.Domain("gui")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, ".locales", "gui", "gui.pot"), gui.Pot)
	assert.Len(t, gui.Files, 2)
	assert.Equal(t, filepath.Join(root, ".locales", "gui", "_app.view.pot"), gui.Files[1].Pot)

	want := []Language{
		{
			Name: "en",
			Path: filepath.Join(root, "locales", "en", "LC_MESSAGES"),
			Po:   filepath.Join(root, "locales", "en", "LC_MESSAGES", "gui.po"),
			Mo:   filepath.Join(root, "locales", "en", "LC_MESSAGES", "gui.mo"),
		},
		{
			Name: "de",
			Path: filepath.Join(root, "locales", "de", "LC_MESSAGES"),
			Po:   filepath.Join(root, "locales", "de", "LC_MESSAGES", "gui.po"),
			Mo:   filepath.Join(root, "locales", "de", "LC_MESSAGES", "gui.mo"),
		},
	}
	if diff := cmp.Diff(want, gui.Languages); diff != "" {
		t.Errorf("languages mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Filter(t *testing.T) {
	root := writeTree(t)
	p := setup(t, root, func(o *Options) { o.Filter = "app.core" })

	files := p.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "app.core.engine", files[0].ClassName)
}

func TestParse_CustomAttribute(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "mod.py"), []byte("TEXT_DOMAIN = \"shop\"\n"), 0o644))

	p := setup(t, root, func(o *Options) {
		o.PackagePath = ""
		o.DomainAttribute = "TEXT_DOMAIN"
	})
	require.Len(t, p.Files(), 1)
	assert.Equal(t, "shop", p.Files()[0].Domain)
	assert.Equal(t, "app.mod", p.Files()[0].ClassName)
}

func TestGenerate(t *testing.T) {
	root := writeTree(t)
	p := setup(t, root, nil)
	p.Generate()

	pot := func(domain, name string) string { return filepath.Join(root, ".locales", domain, name) }
	src := func(name string) string { return filepath.Join(root, "pkg", name) }
	want := []string{
		`echo "Create _app.pot"`,
		"xgettext -L python -d gui -o " + pot("gui", "_app.pot") + " " + src("__init__.py"),
		`echo "Create _app.core.engine.pot"`,
		"xgettext -L python -d core -o " + pot("core", "_app.core.engine.pot") + " " + src("core/engine.py"),
		`echo "Create _app.view.pot"`,
		"xgettext -L python -d gui -o " + pot("gui", "_app.view.pot") + " " + src("view.py"),
	}
	if diff := cmp.Diff(want, p.Lines()); diff != "" {
		t.Errorf("generate mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeCopyUpdate_Windows(t *testing.T) {
	root := writeTree(t)
	p := setup(t, root, func(o *Options) {
		o.Windows = true
		o.Languages = []string{"en"}
		o.Filter = "app.core"
	})

	domainPot := filepath.Join(root, ".locales", "core", "core.pot")
	filePot := filepath.Join(root, ".locales", "core", "_app.core.engine.pot")
	po := filepath.Join(root, "locales", "en", "LC_MESSAGES", "core.po")

	require.NoError(t, p.Command("merge"))
	require.NoError(t, p.Command("copy"))
	require.NoError(t, p.Command("update"))

	want := []string{
		"echo Merge core.pot",
		"msgcat.exe " + filePot + " -o " + domainPot,
		"echo Update en/core",
		"copy " + domainPot + " " + po,
		"echo Update en/core",
		"msgmerge.exe -N -U " + po + " " + domainPot,
	}
	if diff := cmp.Diff(want, p.Lines()); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_SkipsMissingCatalogs(t *testing.T) {
	root := writeTree(t)
	p := setup(t, root, func(o *Options) { o.Filter = "app.core" })

	d, ok := p.Domain("core")
	require.True(t, ok)
	de := d.Languages[1]
	require.NoError(t, os.MkdirAll(de.Path, 0o755))
	require.NoError(t, os.WriteFile(de.Po, []byte(""), 0o644))

	p.Compile()
	want := []string{
		`echo "Compile de/core"`,
		"msgfmt -o " + de.Mo + " " + de.Po,
	}
	if diff := cmp.Diff(want, p.Lines()); diff != "" {
		t.Errorf("compile mismatch (-want +got):\n%s", diff)
	}
}

func TestAll(t *testing.T) {
	root := writeTree(t)
	p := setup(t, root, nil)
	require.NoError(t, p.Command("all"))

	// generate: 3 files, merge: 2 domains, update: 2 domains x 2 languages.
	assert.Len(t, p.Lines(), 2*(3+2+4))

	p.Reset()
	assert.Empty(t, p.Lines())
	assert.Error(t, p.Command("translate"))
}

func TestWriteScript(t *testing.T) {
	root := writeTree(t)
	p := setup(t, root, nil)
	p.Merge()

	path, err := p.WriteScript(filepath.Join(root, "out", "make-lang"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "out", "make-lang.sh"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "#!/bin/bash\n" +
		"mkdir -p " + filepath.Join(root, ".locales", "core") + "\n" +
		"mkdir -p " + filepath.Join(root, ".locales", "gui") + "\n"
	for _, line := range p.Lines() {
		want += line + "\n"
	}
	assert.Equal(t, want, string(data))
}

func TestScriptLines_Windows(t *testing.T) {
	root := writeTree(t)
	p := setup(t, root, func(o *Options) { o.Windows = true })

	assert.Equal(t, "x.cmd", p.ScriptPath("x"))
	assert.Equal(t, "x.bat", p.ScriptPath("x.bat"))
	assert.Equal(t, []string{"@echo off"}, p.ScriptLines("x.cmd"))
}

func TestRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs bash")
	}
	root := t.TempDir()
	log := logging.New(logging.WithApp("test"))
	mem := logging.NewMemory("mem")
	log.Register(mem)
	require.NoError(t, log.Open())
	defer log.Close()

	p, err := Setup(Options{RootPath: root, Module: "m", Locales: "l"}, log)
	require.NoError(t, err)
	p.lines = []string{`echo "hello"`, `echo "from $(basename "$PWD")"`}

	path, err := p.WriteScript(filepath.Join(root, "run"))
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background(), path))

	log.Flush()
	assert.Equal(t, []string{"hello", "from " + filepath.Base(root)}, mem.Contents(""))

	p.lines = []string{"echo broken >&2", "exit 3"}
	path, err = p.WriteScript(filepath.Join(root, "fail"))
	require.NoError(t, err)
	err = p.Run(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
