package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/laburec/bbutil/internal/app"
	"github.com/laburec/bbutil/internal/config"
	"github.com/laburec/bbutil/internal/database"
	"github.com/laburec/bbutil/internal/lang"
	"github.com/laburec/bbutil/internal/logging"
	"github.com/laburec/bbutil/internal/worker"
)

// exampleOptions drive the logging demo.
type exampleOptions struct {
	count    int
	interval int
	delay    time.Duration
	measure  time.Duration
}

func exampleModule() *app.Module {
	return &app.Module{
		ID:          "example",
		Description: "Show every kind of log message",
		Flags: func(fs *pflag.FlagSet) {
			fs.Int("count", 1000, "progress limit")
			fs.Int("interval", 10, "progress update interval")
			fs.Duration("delay", 100*time.Microsecond, "pause between progress steps")
			fs.Duration("measure", 3*time.Second, "duration measured by the timer demo")
		},
		Load: func(ctx *app.Context) ([]*worker.Worker, error) {
			var opts exampleOptions
			opts.count, _ = ctx.Flags.GetInt("count")
			opts.interval, _ = ctx.Flags.GetInt("interval")
			opts.delay, _ = ctx.Flags.GetDuration("delay")
			opts.measure, _ = ctx.Flags.GetDuration("measure")
			if opts.count < 1 {
				return nil, fmt.Errorf("example: --count must be positive, got %d", opts.count)
			}

			w := worker.New(worker.Funcs{
				RunFunc: func(c context.Context) error { return runExample(c, ctx.Log, opts) },
			}, ctx.Log)
			w.ID = "example"
			return []*worker.Worker{w}, nil
		},
	}
}

// runExample emits one message of every kind, three progress runs and a
// timer.
func runExample(ctx context.Context, log *logging.Logging, opts exampleOptions) error {
	log.Inform("EXAMPLE", "example 1, this will be shown with every log level")
	log.Warn("EXAMPLE", "this will be shown with every log level")
	log.Error("this will be shown with every log level!")
	log.Debug1("DEBUG", "this will be shown only with log level 1 and above")
	log.Debug2("DEBUG", "this will be shown only with log level 2 and above")
	log.Debug3("DEBUG", "this will be shown only with log level 3")

	_, err := strconv.ParseFloat("1/0", 64)
	log.Inform("EXCEPTIONS", "this will be shown with every log level")
	log.Exception(err)
	log.Inform("TRACEBACK", "this will be shown with every log level")
	log.Traceback(err)

	log.Inform("PROGRESS", fmt.Sprintf("count from 0 to %d in %d interval, set the value via Set()", opts.count, opts.interval))
	p := log.Progress(opts.count, opts.interval)
	for i := 0; i <= opts.count; i++ {
		p.Set(i)
		if err := pause(ctx, opts.delay); err != nil {
			return err
		}
	}
	log.Clear()

	log.Inform("PROGRESS", fmt.Sprintf("count from %d to 0 in %d interval, set the value via Set()", opts.count, opts.interval))
	p = log.Progress(opts.count, opts.interval)
	for i := opts.count; i > 0; i-- {
		p.Set(i)
		if err := pause(ctx, opts.delay); err != nil {
			return err
		}
	}
	log.Clear()

	log.Inform("PROGRESS", fmt.Sprintf("count from 0 to %d in %d interval, set the value via Inc()", opts.count, opts.interval))
	p = log.Progress(opts.count, opts.interval)
	for !p.Finished() {
		p.Inc()
		if err := pause(ctx, opts.delay); err != nil {
			return err
		}
	}
	log.Clear()

	log.Inform("MEASURE", "Measure a pause of "+opts.measure.String())
	timer := log.Timer("Measure something")
	if err := pause(ctx, opts.measure); err != nil {
		return err
	}
	timer.Stop()

	log.Raw("done")
	return nil
}

// pause sleeps for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func langModule() *app.Module {
	return &app.Module{
		ID:          "lang",
		Description: "Write the gettext maintenance script of a Python package, or translate message ids",
		Flags: func(fs *pflag.FlagSet) {
			fs.String("root", "", "project root (default: lang.root or the working directory)")
			fs.String("package", "", "package path below root (default: lang.package or the module name)")
			fs.String("module", "", "module name (default: lang.module or the pyproject name)")
			fs.String("filter", "", "only parse modules below this dotted path")
			fs.String("locales", "", "locales directory below root (default: lang.locales or locales)")
			fs.String("script", "", "script name (default: lang.script or make-lang)")
			fs.Bool("windows", false, "write a Windows batch script")
			fs.String("command", "all", "generator: generate, merge, copy, update, compile or all")
			fs.Bool("run", false, "run the script after writing it")
			fs.String("translate", "", "translate the message id arguments with this domain's catalog")
			fs.String("language", "", "catalog language for --translate (default: first configured language)")
		},
		Load: func(ctx *app.Context) ([]*worker.Worker, error) {
			if domain, _ := ctx.Flags.GetString("translate"); domain != "" {
				return translateWorkers(ctx, domain)
			}
			opts, err := langOptions(ctx)
			if err != nil {
				return nil, err
			}
			command, _ := ctx.Flags.GetString("command")
			run, _ := ctx.Flags.GetBool("run")
			script, _ := ctx.Flags.GetString("script")
			script = firstOf(script, opts.Script, "make-lang")

			var p *lang.Parser
			w := worker.New(worker.Funcs{
				PrepareFunc: func(context.Context) error {
					var err error
					p, err = lang.Setup(opts, ctx.Log)
					return err
				},
				RunFunc: func(c context.Context) error {
					ctx.Log.Inform("Command", command)
					ctx.Log.Inform("Windows", strconv.FormatBool(opts.Windows))
					if err := p.Parse(c); err != nil {
						return err
					}
					if err := p.Command(command); err != nil {
						return err
					}
					path, err := p.WriteScript(filepath.Join(opts.RootPath, script))
					if err != nil {
						return err
					}
					if !run {
						return nil
					}
					return p.Run(c, path)
				},
			}, ctx.Log)
			w.ID = "lang"
			return []*worker.Worker{w}, nil
		},
	}
}

// translateWorkers logs the translation of every argument in domain.
func translateWorkers(ctx *app.Context, domain string) ([]*worker.Worker, error) {
	if len(ctx.Args) == 0 {
		return nil, errors.New("lang: --translate needs message ids as arguments")
	}
	root, _ := ctx.Flags.GetString("root")
	root = firstOf(root, ctx.Config.Lang.Root, ".")
	locales, _ := ctx.Flags.GetString("locales")
	locales = firstOf(locales, ctx.Config.Lang.Locales, "locales")
	if !filepath.IsAbs(locales) {
		locales = filepath.Join(root, locales)
	}
	language, _ := ctx.Flags.GetString("language")
	if language == "" && len(ctx.Config.Lang.Languages) > 0 {
		language = ctx.Config.Lang.Languages[0]
	}

	tr := lang.NewTranslator(ctx.Log)
	var text lang.TranslateFunc
	w := worker.New(worker.Funcs{
		PrepareFunc: func(context.Context) error {
			tr.Setup(locales, language)
			return tr.Add(domain, func(fn lang.TranslateFunc) { text = fn })
		},
		RunFunc: func(context.Context) error {
			for _, msgid := range ctx.Args {
				ctx.Log.Inform(firstOf(tr.Language(), "Lang"), msgid+" -> "+text(msgid))
			}
			return nil
		},
	}, ctx.Log)
	w.ID = "translate"
	return []*worker.Worker{w}, nil
}

// langOptions merges the lang flags over the lang configuration.
func langOptions(ctx *app.Context) (lang.Options, error) {
	get := func(name string) string {
		v, _ := ctx.Flags.GetString(name)
		return v
	}
	cfg := ctx.Config.Lang

	root, err := filepath.Abs(firstOf(get("root"), cfg.Root, "."))
	if err != nil {
		return lang.Options{}, fmt.Errorf("lang: root: %w", err)
	}
	module := firstOf(get("module"), cfg.Module, config.DetectPythonPackage(root))
	if module == "" {
		return lang.Options{}, errors.New("lang: module name is missing")
	}

	windows, _ := ctx.Flags.GetBool("windows")
	return lang.Options{
		RootPath:    root,
		PackagePath: firstOf(get("package"), cfg.Package, module),
		Module:      module,
		Filter:      firstOf(get("filter"), cfg.Filter),
		Windows:     windows || cfg.Windows,
		Script:      cfg.Script,
		Locales:     firstOf(get("locales"), cfg.Locales, "locales"),
		Languages:   cfg.Languages,
	}, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func dbModule() *app.Module {
	return &app.Module{
		ID:          "db",
		Description: "Store and load a demo table in the configured SQLite database",
		Flags: func(fs *pflag.FlagSet) {
			fs.String("file", "", "database file (default: database.filename)")
			fs.Bool("memory", false, "use an in-memory database")
			fs.Int("rows", 100, "demo rows to store")
		},
		Load: func(ctx *app.Context) ([]*worker.Worker, error) {
			cfg := ctx.Config.Database
			file, _ := ctx.Flags.GetString("file")
			memory, _ := ctx.Flags.GetBool("memory")
			rows, _ := ctx.Flags.GetInt("rows")
			if rows < 0 {
				return nil, fmt.Errorf("db: --rows must not be negative, got %d", rows)
			}

			db := database.New(cfg.Name, firstOf(file, cfg.Filename), database.SchemaFunc(demoSchema), ctx.Log)
			db.UseMemory = memory || cfg.Memory

			w := worker.New(worker.Funcs{
				PrepareFunc: db.Start,
				RunFunc: func(c context.Context) (err error) {
					defer func() {
						if err != nil {
							_ = db.Stop()
						}
					}()
					return runDemo(c, db, rows)
				},
				CloseFunc: func(context.Context) error { return db.Stop() },
			}, ctx.Log)
			w.ID = "db"
			return []*worker.Worker{w}, nil
		},
	}
}

// demoTable is the table the db module fills.
const demoTable = "users"

func demoSchema(db *database.Database) error {
	t, err := db.AddTable(demoTable)
	if err != nil {
		return err
	}
	t.SuppressWarnings = true
	return errors.Join(
		t.AddColumn("id", database.Integer, database.PrimaryKey()),
		t.AddColumn("name", database.String, database.Unique(), database.Keyword()),
		t.AddColumn("active", database.Bool),
		t.AddColumn("score", database.Float),
	)
}

// runDemo stores the demo users missing from the table, reloads the table
// and logs the database info.
func runDemo(ctx context.Context, db *database.Database, rows int) error {
	t, ok := db.GetTable(demoTable)
	if !ok {
		return fmt.Errorf("db: table %s is not declared", demoTable)
	}
	if err := t.CheckScheme(ctx); err != nil {
		return err
	}
	if _, err := t.Load(ctx); err != nil {
		return err
	}

	var fresh []*database.Data
	for i := 1; i <= rows; i++ {
		name := fmt.Sprintf("user-%04d", i)
		if _, ok := t.Lookup(name); ok {
			continue
		}
		fresh = append(fresh, t.NewData().
			Set("name", name).
			Set("active", i%2 == 0).
			Set("score", float64(i)/10))
	}
	if len(fresh) > 0 && t.Store(ctx, fresh...) < 0 {
		return fmt.Errorf("db: storing %s failed", demoTable)
	}
	if err := db.SetVersion(ctx, demoTable, 1); err != nil {
		return err
	}

	count, err := t.Load(ctx)
	if err != nil {
		return err
	}
	db.Log.Inform(demoTable, fmt.Sprintf("%d stored, %d loaded", len(fresh), count))
	db.Info(ctx)
	return nil
}
