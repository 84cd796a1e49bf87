// Package main is the entry point for the ropekit script runner.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dshills/ropekit/internal/config"
	"github.com/dshills/ropekit/internal/logging"
	"github.com/dshills/ropekit/internal/script"
	"github.com/dshills/ropekit/internal/watch"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv)
	stop()
	os.Exit(code)
}

// options holds parsed command line flags.
type options struct {
	configPath  string
	code        string
	logLevel    string
	logFormat   string
	nodeSize    int
	maxNodes    int
	check       bool
	timeout     time.Duration
	watch       bool
	printConfig bool
	showVersion bool
	scripts     []string

	// set records the flags given explicitly.
	set map[string]bool
}

// run is main without the process exit, so it can be tested.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, lookup config.LookupFunc) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "ropekit %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	cfg, err := loadConfig(opts, lookup)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if opts.printConfig {
		if err := cfg.Encode(stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if len(opts.scripts) == 0 && opts.code == "" {
		fmt.Fprintf(stderr, "Error: no scripts given (use -e or pass files)\n")
		return 1
	}

	r := &runner{opts: opts, stdout: stdout, stderr: stderr}
	r.configure(cfg)
	defer func() { _ = r.log.Sync() }()

	ok := r.runAll(ctx)
	if !opts.watch {
		if !ok {
			return 1
		}
		return 0
	}

	if err := r.watch(ctx, lookup); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{set: make(map[string]bool)}

	fs := flag.NewFlagSet("ropekit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", config.DefaultPath, "Path to configuration file")
	fs.StringVar(&opts.configPath, "c", config.DefaultPath, "Path to configuration file (shorthand)")
	fs.StringVar(&opts.code, "e", "", "Run inline Lua code")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.logFormat, "log-format", "", "Log format (console, json)")
	fs.IntVar(&opts.nodeSize, "node-size", 0, "Leaf size for new ropes")
	fs.IntVar(&opts.maxNodes, "max-nodes", 0, "Live node cap per script run (0 = unlimited)")
	fs.BoolVar(&opts.check, "check", false, "Validate ropes after every structural change")
	fs.DurationVar(&opts.timeout, "timeout", 0, "Time limit per script run (0 = none)")
	fs.BoolVar(&opts.watch, "watch", false, "Re-run scripts when they or the config change")
	fs.BoolVar(&opts.watch, "w", false, "Re-run scripts when they change (shorthand)")
	fs.BoolVar(&opts.printConfig, "print-config", false, "Print the effective configuration and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "ropekit - run Lua scripts against a rope\n\n")
		fmt.Fprintf(stderr, "Usage: ropekit [options] [scripts...]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment:\n")
		for _, name := range config.EnvVars() {
			fmt.Fprintf(stderr, "  %s\n", name)
		}
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  ropekit edit.lua                     Run a script\n")
		fmt.Fprintf(stderr, "  ropekit -e 'print(rope.new(\"hi\"))'   Run inline code\n")
		fmt.Fprintf(stderr, "  ropekit -watch -check edit.lua       Re-run on save with checks\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		name := f.Name
		switch name {
		case "c":
			name = "config"
		case "w":
			name = "watch"
		case "v":
			name = "version"
		}
		opts.set[name] = true
	})

	if opts.set["log-level"] && !logging.ValidLevel(opts.logLevel) {
		return nil, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", opts.logLevel)
	}

	opts.scripts = fs.Args()
	return opts, nil
}

// loadConfig layers the config file, the environment and explicit flags.
func loadConfig(opts *options, lookup config.LookupFunc) (*config.Config, error) {
	if opts.set["config"] {
		if _, err := os.Stat(opts.configPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}

	// Validate only after every layer is applied.
	cfg, err := config.Read(opts.configPath)
	if err != nil {
		return nil, err
	}
	if lookup != nil {
		if err := cfg.OverrideEnv(lookup); err != nil {
			return nil, err
		}
	}

	if opts.set["log-level"] {
		cfg.Log.Level = opts.logLevel
	}
	if opts.set["log-format"] {
		cfg.Log.Format = opts.logFormat
	}
	if opts.set["node-size"] {
		cfg.Rope.NodeSize = opts.nodeSize
	}
	if opts.set["max-nodes"] {
		cfg.Rope.MaxNodes = opts.maxNodes
	}
	if opts.set["check"] {
		cfg.Rope.CheckInvariants = opts.check
	}
	if opts.set["timeout"] {
		cfg.Script.Timeout = config.Duration(opts.timeout)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runner runs the requested scripts, once or on every change.
type runner struct {
	opts   *options
	stdout io.Writer
	stderr io.Writer
	log    *logging.Logger
	format string
	host   *script.Host
}

// configure builds the logger and the script host from cfg. The logger is
// replaced only when the format changes; a level change is applied in place.
func (r *runner) configure(cfg *config.Config) {
	if r.log == nil || cfg.Log.Format != r.format {
		if r.log != nil {
			_ = r.log.Sync()
		}
		r.log = logging.New(cfg.Logging(r.stderr))
		r.format = cfg.Log.Format
	}
	r.log.SetLevel(logging.ParseLogLevel(cfg.Log.Level))
	r.host = script.NewHost(
		script.WithOutput(r.stdout),
		script.WithLogger(r.log),
		script.WithTimeout(cfg.Script.Timeout.Std()),
		script.WithMaxOutput(cfg.Script.MaxOutput),
		script.WithNodeSize(cfg.Rope.NodeSize),
		script.WithMaxNodes(cfg.Rope.MaxNodes),
		script.WithInvariantChecks(cfg.Rope.CheckInvariants),
	)
}

// runAll runs the inline code and every script in order. It reports
// whether all of them succeeded.
func (r *runner) runAll(ctx context.Context) bool {
	ok := true
	if r.opts.code != "" {
		ok = r.report(r.host.Run(ctx, "(inline)", r.opts.code)) && ok
	}
	for _, path := range r.opts.scripts {
		if ctx.Err() != nil {
			return false
		}
		ok = r.report(r.host.RunFile(ctx, path)) && ok
	}
	return ok
}

func (r *runner) report(res *script.Result, err error) bool {
	if err != nil {
		fmt.Fprintf(r.stderr, "Error: %v\n", err)
		return false
	}
	if res.LiveNodes > 0 {
		r.log.Warn("script left ropes unreleased", "script", res.Name, "run", res.RunID, "live_nodes", res.LiveNodes)
	}
	r.log.Info("script finished", "script", res.Name, "run", res.RunID, "elapsed", res.Elapsed)
	return true
}

// watch re-runs the scripts whenever one of them or the config file
// changes, until ctx ends.
func (r *runner) watch(ctx context.Context, lookup config.LookupFunc) error {
	files := append([]string{r.opts.configPath}, r.opts.scripts...)
	w, err := watch.New(files, watch.WithLogger(r.log))
	if err != nil {
		return err
	}
	defer w.Close()

	configPath, err := filepath.Abs(r.opts.configPath)
	if err != nil {
		return err
	}

	r.log.Info("watching for changes", "files", w.Files())
	return w.Run(ctx, func(ev watch.Event) {
		for _, p := range ev.Paths {
			if p != configPath {
				continue
			}
			cfg, err := loadConfig(r.opts, lookup)
			if err != nil {
				r.log.Error("config reload failed, keeping previous settings", "error", err)
				break
			}
			r.configure(cfg)
			r.log.Info("config reloaded", "path", configPath)
		}
		r.runAll(ctx)
	})
}
