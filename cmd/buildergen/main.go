// Command buildergen generates builder classes from class descriptors.
//
// Usage:
//
//	buildergen generate [paths...] [--target java|go] [--out DIR] [--dry-run]
//	buildergen scan [DIR] [--out DIR] [--dry-run]
//	buildergen watch [paths...]
//	buildergen targets
//
// Exit codes: 0 ok, 1 fatal generation error, 2 usage, config or input error.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/sghaida/buildergen/builder"
	"github.com/sghaida/buildergen/internal/config"
	"github.com/sghaida/buildergen/internal/descriptor"
	"github.com/sghaida/buildergen/internal/goscan"
	"github.com/sghaida/buildergen/internal/logfields"
	"github.com/sghaida/buildergen/internal/logging"
	"github.com/sghaida/buildergen/internal/metrics"
	"github.com/sghaida/buildergen/internal/watch"
)

// CLI is the kong command tree.
type CLI struct {
	Config  string `short:"c" help:"Configuration file path (default: ${default_config} if present)"`
	Verbose bool   `short:"v" help:"Enable debug logging"`
	LogJSON bool   `name:"log-json" help:"Emit JSON log lines"`

	Generate GenerateCmd `cmd:"" help:"Generate builders from descriptor files"`
	Scan     ScanCmd     `cmd:"" help:"Generate Go builders for annotated structs in a package"`
	Watch    WatchCmd    `cmd:"" help:"Regenerate builders whenever descriptor files change"`
	Targets  TargetsCmd  `cmd:"" help:"List output targets"`
}

type (
	GenerateCmd struct {
		Paths  []string `arg:"" optional:"" help:"Descriptor files (default: config include globs)"`
		Target string   `short:"t" help:"Output target (${targets})"`
		Out    string   `short:"o" help:"Output directory"`
		DryRun bool     `name:"dry-run" help:"Render without writing; print units to stdout"`
	}
	ScanCmd struct {
		Dir    string `arg:"" optional:"" default:"." help:"Go package directory"`
		Out    string `short:"o" help:"Output directory (default: the package directory)"`
		DryRun bool   `name:"dry-run" help:"Render without writing; print units to stdout"`
	}
	WatchCmd struct {
		Paths  []string `arg:"" optional:"" help:"Descriptor files (default: config include globs)"`
		Target string   `short:"t" help:"Output target (${targets})"`
		Out    string   `short:"o" help:"Output directory"`
	}
	TargetsCmd struct{}
)

// usageError marks failures caused by input, flags or configuration.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usage(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

type exitSignal int

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(exitSignal)
			if !ok {
				panic(r)
			}
			code = int(sig)
		}
	}()

	registry := builder.NewTargetRegistry()

	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("buildergen"),
		kong.Description("Generate builder classes from class descriptors."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { panic(exitSignal(code)) }),
		kong.Vars{
			"default_config": config.DefaultFile,
			"targets":        strings.Join(registry.Names(), "|"),
		},
	)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "buildergen:", err)
		return 2
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "buildergen: error:", err)
		return 2
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "buildergen: error:", err)
		return 2
	}

	level := cfg.Logging.Level
	if cli.Verbose {
		level = "debug"
	}
	logger := logging.New(logging.Options{Level: level, JSON: cli.LogJSON || cfg.Logging.JSON, Output: stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := &runEnv{
		ctx:      ctx,
		cfg:      cfg,
		logger:   logger,
		stdout:   stdout,
		registry: registry,
		recorder: metrics.NewPrometheusRecorder(nil),
	}

	err = kctx.Run(env)
	return exitCode(logger, err)
}

func exitCode(logger *slog.Logger, err error) int {
	switch {
	case err == nil:
		return 0
	case builder.IsFatal(err):
		logger.Error("generation failed", logfields.Error(err))
		return 1
	case errors.Is(err, context.Canceled):
		logger.Warn("interrupted", logfields.Error(err))
		return 1
	default:
		logger.Error("invalid input", logfields.Error(err))
		return 2
	}
}

// runEnv is bound into every command's Run method.
type runEnv struct {
	ctx      context.Context
	cfg      *config.Config
	logger   *slog.Logger
	stdout   io.Writer
	registry *builder.TargetRegistry
	recorder *metrics.PrometheusRecorder
}

// passOptions selects where and how one pass writes.
type passOptions struct {
	target string
	out    string
	dryRun bool
}

// pass runs one generation pass with a fresh sink.
func (e *runEnv) pass(ctx context.Context, descs []builder.ClassDescriptor, opts passOptions) (builder.Report, error) {
	target, err := e.registry.Get(opts.target)
	if err != nil {
		return builder.Report{}, usage(err)
	}

	var (
		sink builder.Sink
		dir  *builder.DirSink
	)
	mem := builder.NewMemorySink()
	if opts.dryRun {
		sink = mem
	} else {
		dir = builder.NewDirSink(opts.out)
		sink = dir
	}

	g := builder.New(sink,
		builder.WithTarget(target),
		builder.WithLogger(e.logger),
		builder.WithRecorder(e.recorder),
		builder.WithGeneratorName(e.cfg.Generator),
	)
	report, err := g.Run(ctx, descs)

	if opts.dryRun {
		for _, u := range mem.Units() {
			_, _ = fmt.Fprintf(e.stdout, "// ----- %s -----\n%s", u.Path, u.SourceText)
		}
	} else if len(report.Units) > 0 {
		e.logger.Info("builders written", logfields.Path(dir.Root()), logfields.Units(len(report.Units)))
	}
	if path := e.cfg.MetricsPath(); path != "" {
		if werr := e.recorder.WriteTextfile(path); werr != nil {
			e.logger.Warn("failed to write metrics", logfields.Path(path), logfields.Error(werr))
		}
	}
	return report, err
}

func (e *runEnv) targetOr(flag string) string {
	if flag != "" {
		return flag
	}
	return e.cfg.Target
}

func (e *runEnv) outOr(flag string) string {
	if flag != "" {
		return flag
	}
	return e.cfg.OutputDir()
}

// descriptorFiles returns explicit paths, or the config include globs
// expanded below the config directory.
func (e *runEnv) descriptorFiles(paths []string) ([]string, error) {
	if len(paths) > 0 {
		return paths, nil
	}
	files, err := descriptor.NewDiscoverer(e.cfg.BaseDir()).Discover(e.cfg.Descriptors.Include, e.cfg.Descriptors.Exclude)
	if err != nil {
		return nil, usage(err)
	}
	if len(files) == 0 {
		e.logger.Warn("no descriptor files matched", "include", strings.Join(e.cfg.Descriptors.Include, ","))
	}
	return files, nil
}

func (e *runEnv) generate(ctx context.Context, paths []string, opts passOptions) error {
	files, err := e.descriptorFiles(paths)
	if err != nil {
		return err
	}
	descs, err := descriptor.LoadAll(files)
	if err != nil {
		return usage(err)
	}
	_, err = e.pass(ctx, descs, opts)
	return err
}

func (c *GenerateCmd) Run(env *runEnv) error {
	return env.generate(env.ctx, c.Paths, passOptions{
		target: env.targetOr(c.Target),
		out:    env.outOr(c.Out),
		dryRun: c.DryRun,
	})
}

func (c *ScanCmd) Run(env *runEnv) error {
	pkg, err := goscan.Scan(c.Dir)
	if err != nil {
		return usage(err)
	}
	if len(pkg.Descriptors) == 0 {
		env.logger.Info("no annotated types found", logfields.Path(pkg.Dir))
		return nil
	}

	out := c.Out
	if out == "" {
		out = pkg.Dir
	}
	_, err = env.pass(env.ctx, pkg.Descriptors, passOptions{target: builder.GoTarget{}.Name(), out: out, dryRun: c.DryRun})
	return err
}

func (c *WatchCmd) Run(env *runEnv) error {
	opts := passOptions{target: env.targetOr(c.Target), out: env.outOr(c.Out)}
	if _, err := env.registry.Get(opts.target); err != nil {
		return usage(err)
	}

	onChange := func(ctx context.Context) error { return env.generate(ctx, c.Paths, opts) }
	if err := onChange(env.ctx); err != nil {
		if builder.IsFatal(err) {
			return err
		}
		env.logger.Warn("initial pass failed", logfields.Error(err))
	}

	dirs := []string{env.cfg.BaseDir()}
	for _, p := range c.Paths {
		dirs = append(dirs, filepath.Dir(p))
	}
	if files, err := env.descriptorFiles(c.Paths); err == nil {
		for _, f := range files {
			dirs = append(dirs, filepath.Dir(f))
		}
	}

	w, err := watch.New(watch.Options{
		Dirs:     dirs,
		Match:    descriptorMatcher(env.cfg.Path),
		Debounce: env.cfg.Watch.Debounce,
		MaxWait:  env.cfg.Watch.MaxWait,
		Logger:   env.logger,
	})
	if err != nil {
		return usage(err)
	}
	return w.Run(env.ctx, onChange)
}

// descriptorMatcher accepts descriptor-looking files other than the loaded
// config file. Config edits need a restart; a pass would still use the old
// values.
func descriptorMatcher(configPath string) func(string) bool {
	cfgAbs := ""
	if configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			cfgAbs = abs
		}
	}
	return func(path string) bool {
		if !isDescriptorFile(path) {
			return false
		}
		if cfgAbs == "" {
			return true
		}
		abs, err := filepath.Abs(path)
		return err != nil || abs != cfgAbs
	}
}

func isDescriptorFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

func (c *TargetsCmd) Run(env *runEnv) error {
	for _, name := range env.registry.Names() {
		_, _ = fmt.Fprintln(env.stdout, name)
	}
	return nil
}
