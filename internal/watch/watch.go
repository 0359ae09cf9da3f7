// Package watch reruns a generation pass when descriptor files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/romdo/go-debounce"

	"github.com/sghaida/buildergen/internal/logfields"
)

// Options configures a Watcher.
type Options struct {
	// Dirs are watched non-recursively.
	Dirs []string
	// Match filters event paths; nil accepts everything.
	Match func(path string) bool
	// Debounce is the quiet period that ends a burst; MaxWait bounds how long
	// a continuous burst can postpone a pass.
	Debounce time.Duration
	MaxWait  time.Duration
	Logger   *slog.Logger
}

// Watcher coalesces file events into passes.
type Watcher struct {
	fs     *fsnotify.Watcher
	opts   Options
	logger *slog.Logger
}

// New starts watching opts.Dirs. Events are only delivered once Run is called.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	if opts.MaxWait < opts.Debounce {
		opts.MaxWait = 10 * opts.Debounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: failed to create file watcher: %w", err)
	}
	for _, dir := range uniqueDirs(opts.Dirs) {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch: add %s: %w", dir, err)
		}
	}
	logger.Info("file watcher initialized", "watched_directories", len(fsw.WatchList()))
	return &Watcher{fs: fsw, opts: opts, logger: logger}, nil
}

func uniqueDirs(dirs []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range dirs {
		d = filepath.Clean(d)
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Run calls onChange once per burst of matching events until ctx is done.
// Passes never overlap; a burst that arrives during a pass queues exactly one
// follow-up pass. A failing pass is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	defer w.fs.Close()

	pending := make(chan struct{}, 1)
	trigger, cancel := debounce.NewWithMaxWait(w.opts.Debounce, w.opts.MaxWait, func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	})
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("context canceled, stopping file watcher")
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if !relevant(event) || (w.opts.Match != nil && !w.opts.Match(event.Name)) {
				continue
			}
			w.logger.Debug("detected file change, debouncing", logfields.Path(event.Name), "op", event.Op.String())
			trigger()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			w.logger.Warn("watcher error", logfields.Error(err))
		case <-pending:
			if err := onChange(ctx); err != nil {
				w.logger.Error("pass triggered by file change failed", logfields.Error(err))
			}
		}
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
