package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/adpulse/pkg/campaign"
	"github.com/papercomputeco/adpulse/pkg/logger"
)

// DefaultSettle is how long a file must stay quiet before it is analyzed.
const DefaultSettle = 500 * time.Millisecond

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Dir is the directory to watch. Subdirectories are not watched.
	Dir string

	// Pool receives a Job for every settled export.
	Pool *Pool

	// Settle is the quiet period after the last write event.
	Settle time.Duration

	// ScanExisting enqueues exports already present in Dir on start.
	ScanExisting bool

	Logger *slog.Logger
}

// Watcher turns filesystem events in a directory into pool jobs.
type Watcher struct {
	config  WatcherConfig
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	pending map[string]*settleTimer
	gen     uint64
	ready   chan settled
	done    chan struct{}
}

// settleTimer is the live timer for a path. gen is unique per timer so a
// callback that already fired can be told apart from its replacement.
type settleTimer struct {
	timer *time.Timer
	gen   uint64
}

type settled struct {
	path string
	gen  uint64
}

// NewWatcher starts watching c.Dir. Events are only acted on once Run is called.
func NewWatcher(c WatcherConfig) (*Watcher, error) {
	if c.Pool == nil {
		return nil, errors.New("pool is required")
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	info, err := os.Stat(c.Dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", c.Dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(c.Dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", c.Dir, err)
	}

	return &Watcher{
		config:  c,
		fsw:     fsw,
		logger:  c.Logger,
		pending: make(map[string]*settleTimer),
		ready:   make(chan settled),
		done:    make(chan struct{}),
	}, nil
}

// Run dispatches settled exports to the pool until ctx is done. It closes
// the underlying watcher on return; the caller still owns the pool.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	if w.config.ScanExisting {
		if err := w.scan(); err != nil {
			return err
		}
	}

	w.logger.Info("watching for exports", "dir", w.config.Dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case s := <-w.ready:
			if w.settle(s) {
				w.config.Pool.Enqueue(Job{Path: s.path})
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !wanted(event.Name) {
		return
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.schedule(event.Name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if t, ok := w.pending[event.Name]; ok {
			t.timer.Stop()
			delete(w.pending, event.Name)
		}
	}
}

// schedule (re)starts the settle timer for path. The previous timer is
// replaced, never reset, since its callback may already be waiting to send.
func (w *Watcher) schedule(path string) {
	if t, ok := w.pending[path]; ok {
		t.timer.Stop()
	} else {
		w.logger.Debug("export detected", "path", path)
	}

	w.gen++
	s := settled{path: path, gen: w.gen}
	w.pending[path] = &settleTimer{
		gen: w.gen,
		timer: time.AfterFunc(w.config.Settle, func() {
			select {
			case w.ready <- s:
			case <-w.done:
			}
		}),
	}
}

// settle reports whether s comes from the live timer for its path and
// forgets the path if so. Signals from replaced or cancelled timers are stale.
func (w *Watcher) settle(s settled) bool {
	t, ok := w.pending[s.path]
	if !ok || t.gen != s.gen {
		return false
	}
	delete(w.pending, s.path)
	return true
}

func (w *Watcher) scan() error {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", w.config.Dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !wanted(e.Name()) {
			continue
		}
		w.config.Pool.Enqueue(Job{Path: filepath.Join(w.config.Dir, e.Name())})
	}
	return nil
}

func (w *Watcher) stop() {
	close(w.done)
	for path, t := range w.pending {
		t.timer.Stop()
		delete(w.pending, path)
	}
	if err := w.fsw.Close(); err != nil {
		w.logger.Debug("closing watcher", "error", err)
	}
}

// wanted skips hidden files and office lock files.
func wanted(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	return campaign.IsSupported(base)
}
