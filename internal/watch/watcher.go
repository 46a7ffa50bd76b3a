// Package watch delivers filesystem changes under a root directory to a handler,
// one event at a time.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/schema"
	"go.uber.org/zap"
)

// ErrAlreadyStopped is returned when Start is called on a stopped watcher.
var ErrAlreadyStopped = errors.New("watcher already stopped")

// Handler consumes change events. A nil result means the event was filtered.
type Handler interface {
	Handle(ctx context.Context, ev schema.ChangeEvent) (*schema.SyncResult, error)
}

// Filter is implemented by handlers that can reject events up front.
// Rejected events are dropped before debouncing, so they never displace
// a pending event that would trigger a sync.
type Filter interface {
	Accepts(ev schema.ChangeEvent) bool
}

// Options configures a Watcher.
type Options struct {
	Root        string        // Directory watched recursively
	MetadataDir string        // Directories matching this marker are not watched
	Debounce    time.Duration // Coalesce bursts into one event (0 = every event)
}

// Stats counts what the watcher has done so far.
type Stats struct {
	Events         int64 // Events delivered by the notifier
	Filtered       int64 // Events rejected by the handler's Filter
	Dispatched     int64 // Events handed to the handler
	Syncs          int64 // Dispatches that produced a result
	Failures       int64 // Dispatches that returned an error
	NotifierErrors int64 // Errors reported by the notifier
	Watches        int   // Directories currently registered
}

// Watcher registers a handler against a directory tree.
type Watcher struct {
	opts    Options
	handler Handler
	filter  Filter // nil when the handler does not filter
	logger  *zap.SugaredLogger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	started bool
	stopped bool
	watches map[string]struct{}

	done     chan struct{} // closed by Stop
	finished chan struct{} // closed when the dispatch loop exits

	events         atomic.Int64
	filtered       atomic.Int64
	dispatched     atomic.Int64
	syncs          atomic.Int64
	failures       atomic.Int64
	notifierErrors atomic.Int64
}

// New creates a Watcher for opts.Root. Nothing is watched until Start.
func New(opts Options, handler Handler, logger *zap.SugaredLogger) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watch handler cannot be nil")
	}
	if opts.Debounce < 0 {
		return nil, fmt.Errorf("debounce cannot be negative (received %s)", opts.Debounce)
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	opts.Root = filepath.Clean(root)
	if logger == nil {
		logger = contract.NewNopLogger()
	}

	filter, _ := handler.(Filter)
	return &Watcher{
		opts:     opts,
		handler:  handler,
		filter:   filter,
		logger:   logger,
		watches:  make(map[string]struct{}),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}, nil
}

// Start registers every directory under the root and begins dispatching.
// Events stop being dispatched once ctx is cancelled or Stop is called.
// Calling Start on a running watcher does nothing.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrAlreadyStopped
	}
	if w.started {
		return nil
	}

	info, err := os.Stat(w.opts.Root)
	if err != nil {
		return fmt.Errorf("cannot watch %q: %w", w.opts.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root %q must be a directory", w.opts.Root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem notifier: %w", err)
	}
	w.fsw = fsw

	if err := w.addRecursiveLocked(w.opts.Root); err != nil {
		_ = fsw.Close()
		w.fsw = nil
		return err
	}

	w.started = true
	go w.loop(ctx)
	w.logger.Debugw("Watcher started", "root", w.opts.Root, "watches", len(w.watches))
	return nil
}

// Stop unregisters all watches and waits for the dispatch loop to exit.
// A sync that is already running finishes first; pending events are dropped.
// Stop is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.done)
	started := w.started
	var err error
	if w.fsw != nil {
		err = w.fsw.Close()
	}
	w.mu.Unlock()

	if started {
		<-w.finished
	}
	w.logger.Debugw("Watcher stopped", "root", w.opts.Root)
	return err
}

// Run starts the watcher if needed and blocks until ctx is cancelled or the
// notifier shuts down, then stops cleanly.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-w.finished:
	}
	return w.Stop()
}

// Stats returns a snapshot of the watcher counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	watches := len(w.watches)
	w.mu.Unlock()
	return Stats{
		Events:         w.events.Load(),
		Filtered:       w.filtered.Load(),
		Dispatched:     w.dispatched.Load(),
		Syncs:          w.syncs.Load(),
		Failures:       w.failures.Load(),
		NotifierErrors: w.notifierErrors.Load(),
		Watches:        watches,
	}
}

// loop is the single dispatch goroutine. Handling happens inline, so syncs
// never overlap and later events queue behind the current one.
func (w *Watcher) loop(ctx context.Context) {
	defer close(w.finished)

	deb := newDebouncer(w.opts.Debounce)
	defer deb.stop()

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			ev, ok := w.translate(event)
			if !ok {
				continue
			}
			if w.filter != nil && !w.filter.Accepts(ev) {
				w.filtered.Add(1)
				continue
			}
			if deb.enabled() {
				deb.schedule(ev)
				continue
			}
			w.dispatch(ctx, ev)
		case <-deb.fired():
			if ev, ok := deb.take(); ok {
				w.dispatch(ctx, ev)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.onNotifierError(err)
		}
	}
}

// translate converts a notifier event and registers new directories.
func (w *Watcher) translate(event fsnotify.Event) (schema.ChangeEvent, bool) {
	var op schema.EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = schema.CreateOp
	case event.Has(fsnotify.Write):
		op = schema.WriteOp
	case event.Has(fsnotify.Remove):
		op = schema.RemoveOp
	case event.Has(fsnotify.Rename):
		op = schema.RenameOp
	default:
		// Chmod only
		return schema.ChangeEvent{}, false
	}
	w.events.Add(1)

	if op == schema.CreateOp {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if !w.stopped {
				if err := w.addRecursiveLocked(event.Name); err != nil {
					w.logger.Warnw("Failed to watch new directory", "path", event.Name, "error", err)
				}
			}
			w.mu.Unlock()
		}
	}
	if op == schema.RemoveOp || op == schema.RenameOp {
		w.mu.Lock()
		delete(w.watches, event.Name)
		w.mu.Unlock()
	}

	return schema.ChangeEvent{Path: event.Name, Op: op, Timestamp: time.Now()}, true
}

// dispatch hands one event to the handler unless the watcher is shutting down.
func (w *Watcher) dispatch(ctx context.Context, ev schema.ChangeEvent) {
	select {
	case <-w.done:
		return
	case <-ctx.Done():
		return
	default:
	}

	w.dispatched.Add(1)
	// Commands already started are not killed by cancellation
	result, err := w.handler.Handle(context.WithoutCancel(ctx), ev)
	if result != nil {
		w.syncs.Add(1)
	}
	if err != nil {
		w.failures.Add(1)
		w.logger.Warnw("Sync failed", "path", ev.Path, "error", err)
	}
}

func (w *Watcher) onNotifierError(err error) {
	w.notifierErrors.Add(1)
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		w.logger.Warnw("Notifier queue overflowed; some changes were not seen", "error", err)
		return
	}
	w.logger.Warnw("Notifier error", "error", err)
}

// addRecursiveLocked walks dir and adds every directory outside the metadata
// directory. Unreadable subdirectories are skipped; w.mu must be held.
func (w *Watcher) addRecursiveLocked(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.logger.Warnw("Skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel := contract.RelativeEventPath(w.opts.Root, path)
		if rel != "." && contract.IsMetadataPath(rel, w.opts.MetadataDir) {
			return filepath.SkipDir
		}
		if _, ok := w.watches[path]; ok {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			if path == w.opts.Root {
				return fmt.Errorf("failed to watch %q: %w", path, err)
			}
			w.logger.Warnw("Failed to watch directory", "path", path, "error", err)
			return filepath.SkipDir
		}
		w.watches[path] = struct{}{}
		return nil
	})
}
