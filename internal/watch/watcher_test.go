package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/huangsam/autopush/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

// recordingHandler records every event it is given.
type recordingHandler struct {
	mu      sync.Mutex
	events  []schema.ChangeEvent
	ctxErrs []error
	fail    bool

	// When set, the first call signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (h *recordingHandler) Handle(ctx context.Context, ev schema.ChangeEvent) (*schema.SyncResult, error) {
	if h.release != nil {
		first := false
		h.once.Do(func() { first = true })
		if first {
			close(h.entered)
			<-h.release
		}
	}

	h.mu.Lock()
	h.events = append(h.events, ev)
	h.ctxErrs = append(h.ctxErrs, ctx.Err())
	h.mu.Unlock()

	if h.fail {
		return &schema.SyncResult{Trigger: ev}, errors.New("push rejected")
	}
	return &schema.SyncResult{Trigger: ev}, nil
}

// filteringHandler rejects events whose path ends with reject.
type filteringHandler struct {
	recordingHandler
	reject string
}

func (h *filteringHandler) Accepts(ev schema.ChangeEvent) bool {
	return !strings.HasSuffix(ev.Path, h.reject)
}

func (h *recordingHandler) snapshot() []schema.ChangeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]schema.ChangeEvent(nil), h.events...)
}

func (h *recordingHandler) sawSuffix(suffix string) bool {
	for _, ev := range h.snapshot() {
		if strings.HasSuffix(filepath.ToSlash(ev.Path), suffix) {
			return true
		}
	}
	return false
}

// startWatcher runs a watcher on root in the background and returns a
// cancel func plus the channel carrying Run's result.
func startWatcher(t *testing.T, opts Options, h Handler) (*Watcher, context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := New(opts, h, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	return w, cancel, errCh
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Root: t.TempDir()}, nil, nil)
	assert.Error(t, err)

	_, err = New(Options{Root: t.TempDir(), Debounce: -time.Second}, &recordingHandler{}, nil)
	assert.Error(t, err)
}

func TestStart_InvalidRoot(t *testing.T) {
	root := t.TempDir()

	w, err := New(Options{Root: filepath.Join(root, "missing")}, &recordingHandler{}, nil)
	require.NoError(t, err)
	assert.ErrorContains(t, w.Start(context.Background()), "cannot watch")

	file := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	w, err = New(Options{Root: file}, &recordingHandler{}, nil)
	require.NoError(t, err)
	assert.ErrorContains(t, w.Start(context.Background()), "must be a directory")
}

func TestWatcher_DeliversCreatedFile(t *testing.T) {
	root := t.TempDir()
	h := &recordingHandler{}
	w, _, _ := startWatcher(t, Options{Root: root, MetadataDir: ".git"}, h)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))

	require.Eventually(t, func() bool { return h.sawSuffix("/a.txt") }, waitFor, tick)
	events := h.snapshot()
	assert.Equal(t, schema.CreateOp, events[0].Op)
	assert.False(t, events[0].Timestamp.IsZero())

	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.Dispatched, int64(1))
	assert.GreaterOrEqual(t, stats.Events, stats.Dispatched)
}

func TestWatcher_RecursiveAndNewDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "existing", "deep"), 0o755))

	h := &recordingHandler{}
	w, _, _ := startWatcher(t, Options{Root: root, MetadataDir: ".git"}, h)
	assert.Equal(t, 3, w.Stats().Watches)

	// Nested directory present at start
	require.NoError(t, os.WriteFile(filepath.Join(root, "existing", "deep", "x.txt"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return h.sawSuffix("existing/deep/x.txt") }, waitFor, tick)

	// Directory created after start; wait until its create event is handled
	require.NoError(t, os.Mkdir(filepath.Join(root, "later"), 0o755))
	require.Eventually(t, func() bool { return h.sawSuffix("/later") }, waitFor, tick)

	require.NoError(t, os.WriteFile(filepath.Join(root, "later", "y.txt"), []byte("y"), 0o644))
	require.Eventually(t, func() bool { return h.sawSuffix("later/y.txt") }, waitFor, tick)
}

func TestWatcher_MetadataDirectoryNotWatched(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "refs"), 0o755))

	h := &recordingHandler{}
	w, _, _ := startWatcher(t, Options{Root: root, MetadataDir: ".git"}, h)
	assert.Equal(t, 1, w.Stats().Watches, "only the root is registered")

	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "refs", "main"), []byte("sha"), 0o644))

	// A following change in the root proves the loop is live
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))
	require.Eventually(t, func() bool { return h.sawSuffix("/b.txt") }, waitFor, tick)

	for _, ev := range h.snapshot() {
		assert.NotContains(t, filepath.ToSlash(ev.Path), ".git/", "no events from inside the metadata directory")
	}
}

func TestWatcher_StopDropsPendingEvents(t *testing.T) {
	root := t.TempDir()
	h := &recordingHandler{entered: make(chan struct{}), release: make(chan struct{})}
	w, err := New(Options{Root: root, MetadataDir: ".git"}, h, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// Run registers watches asynchronously, so wait for the root watch
	require.Eventually(t, func() bool { return w.Stats().Watches == 1 }, waitFor, tick)

	require.NoError(t, os.WriteFile(filepath.Join(root, "first.txt"), []byte("1"), 0o644))
	select {
	case <-h.entered:
	case <-time.After(waitFor):
		t.Fatal("handler was never called")
	}

	// These queue behind the in-flight sync
	require.NoError(t, os.WriteFile(filepath.Join(root, "second.txt"), []byte("2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "third.txt"), []byte("3"), 0o644))
	time.Sleep(50 * time.Millisecond)

	cancel()
	close(h.release)

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Run did not return after cancellation")
	}

	events := h.snapshot()
	require.Len(t, events, 1, "no new sequence starts after cancellation")
	assert.True(t, strings.HasSuffix(events[0].Path, "first.txt"))
	assert.NoError(t, h.ctxErrs[0], "the in-flight sync is not cancelled")
	assert.Equal(t, int64(1), w.Stats().Dispatched)
}

func TestWatcher_RunWithCancelledContext(t *testing.T) {
	root := t.TempDir()
	h := &recordingHandler{}
	w, err := New(Options{Root: root}, h, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	assert.Empty(t, h.snapshot())

	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStopped)
	assert.NoError(t, w.Stop(), "Stop is idempotent")
}

func TestWatcher_StopBeforeStart(t *testing.T) {
	w, err := New(Options{Root: t.TempDir()}, &recordingHandler{}, nil)
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
}

func TestWatcher_CountsFailures(t *testing.T) {
	root := t.TempDir()
	h := &recordingHandler{fail: true}
	w, _, _ := startWatcher(t, Options{Root: root}, h)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.Eventually(t, func() bool { return w.Stats().Failures >= 1 }, waitFor, tick)
	assert.GreaterOrEqual(t, w.Stats().Syncs, int64(1), "failed syncs still produce results")
}

func TestWatcher_Debounce(t *testing.T) {
	root := t.TempDir()
	h := &recordingHandler{}
	w, _, _ := startWatcher(t, Options{Root: root, Debounce: 300 * time.Millisecond}, h)

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(name), 0o644))
	}

	require.Eventually(t, func() bool { return len(h.snapshot()) == 1 }, waitFor, tick)
	time.Sleep(500 * time.Millisecond)

	events := h.snapshot()
	require.Len(t, events, 1, "a burst is coalesced into one dispatch")
	assert.True(t, strings.HasSuffix(events[0].Path, "c.txt"), "the latest event is kept")
	assert.Greater(t, w.Stats().Events, int64(1))
}

func TestWatcher_FilterRunsBeforeDebounce(t *testing.T) {
	root := t.TempDir()
	h := &filteringHandler{reject: ".swp"}
	w, _, _ := startWatcher(t, Options{Root: root, Debounce: 300 * time.Millisecond}, h)

	// An editor saves the file, then touches its swap file inside the window
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".a.txt.swp"), []byte("swap"), 0o644))

	require.Eventually(t, func() bool { return len(h.snapshot()) == 1 }, waitFor, tick)
	time.Sleep(500 * time.Millisecond)

	events := h.snapshot()
	require.Len(t, events, 1)
	assert.True(t, strings.HasSuffix(events[0].Path, "a.txt"), "the rejected event does not replace the pending one")
	assert.False(t, h.sawSuffix(".swp"))
	assert.GreaterOrEqual(t, w.Stats().Filtered, int64(1))
}

func TestWatcher_FilterWithoutDebounce(t *testing.T) {
	root := t.TempDir()
	h := &filteringHandler{reject: ".tmp"}
	w, _, _ := startWatcher(t, Options{Root: root}, h)

	require.NoError(t, os.WriteFile(filepath.Join(root, "scratch.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "kept.txt"), []byte("y"), 0o644))

	require.Eventually(t, func() bool { return h.sawSuffix("kept.txt") }, waitFor, tick)
	assert.False(t, h.sawSuffix(".tmp"), "rejected events never reach Handle")
	assert.GreaterOrEqual(t, w.Stats().Filtered, int64(1))
}

func TestWatcher_NotifierErrors(t *testing.T) {
	w, err := New(Options{Root: t.TempDir()}, &recordingHandler{}, nil)
	require.NoError(t, err)

	w.onNotifierError(fsnotify.ErrEventOverflow)
	w.onNotifierError(errors.New("boom"))
	assert.Equal(t, int64(2), w.Stats().NotifierErrors)
}

func TestDebouncer(t *testing.T) {
	d := newDebouncer(0)
	assert.False(t, d.enabled())
	assert.Nil(t, d.fired())

	d = newDebouncer(20 * time.Millisecond)
	assert.True(t, d.enabled())
	_, ok := d.take()
	assert.False(t, ok)

	d.schedule(schema.ChangeEvent{Path: "a"})
	d.schedule(schema.ChangeEvent{Path: "b"})
	select {
	case <-d.fired():
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}
	ev, ok := d.take()
	require.True(t, ok)
	assert.Equal(t, "b", ev.Path)
	assert.Nil(t, d.fired())
	d.stop()
}
