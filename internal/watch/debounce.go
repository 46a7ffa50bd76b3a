package watch

import (
	"time"

	"github.com/huangsam/autopush/schema"
)

// debouncer keeps the latest event of a burst and releases it once the
// window passes without another event. It is owned by the dispatch loop.
type debouncer struct {
	window  time.Duration
	timer   *time.Timer
	pending schema.ChangeEvent
	armed   bool
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{window: window}
}

func (d *debouncer) enabled() bool {
	return d.window > 0
}

// schedule replaces the pending event and restarts the window.
func (d *debouncer) schedule(ev schema.ChangeEvent) {
	d.pending = ev
	d.armed = true
	if d.timer == nil {
		d.timer = time.NewTimer(d.window)
		return
	}
	d.timer.Reset(d.window)
}

// fired returns the timer channel, or nil when nothing is pending.
func (d *debouncer) fired() <-chan time.Time {
	if !d.armed || d.timer == nil {
		return nil
	}
	return d.timer.C
}

// take returns the pending event and clears it.
func (d *debouncer) take() (schema.ChangeEvent, bool) {
	if !d.armed {
		return schema.ChangeEvent{}, false
	}
	ev := d.pending
	d.pending = schema.ChangeEvent{}
	d.armed = false
	return ev, true
}

func (d *debouncer) stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.armed = false
}
