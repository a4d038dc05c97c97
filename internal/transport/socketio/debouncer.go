package socketio

import (
	"sync"
	"time"
)

// SearchDebouncer collapses rapid search input into one call. Each Trigger
// restarts the window and only the latest term is delivered.
type SearchDebouncer struct {
	window   time.Duration
	callback func(term string)

	mu      sync.Mutex
	pending string
	armed   bool
	timer   *time.Timer
	stopped bool
}

// NewSearchDebouncer creates a debouncer with the given window duration.
// A zero window delivers every term synchronously.
func NewSearchDebouncer(window time.Duration, callback func(term string)) *SearchDebouncer {
	return &SearchDebouncer{
		window:   window,
		callback: callback,
	}
}

// Trigger records the latest term. The callback is deferred until the
// window elapses without further triggers.
func (d *SearchDebouncer) Trigger(term string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.window <= 0 {
		d.mu.Unlock()
		d.callback(term)
		return
	}

	d.pending = term
	d.armed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
	d.mu.Unlock()
}

// flush delivers the pending term, if any.
func (d *SearchDebouncer) flush() {
	d.mu.Lock()
	if !d.armed || d.stopped {
		d.mu.Unlock()
		return
	}
	term := d.pending
	d.pending = ""
	d.armed = false
	d.mu.Unlock()

	if d.callback != nil {
		d.callback(term)
	}
}

// Stop prevents any further callbacks from firing.
func (d *SearchDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = ""
	d.armed = false
}
