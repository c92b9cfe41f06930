package cascade

import "time"

// DefaultDebounce is the quiet period before a search input is queried.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer delays a handler until input has been quiet for a fixed window.
// Each Trigger supersedes the previous one, so only the last call of a burst
// ever runs. Trigger and Cancel must be called from the event loop; the
// handler runs on the loop too.
type Debouncer struct {
	clock  Clock
	loop   Poster
	window time.Duration

	timer Timer
	gen   uint64
}

// NewDebouncer creates a debouncer firing on loop after window of quiet.
func NewDebouncer(window time.Duration, clock Clock, loop Poster) *Debouncer {
	if clock == nil {
		clock = SystemClock
	}
	return &Debouncer{clock: clock, loop: loop, window: window}
}

// Trigger restarts the quiet period with fn as the pending handler.
func (d *Debouncer) Trigger(fn func()) {
	d.stopTimer()
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.window, func() {
		d.loop.Post(func() {
			// A fire already queued when a newer Trigger or Cancel ran.
			if gen != d.gen {
				return
			}
			d.timer = nil
			fn()
		})
	})
}

// Cancel drops the pending handler, if any.
func (d *Debouncer) Cancel() {
	d.stopTimer()
	d.gen++
}

// Pending reports whether a handler is waiting to fire.
func (d *Debouncer) Pending() bool {
	return d.timer != nil
}

func (d *Debouncer) stopTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
