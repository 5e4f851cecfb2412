// Package debounce coalesces bursts of calls into a single trailing call.
package debounce

import (
	"sync"
	"time"

	"github.com/vanderheijden86/roomlist/pkg/clock"
)

// Defaults match the engine's sort request debounce.
const (
	DefaultWait    = 300 * time.Millisecond
	DefaultMaxWait = 2000 * time.Millisecond
)

// Debouncer runs fn once input has been quiet for wait, or once maxWait
// has passed since the first pending Trigger, whichever comes first.
// A maxWait of zero disables the cap.
type Debouncer struct {
	clock   clock.Clock
	wait    time.Duration
	maxWait time.Duration
	fn      func()

	mu       sync.Mutex
	pending  bool
	seq      uint64
	idle     *clock.Timer
	deadline *clock.Timer
	fired    uint64
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithClock injects the clock used for timers.
func WithClock(c clock.Clock) Option {
	return func(d *Debouncer) {
		d.clock = c
	}
}

// WithMaxWait sets the max-wait cap.
func WithMaxWait(maxWait time.Duration) Option {
	return func(d *Debouncer) {
		d.maxWait = maxWait
	}
}

// New returns a Debouncer that calls fn. A non-positive wait uses DefaultWait.
func New(wait time.Duration, fn func(), opts ...Option) *Debouncer {
	if wait <= 0 {
		wait = DefaultWait
	}
	d := &Debouncer{
		clock: clock.Real(),
		wait:  wait,
		fn:    fn,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxWait > 0 && d.maxWait < d.wait {
		d.maxWait = d.wait
	}
	return d
}

// Trigger records a call and (re)arms the idle timer.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.pending = true
	if d.idle != nil {
		d.idle.Stop()
	}
	startDeadline := d.deadline == nil && d.maxWait > 0
	d.mu.Unlock()

	// Timers are created outside the lock: a fake clock may run the
	// callback synchronously.
	idle := d.clock.AfterFunc(d.wait, func() { d.fireIdle(seq) })
	var deadline *clock.Timer
	if startDeadline {
		deadline = d.clock.AfterFunc(d.maxWait, d.fireNow)
	}

	d.mu.Lock()
	if d.seq == seq {
		d.idle = idle
	} else {
		idle.Stop()
	}
	if deadline != nil {
		if d.deadline == nil && d.pending {
			d.deadline = deadline
		} else {
			deadline.Stop()
		}
	}
	d.mu.Unlock()
}

// Flush runs fn immediately if a call is pending.
func (d *Debouncer) Flush() {
	d.fireNow()
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.pending = false
	d.stopTimersLocked()
	d.mu.Unlock()
}

// Pending reports whether a call is waiting to fire.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Fired returns how many times fn has run.
func (d *Debouncer) Fired() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired
}

// Wait returns the idle period.
func (d *Debouncer) Wait() time.Duration { return d.wait }

// MaxWait returns the max-wait cap.
func (d *Debouncer) MaxWait() time.Duration { return d.maxWait }

func (d *Debouncer) fireIdle(seq uint64) {
	d.mu.Lock()
	if seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.fireNow()
}

func (d *Debouncer) fireNow() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.fired++
	d.stopTimersLocked()
	fn := d.fn
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (d *Debouncer) stopTimersLocked() {
	if d.idle != nil {
		d.idle.Stop()
		d.idle = nil
	}
	if d.deadline != nil {
		d.deadline.Stop()
		d.deadline = nil
	}
}
