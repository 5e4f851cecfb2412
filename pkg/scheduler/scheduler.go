// Package scheduler decides whether bulk mutations run as one pass or as
// chunks separated by yield points.
package scheduler

import (
	"context"
	"runtime"
	"time"

	"github.com/vanderheijden86/roomlist/pkg/clock"
)

// Scheduler is injected into the engine. Chunked schedulers split work and
// call Yield between chunks; others run everything in a single pass.
type Scheduler interface {
	Chunked() bool
	// Yield lets other goroutines run. It returns ctx.Err() once ctx is done.
	Yield(ctx context.Context) error
}

// Yielding hands control back to the runtime between chunks, optionally
// sleeping for Pause so interactive work gets a turn.
type Yielding struct {
	Pause time.Duration
	Clock clock.Clock // nil uses the real clock
}

// NewYielding returns a chunked scheduler with the given pause.
func NewYielding(pause time.Duration, c clock.Clock) *Yielding {
	return &Yielding{Pause: pause, Clock: c}
}

func (y *Yielding) Chunked() bool { return true }

func (y *Yielding) Yield(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runtime.Gosched()
	if y.Pause <= 0 {
		return ctx.Err()
	}
	c := y.Clock
	if c == nil {
		c = clock.Real()
	}
	select {
	case <-c.After(y.Pause):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Immediate never suspends.
type Immediate struct{}

func (Immediate) Chunked() bool { return false }

func (Immediate) Yield(ctx context.Context) error { return ctx.Err() }
