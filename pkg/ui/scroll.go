package ui

import (
	"sync/atomic"
	"time"

	"github.com/vanderheijden86/roomlist/pkg/clock"
	"github.com/vanderheijden86/roomlist/pkg/debounce"
)

// Infinite-scroll arming delays.
const (
	scrollArmWait    = 300 * time.Millisecond
	scrollArmMaxWait = 1000 * time.Millisecond
)

// scrollTrigger tracks whether the bottom of the list is in view. The
// armed state follows visibility through a debounce so brief passes over
// the bottom rows do not start loading.
type scrollTrigger struct {
	visible atomic.Bool
	armed   atomic.Bool
	d       *debounce.Debouncer
}

func newScrollTrigger(c clock.Clock) *scrollTrigger {
	s := &scrollTrigger{}
	s.d = debounce.New(scrollArmWait, func() {
		s.armed.Store(s.visible.Load())
	}, debounce.WithClock(c), debounce.WithMaxWait(scrollArmMaxWait))
	return s
}

// SetVisible records the bottom's visibility.
func (s *scrollTrigger) SetVisible(v bool) {
	if s.visible.Swap(v) != v {
		s.d.Trigger()
	}
}

// Armed reports whether the interval trigger should load more.
func (s *scrollTrigger) Armed() bool {
	return s.armed.Load()
}

// Stop drops any pending change and disarms.
func (s *scrollTrigger) Stop() {
	s.d.Cancel()
	s.armed.Store(false)
}
