package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClock_Now(t *testing.T) {
	c := Fake(epoch)
	c.Advance(5 * time.Second)
	if got, want := c.Now(), epoch.Add(5*time.Second); !got.Equal(want) {
		t.Fatalf("Now()=%v, want %v", got, want)
	}
}

func TestFakeClock_AfterFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)
	ch := c.After(3 * time.Second)

	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	c.Advance(3 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("After did not fire after Advance")
	}
}

func TestFakeClock_AfterFuncStop(t *testing.T) {
	c := Fake(epoch)
	var calls atomic.Int32
	timer := c.AfterFunc(time.Second, func() { calls.Add(1) })

	if !timer.Stop() {
		t.Fatal("Stop on pending timer should return true")
	}
	c.Advance(2 * time.Second)
	if calls.Load() != 0 {
		t.Errorf("stopped callback ran %d times", calls.Load())
	}
	if timer.Stop() {
		t.Error("second Stop should return false")
	}
}

func TestFakeClock_AfterFuncOrder(t *testing.T) {
	c := Fake(epoch)
	var order []int
	c.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	c.AfterFunc(1*time.Second, func() { order = append(order, 1) })

	c.Advance(5 * time.Second)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order=%v, want [1 2]", order)
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount()=%d, want 0", c.PendingCount())
	}
}

func TestFakeClock_AfterFuncRearmFromCallback(t *testing.T) {
	c := Fake(epoch)
	var calls atomic.Int32
	var fn func()
	fn = func() {
		if calls.Add(1) < 3 {
			c.AfterFunc(time.Second, fn)
		}
	}
	c.AfterFunc(time.Second, fn)

	c.Advance(time.Second)
	c.Advance(time.Second)
	c.Advance(time.Second)
	if got := calls.Load(); got != 3 {
		t.Errorf("calls=%d, want 3", got)
	}
}
