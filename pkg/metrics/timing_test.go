package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestTimingMetric_RecordAndStats(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test")
	for _, ms := range []int{1, 2, 3, 4, 10} {
		m.Record(time.Duration(ms) * time.Millisecond)
	}

	st := m.Stats()
	if st.Count != 5 {
		t.Fatalf("Count = %d, want 5", st.Count)
	}
	if st.MinMs != 1 || st.MaxMs != 10 {
		t.Errorf("min/max = %v/%v, want 1/10", st.MinMs, st.MaxMs)
	}
	if st.AvgMs != 4 {
		t.Errorf("AvgMs = %v, want 4", st.AvgMs)
	}
	if st.P50Ms != 3 {
		t.Errorf("P50Ms = %v, want 3", st.P50Ms)
	}
	if st.P95Ms != 10 {
		t.Errorf("P95Ms = %v, want 10", st.P95Ms)
	}
	if st.StdDevMs <= 0 {
		t.Errorf("StdDevMs = %v, want > 0", st.StdDevMs)
	}
}

func TestTimingMetric_SampleWindowWraps(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("wrap")
	for i := 0; i < sampleWindow+10; i++ {
		m.Record(time.Millisecond)
	}
	m.mu.Lock()
	n := len(m.samples)
	m.mu.Unlock()
	if n != sampleWindow {
		t.Errorf("samples = %d, want %d", n, sampleWindow)
	}
	if m.Count() != int64(sampleWindow+10) {
		t.Errorf("Count = %d", m.Count())
	}
}

func TestTimingMetric_Disabled(t *testing.T) {
	SetEnabled(false)
	t.Cleanup(func() { SetEnabled(true) })

	m := newTimingMetric("off")
	m.Record(time.Second)
	Timer(m)()
	if m.Count() != 0 {
		t.Errorf("disabled metric recorded %d samples", m.Count())
	}
}

func TestTimingMetric_ConcurrentRecord(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("concurrent")
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Record(time.Microsecond)
			}
		}()
	}
	wg.Wait()
	if m.Count() != 800 {
		t.Errorf("Count = %d, want 800", m.Count())
	}
}

func TestResetAllAndAllTimingStats(t *testing.T) {
	SetEnabled(true)
	ResetAll()
	SortLocal.Record(2 * time.Millisecond)

	var called time.Duration
	TimerWithCallback(WorkerSort, func(d time.Duration) { called = d })()
	if called < 0 {
		t.Fatalf("callback duration %v", called)
	}

	stats := AllTimingStats()
	if len(stats) != 2 {
		t.Fatalf("AllTimingStats len = %d, want 2", len(stats))
	}
	ResetAll()
	if len(AllTimingStats()) != 0 {
		t.Error("ResetAll left data behind")
	}
}
