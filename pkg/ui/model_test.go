package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/roomlist/pkg/clock"
	"github.com/vanderheijden86/roomlist/pkg/engine"
	"github.com/vanderheijden86/roomlist/pkg/model"
	"github.com/vanderheijden86/roomlist/pkg/roomgen"
	"github.com/vanderheijden86/roomlist/pkg/scheduler"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, rooms int) (Model, *engine.Engine, *clock.FakeClock) {
	t.Helper()
	fc := clock.Fake(epoch)
	cfg := engine.DefaultConfig()
	cfg.UseWorker = false
	cfg.InitialCount = rooms
	cfg.Clock = fc
	cfg.Scheduler = scheduler.Immediate{}
	cfg.Factory = roomgen.New(roomgen.Config{Seed: 11})
	cfg.LogLevel = engine.LogLevelError
	e := engine.New(cfg)
	t.Cleanup(e.Stop)

	m := NewModel(context.Background(), e, Options{
		InsertCount:   20,
		LoadCount:     15,
		TouchCount:    5,
		ScrollTrigger: time.Millisecond,
		Clock:         fc,
	})
	t.Cleanup(m.scroll.Stop)
	// 14 lines leaves a 10-row list.
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 14})
	return updated.(Model), e, fc
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = m.Update(keyMsg(k))
		m = updated.(Model)
	}
	return m, cmd
}

// runCmd executes cmd and feeds its message back into the model.
func runCmd(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Msg) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	updated, _ := m.Update(msg)
	return updated.(Model), msg
}

func TestModel_ViewBeforeReady(t *testing.T) {
	e := engine.New(engine.Config{InitialCount: -1, Scheduler: scheduler.Immediate{}, LogLevel: engine.LogLevelError})
	defer e.Stop()
	m := NewModel(context.Background(), e, Options{Clock: clock.Fake(epoch)})
	defer m.scroll.Stop()
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View() = %q, want Initializing...", got)
	}
}

func TestModel_CursorNavigation(t *testing.T) {
	m, _, _ := newTestModel(t, 30)

	m, _ = press(t, m, "j", "j", "j")
	if m.cursor != 3 || m.offset != 0 {
		t.Fatalf("after 3 downs cursor=%d offset=%d, want 3/0", m.cursor, m.offset)
	}

	for i := 0; i < 9; i++ {
		m, _ = press(t, m, "down")
	}
	if m.cursor != 12 {
		t.Fatalf("cursor = %d, want 12", m.cursor)
	}
	if m.offset != 3 {
		t.Errorf("offset = %d, want 3 so the cursor stays on screen", m.offset)
	}
	if len(m.rows) != 10 {
		t.Errorf("visible rows = %d, want 10", len(m.rows))
	}

	m, _ = press(t, m, "G")
	if m.cursor != 29 || m.offset != 20 {
		t.Errorf("End: cursor=%d offset=%d, want 29/20", m.cursor, m.offset)
	}
	m, _ = press(t, m, "j")
	if m.cursor != 29 {
		t.Errorf("cursor moved past the end: %d", m.cursor)
	}
	m, _ = press(t, m, "g", "k")
	if m.cursor != 0 || m.offset != 0 {
		t.Errorf("Home: cursor=%d offset=%d, want 0/0", m.cursor, m.offset)
	}
}

func TestModel_RowsFollowVisibleOrder(t *testing.T) {
	m, e, _ := newTestModel(t, 25)

	want := e.Page(0, 10)
	if len(m.rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(m.rows), len(want))
	}
	for i := range want {
		if m.rows[i].ID != want[i].ID {
			t.Errorf("row %d = %s, want %s", i, m.rows[i].ID, want[i].ID)
		}
	}
	for i := 1; i < len(m.rows); i++ {
		if m.rows[i].Recency > m.rows[i-1].Recency {
			t.Errorf("row %d is newer than row %d", i, i-1)
		}
	}
}

func TestModel_OperationKeys(t *testing.T) {
	tests := []struct {
		key     string
		op      engine.Op
		wantLen int
	}{
		{"i", engine.OpInsert, 30 + 20},
		{"l", engine.OpLoadOlder, 30 + 15},
		{"r", engine.OpTouch, 30},
		{"s", engine.OpSort, 30},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			m, e, _ := newTestModel(t, 30)
			m, cmd := press(t, m, tt.key)
			m, msg := runCmd(t, m, cmd)

			res, ok := msg.(opResultMsg)
			if !ok {
				t.Fatalf("msg = %T, want opResultMsg", msg)
			}
			if res.Op != tt.op || !res.Accepted || res.Err != nil {
				t.Fatalf("result = %+v", res)
			}
			if e.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", e.Len(), tt.wantLen)
			}
			if m.state.Len != tt.wantLen {
				t.Errorf("model state Len = %d, want %d", m.state.Len, tt.wantLen)
			}
			if !model.IsSortedByRecency(e.Snapshot()) {
				t.Error("list not sorted after operation")
			}
		})
	}
}

func TestModel_RejectedOpSetsStatus(t *testing.T) {
	m, _, _ := newTestModel(t, 5)
	updated, _ := m.Update(opResultMsg{Op: engine.OpInsert, Accepted: false})
	m = updated.(Model)
	if m.statusMsg != "insert already running" || m.statusIsError {
		t.Errorf("status = %q (error=%v)", m.statusMsg, m.statusIsError)
	}

	updated, _ = m.Update(opResultMsg{Op: engine.OpLoadOlder, Err: errors.New("boom")})
	m = updated.(Model)
	if !m.statusIsError || !strings.Contains(m.statusMsg, "boom") {
		t.Errorf("status = %q (error=%v), want error", m.statusMsg, m.statusIsError)
	}

	updated, _ = m.Update(opResultMsg{Op: engine.OpTouch, Err: context.Canceled})
	m = updated.(Model)
	if strings.Contains(m.statusMsg, "touch") {
		t.Errorf("cancellation should not be reported, got %q", m.statusMsg)
	}

	updated, _ = m.Update(opResultMsg{Op: engine.OpSort, Err: context.Canceled})
	m = updated.(Model)
	if strings.Contains(m.statusMsg, "already running") {
		t.Errorf("cancelled sort reported as busy: %q", m.statusMsg)
	}
}

func TestRunOpCmd_CancelledSortIsAccepted(t *testing.T) {
	m, _, _ := newTestModel(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msg, ok := runOpCmd(ctx, m.engine, engine.OpSort, 0)().(opResultMsg)
	if !ok {
		t.Fatal("runOpCmd did not return an opResultMsg")
	}
	if !msg.Accepted {
		t.Errorf("sort result = %+v, want accepted", msg)
	}
	updated, _ := m.Update(msg)
	if got := updated.(Model).statusMsg; strings.Contains(got, "already running") {
		t.Errorf("status = %q", got)
	}
}

func TestModel_HelpToggle(t *testing.T) {
	m, _, _ := newTestModel(t, 5)

	m, _ = press(t, m, "?")
	if !m.showHelp {
		t.Fatal("help not shown")
	}
	if !strings.Contains(m.View(), "roomlist") {
		t.Error("help overlay missing title")
	}
	// Operation keys are inert while help is open.
	_, cmd := press(t, m, "i")
	if cmd != nil {
		if _, ok := cmd().(opResultMsg); ok {
			t.Error("insert ran while help was open")
		}
	}
	m, _ = press(t, m, "esc")
	if m.showHelp {
		t.Error("esc did not close help")
	}
}

func TestModel_ChunkSizePrompt(t *testing.T) {
	m, e, _ := newTestModel(t, 5)

	m, _ = press(t, m, "c")
	if !m.editingChunk {
		t.Fatal("chunk prompt not open")
	}
	if got := m.chunkInput.Value(); got != "100" {
		t.Errorf("prompt value = %q, want current size 100", got)
	}
	if !strings.Contains(m.View(), "chunk size:") {
		t.Error("prompt not rendered")
	}

	m.chunkInput.SetValue("25")
	m, _ = press(t, m, "enter")
	if m.editingChunk {
		t.Error("prompt still open after enter")
	}
	if e.ChunkSize() != 25 {
		t.Errorf("ChunkSize() = %d, want 25", e.ChunkSize())
	}

	m, _ = press(t, m, "c")
	m.chunkInput.SetValue("0")
	m, _ = press(t, m, "enter")
	if !m.statusIsError {
		t.Error("zero chunk size accepted without error")
	}
	if e.ChunkSize() != 25 {
		t.Errorf("ChunkSize() = %d after rejected input, want 25", e.ChunkSize())
	}

	m, _ = press(t, m, "c")
	m.chunkInput.SetValue("lots")
	m, _ = press(t, m, "enter")
	if !m.statusIsError || !strings.Contains(m.statusMsg, "not a number") {
		t.Errorf("status = %q, want parse error", m.statusMsg)
	}
}

func TestModel_WorkerToggle(t *testing.T) {
	m, e, _ := newTestModel(t, 5)
	m, _ = press(t, m, "w")
	if !e.UseWorker() || !m.state.UseWorker {
		t.Error("worker not enabled")
	}
	m, _ = press(t, m, "w")
	if e.UseWorker() || m.state.UseWorker {
		t.Error("worker not disabled")
	}
	if m.statusMsg != "sorting locally" {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestModel_InfiniteScrollArmsAtBottom(t *testing.T) {
	m, e, fc := newTestModel(t, 30)

	// Not at the bottom: the tick only reschedules itself.
	updated, cmd := m.Update(scrollTickMsg{})
	m = updated.(Model)
	if _, isBatch := cmd().(tea.BatchMsg); isBatch {
		t.Fatal("load triggered while the bottom was not visible")
	}

	m, _ = press(t, m, "G")
	if m.scroll.Armed() {
		t.Fatal("armed before the debounce elapsed")
	}
	fc.Advance(scrollArmWait)
	if !m.scroll.Armed() {
		t.Fatal("not armed after the debounce")
	}

	_, cmd = m.Update(scrollTickMsg{})
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) != 2 {
		t.Fatalf("expected tick and load commands, got %T", cmd())
	}
	res, ok := batch[1]().(opResultMsg)
	if !ok || res.Op != engine.OpLoadOlder || !res.Accepted {
		t.Fatalf("load result = %+v", res)
	}
	if e.Len() != 45 {
		t.Errorf("Len() = %d, want 45", e.Len())
	}

	// Leaving the bottom disarms after the debounce.
	m, _ = press(t, m, "g")
	fc.Advance(scrollArmWait)
	if m.scroll.Armed() {
		t.Error("still armed after leaving the bottom")
	}
}

func TestModel_EngineEvents(t *testing.T) {
	m, _, _ := newTestModel(t, 5)

	updated, cmd := m.Update(engine.SortDroppedMsg{Tag: 3, Latest: 4, Reason: "stale"})
	m = updated.(Model)
	if cmd == nil {
		t.Error("engine event did not re-arm the listener")
	}
	if m.dropped != 1 {
		t.Errorf("dropped = %d, want 1", m.dropped)
	}

	updated, _ = m.Update(engine.SortCommittedMsg{Tag: 4, Via: engine.ViaWorker, Len: 5, Duration: 3 * time.Millisecond})
	m = updated.(Model)
	updated, _ = m.Update(engine.WorkerLogMsg{Text: "sorted 5 summaries"})
	m = updated.(Model)

	view := m.View()
	for _, want := range []string{"1 stale", "sorted 5 via worker"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if m.workerLog != "sorted 5 summaries" {
		t.Errorf("workerLog = %q", m.workerLog)
	}
}

func TestModel_ConfigChanged(t *testing.T) {
	m, e, _ := newTestModel(t, 5)

	updated, _ := m.Update(ConfigChangedMsg{ChunkSize: 40, UseWorker: true})
	m = updated.(Model)
	if e.ChunkSize() != 40 || !e.UseWorker() {
		t.Errorf("chunk=%d worker=%v, want 40/true", e.ChunkSize(), e.UseWorker())
	}
	if m.statusMsg != "config reloaded" {
		t.Errorf("status = %q", m.statusMsg)
	}

	updated, _ = m.Update(ConfigChangedMsg{Err: errors.New("bad yaml")})
	m = updated.(Model)
	if !m.statusIsError {
		t.Error("reload error not reported")
	}
	if e.ChunkSize() != 40 {
		t.Errorf("failed reload changed chunk size to %d", e.ChunkSize())
	}
}

func TestModel_Quit(t *testing.T) {
	m, _, _ := newTestModel(t, 5)
	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestModel_ViewFitsHeight(t *testing.T) {
	m, _, _ := newTestModel(t, 50)
	lines := strings.Split(m.View(), "\n")
	if len(lines) != 14 {
		t.Errorf("view has %d lines, want 14", len(lines))
	}
}
