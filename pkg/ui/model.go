// Package ui is the Bubble Tea front end of roomlist. It renders a window
// of the engine's visible order and starts engine operations from keys.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/roomlist/pkg/clock"
	"github.com/vanderheijden86/roomlist/pkg/engine"
	"github.com/vanderheijden86/roomlist/pkg/metrics"
	"github.com/vanderheijden86/roomlist/pkg/model"
	"github.com/vanderheijden86/roomlist/pkg/pressure"
)

// bottomZone is how many trailing rows count as "the bottom is visible".
const bottomZone = 3

// chrome is the number of lines outside the list: header, divider,
// status bar and help line.
const chrome = 4

// Options configures the Model.
type Options struct {
	InsertCount      int           // rooms per insert (default 100)
	LoadCount        int           // rooms per load-older (default 50)
	TouchCount       int           // rooms per touch (default 100)
	ScrollTrigger    time.Duration // infinite-scroll interval (default 500ms)
	PressureInterval time.Duration // CPU pressure sampling (default 1s)
	Clock            clock.Clock
	Sampler          *pressure.Sampler
}

func (o *Options) setDefaults() {
	if o.InsertCount <= 0 {
		o.InsertCount = 100
	}
	if o.LoadCount <= 0 {
		o.LoadCount = 50
	}
	if o.TouchCount <= 0 {
		o.TouchCount = 100
	}
	if o.ScrollTrigger <= 0 {
		o.ScrollTrigger = 500 * time.Millisecond
	}
	if o.PressureInterval <= 0 {
		o.PressureInterval = time.Second
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Sampler == nil {
		o.Sampler = pressure.NewSampler()
	}
}

// Model is the main Bubble Tea model for roomlist.
type Model struct {
	ctx    context.Context
	engine *engine.Engine
	opts   Options
	keys   KeyMap
	help   help.Model

	width  int
	height int
	ready  bool

	// cursor is an absolute position in the visible order; offset is the
	// first position on screen.
	cursor int
	offset int
	rows   []model.Room
	state  engine.State

	spinnerIdx    int
	statusMsg     string
	statusIsError bool
	lastSort      engine.SortCommittedMsg
	dropped       int
	workerLog     string
	pressure      pressure.Reading

	showHelp     bool
	helpView     viewport.Model
	editingChunk bool
	chunkInput   textinput.Model

	scroll *scrollTrigger
}

// NewModel builds a Model over a started engine. ctx bounds the
// operations the model runs.
func NewModel(ctx context.Context, e *engine.Engine, opts Options) Model {
	opts.setDefaults()

	ti := textinput.New()
	ti.Placeholder = "chunk size"
	ti.CharLimit = 6
	ti.Width = 8

	m := Model{
		ctx:        ctx,
		engine:     e,
		opts:       opts,
		keys:       DefaultKeyMap,
		help:       help.New(),
		chunkInput: ti,
		scroll:     newScrollTrigger(opts.Clock),
		pressure:   pressure.Reading{State: pressure.Unsupported},
	}
	m.refresh()
	return m
}

// Init starts the engine listener and the periodic ticks.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		WaitForEngineMsgCmd(m.engine),
		spinnerTickCmd(),
		scrollTickCmd(m.opts.ScrollTrigger),
		samplePressureCmd(m.opts.Sampler, 0),
	)
}

// Update handles input, engine events and ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.helpView = viewport.New(max(msg.Width-4, 10), max(msg.Height-4, 3))
		m.helpView.SetContent(renderHelp(msg.Width - 6))
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case engine.RoomsChangedMsg:
		m.refresh()
		return m, WaitForEngineMsgCmd(m.engine)

	case engine.SortCommittedMsg:
		m.lastSort = msg
		m.refresh()
		return m, WaitForEngineMsgCmd(m.engine)

	case engine.SortDroppedMsg:
		m.dropped++
		m.refresh()
		return m, WaitForEngineMsgCmd(m.engine)

	case engine.WorkerLogMsg:
		m.workerLog = msg.Text
		return m, WaitForEngineMsgCmd(m.engine)

	case engine.OpDoneMsg:
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.setError(fmt.Sprintf("%s failed: %v", msg.Op, msg.Err))
		} else if msg.Err == nil {
			m.setStatus(fmt.Sprintf("%s %d in %s", opLabel(msg.Op), msg.Count, msg.Duration.Round(time.Millisecond)))
		}
		m.refresh()
		return m, WaitForEngineMsgCmd(m.engine)

	case opResultMsg:
		switch {
		case msg.Err != nil && !errors.Is(msg.Err, context.Canceled):
			m.setError(fmt.Sprintf("%s failed: %v", msg.Op, msg.Err))
		case msg.Err == nil && !msg.Accepted:
			m.setStatus(opLabel(msg.Op) + " already running")
		}
		m.refresh()
		return m, nil

	case spinnerTickMsg:
		m.state = m.engine.State()
		if m.busy() {
			m.spinnerIdx = (m.spinnerIdx + 1) % len(spinnerFrames)
		} else {
			m.spinnerIdx = 0
		}
		return m, spinnerTickCmd()

	case scrollTickMsg:
		tick := scrollTickCmd(m.opts.ScrollTrigger)
		if !m.scroll.Armed() || m.engine.IsLoading() {
			return m, tick
		}
		return m, tea.Batch(tick, runOpCmd(m.ctx, m.engine, engine.OpLoadOlder, m.opts.LoadCount))

	case pressureMsg:
		m.pressure = msg.Reading
		if msg.Err != nil || msg.Reading.State == pressure.Unsupported {
			// No PSI here; stop sampling.
			return m, nil
		}
		return m, samplePressureCmd(m.opts.Sampler, m.opts.PressureInterval)

	case ConfigChangedMsg:
		if msg.Err != nil {
			m.setError(fmt.Sprintf("config reload: %v", msg.Err))
			return m, nil
		}
		if msg.ChunkSize > 0 {
			if err := m.engine.SetChunkSize(msg.ChunkSize); err != nil {
				m.setError(err.Error())
				return m, nil
			}
		}
		m.engine.SetUseWorker(msg.UseWorker)
		m.setStatus("config reloaded")
		m.refresh()
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editingChunk {
		return m.handleChunkInput(msg)
	}
	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Help), msg.String() == "esc":
			m.showHelp = false
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		}
		var cmd tea.Cmd
		m.helpView, cmd = m.helpView.Update(msg)
		return m, cmd
	}

	page := max(m.listHeight()-1, 1)
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.helpView.GotoTop()
	case key.Matches(msg, m.keys.Up):
		m.cursor--
	case key.Matches(msg, m.keys.Down):
		m.cursor++
	case key.Matches(msg, m.keys.PageUp):
		m.cursor -= page
	case key.Matches(msg, m.keys.PageDown):
		m.cursor += page
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
	case key.Matches(msg, m.keys.End):
		m.cursor = m.state.Len - 1

	case key.Matches(msg, m.keys.Insert):
		return m, runOpCmd(m.ctx, m.engine, engine.OpInsert, m.opts.InsertCount)
	case key.Matches(msg, m.keys.LoadOlder):
		return m, runOpCmd(m.ctx, m.engine, engine.OpLoadOlder, m.opts.LoadCount)
	case key.Matches(msg, m.keys.Touch):
		return m, runOpCmd(m.ctx, m.engine, engine.OpTouch, m.opts.TouchCount)
	case key.Matches(msg, m.keys.Sort):
		return m, runOpCmd(m.ctx, m.engine, engine.OpSort, 0)

	case key.Matches(msg, m.keys.Worker):
		on := !m.engine.UseWorker()
		m.engine.SetUseWorker(on)
		if on {
			m.setStatus("sorting on the worker")
		} else {
			m.setStatus("sorting locally")
		}
	case key.Matches(msg, m.keys.ChunkSize):
		m.editingChunk = true
		m.chunkInput.SetValue(strconv.Itoa(m.engine.ChunkSize()))
		m.chunkInput.CursorEnd()
		return m, m.chunkInput.Focus()
	case key.Matches(msg, m.keys.CopyRoomID):
		if r, ok := m.selected(); ok {
			if err := clipboard.WriteAll(r.ID); err != nil {
				m.setError(fmt.Sprintf("Clipboard error: %v", err))
			} else {
				m.setStatus(fmt.Sprintf("Copied %s to clipboard", r.ID))
			}
		}
	}
	m.refresh()
	return m, nil
}

func (m Model) handleChunkInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editingChunk = false
		m.chunkInput.Blur()
		return m, nil
	case "enter":
		m.editingChunk = false
		m.chunkInput.Blur()
		n, err := strconv.Atoi(strings.TrimSpace(m.chunkInput.Value()))
		if err != nil {
			m.setError(fmt.Sprintf("not a number: %q", m.chunkInput.Value()))
			return m, nil
		}
		if err := m.engine.SetChunkSize(n); err != nil {
			m.setError(err.Error())
			return m, nil
		}
		m.setStatus(fmt.Sprintf("chunk size %d", n))
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.chunkInput, cmd = m.chunkInput.Update(msg)
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.scroll.Stop()
	return m, tea.Quit
}

// refresh re-reads engine state and the visible page, keeping the cursor
// on screen.
func (m *Model) refresh() {
	m.state = m.engine.State()
	n := m.state.Len
	m.cursor = clamp(m.cursor, 0, n-1)

	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	m.offset = clamp(m.offset, 0, max(n-h, 0))
	m.rows = m.engine.Page(m.offset, h)

	m.scroll.SetVisible(n > 0 && m.cursor >= n-bottomZone)
}

func (m Model) listHeight() int {
	if !m.ready {
		return 20
	}
	return max(m.height-chrome, 1)
}

func (m Model) selected() (model.Room, bool) {
	i := m.cursor - m.offset
	if i < 0 || i >= len(m.rows) {
		return model.Room{}, false
	}
	return m.rows[i], true
}

func (m Model) busy() bool {
	s := m.state
	return s.Sorting || s.Inserting || s.Loading || s.Resetting
}

func (m *Model) setStatus(s string) {
	m.statusMsg = s
	m.statusIsError = false
}

func (m *Model) setError(s string) {
	m.statusMsg = s
	m.statusIsError = true
}

// View renders the header, the visible rows and the status bar.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	defer metrics.Timer(metrics.UIRender)()

	if m.showHelp {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			overlayStyle.Render(m.helpView.View()))
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	now := m.opts.Clock.Now()
	h := m.listHeight()
	for i := 0; i < h; i++ {
		if i < len(m.rows) {
			sb.WriteString(renderRow(m.rows[i], m.width, m.offset+i == m.cursor, now))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(RenderDivider(m.width - 1))
	sb.WriteString("\n")
	sb.WriteString(m.renderStatusBar())
	sb.WriteString("\n")
	if m.editingChunk {
		sb.WriteString("chunk size: " + m.chunkInput.View())
	} else {
		sb.WriteString(m.help.View(m.keys))
	}
	return sb.String()
}

func (m Model) renderHeader() string {
	s := m.state
	worker := "local"
	if s.UseWorker {
		worker = "worker"
	}
	pos := 0
	if s.Len > 0 {
		pos = m.cursor + 1
	}
	left := headerStyle.Render("roomlist") + mutedStyle.Render(fmt.Sprintf(
		"  %d/%d rooms  chunk %d  sort %s", pos, s.Len, s.ChunkSize, worker))
	right := RenderPressure(m.pressure.State)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 1
	if gap < 1 {
		return truncate(left, m.width-1)
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderStatusBar() string {
	s := m.state
	var flags []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{s.Sorting, "sorting"},
		{s.Inserting, "inserting"},
		{s.Loading, "loading"},
		{s.Resetting, "touching"},
	} {
		if f.on {
			flags = append(flags, f.name)
		}
	}

	var activity string
	if len(flags) > 0 {
		activity = busyStyle.Render(spinnerFrames[m.spinnerIdx%len(spinnerFrames)] + " " + strings.Join(flags, " "))
	} else {
		activity = idleStyle.Render("● idle")
	}

	parts := []string{activity}
	if m.lastSort.Tag != 0 {
		parts = append(parts, infoStyle.Render(fmt.Sprintf("sorted %d via %s in %s",
			m.lastSort.Len, m.lastSort.Via, m.lastSort.Duration.Round(time.Millisecond))))
	}
	if m.dropped > 0 {
		parts = append(parts, mutedStyle.Render(fmt.Sprintf("%d stale", m.dropped)))
	}
	if m.statusMsg != "" {
		if m.statusIsError {
			parts = append(parts, errorStyle.Render(m.statusMsg))
		} else {
			parts = append(parts, m.statusMsg)
		}
	}

	line := strings.Join(parts, "  ")
	if m.width > 0 {
		line = truncateRunesHelper(line, m.width*4, "")
		return statusBarStyle.Width(m.width - 1).MaxHeight(1).Render(line)
	}
	return line
}

func opLabel(op engine.Op) string {
	switch op {
	case engine.OpInsert:
		return "insert"
	case engine.OpLoadOlder:
		return "load older"
	case engine.OpTouch:
		return "touch"
	case engine.OpSort:
		return "sort"
	default:
		return string(op)
	}
}
