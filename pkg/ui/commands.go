package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/roomlist/pkg/engine"
	"github.com/vanderheijden86/roomlist/pkg/pressure"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// opResultMsg reports whether an operation started by a key was accepted.
type opResultMsg struct {
	Op       engine.Op
	Accepted bool
	Err      error
}

type spinnerTickMsg struct{}

type scrollTickMsg struct{}

type pressureMsg struct {
	Reading pressure.Reading
	Err     error
}

// ConfigChangedMsg carries settings to apply live. Zero ChunkSize leaves
// the chunk size unchanged.
type ConfigChangedMsg struct {
	ChunkSize int
	UseWorker bool
	Err       error
}

// WaitForEngineMsgCmd waits for the next engine event.
func WaitForEngineMsgCmd(e *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		if e == nil {
			return nil
		}
		select {
		case msg := <-e.Messages():
			return msg
		case <-e.Done():
			return nil
		}
	}
}

func runOpCmd(ctx context.Context, e *engine.Engine, op engine.Op, count int) tea.Cmd {
	return func() tea.Msg {
		var (
			ok  bool
			err error
		)
		switch op {
		case engine.OpInsert:
			ok, err = e.InsertBatch(ctx, count)
		case engine.OpLoadOlder:
			ok, err = e.LoadOlder(ctx, count)
		case engine.OpTouch:
			ok, err = e.TouchRandom(ctx, count)
		case engine.OpSort:
			// Sort has no busy flag; it always reaches the engine.
			err = e.Sort(ctx)
			ok = true
		}
		return opResultMsg{Op: op, Accepted: ok, Err: err}
	}
}

func spinnerTickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func scrollTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return scrollTickMsg{}
	})
}

func samplePressureCmd(s *pressure.Sampler, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		rd, err := s.Sample()
		return pressureMsg{Reading: rd, Err: err}
	})
}
