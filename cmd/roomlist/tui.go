package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/vanderheijden86/roomlist/internal/timingdb"
	"github.com/vanderheijden86/roomlist/pkg/config"
	"github.com/vanderheijden86/roomlist/pkg/engine"
	"github.com/vanderheijden86/roomlist/pkg/ui"
	"github.com/vanderheijden86/roomlist/pkg/watcher"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive list (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}
}

func runTUI(cmd *cobra.Command, app *App) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("roomlist needs a terminal; use 'roomlist bench' for headless runs")
	}

	closeLog, err := redirectLog(config.LogPath())
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, cfgErr := app.loadConfig(cmd)
	if cfgErr != nil {
		// Non-fatal: continue with defaults
		log.Printf("config: %v (using defaults)", cfgErr)
	}

	ec := app.engineConfig(cfg)
	if cfg.Timing.DBPath != "" {
		db, err := timingdb.Open(cfg.Timing.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		ec.Observer = db
	}

	e := engine.New(ec)
	if err := e.Start(); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer e.Stop()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := ui.NewModel(ctx, e, ui.Options{
		InsertCount:   cfg.UI.InsertCount,
		LoadCount:     cfg.UI.LoadCount,
		TouchCount:    cfg.UI.TouchCount,
		ScrollTrigger: cfg.UI.ScrollTrigger(),
	})
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return runTUIProgram(p)
	})

	if app.ConfigPath != "" {
		w, err := watcher.New(app.ConfigPath)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			log.Printf("config watch disabled: %v", err)
		} else {
			defer w.Stop()
			g.Go(func() error {
				for {
					select {
					case <-gctx.Done():
						return nil
					case <-w.Changed():
						p.Send(reloadConfig(app.ConfigPath))
					}
				}
			})
		}
	}

	return g.Wait()
}

// reloadConfig re-reads the live-adjustable settings.
func reloadConfig(path string) ui.ConfigChangedMsg {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return ui.ConfigChangedMsg{Err: err}
	}
	cfg.ApplyEnv()
	return ui.ConfigChangedMsg{ChunkSize: cfg.Engine.ChunkSize, UseWorker: cfg.Engine.UseWorker}
}

// redirectLog sends the standard logger to path so log lines do not land
// on the alt screen.
func redirectLog(path string) (func(), error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	prev := log.Writer()
	log.SetOutput(f)
	return func() {
		log.SetOutput(prev)
		f.Close()
	}, nil
}

func runTUIProgram(p *tea.Program) error {
	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set ROOMLIST_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("ROOMLIST_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
