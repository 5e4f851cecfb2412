package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/roomlist/pkg/config"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the roomlist config file",
	}
	cmd.AddCommand(newConfigInitCmd(app))
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v (showing defaults)\n", err)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.ConfigPath)
		},
	})
	return cmd
}

func newConfigInitCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file, asking for the main settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.ConfigPath == "" {
				return errors.New("cannot determine config path; pass --config")
			}
			cfg, err := config.LoadFrom(app.ConfigPath)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v (starting from defaults)\n", err)
			}

			if !yes {
				if _, statErr := os.Stat(app.ConfigPath); statErr == nil {
					overwrite := true
					form := newForm(huh.NewGroup(
						huh.NewConfirm().
							Title(fmt.Sprintf("%s exists. Overwrite?", app.ConfigPath)).
							Value(&overwrite),
					))
					if err := form.Run(); err != nil {
						return err
					}
					if !overwrite {
						fmt.Fprintln(cmd.OutOrStdout(), "Config unchanged")
						return nil
					}
				}

				answers := answersFrom(cfg)
				if err := answers.form().Run(); err != nil {
					return err
				}
				if err := answers.apply(&cfg); err != nil {
					return err
				}
			}

			if err := config.SaveTo(cfg, app.ConfigPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", app.ConfigPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Write the current settings without prompting")
	return cmd
}

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// wizardAnswers holds the form fields as text; huh inputs are strings.
type wizardAnswers struct {
	ChunkSize    string
	UseWorker    bool
	DebounceMs   string
	MaxWaitMs    string
	InitialCount string
	InsertCount  string
	TimingDB     string
}

func answersFrom(cfg config.Config) *wizardAnswers {
	return &wizardAnswers{
		ChunkSize:    strconv.Itoa(cfg.Engine.ChunkSize),
		UseWorker:    cfg.Engine.UseWorker,
		DebounceMs:   strconv.Itoa(cfg.Engine.DebounceMs),
		MaxWaitMs:    strconv.Itoa(cfg.Engine.MaxWaitMs),
		InitialCount: strconv.Itoa(cfg.Engine.InitialCount),
		InsertCount:  strconv.Itoa(cfg.UI.InsertCount),
		TimingDB:     cfg.Timing.DBPath,
	}
}

func (a *wizardAnswers) form() *huh.Form {
	return newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Chunk size").
				Description("Rooms mutated between yields").
				Value(&a.ChunkSize).
				Validate(positiveInt(1)),
			huh.NewConfirm().
				Title("Sort on the background worker?").
				Value(&a.UseWorker).
				Affirmative("Worker").
				Negative("Local"),
			huh.NewInput().
				Title("Sort debounce (ms)").
				Value(&a.DebounceMs).
				Validate(positiveInt(1)),
			huh.NewInput().
				Title("Sort max wait (ms)").
				Value(&a.MaxWaitMs).
				Validate(positiveInt(1)),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Rooms at startup").
				Value(&a.InitialCount).
				Validate(positiveInt(0)),
			huh.NewInput().
				Title("Rooms per insert").
				Value(&a.InsertCount).
				Validate(positiveInt(1)),
			huh.NewInput().
				Title("Timing database (optional)").
				Description("SQLite file for per-chunk timings; empty disables").
				Value(&a.TimingDB),
		),
	)
}

func positiveInt(floor int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.New("enter a whole number")
		}
		if n < floor {
			return fmt.Errorf("must be at least %d", floor)
		}
		return nil
	}
}

// apply parses the answers into cfg and validates the result.
func (a *wizardAnswers) apply(cfg *config.Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"chunk size", a.ChunkSize, &cfg.Engine.ChunkSize},
		{"debounce", a.DebounceMs, &cfg.Engine.DebounceMs},
		{"max wait", a.MaxWaitMs, &cfg.Engine.MaxWaitMs},
		{"initial count", a.InitialCount, &cfg.Engine.InitialCount},
		{"insert count", a.InsertCount, &cfg.UI.InsertCount},
	}
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f.raw))
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = n
	}
	cfg.Engine.UseWorker = a.UseWorker
	cfg.Timing.DBPath = strings.TrimSpace(a.TimingDB)
	return cfg.Validate()
}
