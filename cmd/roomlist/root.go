package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/roomlist/pkg/clock"
	"github.com/vanderheijden86/roomlist/pkg/config"
	"github.com/vanderheijden86/roomlist/pkg/engine"
	"github.com/vanderheijden86/roomlist/pkg/model"
	"github.com/vanderheijden86/roomlist/pkg/scheduler"
	"github.com/vanderheijden86/roomlist/pkg/version"
)

// App holds the persistent flags shared by every subcommand.
type App struct {
	ConfigPath string
	LogLevel   string
	TimingDB   string
	CPUProfile string

	// Overrides applied after the config file and environment.
	ChunkSize int
	NoWorker  bool
	Seed      int64

	profile *os.File
}

func newRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "roomlist",
		Short:        "Incrementally maintained, recency-sorted room list",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive list
  roomlist

  # Run the operations headless and print timings as JSON
  roomlist bench --rounds 10 --pretty

  # Write a config file interactively
  roomlist config init
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("chunk-size") && app.ChunkSize < 1 {
			return fmt.Errorf("--chunk-size must be >= 1, got %d", app.ChunkSize)
		}
		if app.CPUProfile == "" {
			return nil
		}
		f, err := os.Create(app.CPUProfile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		app.profile = f
		return nil
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.profile == nil {
			return nil
		}
		pprof.StopCPUProfile()
		return app.profile.Close()
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.ConfigPath, "config", config.ConfigPath(), "Path to config.yaml")
	pf.StringVar(&app.LogLevel, "log-level", os.Getenv("ROOMLIST_LOG_LEVEL"), "Engine log level (none|error|warn|info|debug|trace)")
	pf.StringVar(&app.TimingDB, "timing-db", "", "Record timing samples to this SQLite file")
	pf.StringVar(&app.CPUProfile, "cpu-profile", "", "Write CPU profile to file")
	pf.IntVar(&app.ChunkSize, "chunk-size", 0, "Rooms per chunk (overrides config)")
	pf.BoolVar(&app.NoWorker, "no-worker", false, "Sort on the calling goroutine instead of the worker")
	pf.Int64Var(&app.Seed, "seed", 0, "Room generator seed (0 = config or time based)")

	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newBenchCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the roomlist version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "roomlist %s\n", version.Version)
		},
	}
}

// loadConfig layers the config file, the environment and the flags. A
// broken config file is not fatal: defaults are returned with the error.
func (a *App) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.LoadFrom(a.ConfigPath)
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("chunk-size") {
		cfg.Engine.ChunkSize = a.ChunkSize
	}
	if a.NoWorker {
		cfg.Engine.UseWorker = false
	}
	if flags.Changed("seed") {
		cfg.Engine.Seed = a.Seed
	}
	if a.TimingDB != "" {
		cfg.Timing.DBPath = a.TimingDB
	}
	return cfg, err
}

// engineConfig maps the file configuration onto engine settings.
func (a *App) engineConfig(cfg config.Config) engine.Config {
	ec := engine.DefaultConfig()
	ec.ChunkSize = cfg.Engine.ChunkSize
	ec.UseWorker = cfg.Engine.UseWorker
	ec.DebounceWait = cfg.Engine.Debounce()
	ec.MaxWait = cfg.Engine.MaxWait()
	ec.WindowDays = cfg.Engine.WindowDays
	ec.Seed = cfg.Engine.Seed
	// In the file 0 means an empty list; the engine reads 0 as "default".
	ec.InitialCount = cfg.Engine.InitialCount
	if ec.InitialCount == 0 {
		ec.InitialCount = -1
	}
	ec.Scheduler = scheduler.NewYielding(cfg.Engine.YieldPause(), clock.Real())
	ec.LogLevel = engine.ParseLogLevel(a.LogLevel)
	return ec
}

// settle flushes any pending debounced sort and waits for in-flight sorts
// to resolve. A commit that saw drift schedules another sort, so repeat
// until the list is sorted.
func settle(e *engine.Engine, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		e.FlushSort()
		for e.IsSorting() {
			if time.Now().After(deadline) {
				return false
			}
			time.Sleep(5 * time.Millisecond)
		}
		if model.IsSortedByRecency(e.Snapshot()) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		e.RequestSort()
	}
}
