// Package config handles loading and saving roomlist configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/roomlist/config.yaml
//   - State:   ~/.local/state/roomlist/ (log file, timing database)
//
// Values are layered: defaults, then the YAML file, then ROOMLIST_*
// environment variables. Command-line flags are applied last by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "roomlist"

// EngineConfig holds list-engine settings.
type EngineConfig struct {
	ChunkSize    int   `yaml:"chunk_size"`
	UseWorker    bool  `yaml:"use_worker"`
	DebounceMs   int   `yaml:"debounce_ms"`
	MaxWaitMs    int   `yaml:"max_wait_ms"`
	InitialCount int   `yaml:"initial_count"`
	WindowDays   int   `yaml:"window_days"`
	YieldPauseMs int   `yaml:"yield_pause_ms"` // sleep between chunks (0 = just yield)
	Seed         int64 `yaml:"seed"`           // 0 = time based
}

// UIConfig holds TUI settings.
type UIConfig struct {
	InsertCount     int `yaml:"insert_count"`
	LoadCount       int `yaml:"load_count"`
	TouchCount      int `yaml:"touch_count"`
	ScrollTriggerMs int `yaml:"scroll_trigger_ms"` // infinite-scroll poll interval
}

// TimingConfig controls the optional SQLite timing sink.
type TimingConfig struct {
	DBPath string `yaml:"db_path,omitempty"` // empty disables recording
}

// Config is the top-level configuration for roomlist.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	UI     UIConfig     `yaml:"ui"`
	Timing TimingConfig `yaml:"timing,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			ChunkSize:    100,
			UseWorker:    true,
			DebounceMs:   300,
			MaxWaitMs:    2000,
			InitialCount: 10,
			WindowDays:   3,
		},
		UI: UIConfig{
			InsertCount:     100,
			LoadCount:       50,
			TouchCount:      100,
			ScrollTriggerMs: 500,
		},
	}
}

// Debounce returns the sort debounce idle period.
func (e EngineConfig) Debounce() time.Duration {
	return time.Duration(e.DebounceMs) * time.Millisecond
}

// MaxWait returns the sort debounce max wait.
func (e EngineConfig) MaxWait() time.Duration {
	return time.Duration(e.MaxWaitMs) * time.Millisecond
}

// YieldPause returns the pause between chunks.
func (e EngineConfig) YieldPause() time.Duration {
	return time.Duration(e.YieldPauseMs) * time.Millisecond
}

// ScrollTrigger returns the infinite-scroll interval.
func (u UIConfig) ScrollTrigger() time.Duration {
	return time.Duration(u.ScrollTriggerMs) * time.Millisecond
}

// Validate reports every out-of-range value.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("engine.chunk_size must be >= 1, got %d", c.Engine.ChunkSize))
	}
	if c.Engine.DebounceMs < 1 {
		errs = append(errs, fmt.Errorf("engine.debounce_ms must be >= 1, got %d", c.Engine.DebounceMs))
	}
	if c.Engine.MaxWaitMs < c.Engine.DebounceMs {
		errs = append(errs, fmt.Errorf("engine.max_wait_ms (%d) must be >= debounce_ms (%d)", c.Engine.MaxWaitMs, c.Engine.DebounceMs))
	}
	if c.Engine.WindowDays < 1 {
		errs = append(errs, fmt.Errorf("engine.window_days must be >= 1, got %d", c.Engine.WindowDays))
	}
	if c.Engine.InitialCount < 0 {
		errs = append(errs, fmt.Errorf("engine.initial_count must be >= 0, got %d", c.Engine.InitialCount))
	}
	if c.Engine.YieldPauseMs < 0 {
		errs = append(errs, fmt.Errorf("engine.yield_pause_ms must be >= 0, got %d", c.Engine.YieldPauseMs))
	}
	for name, v := range map[string]int{
		"ui.insert_count":      c.UI.InsertCount,
		"ui.load_count":        c.UI.LoadCount,
		"ui.touch_count":       c.UI.TouchCount,
		"ui.scroll_trigger_ms": c.UI.ScrollTriggerMs,
	} {
		if v < 1 {
			errs = append(errs, fmt.Errorf("%s must be >= 1, got %d", name, v))
		}
	}
	return errors.Join(errs...)
}

// ApplyEnv overrides engine settings from ROOMLIST_CHUNK_SIZE,
// ROOMLIST_USE_WORKER, ROOMLIST_DEBOUNCE_MS and ROOMLIST_MAX_WAIT_MS.
// Unparseable values are ignored.
func (c *Config) ApplyEnv() {
	if n, ok := envPositiveInt("ROOMLIST_CHUNK_SIZE"); ok {
		c.Engine.ChunkSize = n
	}
	if b, ok := envBool("ROOMLIST_USE_WORKER"); ok {
		c.Engine.UseWorker = b
	}
	if n, ok := envPositiveInt("ROOMLIST_DEBOUNCE_MS"); ok {
		c.Engine.DebounceMs = n
	}
	if n, ok := envPositiveInt("ROOMLIST_MAX_WAIT_MS"); ok {
		c.Engine.MaxWaitMs = n
	}
}

// ConfigDir returns the XDG config directory for roomlist.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for roomlist.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fallback, appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// LogPath returns where the TUI writes its log.
func LogPath() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, appName+".log")
}

// Load reads the config file from the XDG config directory and applies
// environment overrides. Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		return cfg, nil
	}
	cfg, err := LoadFrom(path)
	cfg.ApplyEnv()
	return cfg, err
}

// LoadFrom reads config from a specific path. Keys missing from the file
// keep their defaults. Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}
	cfg.Timing.DBPath = expandHome(cfg.Timing.DBPath)

	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Write then rename so a watcher never reads a half-written file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func envPositiveInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func envBool(name string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
