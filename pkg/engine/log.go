package engine

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// LogLevel controls engine log verbosity.
type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	case LogLevelTrace:
		return "trace"
	default:
		return "none"
	}
}

// ParseLogLevel maps a level name or digit to a LogLevel. Unknown values
// mean warn.
func ParseLogLevel(raw string) LogLevel {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "none", "off", "0":
		return LogLevelNone
	case "error", "err", "1":
		return LogLevelError
	case "warn", "warning", "2":
		return LogLevelWarn
	case "info", "3":
		return LogLevelInfo
	case "debug", "4":
		return LogLevelDebug
	case "trace", "5":
		return LogLevelTrace
	default:
		return LogLevelWarn
	}
}

// eventLog writes structured JSON events through the standard logger and,
// when ROOMLIST_TRACE names a file, appends every event to it as JSONL.
type eventLog struct {
	level     LogLevel
	tracePath string
	traceMu   sync.Mutex
	traceFile *os.File
}

func newEventLog(level LogLevel, tracePath string) *eventLog {
	return &eventLog{level: level, tracePath: strings.TrimSpace(tracePath)}
}

func (l *eventLog) openTrace() {
	if l.tracePath == "" {
		return
	}
	l.traceMu.Lock()
	defer l.traceMu.Unlock()
	if l.traceFile != nil {
		return
	}
	f, err := os.OpenFile(l.tracePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("engine: open trace %s: %v", l.tracePath, err)
		return
	}
	l.traceFile = f
}

func (l *eventLog) closeTrace() {
	l.traceMu.Lock()
	f := l.traceFile
	l.traceFile = nil
	l.traceMu.Unlock()
	if f != nil {
		_ = f.Close()
	}
}

func (l *eventLog) enabled(level LogLevel) bool {
	if level == LogLevelNone {
		return false
	}
	if l.level != LogLevelNone && level <= l.level {
		return true
	}
	l.traceMu.Lock()
	defer l.traceMu.Unlock()
	return l.traceFile != nil
}

func (l *eventLog) event(level LogLevel, event string, fields map[string]any) {
	if l == nil || !l.enabled(level) {
		return
	}

	payload := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level.String(),
		"component": "engine",
		"event":     event,
	}
	for k, v := range fields {
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("engine: failed to marshal log event %s: %v", event, err)
		return
	}

	if l.level != LogLevelNone && level <= l.level {
		log.Printf("%s", b)
	}
	l.traceMu.Lock()
	if l.traceFile != nil {
		_, _ = l.traceFile.Write(append(b, '\n'))
	}
	l.traceMu.Unlock()
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
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

func envPositiveIntOr(name string, fallback int) int {
	n, ok := envPositiveInt(name)
	if !ok {
		return fallback
	}
	return n
}
