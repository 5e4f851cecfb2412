package sortworker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vanderheijden86/roomlist/pkg/debug"
	"github.com/vanderheijden86/roomlist/pkg/metrics"
)

// ErrStopped is returned when posting to, or starting, a stopped worker.
var ErrStopped = errors.New("sort worker stopped")

// Config configures a Worker.
type Config struct {
	Buffer      int  // Request and response buffer (default: 8, env ROOMLIST_WORKER_BUFFER)
	Diagnostics bool // Emit a log message with the sort duration for every request
}

// Stats counts worker activity.
type Stats struct {
	Sorted uint64
	Echoed uint64
	Rooms  uint64
}

// Worker sorts requests on its own goroutine. Responses are delivered in
// request order on Messages.
type Worker struct {
	in          chan []byte
	out         chan []byte
	diagnostics bool

	mu      sync.Mutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	sorted atomic.Uint64
	echoed atomic.Uint64
	rooms  atomic.Uint64
}

// New creates a stopped worker; call Start to begin processing.
func New(cfg Config) *Worker {
	if cfg.Buffer <= 0 {
		cfg.Buffer = envPositiveIntOr("ROOMLIST_WORKER_BUFFER", 8)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		in:          make(chan []byte, cfg.Buffer),
		out:         make(chan []byte, cfg.Buffer*2),
		diagnostics: cfg.Diagnostics,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start launches the worker goroutine. Start is idempotent.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrStopped
	}
	if w.started {
		return nil
	}
	w.started = true
	go w.loop()
	return nil
}

// Stop halts the worker. Stop is idempotent.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	started := w.started
	w.mu.Unlock()

	w.cancel()
	if started {
		select {
		case <-w.done:
		case <-time.After(5 * time.Second):
			debug.Log("sort worker: shutdown timeout")
		}
	}
}

// Post hands an encoded request to the worker. It blocks while the
// request buffer is full.
func (w *Worker) Post(ctx context.Context, msg []byte) error {
	select {
	case <-w.ctx.Done():
		return ErrStopped
	default:
	}
	buf := make([]byte, len(msg))
	copy(buf, msg)
	select {
	case w.in <- buf:
		return nil
	case <-w.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns the response channel. It is never closed; use Done.
func (w *Worker) Messages() <-chan []byte {
	return w.out
}

// Done is closed once the worker is stopped.
func (w *Worker) Done() <-chan struct{} {
	return w.ctx.Done()
}

// Stats returns activity counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Sorted: w.sorted.Load(),
		Echoed: w.echoed.Load(),
		Rooms:  w.rooms.Load(),
	}
}

func (w *Worker) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case msg := <-w.in:
			for _, resp := range w.handle(msg) {
				select {
				case w.out <- resp:
				case <-w.ctx.Done():
					return
				}
			}
		}
	}
}

// handle turns one request into its responses. Malformed input is echoed
// back unchanged rather than failing.
func (w *Worker) handle(msg []byte) (out [][]byte) {
	defer func() {
		if r := recover(); r != nil {
			debug.Log("sort worker: panic handling request: %v", r)
			out = [][]byte{w.echo(0, msg)}
		}
	}()

	req, summaries, err := DecodeRequest(msg)
	if err != nil {
		debug.Log("sort worker: %v", err)
		return [][]byte{w.echo(req.Tag, msg)}
	}

	start := time.Now()
	SortInPlace(summaries)
	elapsed := time.Since(start)
	metrics.WorkerSort.Record(elapsed)
	w.sorted.Add(1)
	w.rooms.Add(uint64(len(summaries)))

	resp, err := EncodeResponse(Response{Kind: KindSorted, Tag: req.Tag, Payload: summaries})
	if err != nil {
		return [][]byte{w.echo(req.Tag, msg)}
	}
	if !w.diagnostics {
		return [][]byte{resp}
	}
	logMsg, err := EncodeResponse(Response{
		Kind: KindLog,
		Log:  fmt.Sprintf("sorted %d rooms in %s (flag %d)", len(summaries), elapsed, req.Tag),
	})
	if err != nil {
		return [][]byte{resp}
	}
	return [][]byte{logMsg, resp}
}

func (w *Worker) echo(tag uint64, msg []byte) []byte {
	w.echoed.Add(1)
	b, err := EncodeResponse(Response{Kind: KindEcho, Tag: tag, Raw: string(msg)})
	if err != nil {
		// A string always marshals; fall back to the raw bytes.
		return msg
	}
	return b
}

func envPositiveIntOr(name string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
