// Package timingdb records engine timing samples in a SQLite database so
// runs can be compared after the fact.
package timingdb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/roomlist/pkg/debug"
	"github.com/vanderheijden86/roomlist/pkg/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS samples (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run         TEXT    NOT NULL,
	ts          INTEGER NOT NULL,
	op          TEXT    NOT NULL,
	phase       TEXT    NOT NULL,
	size        INTEGER NOT NULL,
	duration_us INTEGER NOT NULL,
	via         TEXT,
	tag         INTEGER,
	committed   INTEGER
);
CREATE INDEX IF NOT EXISTS samples_run ON samples(run, op, phase);
`

const (
	queueSize = 1024
	batchSize = 256
)

type stamped struct {
	at time.Time
	s  engine.Sample
}

// DB is an engine.Observer that writes samples on a background goroutine.
// Observe never blocks; samples are dropped when the queue is full.
type DB struct {
	db   *sql.DB
	path string
	run  string

	mu      sync.RWMutex
	closed  bool
	queue   chan stamped
	done    chan struct{}
	dropped atomic.Uint64
	written atomic.Uint64
}

// Open opens (creating if needed) the database at path and starts a new run.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open timing database: %w", err)
	}
	// One connection keeps writes serialized and ":memory:" a single database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("timingdb: %s: %v", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating timing schema: %w", err)
	}

	d := &DB{
		db:    db,
		path:  path,
		run:   uuid.NewString(),
		queue: make(chan stamped, queueSize),
		done:  make(chan struct{}),
	}
	go d.writer()
	return d, nil
}

// Run returns the id samples from this DB are recorded under.
func (d *DB) Run() string { return d.run }

// Path returns the database path.
func (d *DB) Path() string { return d.path }

// Dropped returns how many samples were discarded on a full queue.
func (d *DB) Dropped() uint64 { return d.dropped.Load() }

// Observe implements engine.Observer.
func (d *DB) Observe(s engine.Sample) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- stamped{at: time.Now(), s: s}:
	default:
		d.dropped.Add(1)
	}
}

func (d *DB) writer() {
	defer close(d.done)
	batch := make([]stamped, 0, batchSize)
	for first := range d.queue {
		batch = append(batch[:0], first)
	fill:
		for len(batch) < batchSize {
			select {
			case s, ok := <-d.queue:
				if !ok {
					break fill
				}
				batch = append(batch, s)
			default:
				break fill
			}
		}
		if err := d.insert(batch); err != nil {
			debug.Log("timingdb: insert %d samples: %v", len(batch), err)
			continue
		}
		d.written.Add(uint64(len(batch)))
	}
}

func (d *DB) insert(batch []stamped) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO samples
		(run, ts, op, phase, size, duration_us, via, tag, committed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range batch {
		s := b.s
		var via sql.NullString
		var tag, committed sql.NullInt64
		if s.Phase == "sort" {
			via = sql.NullString{String: s.Via, Valid: true}
			tag = sql.NullInt64{Int64: int64(s.Tag), Valid: true}
			committed = sql.NullInt64{Int64: boolInt(s.Committed), Valid: true}
		}
		if _, err := stmt.Exec(d.run, b.at.UnixMilli(), string(s.Op), s.Phase, s.Size,
			s.Duration.Microseconds(), via, tag, committed); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Row summarizes one (op, phase) pair.
type Row struct {
	Op    string  `json:"op"`
	Phase string  `json:"phase"`
	Count int64   `json:"count"`
	Items int64   `json:"items"`
	AvgMs float64 `json:"avg_ms"`
	MaxMs float64 `json:"max_ms"`
}

// Summary aggregates samples for run, or for every run when run is "".
// Call Close first to be sure every observed sample has been written.
func (d *DB) Summary(ctx context.Context, run string) ([]Row, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT op, phase, COUNT(*), SUM(size), AVG(duration_us), MAX(duration_us)
		FROM samples
		WHERE (? = '' OR run = ?)
		GROUP BY op, phase
		ORDER BY op, phase`, run, run)
	if err != nil {
		return nil, fmt.Errorf("querying timing summary: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var avgUs float64
		var maxUs int64
		if err := rows.Scan(&r.Op, &r.Phase, &r.Count, &r.Items, &avgUs, &maxUs); err != nil {
			return nil, fmt.Errorf("scanning timing summary: %w", err)
		}
		r.AvgMs = avgUs / 1000
		r.MaxMs = float64(maxUs) / 1000
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timing summary: %w", err)
	}
	return out, nil
}

// Drain stops accepting samples and waits until queued ones are written.
// Summary stays usable until Close.
func (d *DB) Drain() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

// Close drains the queue and closes the database.
func (d *DB) Close() error {
	d.Drain()
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("closing timing database: %w", err)
	}
	return nil
}
