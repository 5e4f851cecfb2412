package main

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/roomlist/internal/timingdb"
	"github.com/vanderheijden86/roomlist/pkg/engine"
	"github.com/vanderheijden86/roomlist/pkg/metrics"
	"github.com/vanderheijden86/roomlist/pkg/model"
	"github.com/vanderheijden86/roomlist/pkg/sortworker"
)

type benchOptions struct {
	Rounds  int
	Callers int
	Inserts int
	Loads   int
	Touches int
	Settle  time.Duration
	Pretty  bool
}

// opCounts tracks accepted and rejected calls for one operation kind.
type opCounts struct {
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
}

type benchReport struct {
	Rooms      int                    `json:"rooms"`
	Sorted     bool                   `json:"sorted"`
	Consistent bool                   `json:"consistent"`
	Settled    bool                   `json:"settled"`
	UseWorker  bool                   `json:"use_worker"`
	ChunkSize  int                    `json:"chunk_size"`
	ElapsedMs  float64                `json:"elapsed_ms"`
	Ops        map[engine.Op]opCounts `json:"ops"`
	Worker     sortworker.Stats       `json:"worker"`
	Timings    []metrics.TimingStats  `json:"timings"`
	RunID      string                 `json:"run_id,omitempty"`
	Samples    []timingdb.Row         `json:"samples,omitempty"`
}

func newBenchCmd(app *App) *cobra.Command {
	opts := benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run insert, load-older and touch concurrently without a UI",
		Long: `Runs --callers goroutines per operation kind, each making --rounds
calls, waits for the list to settle and prints a JSON report with per-phase
timings. Calls that find their kind already running are counted as
rejected. Use --timing-db to also keep the raw samples.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, app, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.Rounds, "rounds", 5, "Calls per caller")
	f.IntVar(&opts.Callers, "callers", 2, "Concurrent callers per operation kind")
	f.IntVar(&opts.Inserts, "inserts", 0, "Rooms per insert (default: config ui.insert_count)")
	f.IntVar(&opts.Loads, "loads", 0, "Rooms per load-older (default: config ui.load_count)")
	f.IntVar(&opts.Touches, "touches", 0, "Rooms per touch (default: config ui.touch_count)")
	f.DurationVar(&opts.Settle, "settle", 10*time.Second, "How long to wait for outstanding sorts")
	f.BoolVar(&opts.Pretty, "pretty", false, "Pretty-print JSON output")
	return cmd
}

func runBench(cmd *cobra.Command, app *App, opts benchOptions) error {
	if opts.Rounds < 1 {
		return fmt.Errorf("--rounds must be >= 1, got %d", opts.Rounds)
	}
	if opts.Callers < 1 {
		return fmt.Errorf("--callers must be >= 1, got %d", opts.Callers)
	}
	cfg, cfgErr := app.loadConfig(cmd)
	if cfgErr != nil {
		log.Printf("config: %v (using defaults)", cfgErr)
	}
	if opts.Inserts <= 0 {
		opts.Inserts = cfg.UI.InsertCount
	}
	if opts.Loads <= 0 {
		opts.Loads = cfg.UI.LoadCount
	}
	if opts.Touches <= 0 {
		opts.Touches = cfg.UI.TouchCount
	}

	ec := app.engineConfig(cfg)
	var db *timingdb.DB
	if cfg.Timing.DBPath != "" {
		var err error
		db, err = timingdb.Open(cfg.Timing.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		ec.Observer = db
	}

	metrics.ResetAll()
	e := engine.New(ec)
	if err := e.Start(); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer e.Stop()

	type job struct {
		op    engine.Op
		count int
		run   func(context.Context, int) (bool, error)
	}
	jobs := []job{
		{engine.OpInsert, opts.Inserts, e.InsertBatch},
		{engine.OpLoadOlder, opts.Loads, e.LoadOlder},
		{engine.OpTouch, opts.Touches, e.TouchRandom},
	}
	accepted := make([]atomic.Int64, len(jobs))
	rejected := make([]atomic.Int64, len(jobs))

	start := time.Now()
	g, ctx := errgroup.WithContext(cmd.Context())
	for i, j := range jobs {
		i, j := i, j
		for c := 0; c < opts.Callers; c++ {
			c := c
			g.Go(func() error {
				for r := 0; r < opts.Rounds; r++ {
					ok, err := j.run(ctx, j.count)
					if err != nil {
						return fmt.Errorf("%s caller %d round %d: %w", j.op, c, r, err)
					}
					if ok {
						accepted[i].Add(1)
					} else {
						rejected[i].Add(1)
					}
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	settled := settle(e, opts.Settle)
	elapsed := time.Since(start)

	report := benchReport{
		Rooms:      e.Len(),
		Sorted:     model.IsSortedByRecency(e.Snapshot()),
		Consistent: e.Consistent(),
		Settled:    settled,
		UseWorker:  e.UseWorker(),
		ChunkSize:  e.ChunkSize(),
		ElapsedMs:  float64(elapsed.Microseconds()) / 1000,
		Ops:        make(map[engine.Op]opCounts, len(jobs)),
		Worker:     e.WorkerStats(),
		Timings:    metrics.AllTimingStats(),
	}
	for i, j := range jobs {
		report.Ops[j.op] = opCounts{Accepted: accepted[i].Load(), Rejected: rejected[i].Load()}
	}

	if db != nil {
		db.Drain()
		rows, err := db.Summary(cmd.Context(), db.Run())
		if err != nil {
			return err
		}
		report.RunID = db.Run()
		report.Samples = rows
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if opts.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(report)
}
