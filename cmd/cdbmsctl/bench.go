package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/dan-strohschein/cdbms-driver/client"
	"github.com/dan-strohschein/cdbms-driver/metrics"
	"github.com/dan-strohschein/cdbms-driver/row"
	"github.com/dan-strohschein/cdbms-driver/schema"
	"github.com/dan-strohschein/cdbms-driver/transport"
	"github.com/dan-strohschein/cdbms-driver/transport/tcp"
)

type benchConfig struct {
	database string
	table    string
	rows     int
	workers  int
	rate     float64
	setup    bool
}

var bench benchConfig

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Append rows from concurrent sessions and report throughput",
	Long: `Appends --rows rows split across --workers sessions. Every worker owns
its own connection; sessions are never shared. --rate caps the combined
append rate in rows per second.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		return runBench(cmd.Context(), opts, bench)
	},
}

func init() {
	f := benchCmd.Flags()
	f.StringVar(&bench.database, "database", "bench", "database to write to")
	f.StringVar(&bench.table, "table", "rows", "table to write to")
	f.IntVar(&bench.rows, "rows", 10000, "total rows to append")
	f.IntVar(&bench.workers, "workers", 4, "concurrent sessions")
	f.Float64Var(&bench.rate, "rate", 0, "combined rows per second (0 = unlimited)")
	f.BoolVar(&bench.setup, "setup", true, "create the database and table first")
}

var plainFlags = []schema.Flag{schema.NotPrimary, schema.NoAutoIncrement}

func benchColumns() []schema.Column {
	return []schema.Column{
		schema.MustColumn("id", schema.Int, []schema.Flag{schema.Primary, schema.NoAutoIncrement}, 10),
		schema.MustColumn("worker", schema.Int, plainFlags, 4),
		schema.MustColumn("name", schema.Str, plainFlags, 16),
		schema.MustColumn("score", schema.Float, plainFlags, 12),
	}
}

// splitRows divides total as evenly as possible across n workers.
func splitRows(total, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = total / n
		if i < total%n {
			out[i]++
		}
	}
	return out
}

type benchResult struct {
	appended atomic.Int64
	failed   atomic.Int64
	mu       sync.Mutex
	firstErr error
}

func (r *benchResult) fail(err error) {
	r.failed.Add(1)
	r.mu.Lock()
	if r.firstErr == nil {
		r.firstErr = err
	}
	r.mu.Unlock()
}

func runBench(ctx context.Context, opts client.ClientOptions, cfg benchConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.workers < 1 || cfg.rows < 1 {
		return errors.New("--workers and --rows must be positive")
	}

	if cfg.setup {
		if err := benchSetup(ctx, opts, cfg); err != nil {
			return err
		}
	}

	collector := metrics.NewCollector("cdbms")
	reg := prometheus.NewRegistry()
	if err := collector.Register(reg); err != nil {
		return err
	}

	var limiter *rate.Limiter
	if cfg.rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.rate), cfg.workers)
	}

	pool, err := ants.NewPool(cfg.workers, ants.WithPanicHandler(func(v any) {
		printError(fmt.Sprintf("bench worker panic: %v", v))
	}))
	if err != nil {
		return errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	factory := tcp.Factory(opts.SessionOptions())
	result := &benchResult{}
	var wg sync.WaitGroup

	start := time.Now()
	next := 0
	for w, share := range splitRows(cfg.rows, cfg.workers) {
		w, first, share := w, next, share
		next += share

		workerOpts := opts
		workerOpts.Metrics = collector
		workerOpts.SessionName = "worker-" + strconv.Itoa(w)

		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			benchWorker(ctx, factory, workerOpts, cfg, w, first, share, limiter, result)
		}); err != nil {
			wg.Done()
			return errors.Wrap(err, "submit worker")
		}
	}
	wg.Wait()
	elapsed := time.Since(start)

	printBenchReport(cfg, result, elapsed, reg)
	if result.firstErr != nil {
		return errors.Wrapf(result.firstErr, "%d appends failed", result.failed.Load())
	}
	return nil
}

func benchSetup(ctx context.Context, opts client.ClientOptions, cfg benchConfig) error {
	c, err := client.NewClient(&opts)
	if err != nil {
		return err
	}
	if err := c.Open(ctx); err != nil {
		return err
	}
	defer c.Close()

	if _, err := c.CreateDatabase(ctx, cfg.database); err != nil {
		printWarning(client.FormatError(err, false))
	}
	db, err := c.SelectDatabase(cfg.database)
	if err != nil {
		return err
	}
	if _, err := db.CreateTable(ctx, cfg.table, "admin", benchColumns()...); err != nil {
		printWarning(client.FormatError(err, false))
	}
	return nil
}

func benchWorker(ctx context.Context, factory transport.Factory, opts client.ClientOptions, cfg benchConfig,
	worker, first, count int, limiter *rate.Limiter, result *benchResult) {
	session, err := factory()
	if err != nil {
		result.fail(err)
		return
	}
	opts.Transport = session

	c, err := client.NewClient(&opts)
	if err != nil {
		result.fail(err)
		return
	}
	if err := c.Open(ctx); err != nil {
		result.fail(err)
		return
	}
	defer c.Close()

	db, err := c.SelectDatabase(cfg.database)
	if err != nil {
		result.fail(err)
		return
	}
	tbl, err := db.GetTable(cfg.table, "admin", benchColumns()...)
	if err != nil {
		result.fail(err)
		return
	}

	for id := first; id < first+count; id++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				result.fail(err)
				return
			}
		}
		values := row.NewValues().
			Set("id", id).
			Set("worker", worker).
			Set("name", "row"+strconv.Itoa(id)).
			Set("score", float64(id)/10)
		if _, err := tbl.Append(ctx, values); err != nil {
			result.fail(err)
			if c.GetState() != client.CONNECTED {
				return
			}
			continue
		}
		result.appended.Add(1)
	}
}

func printBenchReport(cfg benchConfig, result *benchResult, elapsed time.Duration, reg *prometheus.Registry) {
	appended := result.appended.Load()
	throughput := float64(appended) / elapsed.Seconds()

	printHeader("Bench results")
	printTable(os.Stdout, []string{"rows", "workers", "appended", "failed", "elapsed", "rows/s"}, [][]string{{
		strconv.Itoa(cfg.rows),
		strconv.Itoa(cfg.workers),
		strconv.FormatInt(appended, 10),
		strconv.FormatInt(result.failed.Load(), 10),
		elapsed.Round(time.Millisecond).String(),
		strconv.FormatFloat(throughput, 'f', 1, 64),
	}})

	families, err := reg.Gather()
	if err != nil {
		printWarning("gather metrics: " + err.Error())
		return
	}
	var rows [][]string
	for _, mf := range families {
		if mf.GetName() != "cdbms_commands_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			rows = append(rows, []string{labelValue(m, "verb"), labelValue(m, "outcome"),
				strconv.FormatFloat(m.GetCounter().GetValue(), 'f', 0, 64)})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0]+rows[i][1] < rows[j][0]+rows[j][1] })
	if len(rows) > 0 {
		printHeader("Commands")
		printTable(os.Stdout, []string{"verb", "outcome", "count"}, rows)
	}
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
