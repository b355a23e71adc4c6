package main

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/formula/pkg/cli"
	"mercator-hq/formula/pkg/formula/cache"
)

var benchFlags struct {
	vars        []string
	varsFile    string
	iterations  int
	concurrency int
	progress    bool
	format      string
}

var benchCmd = &cobra.Command{
	Use:   "bench EXPRESSION",
	Short: "Measure evaluation latency",
	Long: `Evaluate an expression repeatedly and report latency percentiles.

Every iteration goes through the full engine path: security gate, parse
cache and evaluation. The first iteration warms the cache; an expression
that fails there is reported and nothing is measured.

Examples:
  # 10k evaluations on one goroutine
  formulactl bench "max(attack - armor, 1) * 2" --var attack=12 --var armor=4

  # Contended cache
  formulactl bench "a * b + c" --var a=1 --var b=2 --var c=3 -n 100000 --concurrency 8

  # JSON report
  formulactl bench "x > 1" --var x=2 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().StringArrayVar(&benchFlags.vars, "var", nil, "variable as name=value (repeatable)")
	benchCmd.Flags().StringVar(&benchFlags.varsFile, "vars", "", "YAML or JSON file of variables")
	benchCmd.Flags().IntVarP(&benchFlags.iterations, "iterations", "n", 10000, "number of evaluations")
	benchCmd.Flags().IntVar(&benchFlags.concurrency, "concurrency", 1, "concurrent evaluators")
	benchCmd.Flags().BoolVar(&benchFlags.progress, "progress", false, "show a progress bar on stderr")
	benchCmd.Flags().StringVar(&benchFlags.format, "format", "text", "output format: text, json")
}

// LatencyStats summarizes per-evaluation latencies.
type LatencyStats struct {
	Min  time.Duration `json:"min_ns"`
	Mean time.Duration `json:"mean_ns"`
	P50  time.Duration `json:"p50_ns"`
	P95  time.Duration `json:"p95_ns"`
	P99  time.Duration `json:"p99_ns"`
	Max  time.Duration `json:"max_ns"`
}

// BenchResult is the outcome of a bench run.
type BenchResult struct {
	Expression  string        `json:"expression"`
	Iterations  int           `json:"iterations"`
	Concurrency int           `json:"concurrency"`
	Errors      int64         `json:"errors"`
	Duration    time.Duration `json:"duration_ns"`
	Throughput  float64       `json:"evaluations_per_second"`
	Latency     LatencyStats  `json:"latency"`
	Cache       cache.Stats   `json:"cache"`
}

// RenderText prints the report.
func (r *BenchResult) RenderText(w io.Writer) error {
	ms := func(d time.Duration) float64 { return float64(d.Nanoseconds()) / 1e6 }

	fmt.Fprintf(w, "Expression:   %s\n", r.Expression)
	fmt.Fprintf(w, "Evaluations:  %d (%d errors) on %d goroutines\n", r.Iterations, r.Errors, r.Concurrency)
	fmt.Fprintf(w, "Duration:     %.1fms\n", ms(r.Duration))
	fmt.Fprintf(w, "Throughput:   %.0f evals/s\n", r.Throughput)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Latency:")
	fmt.Fprintf(w, "  Min:     %.4fms\n", ms(r.Latency.Min))
	fmt.Fprintf(w, "  Mean:    %.4fms\n", ms(r.Latency.Mean))
	fmt.Fprintf(w, "  p50:     %.4fms\n", ms(r.Latency.P50))
	fmt.Fprintf(w, "  p95:     %.4fms\n", ms(r.Latency.P95))
	fmt.Fprintf(w, "  p99:     %.4fms\n", ms(r.Latency.P99))
	fmt.Fprintf(w, "  Max:     %.4fms\n", ms(r.Latency.Max))
	fmt.Fprintln(w)
	_, err := fmt.Fprintf(w, "Cache: %d hits, %d misses (%.1f%%), %d/%d entries\n",
		r.Cache.Hits, r.Cache.Misses, r.Cache.HitRate()*100, r.Cache.Size, r.Cache.Capacity)
	return err
}

func runBench(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(benchFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	if benchFlags.iterations < 1 {
		return cli.NewConfigError("iterations", "must be at least 1")
	}
	if benchFlags.concurrency < 1 {
		return cli.NewConfigError("concurrency", "must be at least 1")
	}
	vars, err := parseVars(benchFlags.varsFile, benchFlags.vars)
	if err != nil {
		return cli.NewConfigError("var", err.Error())
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	source := args[0]
	if _, err := a.engine.EvaluateExpression(source, vars); err != nil {
		renderError(stderr(cmd), source, errorInfo(err))
		return cli.Exit(cli.ExitFailure)
	}

	var progress cli.ProgressReporter
	if benchFlags.progress {
		progress = cli.NewLabeledProgress(stderr(cmd), "Evaluating", "evals")
	}

	result := runLoad(benchFlags.iterations, benchFlags.concurrency, progress, func() error {
		_, err := a.engine.EvaluateExpression(source, vars)
		return err
	})
	result.Expression = source
	result.Cache = a.engine.CacheStats()

	return cli.NewFormatter(format).FormatTo(stdout(cmd), result)
}

// runLoad calls fn iterations times spread over concurrency goroutines.
func runLoad(iterations, concurrency int, progress cli.ProgressReporter, fn func() error) *BenchResult {
	if concurrency > iterations {
		concurrency = iterations
	}

	jobs := make(chan struct{}, iterations)
	for i := 0; i < iterations; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	step := int64(iterations / 100)
	if step == 0 {
		step = 1
	}
	if progress != nil {
		progress.Start(int64(iterations))
	}

	var (
		done      atomic.Int64
		failed    atomic.Int64
		wg        sync.WaitGroup
		latencies = make([][]time.Duration, concurrency)
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			local := make([]time.Duration, 0, iterations/concurrency+1)
			for range jobs {
				t := time.Now()
				if err := fn(); err != nil {
					failed.Add(1)
				}
				local = append(local, time.Since(t))

				if n := done.Add(1); progress != nil && n%step == 0 {
					progress.Update(n)
				}
			}
			latencies[w] = local
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	if progress != nil {
		progress.Finish()
	}

	all := make([]time.Duration, 0, iterations)
	for _, l := range latencies {
		all = append(all, l...)
	}

	r := &BenchResult{
		Iterations:  iterations,
		Concurrency: concurrency,
		Errors:      failed.Load(),
		Duration:    elapsed,
		Latency:     summarize(all),
	}
	if elapsed > 0 {
		r.Throughput = float64(iterations) / elapsed.Seconds()
	}
	return r
}

func summarize(latencies []time.Duration) LatencyStats {
	if len(latencies) == 0 {
		return LatencyStats{}
	}
	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	at := func(q float64) time.Duration {
		return sorted[int(float64(len(sorted)-1)*q)]
	}
	return LatencyStats{
		Min:  sorted[0],
		Mean: sum / time.Duration(len(sorted)),
		P50:  at(0.50),
		P95:  at(0.95),
		P99:  at(0.99),
		Max:  sorted[len(sorted)-1],
	}
}
