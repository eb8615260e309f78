package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/RowanDark/cryptex/internal/perf"
)

func main() {
	app := newApp(os.Stdout)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "cryptexbench"
	app.Usage = "Round trip latency benchmark for the cryptex codecs"
	app.Writer = out
	app.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    "iterations",
			Aliases: []string{"n"},
			Usage:   "round trips per workload",
			Value:   2000,
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Aliases: []string{"c"},
			Usage:   "worker goroutines per workload",
			Value:   runtime.NumCPU(),
		},
		&cli.IntFlag{
			Name:  "runs",
			Usage: "number of times to run each workload and average the results",
			Value: 1,
		},
		&cli.StringSliceFlag{
			Name:    "workload",
			Aliases: []string{"w"},
			Usage:   "only run the named workload (repeatable)",
		},
		&cli.StringFlag{
			Name:  "baseline",
			Usage: "optional baseline report for regression detection",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "where to write the current metrics report (JSON)",
		},
		&cli.Float64Flag{
			Name:  "threshold",
			Usage: "maximum allowed regression expressed as a ratio (0.10 = 10%)",
			Value: 0.10,
		},
		&cli.StringFlag{
			Name:  "report-version",
			Usage: "version label embedded in the metrics report",
			Value: runtime.Version(),
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"o"},
			Usage:   "Output format: text, json",
			Value:   "text",
		},
	}
	app.Action = func(c *cli.Context) error {
		return run(c, out)
	}
	return app
}

func run(c *cli.Context, out io.Writer) error {
	threshold := c.Float64("threshold")
	if threshold <= 0 || threshold >= 1 {
		return fmt.Errorf("threshold must be between 0 and 1 (got %.3f)", threshold)
	}
	runs := c.Int("runs")
	if runs <= 0 {
		return fmt.Errorf("runs must be positive (got %d)", runs)
	}
	format := c.String("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}

	workloads, err := selectWorkloads(
		perf.WithRun(perf.DefaultWorkloads, c.Int("iterations"), c.Int("concurrency")),
		c.StringSlice("workload"),
	)
	if err != nil {
		return err
	}

	results := make([]perf.WorkloadMetrics, 0, len(workloads))
	for _, cfg := range workloads {
		samples := make([]perf.WorkloadMetrics, 0, runs)
		for i := 0; i < runs; i++ {
			res, err := perf.RunWorkload(c.Context, cfg)
			if err != nil {
				return fmt.Errorf("workload %s run %d: %w", cfg.Name, i+1, err)
			}
			samples = append(samples, res)
		}
		results = append(results, averageMetrics(samples))
	}

	report := perf.Report{
		Version:   c.String("report-version"),
		Timestamp: time.Now().UTC(),
		GitRef:    gitRef(),
		Workloads: results,
	}

	if path := c.String("output"); path != "" {
		if err := perf.SaveReport(path, report); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		fmt.Fprintf(out, "Saved metrics report to %s\n", path)
	}

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for _, wl := range report.Workloads {
			if err := perf.WriteSummary(out, wl); err != nil {
				return err
			}
		}
	}

	if path := c.String("baseline"); path != "" {
		baseline, err := perf.LoadReport(path)
		if err != nil {
			return fmt.Errorf("load baseline: %w", err)
		}
		diff := perf.CompareReports(baseline, report, threshold)
		fmt.Fprint(out, diff.RenderText())
		if diff.HasRegressions() {
			return fmt.Errorf("performance regressions detected (threshold %.1f%%)", threshold*100)
		}
	}
	return nil
}

func selectWorkloads(all []perf.WorkloadConfig, names []string) ([]perf.WorkloadConfig, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]perf.WorkloadConfig, len(all))
	for _, wl := range all {
		byName[wl.Name] = wl
	}
	selected := make([]perf.WorkloadConfig, 0, len(names))
	for _, name := range names {
		wl, ok := byName[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("unknown workload %q", name)
		}
		selected = append(selected, wl)
	}
	return selected, nil
}

func averageMetrics(samples []perf.WorkloadMetrics) perf.WorkloadMetrics {
	if len(samples) == 0 {
		return perf.WorkloadMetrics{}
	}
	out := samples[0]
	var durationSum time.Duration
	var throughputSum, bytesSum, errorRateSum float64
	var p50Sum, p90Sum, p99Sum float64
	var successes, errors int64
	maxLatency := samples[0].Latency.Max

	for _, sample := range samples {
		durationSum += sample.Duration
		throughputSum += sample.Throughput
		bytesSum += sample.BytesPerS
		errorRateSum += sample.ErrorRate
		p50Sum += sample.Latency.P50
		p90Sum += sample.Latency.P90
		p99Sum += sample.Latency.P99
		if sample.Latency.Max > maxLatency {
			maxLatency = sample.Latency.Max
		}
		successes += sample.Successes
		errors += sample.Errors
	}

	count := float64(len(samples))
	n := int64(len(samples))
	out.Duration = time.Duration(float64(durationSum) / count)
	out.Throughput = throughputSum / count
	out.BytesPerS = bytesSum / count
	out.ErrorRate = errorRateSum / count
	out.Successes = successes / n
	out.Errors = errors / n
	out.Latency = perf.LatencyMetrics{
		P50: p50Sum / count,
		P90: p90Sum / count,
		P99: p99Sum / count,
		Max: maxLatency,
	}
	return out
}

func gitRef() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}
