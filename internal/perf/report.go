package perf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	atomicfile "github.com/natefinch/atomic"
)

// Report is the file format written by cryptexbench --output and read back
// as a --baseline.
type Report struct {
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	GitRef    string            `json:"git_ref"`
	Workloads []WorkloadMetrics `json:"workloads"`
}

// MetricDelta is one metric of one workload compared against its baseline.
type MetricDelta struct {
	Workload      string  `json:"workload"`
	Metric        string  `json:"metric"`
	Units         string  `json:"units"`
	Baseline      float64 `json:"baseline"`
	Current       float64 `json:"current"`
	ChangePercent float64 `json:"change_percent"`
	HigherBetter  bool    `json:"higher_better"`
	Regression    bool    `json:"regression"`
}

// DiffResult holds every delta of a comparison, the regressions among them,
// and the workloads that could not be compared.
type DiffResult struct {
	Threshold   float64       `json:"threshold"`
	Deltas      []MetricDelta `json:"deltas"`
	Regressions []MetricDelta `json:"regressions"`
	Skipped     []string      `json:"skipped,omitempty"`
}

// HasRegressions reports whether any metric breached the threshold.
func (d DiffResult) HasRegressions() bool {
	return len(d.Regressions) > 0
}

type codecMetric struct {
	name         string
	units        string
	higherBetter bool
	value        func(WorkloadMetrics) float64
}

// Metrics in the order they are rendered.
var codecMetrics = []codecMetric{
	{"ops_per_second", "ops/s", true, func(m WorkloadMetrics) float64 { return m.Throughput }},
	{"bytes_per_second", "B/s", true, func(m WorkloadMetrics) float64 { return m.BytesPerS }},
	{"latency_p50", "ms", false, func(m WorkloadMetrics) float64 { return m.Latency.P50 }},
	{"latency_p90", "ms", false, func(m WorkloadMetrics) float64 { return m.Latency.P90 }},
	{"latency_p99", "ms", false, func(m WorkloadMetrics) float64 { return m.Latency.P99 }},
	{"latency_max", "ms", false, func(m WorkloadMetrics) float64 { return m.Latency.Max }},
	{"error_rate", "fraction", false, func(m WorkloadMetrics) float64 { return m.ErrorRate }},
}

// errorRateSlack is the absolute error rate increase tolerated on top of the
// relative threshold, so a clean baseline still allows rare flukes.
const errorRateSlack = 0.001

// CompareReports compares every workload of current that also appears in
// baseline. A workload whose baseline ran a different operation is skipped.
func CompareReports(baseline, current Report, threshold float64) DiffResult {
	byName := make(map[string]WorkloadMetrics, len(baseline.Workloads))
	for _, wl := range baseline.Workloads {
		byName[wl.Name] = wl
	}

	names := make([]string, 0, len(current.Workloads))
	currByName := make(map[string]WorkloadMetrics, len(current.Workloads))
	for _, wl := range current.Workloads {
		names = append(names, wl.Name)
		currByName[wl.Name] = wl
	}
	sort.Strings(names)

	diff := DiffResult{Threshold: threshold, Regressions: []MetricDelta{}}
	for _, name := range names {
		curr := currByName[name]
		base, ok := byName[name]
		if !ok {
			continue
		}
		if base.Config.Operation != "" && curr.Config.Operation != "" && base.Config.Operation != curr.Config.Operation {
			diff.Skipped = append(diff.Skipped, name)
			continue
		}
		for _, metric := range codecMetrics {
			delta := compareMetric(name, metric, metric.value(base), metric.value(curr), threshold)
			diff.Deltas = append(diff.Deltas, delta)
			if delta.Regression {
				diff.Regressions = append(diff.Regressions, delta)
			}
		}
	}
	return diff
}

func compareMetric(workload string, metric codecMetric, base, curr, threshold float64) MetricDelta {
	delta := MetricDelta{
		Workload:     workload,
		Metric:       metric.name,
		Units:        metric.units,
		Baseline:     base,
		Current:      curr,
		HigherBetter: metric.higherBetter,
	}
	if base != 0 {
		delta.ChangePercent = (curr - base) / base * 100
	}

	switch {
	case metric.name == "error_rate":
		delta.Regression = curr > base+math.Max(errorRateSlack, base*threshold)
	case base <= 0:
		// Nothing was measured for this metric in the baseline.
	case metric.higherBetter:
		delta.Regression = curr < base*(1-threshold)
	default:
		delta.Regression = curr > base*(1+threshold)
	}
	return delta
}

// RenderText renders the comparison as one table per workload.
func (d DiffResult) RenderText() string {
	var sb strings.Builder
	if len(d.Deltas) == 0 && len(d.Skipped) == 0 {
		sb.WriteString("No overlapping workloads found between baseline and current run.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "Performance diff (threshold %.1f%%)\n", d.Threshold*100)
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	workload := ""
	for _, delta := range d.Deltas {
		if delta.Workload != workload {
			workload = delta.Workload
			fmt.Fprintf(w, "%s:\n", workload)
		}
		status := "OK"
		if delta.Regression {
			status = "REGRESSION"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			delta.Metric,
			formatMetric(delta.Units, delta.Baseline),
			formatMetric(delta.Units, delta.Current),
			formatChange(delta),
			status,
		)
	}
	w.Flush()
	for _, name := range d.Skipped {
		fmt.Fprintf(&sb, "%s: skipped, baseline ran a different operation\n", name)
	}
	return sb.String()
}

func formatMetric(units string, v float64) string {
	switch units {
	case "ops/s":
		return humanize.CommafWithDigits(v, 2) + " ops/s"
	case "B/s":
		return humanize.Bytes(uint64(math.Max(v, 0))) + "/s"
	case "ms":
		return formatMillis(v)
	default:
		return fmt.Sprintf("%.2f%%", v*100)
	}
}

func formatChange(delta MetricDelta) string {
	if delta.Baseline == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", delta.ChangePercent)
}

// LoadReport reads a report from disk.
func LoadReport(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return Report{}, fmt.Errorf("parse report %s: %w", path, err)
	}
	return rep, nil
}

// SaveReport atomically writes rep to path, creating parent directories.
func SaveReport(path string, rep Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(path, bytes.NewReader(data))
}
