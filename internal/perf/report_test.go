package perf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func findDelta(t *testing.T, diff DiffResult, workload, metric string) MetricDelta {
	t.Helper()
	for _, d := range diff.Deltas {
		if d.Workload == workload && d.Metric == metric {
			return d
		}
	}
	t.Fatalf("no %s delta for %s in %+v", metric, workload, diff.Deltas)
	return MetricDelta{}
}

func TestThroughputRegression(t *testing.T) {
	t.Parallel()
	delta := compareMetric("caesar", codecMetrics[0], 1000, 850, 0.10)
	if !delta.Regression {
		t.Fatalf("expected regression when throughput drops by >10%%: %+v", delta)
	}
	if delta.ChangePercent >= 0 {
		t.Fatalf("expected negative change percent, got %.2f", delta.ChangePercent)
	}
}

func TestLatencyImprovement(t *testing.T) {
	t.Parallel()
	delta := compareMetric("caesar", codecMetrics[4], 2.0, 1.5, 0.10)
	if delta.Metric != "latency_p99" || delta.Regression {
		t.Fatalf("did not expect regression when latency decreased: %+v", delta)
	}
	if delta.ChangePercent >= 0 {
		t.Fatalf("expected negative change percent for improvement: %.2f", delta.ChangePercent)
	}
}

func TestErrorRateRegression(t *testing.T) {
	t.Parallel()
	errRate := codecMetrics[len(codecMetrics)-1]
	if delta := compareMetric("morse", errRate, 0, 0.05, 0.10); !delta.Regression {
		t.Fatalf("expected regression when errors appear: %+v", delta)
	}
	if delta := compareMetric("morse", errRate, 0, 0.0005, 0.10); delta.Regression {
		t.Fatalf("expected a tiny error rate to stay within slack: %+v", delta)
	}
}

func TestCompareReportsCoversEveryMetric(t *testing.T) {
	t.Parallel()
	baseline := Report{Workloads: []WorkloadMetrics{{
		Name:       "vigenere",
		Throughput: 1000,
		BytesPerS:  64000,
		Latency:    LatencyMetrics{P50: 1, P90: 2, P99: 3, Max: 4},
	}}}
	current := Report{Workloads: []WorkloadMetrics{{
		Name:       "vigenere",
		Throughput: 1000,
		BytesPerS:  32000,
		ErrorRate:  0.2,
		Latency:    LatencyMetrics{P50: 1, P90: 3, P99: 3, Max: 40},
	}}}
	diff := CompareReports(baseline, current, 0.10)
	if len(diff.Deltas) != len(codecMetrics) {
		t.Fatalf("expected %d deltas, got %d", len(codecMetrics), len(diff.Deltas))
	}

	regressed := map[string]bool{}
	for _, d := range diff.Regressions {
		regressed[d.Metric] = true
	}
	for _, metric := range []string{"bytes_per_second", "latency_p90", "latency_max", "error_rate"} {
		if !regressed[metric] {
			t.Fatalf("expected %s to regress, got %+v", metric, diff.Regressions)
		}
	}
	for _, metric := range []string{"ops_per_second", "latency_p50", "latency_p99"} {
		if regressed[metric] {
			t.Fatalf("did not expect %s to regress", metric)
		}
	}

	if got := findDelta(t, diff, "vigenere", "bytes_per_second").ChangePercent; got != -50 {
		t.Fatalf("expected -50%% bandwidth change, got %.2f", got)
	}

	text := diff.RenderText()
	for _, want := range []string{"vigenere:", "bytes_per_second", "64 kB/s", "32 kB/s", "latency_max", "20.00%", "REGRESSION"} {
		if !strings.Contains(text, want) {
			t.Fatalf("rendering lacks %q:\n%s", want, text)
		}
	}
}

func TestCompareReportsIgnoresUnmeasuredBaseline(t *testing.T) {
	t.Parallel()
	baseline := Report{Workloads: []WorkloadMetrics{{Name: "rot13", Throughput: 1}}}
	current := Report{Workloads: []WorkloadMetrics{{
		Name:       "rot13",
		Throughput: 5000,
		BytesPerS:  1 << 20,
		Latency:    LatencyMetrics{P50: 1, P90: 1, P99: 2, Max: 9},
	}}}
	diff := CompareReports(baseline, current, 0.10)
	if diff.HasRegressions() {
		t.Fatalf("metrics absent from the baseline must not regress: %+v", diff.Regressions)
	}
	if d := findDelta(t, diff, "rot13", "latency_max"); d.ChangePercent != 0 {
		t.Fatalf("expected no change percent without a baseline, got %+v", d)
	}
	if !strings.Contains(diff.RenderText(), "n/a") {
		t.Fatalf("expected n/a change for unmeasured metrics:\n%s", diff.RenderText())
	}
}

func TestCompareReportsSkipsNewWorkloads(t *testing.T) {
	t.Parallel()
	baseline := Report{Workloads: []WorkloadMetrics{
		{Name: "caesar", Throughput: 1000, Latency: LatencyMetrics{P99: 1}},
	}}
	current := Report{Workloads: []WorkloadMetrics{
		{Name: "caesar", Throughput: 400, Latency: LatencyMetrics{P99: 1}},
		{Name: "vigenere", Throughput: 10},
	}}
	diff := CompareReports(baseline, current, 0.10)
	if len(diff.Deltas) != len(codecMetrics) {
		t.Fatalf("expected %d deltas for the shared workload, got %d", len(codecMetrics), len(diff.Deltas))
	}
	if !diff.HasRegressions() || diff.Regressions[0].Metric != "ops_per_second" {
		t.Fatalf("expected throughput regression, got %+v", diff.Regressions)
	}
	text := diff.RenderText()
	if !strings.Contains(text, "ops_per_second") || !strings.Contains(text, "REGRESSION") || strings.Contains(text, "vigenere") {
		t.Fatalf("unexpected rendering:\n%s", text)
	}
}

func TestCompareReportsSkipsChangedOperation(t *testing.T) {
	t.Parallel()
	baseline := Report{Workloads: []WorkloadMetrics{
		{Name: "classic", Config: WorkloadConfig{Operation: "caesar_encode"}, Throughput: 1000},
	}}
	current := Report{Workloads: []WorkloadMetrics{
		{Name: "classic", Config: WorkloadConfig{Operation: "vigenere_encode"}, Throughput: 10},
	}}
	diff := CompareReports(baseline, current, 0.10)
	if diff.HasRegressions() || len(diff.Deltas) != 0 {
		t.Fatalf("expected no comparison across operations: %+v", diff)
	}
	if len(diff.Skipped) != 1 || !strings.Contains(diff.RenderText(), "classic: skipped") {
		t.Fatalf("expected classic to be reported as skipped:\n%s", diff.RenderText())
	}
}

func TestCompareReportsEmpty(t *testing.T) {
	t.Parallel()
	diff := CompareReports(Report{}, Report{}, 0.10)
	if diff.HasRegressions() {
		t.Fatal("expected no regressions")
	}
	if !strings.Contains(diff.RenderText(), "No overlapping workloads") {
		t.Fatalf("unexpected rendering: %q", diff.RenderText())
	}
}

func TestSaveAndLoadReport(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	rep := Report{
		Version:   "1",
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		GitRef:    "abc123",
		Workloads: []WorkloadMetrics{{Name: "rot13", Successes: 10, Throughput: 12.5}},
	}
	if err := SaveReport(path, rep); err != nil {
		t.Fatalf("save report: %v", err)
	}
	loaded, err := LoadReport(path)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if loaded.GitRef != rep.GitRef || !loaded.Timestamp.Equal(rep.Timestamp) {
		t.Fatalf("report mismatch: %+v", loaded)
	}
	if len(loaded.Workloads) != 1 || loaded.Workloads[0].Throughput != 12.5 {
		t.Fatalf("workloads mismatch: %+v", loaded.Workloads)
	}
}

func TestLoadReportRejectsGarbage(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadReport(path); err == nil {
		t.Fatal("expected parse error")
	}
}
