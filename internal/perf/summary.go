package perf

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
)

// WriteSummary renders a human readable table for one workload run.
func WriteSummary(out io.Writer, m WorkloadMetrics) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "=== %s (%s) ===\n", m.Name, m.Config.Operation)
	fmt.Fprintf(w, "Duration:\t%s\n", durafmt.Parse(m.Duration))
	fmt.Fprintf(w, "Round trips:\t%s\n", humanize.Comma(m.Successes))
	fmt.Fprintf(w, "Throughput:\t%s ops/sec\n", humanize.CommafWithDigits(m.Throughput, 2))
	fmt.Fprintf(w, "Bandwidth:\t%s/sec\n", humanize.Bytes(uint64(m.BytesPerS)))
	fmt.Fprintf(w, "P50:\t%s\n", formatMillis(m.Latency.P50))
	fmt.Fprintf(w, "P90:\t%s\n", formatMillis(m.Latency.P90))
	fmt.Fprintf(w, "P99:\t%s\n", formatMillis(m.Latency.P99))
	fmt.Fprintf(w, "Max:\t%s\n", formatMillis(m.Latency.Max))
	fmt.Fprintf(w, "Errors:\t%s (%.2f%%)\n", humanize.Comma(m.Errors), m.ErrorRate*100)
	fmt.Fprintln(w, "")
	return w.Flush()
}

func formatMillis(ms float64) string {
	d := time.Duration(ms * float64(time.Millisecond))
	if d < time.Millisecond {
		// durafmt drops sub-millisecond precision.
		return d.String()
	}
	return durafmt.Parse(d).String()
}
