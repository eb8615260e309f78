package perf

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RowanDark/cryptex/internal/cipher"
)

// WorkloadMetrics captures the aggregated statistics observed for a
// WorkloadConfig execution.
type WorkloadMetrics struct {
	Name       string         `json:"name"`
	Config     WorkloadConfig `json:"config"`
	Duration   time.Duration  `json:"duration"`
	Successes  int64          `json:"successes"`
	Errors     int64          `json:"errors"`
	Throughput float64        `json:"throughput_ops"`
	BytesPerS  float64        `json:"bytes_per_second"`
	ErrorRate  float64        `json:"error_rate"`
	Latency    LatencyMetrics `json:"latency"`
}

// LatencyMetrics exposes percentile data in milliseconds.
type LatencyMetrics struct {
	P50 float64 `json:"p50_ms"`
	P90 float64 `json:"p90_ms"`
	P99 float64 `json:"p99_ms"`
	Max float64 `json:"max_ms"`
}

// payloads generates the plaintexts for cfg deterministically from its
// seed.
func payloads(cfg WorkloadConfig) []string {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	alphabet := []rune(cfg.Alphabet)
	out := make([]string, cfg.Iterations)
	for i := range out {
		if cfg.Numeric {
			out[i] = strconv.FormatUint(rng.Uint64(), 10)
			continue
		}
		var sb strings.Builder
		for j := 0; j < cfg.PayloadBytes; j++ {
			sb.WriteRune(alphabet[rng.IntN(len(alphabet))])
		}
		out[i] = sb.String()
	}
	return out
}

// RunWorkload encodes and decodes every generated plaintext, verifying the
// round trip, and returns the aggregated metrics.
func RunWorkload(ctx context.Context, cfg WorkloadConfig) (WorkloadMetrics, error) {
	if err := cfg.Validate(); err != nil {
		return WorkloadMetrics{}, err
	}
	encode, _ := cipher.GetOperation(cfg.Operation)
	decode, _ := encode.Reverse()

	inputs := payloads(cfg)
	jobs := make(chan string)
	stats := NewStats()

	var wg sync.WaitGroup
	stats.Start()
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for plain := range jobs {
				start := time.Now()
				if err := roundTrip(ctx, encode, decode, cfg.Params, plain); err != nil {
					stats.RecordError()
					continue
				}
				stats.RecordOperation(len(plain), time.Since(start))
			}
		}()
	}

feed:
	for _, plain := range inputs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- plain:
		}
	}
	close(jobs)
	wg.Wait()
	stats.Stop()

	if err := ctx.Err(); err != nil {
		return WorkloadMetrics{}, err
	}

	metrics := WorkloadMetrics{
		Name:       cfg.Name,
		Config:     cfg,
		Duration:   stats.Duration(),
		Successes:  stats.Operations(),
		Errors:     stats.Errors(),
		Throughput: stats.OperationsPerSecond(),
		BytesPerS:  stats.BytesPerSecond(),
		Latency:    stats.Latency(),
	}
	if total := metrics.Successes + metrics.Errors; total > 0 {
		metrics.ErrorRate = float64(metrics.Errors) / float64(total)
	}
	return metrics, nil
}

func roundTrip(ctx context.Context, encode, decode cipher.Operation, params map[string]interface{}, plain string) error {
	enc, err := encode.Execute(ctx, []byte(plain), params)
	if err != nil {
		return err
	}
	dec, err := decode.Execute(ctx, enc, params)
	if err != nil {
		return err
	}
	if string(dec) != plain {
		return fmt.Errorf("%s round trip mismatch", encode.Name())
	}
	return nil
}
