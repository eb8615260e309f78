package perf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RowanDark/cryptex/internal/cipher"
)

// WorkloadConfig describes one round trip benchmark: encode a generated
// plaintext with Operation, then run its reverse and compare.
type WorkloadConfig struct {
	Name         string                 `json:"name"`
	Operation    string                 `json:"operation"`
	Params       map[string]interface{} `json:"params,omitempty"`
	Alphabet     string                 `json:"alphabet,omitempty"`
	Numeric      bool                   `json:"numeric,omitempty"`
	Iterations   int                    `json:"iterations"`
	Concurrency  int                    `json:"concurrency"`
	PayloadBytes int                    `json:"payload_bytes"`
	Seed         uint64                 `json:"seed"`
}

// Validate ensures the workload configuration is well formed.
func (cfg WorkloadConfig) Validate() error {
	if strings.TrimSpace(cfg.Name) == "" {
		return errors.New("name is required")
	}
	op, ok := cipher.GetOperation(cfg.Operation)
	if !ok {
		return fmt.Errorf("unknown operation %q", cfg.Operation)
	}
	if _, ok := op.Reverse(); !ok {
		return fmt.Errorf("operation %q has no reverse", cfg.Operation)
	}
	if cfg.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive (got %d)", cfg.Iterations)
	}
	if cfg.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive (got %d)", cfg.Concurrency)
	}
	if cfg.Numeric {
		return nil
	}
	if cfg.PayloadBytes < 2 {
		return fmt.Errorf("payload_bytes must be at least 2 (got %d)", cfg.PayloadBytes)
	}
	if len([]rune(cfg.Alphabet)) == 0 {
		return errors.New("alphabet is required")
	}
	return nil
}

// DefaultWorkloads covers every reversible codec with plaintexts drawn from
// the alphabet each one accepts.
var DefaultWorkloads = []WorkloadConfig{
	{
		Name:         "caesar",
		Operation:    "caesar_encode",
		Params:       map[string]interface{}{"shift": 7},
		Alphabet:     cipher.UppercaseAlphabet + " ",
		PayloadBytes: 256,
		Seed:         42,
	},
	{
		Name:         "rot13",
		Operation:    "rot13",
		Alphabet:     cipher.LowercaseAlphabet + cipher.UppercaseAlphabet,
		PayloadBytes: 256,
		Seed:         43,
	},
	{
		Name:         "transposition",
		Operation:    "transposition_encode",
		Params:       map[string]interface{}{"key": 8},
		Alphabet:     cipher.PrintableAlphabet,
		PayloadBytes: 256,
		Seed:         44,
	},
	{
		Name:         "affine",
		Operation:    "affine_encode",
		Params:       map[string]interface{}{"key": 7*100 + 3},
		Alphabet:     cipher.PrintableAlphabet,
		PayloadBytes: 256,
		Seed:         45,
	},
	{
		Name:         "vigenere",
		Operation:    "vigenere_encode",
		Params:       map[string]interface{}{"key": "CRYPTEX"},
		Alphabet:     cipher.UppercaseAlphabet,
		PayloadBytes: 256,
		Seed:         46,
	},
	{
		Name:         "morse",
		Operation:    "morse_encode",
		Alphabet:     cipher.UppercaseAlphabet + cipher.DigitAlphabet,
		PayloadBytes: 128,
		Seed:         47,
	},
	{
		Name:      "hex",
		Operation: "to_hex",
		Numeric:   true,
		Seed:      48,
	},
}

// WithRun returns a copy of the workloads with iterations and concurrency
// applied.
func WithRun(workloads []WorkloadConfig, iterations, concurrency int) []WorkloadConfig {
	out := make([]WorkloadConfig, len(workloads))
	for i, wl := range workloads {
		wl.Iterations = iterations
		wl.Concurrency = concurrency
		out[i] = wl
	}
	return out
}
