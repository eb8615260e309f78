package cipher

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	morsePattern  = regexp.MustCompile(`^[.\-]+( [.\-]+)*$`)
	binaryPattern = regexp.MustCompile(`^[01]+( [01]+)*$`)
	octalPattern  = regexp.MustCompile(`^[0-7]+( [0-7]+)*$`)
	hexPattern    = regexp.MustCompile(`^[0-9A-Fa-f]+( [0-9A-Fa-f]+)*$`)
)

// englishIC is the index of coincidence of English text; uniformly random
// letters sit near 1/26.
const (
	englishIC = 0.0667
	randomIC  = 1.0 / 26
)

// SmartDetector implements heuristic detection of the encodings produced by
// this package
type SmartDetector struct{}

// NewSmartDetector creates a new smart detector
func NewSmartDetector() *SmartDetector {
	return &SmartDetector{}
}

// Detect attempts to identify the encoding of the input. Results are sorted
// by confidence and those below 0.3 are dropped.
func (d *SmartDetector) Detect(ctx context.Context, input []byte) ([]DetectionResult, error) {
	text := strings.TrimSpace(string(input))
	if text == "" {
		return nil, fmt.Errorf("empty input")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := []DetectionResult{}
	results = append(results, d.detectMorse(text)...)
	results = append(results, d.detectRadix(text)...)
	results = append(results, d.detectClassical(text)...)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})

	filtered := []DetectionResult{}
	for _, r := range results {
		if r.Confidence >= 0.3 {
			filtered = append(filtered, r)
		}
	}

	return filtered, nil
}

// SupportedEncodings returns a list of encodings this detector can identify
func (d *SmartDetector) SupportedEncodings() []string {
	return []string{
		"morse",
		"binary",
		"octal",
		"hex",
		"classical",
		"polyalphabetic",
	}
}

func (d *SmartDetector) detectMorse(text string) []DetectionResult {
	if !morsePattern.MatchString(text) {
		return nil
	}
	if _, err := MorseDecode(text); err != nil {
		return []DetectionResult{{
			Encoding:   "morse",
			Confidence: 0.4,
			Reasoning:  "Only dots and dashes, but some tokens are not ITU codes",
		}}
	}
	return []DetectionResult{{
		Encoding:   "morse",
		Confidence: 0.95,
		Reasoning:  "Every token is an ITU Morse code",
		Operation:  "morse_decode",
	}}
}

// detectRadix reports digit strings. Narrower digit sets win: a binary
// string is also valid octal and hex, at lower confidence.
func (d *SmartDetector) detectRadix(text string) []DetectionResult {
	results := []DetectionResult{}
	switch {
	case binaryPattern.MatchString(text):
		confidence := 0.85
		if len(text) < 8 {
			confidence = 0.5
		}
		results = append(results, DetectionResult{
			Encoding:   "binary",
			Confidence: confidence,
			Reasoning:  "Only the digits 0 and 1",
			Operation:  "from_binary",
		})
	case octalPattern.MatchString(text):
		results = append(results, DetectionResult{
			Encoding:   "octal",
			Confidence: 0.45,
			Reasoning:  "Only the digits 0 to 7",
			Operation:  "from_octal",
		})
	}

	if hexPattern.MatchString(text) {
		confidence := 0.35
		if strings.ContainsAny(strings.ToUpper(text), "ABCDEF") {
			confidence = 0.8
		}
		results = append(results, DetectionResult{
			Encoding:   "hex",
			Confidence: confidence,
			Reasoning:  "Only hexadecimal digits",
			Operation:  "from_hex",
		})
	}
	return results
}

// detectClassical looks at letter statistics. Substitution and transposition
// ciphers keep the letter distribution of the plaintext, so an index of
// coincidence close to English with unreadable text hints at one of them.
func (d *SmartDetector) detectClassical(text string) []DetectionResult {
	ic, letters := indexOfCoincidence(text)
	if letters < 20 {
		return nil
	}

	// Scale 0 at random text to 1 at English.
	score := (ic - randomIC) / (englishIC - randomIC)
	score = math.Max(0, math.Min(score, 1))
	if score < 0.5 {
		return []DetectionResult{{
			Encoding:   "polyalphabetic",
			Confidence: 0.3 + 0.4*(1-score),
			Reasoning:  fmt.Sprintf("Flat letter distribution (IC %.4f), typical of Vigenere", ic),
		}}
	}
	return []DetectionResult{{
		Encoding:   "classical",
		Confidence: 0.3 + 0.3*score,
		Reasoning:  fmt.Sprintf("English-like letter distribution (IC %.4f), typical of Caesar, affine or transposition", ic),
	}}
}

// indexOfCoincidence returns the probability that two letters drawn from
// text are equal, ignoring case and non-letters, and the letter count.
func indexOfCoincidence(text string) (float64, int) {
	var counts [26]int
	n := 0
	for _, r := range strings.ToUpper(text) {
		if r >= 'A' && r <= 'Z' {
			counts[r-'A']++
			n++
		}
	}
	if n < 2 {
		return 0, n
	}
	sum := 0
	for _, c := range counts {
		sum += c * (c - 1)
	}
	return float64(sum) / float64(n*(n-1)), n
}

// DecodeAll attempts to decode using all detected encodings
func DecodeAll(ctx context.Context, input []byte) ([]DecodeResult, error) {
	detector := NewSmartDetector()
	detections, err := detector.Detect(ctx, input)
	if err != nil {
		return nil, err
	}

	results := []DecodeResult{}
	for _, detection := range detections {
		op, exists := GetOperation(detection.Operation)
		if !exists {
			continue
		}

		decoded, err := op.Execute(ctx, []byte(strings.TrimSpace(string(input))), nil)
		if err != nil {
			results = append(results, DecodeResult{
				Detection: detection,
				Error:     err.Error(),
			})
			continue
		}

		results = append(results, DecodeResult{
			Detection: detection,
			Decoded:   string(decoded),
			Success:   true,
		})
	}

	return results, nil
}

// DecodeResult represents the result of a decode attempt
type DecodeResult struct {
	Detection DetectionResult `json:"detection"`
	Decoded   string          `json:"decoded,omitempty"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
}
