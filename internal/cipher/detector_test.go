package cipher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	detector := NewSmartDetector()
	ctx := context.Background()

	tests := []struct {
		name              string
		input             string
		expectedEncoding  string
		expectedOperation string
		minConfidence     float64
	}{
		{
			name:              "morse",
			input:             "... --- ...",
			expectedEncoding:  "morse",
			expectedOperation: "morse_decode",
			minConfidence:     0.9,
		},
		{
			name:              "binary",
			input:             "1001000 1101001",
			expectedEncoding:  "binary",
			expectedOperation: "from_binary",
			minConfidence:     0.8,
		},
		{
			name:              "hex with letters",
			input:             "1B6B FF",
			expectedEncoding:  "hex",
			expectedOperation: "from_hex",
			minConfidence:     0.8,
		},
		{
			name:              "octal",
			input:             "15553",
			expectedEncoding:  "octal",
			expectedOperation: "from_octal",
			minConfidence:     0.4,
		},
		{
			name:             "caesar shifted english",
			input:            "WKH TXLFN EURZQ IRA MXPSV RYHU WKH ODCB GRJ DQG WKHQ WKH GRJ VOHHSV XQGHU WKH WUHH ZKLOH WKH IRA UXQV DZDB LQWR WKH IRUHVW",
			expectedEncoding: "classical",
			minConfidence:    0.45,
		},
		{
			name:             "vigenere",
			input:            "VYC FNWIB BGVUP WMM CISGS DCCT KFT EOFP DDN YPU RWXB ZYE SVE UCCTIG AEDTY RJV RGXS CYIAL RJV DDQ FAES PDYA ZLIH HNV FDYCUK",
			expectedEncoding: "polyalphabetic",
			minConfidence:    0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := detector.Detect(ctx, []byte(tt.input))
			require.NoError(t, err)
			require.NotEmpty(t, results)

			top := results[0]
			require.Equal(t, tt.expectedEncoding, top.Encoding)
			require.Equal(t, tt.expectedOperation, top.Operation)
			require.GreaterOrEqual(t, top.Confidence, tt.minConfidence)

			for _, r := range results {
				require.Contains(t, detector.SupportedEncodings(), r.Encoding)
			}
			for i := 1; i < len(results); i++ {
				require.GreaterOrEqual(t, results[i-1].Confidence, results[i].Confidence)
				require.GreaterOrEqual(t, results[i].Confidence, 0.3)
			}
		})
	}
}

func TestDetectShortText(t *testing.T) {
	results, err := NewSmartDetector().Detect(context.Background(), []byte("hello there"))
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestDetectErrors(t *testing.T) {
	detector := NewSmartDetector()

	_, err := detector.Detect(context.Background(), []byte("   "))
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = detector.Detect(ctx, []byte("... ---"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecodeAll(t *testing.T) {
	results, err := DecodeAll(context.Background(), []byte("  ... --- ...\n"))
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.True(t, results[0].Success)
	require.Equal(t, "SOS", results[0].Decoded)

	results, err = DecodeAll(context.Background(), []byte("1B6B"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "7019", results[0].Decoded)
}

func TestSupportedEncodings(t *testing.T) {
	require.Contains(t, NewSmartDetector().SupportedEncodings(), "morse")
}
