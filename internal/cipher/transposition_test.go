package cipher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranspositionEncode(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		key      int
		expected string
	}{
		{"sentence", "Common sense is not so common.", 8, "Cenoonommstmme oo snnio. s s c"},
		{"full grid", "ABCDEFGH", 4, "AEBFCGDH"},
		{"short last row", "ABCDEFGHI", 4, "AEIBFCGDH"},
		{"key one", "ABC", 1, "ABC"},
		{"key one less than length", "ABCD", 3, "ADBC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TranspositionEncode(tt.text, tt.key)
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
			require.Equal(t, len([]rune(tt.text)), len([]rune(got)))

			back, err := TranspositionDecode(got, tt.key)
			require.NoError(t, err)
			require.Equal(t, tt.text, back)
		})
	}
}

func TestTranspositionRoundTripAllKeys(t *testing.T) {
	text := "Attack at dawn - bring the placeholders too, ünïcode included"
	n := len([]rune(text))
	for key := 1; key < n; key++ {
		enc, err := TranspositionEncode(text, key)
		require.NoError(t, err)
		dec, err := TranspositionDecode(enc, key)
		require.NoError(t, err)
		require.Equal(t, text, dec, "key %d", key)
	}
}

func TestTranspositionInvalidKey(t *testing.T) {
	tests := []struct {
		text string
		key  int
	}{
		{"ABC", 3},
		{"ABC", 4},
		{"ABC", 0},
		{"ABC", -1},
		{"", 1},
	}

	for _, tt := range tests {
		_, err := TranspositionEncode(tt.text, tt.key)
		require.ErrorIs(t, err, ErrInvalidKey, "encode %q key %d", tt.text, tt.key)
		_, err = TranspositionDecode(tt.text, tt.key)
		require.ErrorIs(t, err, ErrInvalidKey, "decode %q key %d", tt.text, tt.key)
	}
}

func TestTranspositionKeepsPlaceholderRunes(t *testing.T) {
	text := strings.Repeat(string(TranspositionPlaceholder), 3) + "ABCDE"
	enc, err := TranspositionEncode(text, 3)
	require.NoError(t, err)
	dec, err := TranspositionDecode(enc, 3)
	require.NoError(t, err)
	require.Equal(t, text, dec)
}
