package cipher

import (
	"strings"

	"github.com/pkg/errors"
)

// TranspositionPlaceholder marks the unused cells of the last grid row. The
// cells are skipped, never emitted, so ciphertext and plaintext have the same
// length.
const TranspositionPlaceholder = '-'

// TranspositionEncode writes text row by row into a grid of key columns and
// reads it back column by column, left to right.
func TranspositionEncode(text string, key int) (string, error) {
	src := []rune(text)
	if err := checkTranspositionKey(key, len(src)); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(len(text))
	for col := 0; col < key; col++ {
		for i := col; i < len(src); i += key {
			sb.WriteRune(src[i])
		}
	}
	return sb.String(), nil
}

// TranspositionDecode reverses TranspositionEncode. The last row of the grid
// is short by numRows*key - len(cipher) cells, which belong to the rightmost
// columns, so those columns are one rune shorter.
func TranspositionDecode(cipher string, key int) (string, error) {
	src := []rune(cipher)
	n := len(src)
	if err := checkTranspositionKey(key, n); err != nil {
		return "", err
	}

	numRows := (n + key - 1) / key
	shortCells := numRows*key - n
	fullCols := key - shortCells

	out := make([]rune, n)
	next := 0
	for col := 0; col < key; col++ {
		rows := numRows
		if col >= fullCols {
			rows--
		}
		for row := 0; row < rows; row++ {
			out[row*key+col] = src[next]
			next++
		}
	}
	return string(out), nil
}

func checkTranspositionKey(key, length int) error {
	if key < 1 {
		return errors.Wrapf(ErrInvalidKey, "transposition key %d must be positive", key)
	}
	if key >= length {
		return errors.Wrapf(ErrInvalidKey, "transposition key %d must be smaller than the message length %d", key, length)
	}
	return nil
}
