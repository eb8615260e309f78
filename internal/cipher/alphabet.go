package cipher

import "github.com/pkg/errors"

// Built-in alphabets.
const (
	UppercaseAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	LowercaseAlphabet = "abcdefghijklmnopqrstuvwxyz"
	DigitAlphabet     = "0123456789"
	PunctuationChars  = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	WhitespaceChars   = " \t\n\r\x0b\x0c"

	// PrintableAlphabet holds the 100 printable ASCII characters in the
	// order digits, lowercase, uppercase, punctuation, whitespace.
	PrintableAlphabet = DigitAlphabet + LowercaseAlphabet + UppercaseAlphabet + PunctuationChars + WhitespaceChars
)

// alphabet is a validated seed with a reverse index.
type alphabet struct {
	runes []rune
	index map[rune]int
}

func newAlphabet(seed string) (*alphabet, error) {
	runes := []rune(seed)
	if len(runes) < 2 {
		return nil, errors.Wrapf(ErrInvalidAlphabet, "alphabet %q must hold at least 2 characters", seed)
	}
	index := make(map[rune]int, len(runes))
	for i, r := range runes {
		if _, dup := index[r]; dup {
			return nil, errors.Wrapf(ErrInvalidAlphabet, "alphabet repeats %q at position %d", r, i)
		}
		index[r] = i
	}
	return &alphabet{runes: runes, index: index}, nil
}

func (a *alphabet) size() int {
	return len(a.runes)
}

// at returns the rune at i, reducing i modulo the alphabet size.
func (a *alphabet) at(i int) rune {
	return a.runes[mod(i, len(a.runes))]
}

func (a *alphabet) position(r rune) (int, bool) {
	i, ok := a.index[r]
	return i, ok
}

// ValidateAlphabet reports whether seed can be used as a substitution
// alphabet.
func ValidateAlphabet(seed string) error {
	_, err := newAlphabet(seed)
	return err
}

// mod returns the non-negative remainder of a divided by m.
func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
