package cipher

import (
	"fmt"
	"math/rand/v2"

	"github.com/pkg/errors"
)

// SplitAffineKey unpacks key into its multiplicative part a and additive
// part b for an alphabet of size n.
func SplitAffineKey(key, n int) (a, b int) {
	return key / n, key % n
}

// ValidateAffineKey checks key against seed. Keys with a == 1 or b == 0
// degenerate into a multiplicative or Caesar cipher and are rejected.
func ValidateAffineKey(key int, seed string) error {
	alpha, err := newAlphabet(seed)
	if err != nil {
		return err
	}
	a, b := SplitAffineKey(key, alpha.size())
	if err := checkAffineRange(a, b, alpha.size()); err != nil {
		return err
	}
	if GCD(a, alpha.size()) != 1 {
		return errors.Wrapf(ErrInvalidKey, "a=%d and alphabet size %d are not coprime", a, alpha.size())
	}
	return nil
}

func checkAffineRange(a, b, n int) error {
	if a == 1 || b == 0 {
		return errors.Wrapf(ErrInvalidKey, "weak affine key a=%d b=%d", a, b)
	}
	if a < 0 || b < 0 || b > n-1 {
		return errors.Wrapf(ErrInvalidKey, "a=%d must be positive and b=%d must be within [0, %d]", a, b, n-1)
	}
	if a == 0 {
		return errors.Wrapf(ErrInvalidKey, "a=%d must be positive", a)
	}
	return nil
}

// AffineEncode maps each rune of text at index i in seed to seed[(i*a+b) mod
// n]. Runes absent from seed are kept.
func AffineEncode(text string, key int, seed string) (string, error) {
	if err := ValidateAffineKey(key, seed); err != nil {
		return "", err
	}
	alpha, _ := newAlphabet(seed)
	a, b := SplitAffineKey(key, alpha.size())

	out := []rune(text)
	for i, r := range out {
		if pos, ok := alpha.position(r); ok {
			out[i] = alpha.at(pos*a + b)
		}
	}
	return string(out), nil
}

// AffineDecode reverses AffineEncode using the modular inverse of a. A key
// whose a has no inverse fails with ErrUndefinedInverse.
func AffineDecode(cipher string, key int, seed string) (string, error) {
	alpha, err := newAlphabet(seed)
	if err != nil {
		return "", err
	}
	n := alpha.size()
	a, b := SplitAffineKey(key, n)
	if err := checkAffineRange(a, b, n); err != nil {
		return "", err
	}
	inv, err := ModInverse(a, n)
	if err != nil {
		return "", err
	}

	out := []rune(cipher)
	for i, r := range out {
		if pos, ok := alpha.position(r); ok {
			out[i] = alpha.at((pos - b) * inv)
		}
	}
	return string(out), nil
}

// AffineKeyGenerator draws random affine keys. The zero value uses the
// global random source.
type AffineKeyGenerator struct {
	Rand *rand.Rand
}

func (g AffineKeyGenerator) intN(n int) int {
	if g.Rand != nil {
		return g.Rand.IntN(n)
	}
	return rand.IntN(n)
}

// Generate returns a key accepted by ValidateAffineKey for seed. It draws a
// from [2, n) until a is coprime to n, and b from [1, n).
func (g AffineKeyGenerator) Generate(seed string) (int, error) {
	alpha, err := newAlphabet(seed)
	if err != nil {
		return 0, err
	}
	n := alpha.size()
	if n < 3 {
		return 0, errors.Wrapf(ErrInvalidAlphabet, "no affine key exists for alphabet %q", seed)
	}

	for {
		a := 2 + g.intN(n-2)
		if GCD(a, n) != 1 {
			continue
		}
		b := 1 + g.intN(n-1)
		return a*n + b, nil
	}
}

// GenerateAffineKey returns a random key valid for seed.
func GenerateAffineKey(seed string) (int, error) {
	return AffineKeyGenerator{}.Generate(seed)
}

// DescribeAffineKey renders the parts of key for seed, e.g. "a=7 b=3 (n=26)".
func DescribeAffineKey(key int, seed string) string {
	n := len([]rune(seed))
	if n == 0 {
		return "n=0"
	}
	a, b := SplitAffineKey(key, n)
	return fmt.Sprintf("a=%d b=%d (n=%d)", a, b, n)
}
