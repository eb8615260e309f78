package cipher

import "github.com/pkg/errors"

// GCD returns the greatest common divisor of a and b using Euclid's
// algorithm. The result is never negative.
func GCD(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

// ModInverse returns i such that (a*i) mod m == 1, computed with the extended
// Euclidean algorithm. It fails with ErrUndefinedInverse when a and m are not
// coprime.
func ModInverse(a, m int) (int, error) {
	if m < 2 {
		return 0, errors.Wrapf(ErrUndefinedInverse, "modulus %d", m)
	}
	if GCD(a, m) != 1 {
		return 0, errors.Wrapf(ErrUndefinedInverse, "%d and %d are not coprime", a, m)
	}
	u1, u3 := 1, mod(a, m)
	v1, v3 := 0, m
	for v3 != 0 {
		q := u3 / v3
		u1, v1 = v1, u1-q*v1
		u3, v3 = v3, u3-q*v3
	}
	return mod(u1, m), nil
}
