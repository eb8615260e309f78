package cipher

import "github.com/pkg/errors"

// VigenereEncode shifts each rune of text found in seed by the position in
// seed of the current key rune. The key advances only on runes that belong
// to seed; other runes pass through unchanged.
func VigenereEncode(text, key, seed string) (string, error) {
	return vigenere(text, key, seed, 1)
}

// VigenereDecode reverses VigenereEncode for the same key and seed.
func VigenereDecode(cipher, key, seed string) (string, error) {
	return vigenere(cipher, key, seed, -1)
}

func vigenere(text, key, seed string, dir int) (string, error) {
	alpha, err := newAlphabet(seed)
	if err != nil {
		return "", err
	}
	shifts, err := vigenereShifts(key, alpha)
	if err != nil {
		return "", err
	}

	out := []rune(text)
	k := 0
	for i, r := range out {
		pos, ok := alpha.position(r)
		if !ok {
			continue
		}
		out[i] = alpha.at(pos + dir*shifts[k%len(shifts)])
		k++
	}
	return string(out), nil
}

func vigenereShifts(key string, alpha *alphabet) ([]int, error) {
	if key == "" {
		return nil, errors.Wrap(ErrInvalidKey, "vigenere key is empty")
	}
	shifts := make([]int, 0, len(key))
	for i, r := range []rune(key) {
		pos, ok := alpha.position(r)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidKey, "key rune %q at position %d is not in the alphabet", r, i)
		}
		shifts = append(shifts, pos)
	}
	return shifts, nil
}
