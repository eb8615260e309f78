package cipher

// Caesar substitution rotates the alphabet by a fixed shift. A shuffled
// alphabet yields a general monoalphabetic substitution. The scheme is
// trivially broken by frequency analysis.

// CaesarEncode replaces every rune of text found in seed with the rune shift
// positions further along seed. Runes absent from seed are kept.
func CaesarEncode(text string, shift int, seed string) (string, error) {
	return caesar(text, shift, seed)
}

// CaesarDecode reverses CaesarEncode for the same shift and seed.
func CaesarDecode(cipher string, shift int, seed string) (string, error) {
	return caesar(cipher, -shift, seed)
}

func caesar(text string, shift int, seed string) (string, error) {
	a, err := newAlphabet(seed)
	if err != nil {
		return "", err
	}
	shift = mod(shift, a.size())

	out := []rune(text)
	for i, r := range out {
		if pos, ok := a.position(r); ok {
			out[i] = a.at(pos + shift)
		}
	}
	return string(out), nil
}

// ROT13 applies a Caesar shift of 13 to ASCII letters, preserving case.
// It is its own inverse.
func ROT13(text string) string {
	out := []rune(text)
	for i, r := range out {
		switch {
		case r >= 'A' && r <= 'Z':
			out[i] = 'A' + (r-'A'+13)%26
		case r >= 'a' && r <= 'z':
			out[i] = 'a' + (r-'a'+13)%26
		}
	}
	return string(out)
}
