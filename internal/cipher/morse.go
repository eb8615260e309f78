package cipher

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// morseCode is the ITU table for letters and digits.
var morseCode = map[rune]string{
	'A': ".-",
	'B': "-...",
	'C': "-.-.",
	'D': "-..",
	'E': ".",
	'F': "..-.",
	'G': "--.",
	'H': "....",
	'I': "..",
	'J': ".---",
	'K': "-.-",
	'L': ".-..",
	'M': "--",
	'N': "-.",
	'O': "---",
	'P': ".--.",
	'Q': "--.-",
	'R': ".-.",
	'S': "...",
	'T': "-",
	'U': "..-",
	'V': "...-",
	'W': ".--",
	'X': "-..-",
	'Y': "-.--",
	'Z': "--..",
	'0': "-----",
	'1': ".----",
	'2': "..---",
	'3': "...--",
	'4': "....-",
	'5': ".....",
	'6': "-....",
	'7': "--...",
	'8': "---..",
	'9': "----.",
}

var morseSymbols = func() map[string]rune {
	m := make(map[string]rune, len(morseCode))
	for r, code := range morseCode {
		m[code] = r
	}
	return m
}()

// MorseEncode translates text into ITU Morse code. Whitespace is dropped
// before translation and letters are uppercased, so word boundaries are not
// preserved. Codes are separated by single spaces.
func MorseEncode(text string) (string, error) {
	upper := cases.Upper(language.Und)

	codes := make([]string, 0, len(text))
	pos := 0
	for _, orig := range text {
		pos++
		if unicode.IsSpace(orig) {
			continue
		}
		// Full case mapping may expand one rune, e.g. ß to SS.
		for _, r := range upper.String(string(orig)) {
			code, ok := morseCode[r]
			if !ok {
				return "", errors.Wrapf(ErrUnsupportedCharacter, "%q at position %d; only A-Z and 0-9 are supported", orig, pos)
			}
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, " "), nil
}

// MorseDecode translates space separated Morse codes back into uppercase
// text without spaces.
func MorseDecode(code string) (string, error) {
	if code == "" {
		return "", nil
	}

	var sb strings.Builder
	for i, token := range strings.Split(code, " ") {
		r, ok := morseSymbols[token]
		if !ok {
			return "", errors.Wrapf(ErrUnknownToken, "token %d %q", i, token)
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}
