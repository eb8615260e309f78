package cipher

import "github.com/pkg/errors"

// Errors returned by the codec functions. Callers match them with errors.Is;
// the returned values are wrapped with the offending input.
var (
	ErrInvalidAlphabet      = errors.New("invalid alphabet")
	ErrInvalidDigit         = errors.New("invalid digit")
	ErrInvalidRadix         = errors.New("invalid radix")
	ErrOverflow             = errors.New("value overflows uint64")
	ErrUnsupportedCharacter = errors.New("unsupported character")
	ErrUnknownToken         = errors.New("unknown morse token")
	ErrInvalidKey           = errors.New("invalid key")
	ErrUndefinedInverse     = errors.New("modular inverse undefined")
	ErrInvalidParams        = errors.New("invalid operation parameters")
)
