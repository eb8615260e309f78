package cipher

import (
	"math"
	"strings"
	"sync/atomic"
	"unicode"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

const (
	radixDigits = "0123456789ABCDEF"

	// MinRadix and MaxRadix bound the radices supported by the digit table.
	MinRadix = 2
	MaxRadix = len(radixDigits)

	// DefaultRadixCacheSize is the number of (value, radix) conversions the
	// default converter memoizes.
	DefaultRadixCacheSize = 1024
)

type radixKey struct {
	value uint64
	radix int
}

// RadixConverter converts between unsigned integers and digit strings in
// radices 2 through 16. Conversions to digit strings are memoized in an LRU
// cache keyed by (value, radix). A zero-sized converter does not cache.
type RadixConverter struct {
	cache *lru.Cache
}

// NewRadixConverter returns a converter memoizing up to cacheSize results.
func NewRadixConverter(cacheSize int) (*RadixConverter, error) {
	if cacheSize <= 0 {
		return &RadixConverter{}, nil
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create radix cache")
	}
	return &RadixConverter{cache: cache}, nil
}

var defaultConverter atomic.Pointer[RadixConverter]

func init() {
	c, _ := NewRadixConverter(DefaultRadixCacheSize)
	defaultConverter.Store(c)
}

// SetDefaultRadixCacheSize replaces the converter used by the package-level
// conversion functions. Safe to call while conversions are running; those
// finish on the converter they started with.
func SetDefaultRadixCacheSize(size int) error {
	c, err := NewRadixConverter(size)
	if err != nil {
		return err
	}
	defaultConverter.Store(c)
	return nil
}

// CacheLen returns the number of memoized conversions.
func (c *RadixConverter) CacheLen() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

// DecimalToBase renders value in the given radix, most significant digit
// first. The result carries no leading zeros; zero renders as "0".
func (c *RadixConverter) DecimalToBase(value uint64, radix int) (string, error) {
	if err := checkRadix(radix); err != nil {
		return "", err
	}
	key := radixKey{value: value, radix: radix}
	if c.cache != nil {
		if digits, ok := c.cache.Get(key); ok {
			return digits.(string), nil
		}
	}

	digits := formatRadix(value, radix)
	if c.cache != nil {
		c.cache.Add(key, digits)
	}
	return digits, nil
}

// BaseToDecimal parses digits written in the given radix. Letters are
// accepted in either case.
func (c *RadixConverter) BaseToDecimal(digits string, radix int) (uint64, error) {
	if err := checkRadix(radix); err != nil {
		return 0, err
	}
	if digits == "" {
		return 0, errors.Wrap(ErrInvalidDigit, "empty digit string")
	}

	base := uint64(radix)
	var value uint64
	pos := 0
	for _, r := range digits {
		d := strings.IndexRune(radixDigits, unicode.ToUpper(r))
		if d < 0 || d >= radix {
			return 0, errors.Wrapf(ErrInvalidDigit, "%q at position %d is not a base-%d digit", r, pos, radix)
		}
		pos++
		if value > (math.MaxUint64-uint64(d))/base {
			return 0, errors.Wrapf(ErrOverflow, "%q in base %d", digits, radix)
		}
		value = value*base + uint64(d)
	}
	return value, nil
}

func formatRadix(value uint64, radix int) string {
	if value == 0 {
		return "0"
	}
	var buf [64]byte
	i := len(buf)
	base := uint64(radix)
	for value != 0 {
		i--
		buf[i] = radixDigits[value%base]
		value /= base
	}
	return string(buf[i:])
}

func checkRadix(radix int) error {
	if radix < MinRadix || radix > MaxRadix {
		return errors.Wrapf(ErrInvalidRadix, "radix %d outside [%d, %d]", radix, MinRadix, MaxRadix)
	}
	return nil
}

// DecimalToBase renders value in the given radix using the default
// converter.
func DecimalToBase(value uint64, radix int) (string, error) {
	return defaultConverter.Load().DecimalToBase(value, radix)
}

// BaseToDecimal parses digits in the given radix using the default
// converter.
func BaseToDecimal(digits string, radix int) (uint64, error) {
	return defaultConverter.Load().BaseToDecimal(digits, radix)
}

// Convert rewrites digits from one radix into another.
func Convert(digits string, from, to int) (string, error) {
	if err := checkRadix(to); err != nil {
		return "", err
	}
	value, err := BaseToDecimal(digits, from)
	if err != nil {
		return "", err
	}
	return DecimalToBase(value, to)
}

// PadDigits left-pads digits with zeros up to width. Longer strings are
// returned unchanged.
func PadDigits(digits string, width int) string {
	if len(digits) >= width {
		return digits
	}
	return strings.Repeat("0", width-len(digits)) + digits
}

func ToBinary(value uint64) string {
	s, _ := DecimalToBase(value, 2)
	return s
}

func FromBinary(digits string) (uint64, error) {
	return BaseToDecimal(digits, 2)
}

func ToOctal(value uint64) string {
	s, _ := DecimalToBase(value, 8)
	return s
}

func FromOctal(digits string) (uint64, error) {
	return BaseToDecimal(digits, 8)
}

func ToHex(value uint64) string {
	s, _ := DecimalToBase(value, 16)
	return s
}

func FromHex(digits string) (uint64, error) {
	return BaseToDecimal(digits, 16)
}
