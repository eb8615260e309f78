package cipher

import (
	"context"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// CaesarParams configures caesar_encode and caesar_decode.
type CaesarParams struct {
	Shift    int    `param:"shift"`
	Alphabet string `param:"alphabet"`
}

// TranspositionParams configures transposition_encode and
// transposition_decode. Key is the number of grid columns.
type TranspositionParams struct {
	Key int `param:"key"`
}

// AffineParams configures affine_encode and affine_decode.
type AffineParams struct {
	Key      int    `param:"key"`
	Alphabet string `param:"alphabet"`
}

// VigenereParams configures vigenere_encode and vigenere_decode.
type VigenereParams struct {
	Key      string `param:"key"`
	Alphabet string `param:"alphabet"`
}

// RadixParams configures the base conversion operations. Width left-pads
// every rendered number with zeros.
type RadixParams struct {
	Radix int `param:"radix"`
	Width int `param:"width"`
}

// decodeParams copies params onto out, which must already hold the
// defaults. String values are converted, so "3" is accepted for an int.
func decodeParams(params map[string]interface{}, out interface{}) error {
	if len(params) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "param",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return errors.Wrap(ErrInvalidParams, err.Error())
	}
	return nil
}

// Caesar Operations

// CaesarOp shifts characters along an alphabet
type CaesarOp struct {
	BaseOperation
	decode bool
}

func (op *CaesarOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	p := CaesarParams{Shift: 3, Alphabet: UppercaseAlphabet}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	fn := CaesarEncode
	if op.decode {
		fn = CaesarDecode
	}
	out, err := fn(string(input), p.Shift, p.Alphabet)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// ROT13Op rotates ASCII letters by 13 and is its own reverse
type ROT13Op struct {
	BaseOperation
}

func (op *ROT13Op) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	if err := decodeParams(params, &struct{}{}); err != nil {
		return nil, err
	}
	return []byte(ROT13(string(input))), nil
}

// Transposition Operations

// TranspositionOp permutes characters through a columnar grid
type TranspositionOp struct {
	BaseOperation
	decode bool
}

func (op *TranspositionOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	var p TranspositionParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	fn := TranspositionEncode
	if op.decode {
		fn = TranspositionDecode
	}
	out, err := fn(string(input), p.Key)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// Affine Operations

// AffineOp applies the affine substitution x -> a*x + b
type AffineOp struct {
	BaseOperation
	decode bool
}

func (op *AffineOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	p := AffineParams{Alphabet: PrintableAlphabet}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	fn := AffineEncode
	if op.decode {
		fn = AffineDecode
	}
	out, err := fn(string(input), p.Key, p.Alphabet)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// Morse Operations

// MorseOp translates between text and ITU Morse code
type MorseOp struct {
	BaseOperation
	decode bool
}

func (op *MorseOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	if err := decodeParams(params, &struct{}{}); err != nil {
		return nil, err
	}
	fn := MorseEncode
	if op.decode {
		fn = MorseDecode
	}
	out, err := fn(string(input))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// Vigenere Operations

// VigenereOp applies a repeating key of Caesar shifts
type VigenereOp struct {
	BaseOperation
	decode bool
}

func (op *VigenereOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	p := VigenereParams{Alphabet: UppercaseAlphabet}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	fn := VigenereEncode
	if op.decode {
		fn = VigenereDecode
	}
	out, err := fn(string(input), p.Key, p.Alphabet)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// Radix Operations

// RadixOp converts whitespace separated numbers between decimal and another
// radix. With a zero fixedRadix the radix comes from the parameters.
type RadixOp struct {
	BaseOperation
	fixedRadix int
	fromBase   bool
}

func (op *RadixOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	p := RadixParams{Radix: op.fixedRadix}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if op.fixedRadix != 0 && p.Radix != op.fixedRadix {
		return nil, errors.Wrapf(ErrInvalidParams, "%s only converts radix %d", op.Name(), op.fixedRadix)
	}

	fields := strings.Fields(string(input))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		var converted string
		var err error
		if op.fromBase {
			converted, err = Convert(field, p.Radix, 10)
		} else {
			converted, err = Convert(field, 10, p.Radix)
			converted = PadDigits(converted, p.Width)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return []byte(strings.Join(out, " ")), nil
}

func init() {
	registerBuiltins()
}

// registerBuiltins registers every classical cipher and radix operation
func registerBuiltins() {
	caesarEncode := &CaesarOp{BaseOperation: BaseOperation{
		NameValue:        "caesar_encode",
		TypeValue:        OperationTypeEncode,
		DescriptionValue: "Shift characters along an alphabet (params: shift, alphabet)",
		InsecureValue:    true,
	}}
	caesarDecode := &CaesarOp{BaseOperation: BaseOperation{
		NameValue:        "caesar_decode",
		TypeValue:        OperationTypeDecode,
		DescriptionValue: "Undo a Caesar shift (params: shift, alphabet)",
		InsecureValue:    true,
	}, decode: true}
	caesarEncode.ReverseOp = caesarDecode
	caesarDecode.ReverseOp = caesarEncode

	rot13 := &ROT13Op{BaseOperation: BaseOperation{
		NameValue:        "rot13",
		TypeValue:        OperationTypeEncode,
		DescriptionValue: "Rotate ASCII letters by 13 places",
		InsecureValue:    true,
	}}
	rot13.ReverseOp = rot13

	transEncode := &TranspositionOp{BaseOperation: BaseOperation{
		NameValue:        "transposition_encode",
		TypeValue:        OperationTypeEncode,
		DescriptionValue: "Read a row-major grid column by column (params: key)",
		InsecureValue:    true,
	}}
	transDecode := &TranspositionOp{BaseOperation: BaseOperation{
		NameValue:        "transposition_decode",
		TypeValue:        OperationTypeDecode,
		DescriptionValue: "Rebuild a columnar transposition grid (params: key)",
		InsecureValue:    true,
	}, decode: true}
	transEncode.ReverseOp = transDecode
	transDecode.ReverseOp = transEncode

	affineEncode := &AffineOp{BaseOperation: BaseOperation{
		NameValue:        "affine_encode",
		TypeValue:        OperationTypeEncode,
		DescriptionValue: "Substitute x with a*x+b over an alphabet (params: key, alphabet)",
		InsecureValue:    true,
	}}
	affineDecode := &AffineOp{BaseOperation: BaseOperation{
		NameValue:        "affine_decode",
		TypeValue:        OperationTypeDecode,
		DescriptionValue: "Invert an affine substitution (params: key, alphabet)",
		InsecureValue:    true,
	}, decode: true}
	affineEncode.ReverseOp = affineDecode
	affineDecode.ReverseOp = affineEncode

	morseEncode := &MorseOp{BaseOperation: BaseOperation{
		NameValue:        "morse_encode",
		TypeValue:        OperationTypeEncode,
		DescriptionValue: "Translate letters and digits into ITU Morse code",
		InsecureValue:    true,
	}}
	morseDecode := &MorseOp{BaseOperation: BaseOperation{
		NameValue:        "morse_decode",
		TypeValue:        OperationTypeDecode,
		DescriptionValue: "Translate ITU Morse code into uppercase text",
		InsecureValue:    true,
	}, decode: true}
	morseEncode.ReverseOp = morseDecode
	morseDecode.ReverseOp = morseEncode

	vigenereEncode := &VigenereOp{BaseOperation: BaseOperation{
		NameValue:        "vigenere_encode",
		TypeValue:        OperationTypeEncode,
		DescriptionValue: "Shift characters by a repeating key (params: key, alphabet)",
		InsecureValue:    true,
	}}
	vigenereDecode := &VigenereOp{BaseOperation: BaseOperation{
		NameValue:        "vigenere_decode",
		TypeValue:        OperationTypeDecode,
		DescriptionValue: "Undo a Vigenere shift (params: key, alphabet)",
		InsecureValue:    true,
	}, decode: true}
	vigenereEncode.ReverseOp = vigenereDecode
	vigenereDecode.ReverseOp = vigenereEncode

	mustRegister(
		caesarEncode, caesarDecode, rot13,
		transEncode, transDecode,
		affineEncode, affineDecode,
		morseEncode, morseDecode,
		vigenereEncode, vigenereDecode,
	)
	mustRegister(radixPair("base", 0, "radix-N (params: radix, width)")...)
	mustRegister(radixPair("binary", 2, "binary (params: width)")...)
	mustRegister(radixPair("octal", 8, "octal (params: width)")...)
	mustRegister(radixPair("hex", 16, "hexadecimal (params: width)")...)
}

func radixPair(suffix string, radix int, label string) []Operation {
	to := &RadixOp{BaseOperation: BaseOperation{
		NameValue:        "to_" + suffix,
		TypeValue:        OperationTypeConvert,
		DescriptionValue: "Render decimal numbers as " + label,
	}, fixedRadix: radix}
	from := &RadixOp{BaseOperation: BaseOperation{
		NameValue:        "from_" + suffix,
		TypeValue:        OperationTypeConvert,
		DescriptionValue: "Parse " + strings.SplitN(label, " (", 2)[0] + " numbers into decimal",
	}, fixedRadix: radix, fromBase: true}
	to.ReverseOp = from
	from.ReverseOp = to
	return []Operation{to, from}
}
