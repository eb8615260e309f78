// Package cipher implements classical text ciphers and number-base
// conversion, and exposes them as named, chainable operations.
//
// # Codecs
//
// Each scheme is a pair of pure functions:
//
//	CaesarEncode / CaesarDecode               shift along an alphabet
//	TranspositionEncode / TranspositionDecode columnar grid
//	AffineEncode / AffineDecode               x -> a*x+b over an alphabet
//	VigenereEncode / VigenereDecode           repeating key of shifts
//	MorseEncode / MorseDecode                 ITU Morse code
//	DecimalToBase / BaseToDecimal             radix 2 to 16
//
// None of the ciphers provide confidentiality; the registered operations
// carry Insecure() == true.
//
// Failures are reported through sentinel errors (ErrInvalidKey,
// ErrInvalidDigit, ...) wrapped with the offending input:
//
//	_, err := cipher.TranspositionEncode("short", 9)
//	errors.Is(err, cipher.ErrInvalidKey) // true
//
// # Operations and pipelines
//
// Every codec is registered as an Operation taking its parameters as a map:
//
//	op, _ := cipher.GetOperation("caesar_encode")
//	out, _ := op.Execute(ctx, []byte("HELLO"), map[string]interface{}{"shift": 8})
//
// Operations chain into a Pipeline, and a reversible pipeline can be
// inverted:
//
//	p := &cipher.Pipeline{
//	    Operations: []cipher.OperationConfig{
//	        {Name: "vigenere_encode", Parameters: map[string]interface{}{"key": "LEMON"}},
//	        {Name: "transposition_encode", Parameters: map[string]interface{}{"key": 4}},
//	    },
//	    Reversible: true,
//	}
//	enc, _ := p.Execute(ctx, []byte("ATTACKATDAWN"))
//	rev, _ := p.Reverse()
//	dec, _ := rev.Execute(ctx, enc)
//
// RecipeManager saves pipelines under a name, on disk as JSON (YAML files
// are read too). SmartDetector guesses which encoding produced a text.
//
// # Thread Safety
//
// Codec functions and operations are stateless. The registry and
// RecipeManager are guarded by locks. The radix cache is synchronized.
package cipher
