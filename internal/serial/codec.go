// Package serial encodes registrant serial numbers in a human-typable
// base-32 alphabet and allocates them from a shared sequence.
package serial

import (
	"errors"
	"math"
	"math/big"
	"strings"
)

// Alphabet drops 0, O, 1 and I so serials survive being read aloud or retyped.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// ErrInvalidSerial is returned for input that is not a non-negative integer
// (encoding) or not a well-formed serial (decoding).
var ErrInvalidSerial = errors.New("invalid serial")

var bigBase = big.NewInt(32)

// Encode renders n most-significant digit first. Zero is "A".
func Encode(n uint64) string {
	if n == 0 {
		return Alphabet[:1]
	}

	var buf [13]byte // ceil(64/5)
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = Alphabet[n&31]
		n >>= 5
	}

	return string(buf[i:])
}

// EncodeString encodes a decimal integer of any size.
func EncodeString(s string) (string, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() < 0 {
		return "", ErrInvalidSerial
	}
	if v.IsUint64() {
		return Encode(v.Uint64()), nil
	}

	var digits []byte
	mod := new(big.Int)
	for v.Sign() > 0 {
		v.DivMod(v, bigBase, mod)
		digits = append(digits, Alphabet[mod.Int64()])
	}
	for l, r := 0, len(digits)-1; l < r; l, r = l+1, r-1 {
		digits[l], digits[r] = digits[r], digits[l]
	}

	return string(digits), nil
}

// Decode is the inverse of Encode. Only canonical serials decode: a
// leading 'A' (zero digit) is rejected unless it is the whole serial.
func Decode(s string) (uint64, error) {
	if s == "" || (len(s) > 1 && s[0] == Alphabet[0]) {
		return 0, ErrInvalidSerial
	}

	var n uint64
	for i := 0; i < len(s); i++ {
		d := strings.IndexByte(Alphabet, s[i])
		if d < 0 {
			return 0, ErrInvalidSerial
		}
		if n > math.MaxUint64>>5 {
			return 0, ErrInvalidSerial
		}
		n = n<<5 | uint64(d)
	}

	return n, nil
}
