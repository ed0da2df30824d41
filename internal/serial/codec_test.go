package serial_test

import (
	"math"
	"strings"
	"testing"

	"github.com/jmehdipour/qmail/internal/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_KnownValues(t *testing.T) {
	assert.Equal(t, "A", serial.Encode(0))
	assert.Equal(t, "B", serial.Encode(1))
	assert.Equal(t, "9", serial.Encode(31))
	assert.Equal(t, "BA", serial.Encode(32))
	assert.Equal(t, "NB3", serial.Encode(12345))
}

func TestEncode_UsesOnlyAlphabet(t *testing.T) {
	for _, n := range []uint64{7, 1 << 20, 987654321, math.MaxUint64} {
		out := serial.Encode(n)
		for _, r := range out {
			assert.True(t, strings.ContainsRune(serial.Alphabet, r), "unexpected %q in %q", r, out)
		}
	}
	assert.Len(t, serial.Encode(math.MaxUint64), 13)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 31, 32, 33, 1023, 1024, 12345, 1 << 40, math.MaxUint64}
	for _, n := range values {
		got, err := serial.Decode(serial.Encode(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestEncodeDecode_DigitWeights(t *testing.T) {
	// Summing digit_i * 32^i from the least significant end rebuilds n.
	n := uint64(98765)
	enc := serial.Encode(n)

	var sum, weight uint64 = 0, 1
	for i := len(enc) - 1; i >= 0; i-- {
		sum += uint64(strings.IndexByte(serial.Alphabet, enc[i])) * weight
		weight *= 32
	}
	assert.Equal(t, n, sum)
}

func TestEncodeString(t *testing.T) {
	got, err := serial.EncodeString("12345")
	require.NoError(t, err)
	assert.Equal(t, serial.Encode(12345), got)

	// Beyond uint64: 2^64 = 16 * 32^12.
	got, err = serial.EncodeString("18446744073709551616")
	require.NoError(t, err)
	assert.Equal(t, "S"+strings.Repeat("A", 12), got)
}

func TestEncodeString_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "1.5", "12e3"} {
		_, err := serial.EncodeString(in)
		assert.ErrorIs(t, err, serial.ErrInvalidSerial, "input %q", in)
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, in := range []string{"", "0", "O1", "ab", "AAB", "AA", strings.Repeat("9", 14)} {
		_, err := serial.Decode(in)
		assert.ErrorIs(t, err, serial.ErrInvalidSerial, "input %q", in)
	}
}

func TestDecode_Zero(t *testing.T) {
	n, err := serial.Decode("A")
	require.NoError(t, err)
	assert.Zero(t, n)
}
