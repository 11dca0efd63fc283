package miscale

import (
	"testing"

	"github.com/fako1024/btweight/pkg/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frame builds a measurement frame of the given total length with the raw
// weight encoded little-endian in the trailing two bytes
func frame(flags byte, raw uint16, length int) []byte {
	data := make([]byte, length)
	data[0] = flags
	data[length-2] = byte(raw)
	data[length-1] = byte(raw >> 8)

	return data
}

func TestDecodeTooShort(t *testing.T) {
	for length := 0; length < minFrameLen; length++ {
		_, err := Decode(make([]byte, length))
		require.ErrorIs(t, err, scale.ErrFrameTooShort, "length %d", length)
	}
}

func TestDecodeKilograms(t *testing.T) {
	tests := []struct {
		name   string
		raw    uint16
		weight string
	}{
		{"zero", 0, "0.00"},
		{"one kilogram", 200, "1.00"},
		{"rounds half away from zero", 1, "0.01"},
		{"typical body weight", 14470, "72.35"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, err := Decode(frame(0x00, tt.raw, minFrameLen))

			require.NoError(t, err)
			assert.Equal(t, tt.weight, reading.WeightString())
			assert.False(t, reading.Stable)
		})
	}
}

func TestDecodePounds(t *testing.T) {

	// 100 raw = 1.00 lb = 0.453592 kg
	reading, err := Decode(frame(flagImperial, 100, minFrameLen))

	require.NoError(t, err)
	assert.Equal(t, "0.45", reading.WeightString())
}

func TestDecodeStabilityFlag(t *testing.T) {
	tests := []struct {
		name   string
		flags  byte
		stable bool
	}{
		{"no flags", 0x00, false},
		{"imperial only", flagImperial, false},
		{"stable only", flagStable, true},
		{"stable and imperial", flagStable | flagImperial, true},
		{"stable among unrelated bits", flagStable | 0x82, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, err := Decode(frame(tt.flags, 12345, minFrameLen))

			require.NoError(t, err)
			assert.Equal(t, tt.stable, reading.Stable)
		})
	}
}

func TestDecodeDeterministic(t *testing.T) {
	data := frame(flagStable, 9999, minFrameLen)

	first, err := Decode(data)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		reading, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, first, reading)
	}
}

func TestDecodeLongFrame(t *testing.T) {

	// Longer frames (e.g. with trailing timestamp fields stripped elsewhere)
	// still take the weight from the last two bytes
	reading, err := Decode(frame(0x00, 200, 16))

	require.NoError(t, err)
	assert.Equal(t, "1.00", reading.WeightString())
}

func TestDecodeNoRangeValidation(t *testing.T) {

	// Physically implausible values still decode, by design
	reading, err := Decode(frame(0x00, 0xFFFF, minFrameLen))

	require.NoError(t, err)
	assert.Equal(t, "327.68", reading.WeightString())
}
