package miscale

import (
	"math"

	"github.com/fako1024/btweight/pkg/scale"
)

const (
	minFrameLen = 13

	flagImperial = 0x01
	flagStable   = 0x20

	kgDivisor = 200.
	lbDivisor = 100.
	lbToKg    = 0.453592
)

// Decode parses a raw weight measurement frame as broadcast by the scale in
// its service data. The first byte carries the unit / stability flags, the
// last two bytes the little-endian raw weight. Frames of at least minFrameLen
// bytes always decode to a value, no range validation is performed
func Decode(data []byte) (scale.Reading, error) {

	if len(data) < minFrameLen {
		return scale.Reading{}, scale.ErrFrameTooShort
	}

	raw := uint16(data[len(data)-2]) | uint16(data[len(data)-1])<<8

	weightKg := float64(raw) / kgDivisor
	if data[0]&flagImperial != 0 {
		weightKg = float64(raw) / lbDivisor * lbToKg
	}

	return scale.Reading{
		WeightKg: math.Round(weightKg*100.) / 100.,
		Stable:   data[0]&flagStable != 0,
	}, nil
}
