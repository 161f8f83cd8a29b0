package core

import "math"

// Fixed-point scale factors between the 32-bit wire container and float samples.
const (
	ScaleFloatToInt = 1 << 23         // 24-bit magnitude
	ScaleIntToFloat = 1.0 / (1 << 31) // full 32-bit container

	WireMax = ScaleFloatToInt - 1 // 2^23 - 1, before the 8-bit shift
	WireMin = -ScaleFloatToInt    // -2^23, before the 8-bit shift

	wireShift = 8
)

// ToFloat converts a wire sample (24 bits left-justified in 32) to a float.
// Wire samples (low byte zero) convert exactly into [-1.0, 1.0). Other int32
// values round to float32 precision, so values near MaxInt32 can reach 1.0.
func ToFloat(sample int32) float32 {
	return float32(sample) * ScaleIntToFloat
}

// ToWire converts a float sample to the wire format.
//
// Values whose scaled magnitude is 0.5 or more on the positive side get one added
// before truncation; everything else truncates toward zero, so -0.5 LSB maps to 0.
// Out of range input clamps to [WireMin, WireMax] before the shift. NaN maps to 0.
func ToWire(sample float32) int32 {
	scaled := float64(sample) * ScaleFloatToInt
	if math.IsNaN(scaled) {
		return 0
	}
	if scaled >= 0.5 {
		scaled++
	}

	// Clamp in float space so the int conversion never overflows
	var y int32
	switch {
	case scaled >= WireMax:
		y = WireMax
	case scaled <= WireMin:
		y = WireMin
	default:
		y = int32(scaled)
	}
	return y << wireShift
}

// DecodeBlock converts wire samples in src into dst.
// Returns the number of samples converted (the shorter of the two lengths).
func DecodeBlock(dst []float32, src []int32) int {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = ToFloat(src[i])
	}
	return n
}

// EncodeBlock converts float samples in src into wire samples in dst.
// Returns the number of samples converted (the shorter of the two lengths).
func EncodeBlock(dst []int32, src []float32) int {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = ToWire(src[i])
	}
	return n
}
