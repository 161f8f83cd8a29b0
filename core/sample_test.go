package core

import (
	"math"
	"math/rand"
	"testing"
)

const lsb = 1.0 / (1 << 23)

func TestToFloatExactScaling(t *testing.T) {
	testCases := []struct {
		name string
		wire int32
	}{
		{"zero", 0},
		{"one lsb", 1 << 8},
		{"minus one lsb", -1 << 8},
		{"max", WireMax << 8},
		{"min", WireMin << 8},
		{"mid", 12345 << 8},
		{"negative mid", -4000000 << 8},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToFloat(tc.wire)
			expected := float64(tc.wire) / (1 << 31)
			if float64(got) != expected {
				t.Errorf("ToFloat(%d) = %v, expected %v", tc.wire, got, expected)
			}
		})
	}

	if ToFloat(math.MinInt32) != -1.0 {
		t.Errorf("ToFloat(MinInt32) = %v, expected -1", ToFloat(math.MinInt32))
	}
}

func TestToFloatNonWireRounds(t *testing.T) {
	// Largest wire sample stays below full scale
	if got := ToFloat(WireMax << 8); got >= 1.0 {
		t.Errorf("ToFloat(WireMax<<8) = %v, expected < 1", got)
	}
	// A full 32-bit value has more precision than float32 holds
	if got := ToFloat(math.MaxInt32); got != 1.0 {
		t.Errorf("ToFloat(MaxInt32) = %v, expected rounding to 1", got)
	}
	if got := ToFloat(0x12345677); float64(got) == float64(0x12345677)/(1<<31) {
		t.Errorf("ToFloat(0x12345677) = %v should not be exact", got)
	}
}

func TestToWireRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	check := func(x float32) {
		got := ToFloat(ToWire(x))
		diff := math.Abs(float64(got) - float64(x))
		if diff > lsb {
			t.Fatalf("Round trip of %v gave %v (diff %g > %g)", x, got, diff, lsb)
		}
	}

	for i := 0; i < 20000; i++ {
		check(rng.Float32()*2 - 1)
	}
	for x := float32(-1.0); x < 1.0; x += 1.0 / 1024 {
		check(x)
	}
	check(-1.0)
	check(float32(1.0 - lsb))
}

func TestToWireClamp(t *testing.T) {
	maxWire := int32(WireMax << 8)
	minWire := int32(WireMin << 8)

	testCases := []struct {
		name     string
		in       float32
		expected int32
	}{
		{"plus two", 2.0, maxWire},
		{"plus one", 1.0, maxWire},
		{"just below one", float32(1.0 - lsb), maxWire},
		{"minus one", -1.0, minWire},
		{"minus two", -2.0, minWire},
		{"plus inf", float32(math.Inf(1)), maxWire},
		{"minus inf", float32(math.Inf(-1)), minWire},
		{"nan", float32(math.NaN()), 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ToWire(tc.in); got != tc.expected {
				t.Errorf("ToWire(%v) = %#x, expected %#x", tc.in, got, tc.expected)
			}
		})
	}
}

func TestToWireRounding(t *testing.T) {
	testCases := []struct {
		name   string
		scaled float64 // input in LSB units
		steps  int32   // expected 24-bit value
	}{
		{"zero", 0, 0},
		{"below half", 0.49, 0},
		{"half", 0.5, 1},
		{"two and a half", 2.5, 3},
		{"two point nine", 2.9, 3},
		// positive values at or past 0.5 always gain one before truncation
		{"exact one", 1.0, 2},
		{"exact hundred", 100.0, 101},
		// negative side only truncates toward zero
		{"minus below half", -0.49, 0},
		{"minus half", -0.5, 0},
		{"minus two and a half", -2.5, -2},
		{"minus one", -1.0, -1},
		{"minus hundred", -100.0, -100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			x := float32(tc.scaled * lsb)
			got := ToWire(x)
			if got != tc.steps<<8 {
				t.Errorf("ToWire(%g LSB) = %d LSB, expected %d", tc.scaled, got>>8, tc.steps)
			}
		})
	}
}

func TestToWireLowByteZero(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10000; i++ {
		x := rng.Float32()*4 - 2
		if w := ToWire(x); w&0xFF != 0 {
			t.Fatalf("ToWire(%v) = %#x has non-zero padding", x, w)
		}
	}
}

func TestBlockConversion(t *testing.T) {
	src := []float32{0, 0.5, -0.5, 0.999, -1}
	wire := make([]int32, 8)

	if n := EncodeBlock(wire, src); n != len(src) {
		t.Errorf("EncodeBlock converted %d, expected %d", n, len(src))
	}
	for i, x := range src {
		if wire[i] != ToWire(x) {
			t.Errorf("Sample %d: %#x, expected %#x", i, wire[i], ToWire(x))
		}
	}

	back := make([]float32, 3)
	if n := DecodeBlock(back, wire); n != 3 {
		t.Errorf("DecodeBlock converted %d, expected 3", n)
	}
	for i := range back {
		if back[i] != ToFloat(wire[i]) {
			t.Errorf("Sample %d: %v, expected %v", i, back[i], ToFloat(wire[i]))
		}
	}
}
