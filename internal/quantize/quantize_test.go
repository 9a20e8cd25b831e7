package quantize_test

import (
	"errors"
	"math"
	"testing"

	"videotable/internal/quantize"
	"videotable/internal/services"
	"videotable/internal/tensor"
)

func TestRoundTripWithinOneStep(t *testing.T) {
	ranges := []quantize.Range{{Min: 0, Max: 1}, {Min: -5.5, Max: 12.25}, {Min: 1000, Max: 1000.001}}
	for _, bits := range []int{8, 16} {
		for _, r := range ranges {
			values := make([]float64, 101)
			for i := range values {
				values[i] = r.Min + (r.Max-r.Min)*float64(i)/100
			}
			codes, err := quantize.Normalize(values, r, bits)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			restored, err := quantize.Denormalize(codes, r, bits)
			if err != nil {
				t.Fatalf("Denormalize: %v", err)
			}
			step := (r.Max - r.Min) / quantize.MaxCode(bits)
			for i := range values {
				if diff := math.Abs(restored[i] - values[i]); diff > step+1e-12 {
					t.Fatalf("bits=%d range=%v: value %g restored as %g (step %g)", bits, r, values[i], restored[i], step)
				}
			}
		}
	}
}

func TestNormalizeClipsAndHandlesNaN(t *testing.T) {
	codes, err := quantize.Normalize([]float64{-10, 0.5, 10, math.NaN()}, quantize.Range{Min: 0, Max: 1}, 8)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []uint16{0, 128, 255, 0}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("code %d = %d, want %d", i, codes[i], want[i])
		}
	}
}

func TestNormalizeDegenerateRange(t *testing.T) {
	codes, err := quantize.Normalize([]float64{3, 3, 3}, quantize.Range{Min: 3, Max: 3}, 16)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for _, c := range codes {
		if c != 0 {
			t.Fatalf("expected domain minimum, got %d", c)
		}
	}
	restored, err := quantize.Denormalize(codes, quantize.Range{Min: 3, Max: 3}, 16)
	if err != nil {
		t.Fatalf("Denormalize: %v", err)
	}
	if restored[0] != 3 {
		t.Fatalf("expected 3, got %g", restored[0])
	}
}

func TestInvalidRange(t *testing.T) {
	_, err := quantize.Normalize([]float64{1}, quantize.Range{Min: 2, Max: 1}, 8)
	var rangeErr *quantize.InvalidRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected InvalidRangeError, got %v", err)
	}
	if rangeErr.Min != 2 || rangeErr.Max != 1 {
		t.Fatalf("unexpected error fields: %+v", rangeErr)
	}
	if !errors.Is(err, services.ErrInvalidRange) {
		t.Fatal("expected error to unwrap to ErrInvalidRange")
	}
	if err := (quantize.Range{Min: 0, Max: math.Inf(1)}).Validate(); err == nil {
		t.Fatal("expected infinite bound to be rejected")
	}
}

func TestBitDepthValidation(t *testing.T) {
	if _, err := quantize.Normalize([]float64{1}, quantize.Range{Min: 0, Max: 1}, 12); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRangeOfIgnoresNaN(t *testing.T) {
	r := quantize.RangeOf([]float64{math.NaN(), 4, -2, math.NaN(), 7})
	if r.Min != -2 || r.Max != 7 {
		t.Fatalf("unexpected range: %+v", r)
	}
	if r := quantize.RangeOf([]float64{math.NaN()}); r != (quantize.Range{}) {
		t.Fatalf("expected zero range for all-NaN input, got %+v", r)
	}
}

func TestNeedsQuantization(t *testing.T) {
	cases := []struct {
		kind tensor.Kind
		r    quantize.Range
		bits int
		want bool
	}{
		{tensor.Float, quantize.Range{Min: 0, Max: 1}, 8, true},
		{tensor.Int, quantize.Range{Min: 0, Max: 255}, 8, false},
		{tensor.Int, quantize.Range{Min: 0, Max: 256}, 8, true},
		{tensor.Int, quantize.Range{Min: 0, Max: 256}, 16, false},
		{tensor.Int, quantize.Range{Min: -1, Max: 10}, 16, true},
	}
	for _, tc := range cases {
		if got := quantize.NeedsQuantization(tc.kind, tc.r, tc.bits); got != tc.want {
			t.Fatalf("NeedsQuantization(%v, %+v, %d) = %v, want %v", tc.kind, tc.r, tc.bits, got, tc.want)
		}
	}
}

func TestDecideAndApplyIntegerPassthrough(t *testing.T) {
	d := tensor.Dense{Shape: tensor.Shape{1, 1, 2, 2}, Data: []float64{0, 17, 200, 255}, Kind: tensor.Int}
	state, err := quantize.Decide(d, &quantize.Range{Min: -1, Max: 1}, 8)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if state.Quantized {
		t.Fatal("expected uint8-fitting integers to skip quantization")
	}
	pixels, err := quantize.Apply(d, state)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	restored, err := quantize.Invert(pixels, state, tensor.Int)
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}
	for i := range d.Data {
		if restored.Data[i] != d.Data[i] {
			t.Fatalf("sample %d: got %g want %g", i, restored.Data[i], d.Data[i])
		}
	}
}

func TestDecideUsesExplicitRangeForFloats(t *testing.T) {
	d := tensor.Dense{Shape: tensor.Shape{1, 1, 1, 2}, Data: []float64{0.25, 0.75}, Kind: tensor.Float}
	state, err := quantize.Decide(d, &quantize.Range{Min: 0, Max: 1}, 16)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !state.Quantized || state.Range != (quantize.Range{Min: 0, Max: 1}) {
		t.Fatalf("unexpected state: %+v", state)
	}
	state, err = quantize.Decide(d, nil, 16)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if state.Range != (quantize.Range{Min: 0.25, Max: 0.75}) {
		t.Fatalf("expected data range, got %+v", state.Range)
	}
}
