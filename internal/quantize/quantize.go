package quantize

import (
	"fmt"
	"math"

	"videotable/internal/services"
	"videotable/internal/tensor"
)

// Range is an inclusive [Min, Max] value interval.
type Range struct {
	Min float64
	Max float64
}

// Validate fails with InvalidRangeError when Max < Min or a bound is not finite.
func (r Range) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) || r.Max < r.Min {
		return &InvalidRangeError{Min: r.Min, Max: r.Max}
	}
	return nil
}

// Slice returns [min, max] for serialization.
func (r Range) Slice() []float64 {
	return []float64{r.Min, r.Max}
}

// RangeFromSlice converts a serialized [min, max] pair.
func RangeFromSlice(values []float64) (Range, error) {
	if len(values) != 2 {
		return Range{}, fmt.Errorf("%w: value range must have 2 entries, got %d", services.ErrValidation, len(values))
	}
	r := Range{Min: values[0], Max: values[1]}
	return r, r.Validate()
}

// InvalidRangeError reports a malformed value range.
type InvalidRangeError struct {
	Min float64
	Max float64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid value range [%g, %g]: max must be >= min and both finite", e.Min, e.Max)
}

func (e *InvalidRangeError) Unwrap() error { return services.ErrInvalidRange }

// State is the quantization decision carried into the manifest.
type State struct {
	Range     Range
	BitDepth  int
	Quantized bool
}

// MaxCode returns 2^bits - 1.
func MaxCode(bits int) float64 {
	return float64(uint32(1)<<uint(bits) - 1)
}

// ValidateBitDepth accepts 8 and 16.
func ValidateBitDepth(bits int) error {
	if bits != 8 && bits != 16 {
		return fmt.Errorf("%w: bit depth must be 8 or 16, got %d", services.ErrValidation, bits)
	}
	return nil
}

// Normalize maps values into [0, 2^bits-1]. Samples are clipped to r first, so
// values outside the range are not recoverable. A degenerate range (min == max)
// and NaN samples map to 0.
func Normalize(values []float64, r Range, bits int) ([]uint16, error) {
	if err := ValidateBitDepth(bits); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := make([]uint16, len(values))
	span := r.Max - r.Min
	if span == 0 {
		return out, nil
	}
	maxCode := MaxCode(bits)
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		scaled := (v - r.Min) / span
		switch {
		case scaled < 0:
			scaled = 0
		case scaled > 1:
			scaled = 1
		}
		out[i] = uint16(math.Round(scaled * maxCode))
	}
	return out, nil
}

// Denormalize applies the inverse affine map and always yields floats.
func Denormalize(codes []uint16, r Range, bits int) ([]float64, error) {
	if err := ValidateBitDepth(bits); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, len(codes))
	span := r.Max - r.Min
	maxCode := MaxCode(bits)
	for i, c := range codes {
		out[i] = float64(c)/maxCode*span + r.Min
	}
	return out, nil
}

// RangeOf returns the finite min and max of values, ignoring NaN. An empty or
// all-NaN input yields [0, 0].
func RangeOf(values []float64) Range {
	r := Range{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		r.Min = math.Min(r.Min, v)
		r.Max = math.Max(r.Max, v)
	}
	if r.Min > r.Max {
		return Range{}
	}
	return r
}

// NeedsQuantization reports whether samples of kind spanning r must be
// rescaled to fit a bits-wide unsigned pixel.
func NeedsQuantization(kind tensor.Kind, r Range, bits int) bool {
	if kind == tensor.Float {
		return true
	}
	return r.Min < 0 || r.Max > MaxCode(bits)
}

// Decide computes the quantization state for d. An explicit range takes
// precedence over the data range; the explicit range is only consulted when
// quantization is needed.
func Decide(d tensor.Dense, explicit *Range, bits int) (State, error) {
	if err := ValidateBitDepth(bits); err != nil {
		return State{}, err
	}
	dataRange := RangeOf(d.Data)
	state := State{Range: dataRange, BitDepth: bits}
	if !NeedsQuantization(d.Kind, dataRange, bits) {
		return state, nil
	}
	state.Quantized = true
	if explicit != nil {
		if err := explicit.Validate(); err != nil {
			return State{}, err
		}
		state.Range = *explicit
	}
	return state, nil
}

// Apply converts d into pixels under state. Unquantized integer samples are
// copied as-is; NaN becomes 0.
func Apply(d tensor.Dense, state State) (tensor.Pixels, error) {
	pixels := tensor.Pixels{Shape: d.Shape, BitDepth: state.BitDepth}
	if state.Quantized {
		codes, err := Normalize(d.Data, state.Range, state.BitDepth)
		if err != nil {
			return tensor.Pixels{}, err
		}
		pixels.Data = codes
		return pixels, nil
	}
	pixels.Data = make([]uint16, len(d.Data))
	for i, v := range d.Data {
		if math.IsNaN(v) {
			continue
		}
		pixels.Data[i] = uint16(math.Round(v))
	}
	return pixels, nil
}

// Invert converts pixels back to a float tensor, denormalizing when the
// state says the source was quantized.
func Invert(p tensor.Pixels, state State, kind tensor.Kind) (tensor.Dense, error) {
	out := tensor.Dense{Shape: p.Shape, Kind: kind}
	if state.Quantized {
		values, err := Denormalize(p.Data, state.Range, state.BitDepth)
		if err != nil {
			return tensor.Dense{}, err
		}
		out.Data = values
		return out, nil
	}
	out.Data = make([]float64, len(p.Data))
	for i, v := range p.Data {
		out.Data[i] = float64(v)
	}
	return out, nil
}
