package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"videotable/internal/tensor"
)

// FillNaN replaces NaN samples in place according to policy. Statistics are
// column-wise: each of the FrameSize columns is reduced over the T rows.
// A column with no finite samples is filled with 0. An empty policy is a no-op.
func FillNaN(d tensor.Dense, policy string) (int, error) {
	policy = strings.ToLower(strings.TrimSpace(policy))
	if policy == "" {
		return 0, nil
	}
	rows := d.Shape.Frames()
	cols := d.Shape.FrameSize()

	var fixed float64
	switch policy {
	case "mean", "min", "max":
	default:
		v, err := strconv.ParseFloat(policy, 64)
		if err != nil {
			return 0, fmt.Errorf("unsupported nan_fill %q", policy)
		}
		fixed = v
	}

	filled := 0
	for c := 0; c < cols; c++ {
		value := fixed
		if policy == "mean" || policy == "min" || policy == "max" {
			value = columnStat(d.Data, rows, cols, c, policy)
		}
		for r := 0; r < rows; r++ {
			i := r*cols + c
			if math.IsNaN(d.Data[i]) {
				d.Data[i] = value
				filled++
			}
		}
	}
	return filled, nil
}

func columnStat(data []float64, rows, cols, c int, policy string) float64 {
	var (
		sum   float64
		count int
		lo    = math.Inf(1)
		hi    = math.Inf(-1)
	)
	for r := 0; r < rows; r++ {
		v := data[r*cols+c]
		if math.IsNaN(v) {
			continue
		}
		sum += v
		count++
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if count == 0 {
		return 0
	}
	switch policy {
	case "min":
		return lo
	case "max":
		return hi
	default:
		return sum / float64(count)
	}
}
