package reduction_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"videotable/internal/reduction"
	"videotable/internal/services"
	"videotable/internal/tensor"
)

// lineData returns samples on the line (t, 2t, -t) plus a constant offset so
// one component explains all variance.
func lineData(n int) tensor.Dense {
	d := tensor.NewDense(tensor.Shape{1, 1, n, 3}, tensor.Float)
	for i := 0; i < n; i++ {
		t := float64(i)
		d.Set(i, 0, t+1)
		d.Set(i, 1, 2*t+1)
		d.Set(i, 2, -t+1)
	}
	return d
}

func TestPCAFullRankIsExact(t *testing.T) {
	d := tensor.Dense{Shape: tensor.Shape{2, 1, 2, 3}, Kind: tensor.Float, Data: []float64{
		1, 5, 2, 3, 0, 9, 4, 4, 1, 7, 2, 8,
	}}
	model := reduction.NewPCA(3)
	reduced, err := model.FitTransform(d)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	if reduced.Shape != d.Shape {
		t.Fatalf("unexpected reduced shape %v", reduced.Shape)
	}
	restored, err := model.InverseTransform(reduced)
	if err != nil {
		t.Fatalf("InverseTransform: %v", err)
	}
	for i := range d.Data {
		if math.Abs(restored.Data[i]-d.Data[i]) > 1e-9 {
			t.Fatalf("sample %d: got %g want %g", i, restored.Data[i], d.Data[i])
		}
	}
}

func TestPCAOneComponentRecoversLine(t *testing.T) {
	d := lineData(6)
	model := reduction.NewPCA(1)
	reduced, err := model.FitTransform(d)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	if reduced.Shape.Channels() != 1 {
		t.Fatalf("expected 1 channel, got %d", reduced.Shape.Channels())
	}
	restored, err := model.InverseTransform(reduced)
	if err != nil {
		t.Fatalf("InverseTransform: %v", err)
	}
	for i := range d.Data {
		if math.Abs(restored.Data[i]-d.Data[i]) > 1e-9 {
			t.Fatalf("sample %d: got %g want %g", i, restored.Data[i], d.Data[i])
		}
	}
	// The largest loading (the 2t axis) is forced positive.
	if reduced.At(5, 0) <= reduced.At(0, 0) {
		t.Fatalf("expected projection to increase with t, got %v", reduced.Data)
	}
}

func TestRestoreFromBlobBothForms(t *testing.T) {
	d := lineData(5)
	model := reduction.NewPCA(2)
	reduced, err := model.FitTransform(d)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	want, err := model.InverseTransform(reduced)
	if err != nil {
		t.Fatalf("InverseTransform: %v", err)
	}

	for _, compress := range []bool{false, true} {
		blob, err := reduction.Serialize(model, compress)
		if err != nil {
			t.Fatalf("Serialize(compress=%v): %v", compress, err)
		}
		if compress != strings.HasPrefix(blob, "zstd:") {
			t.Fatalf("unexpected blob form for compress=%v: %.20s", compress, blob)
		}
		restored, err := reduction.Restore(blob)
		if err != nil {
			t.Fatalf("Restore(compress=%v): %v", compress, err)
		}
		if restored.Components() != 2 || restored.Features() != 3 {
			t.Fatalf("unexpected restored dims: %d/%d", restored.Components(), restored.Features())
		}
		got, err := restored.InverseTransform(reduced)
		if err != nil {
			t.Fatalf("restored InverseTransform: %v", err)
		}
		for i := range want.Data {
			if math.Abs(got.Data[i]-want.Data[i]) > 1e-12 {
				t.Fatalf("compress=%v sample %d: got %g want %g", compress, i, got.Data[i], want.Data[i])
			}
		}
	}
}

func TestInverseTruncatesPaddingChannels(t *testing.T) {
	d := lineData(4)
	model := reduction.NewPCA(1)
	reduced, err := model.FitTransform(d)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	padded := tensor.NewDense(reduced.Shape.WithChannels(3), tensor.Float)
	for p := 0; p < reduced.Shape.Pixels(); p++ {
		padded.Set(p, 0, reduced.At(p, 0))
		padded.Set(p, 1, 99)
		padded.Set(p, 2, -99)
	}
	fromPadded, err := model.InverseTransform(padded)
	if err != nil {
		t.Fatalf("InverseTransform padded: %v", err)
	}
	fromReduced, err := model.InverseTransform(reduced)
	if err != nil {
		t.Fatalf("InverseTransform: %v", err)
	}
	for i := range fromReduced.Data {
		if fromPadded.Data[i] != fromReduced.Data[i] {
			t.Fatalf("padding channels leaked into inverse at %d", i)
		}
	}
	if fromPadded.Shape.Channels() != 3 {
		t.Fatalf("expected 3 restored features, got %d", fromPadded.Shape.Channels())
	}
}

func TestFitRejectsInvalidInput(t *testing.T) {
	d := lineData(3)
	if _, err := reduction.NewPCA(4).FitTransform(d); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for k > features, got %v", err)
	}
	d.Data[0] = math.NaN()
	if _, err := reduction.NewPCA(1).FitTransform(d); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for NaN input, got %v", err)
	}
}

func TestRestoreRejectsMalformedParams(t *testing.T) {
	cases := []string{
		"",
		"not json",
		`{"technique":"ica"}`,
		`{"technique":"pca","n_components":2,"n_features":3,"mean":[0,0,0],"components":[[1,0,0]]}`,
		"zstd:%%%",
	}
	for _, blob := range cases {
		if _, err := reduction.Restore(blob); err == nil {
			t.Fatalf("expected error for blob %q", blob)
		}
	}
}
