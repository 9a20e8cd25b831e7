package pixfmt_test

import (
	"errors"
	"testing"

	"videotable/internal/pixfmt"
	"videotable/internal/tensor"
)

// bgr0Frame builds a bgr0 buffer for rgb pixels with optional row padding.
func bgr0Frame(rgb [][3]byte, width, stride int) []byte {
	rows := len(rgb) / width
	buf := make([]byte, rows*stride)
	for i, px := range rgb {
		row, col := i/width, i%width
		offset := row*stride + col*4
		buf[offset] = px[2]
		buf[offset+1] = px[1]
		buf[offset+2] = px[0]
		buf[offset+3] = 0xFF
	}
	return buf
}

func checkRGB(t *testing.T, got tensor.Pixels, want [][3]byte) {
	t.Helper()
	for i, px := range want {
		for c := 0; c < 3; c++ {
			if got.At(i, c) != uint16(px[c]) {
				t.Fatalf("pixel %d channel %d = %d, want %d", i, c, got.At(i, c), px[c])
			}
		}
	}
}

func TestDecodeFallbackExactSize(t *testing.T) {
	shape := tensor.Shape{2, 2, 2, 3}
	rgb := make([][3]byte, shape.Pixels())
	for i := range rgb {
		rgb[i] = [3]byte{byte(i), byte(100 + i), byte(200 + i)}
	}
	buf := bgr0Frame(rgb, 2, 8)
	if len(buf) != shape.Pixels()*4 {
		t.Fatalf("fixture size %d", len(buf))
	}
	got, err := pixfmt.DecodeFallback(buf, shape)
	if err != nil {
		t.Fatalf("DecodeFallback: %v", err)
	}
	if got.Shape != shape {
		t.Fatalf("unexpected shape %v", got.Shape)
	}
	checkRGB(t, got, rgb)
}

func TestDecodeFallbackStridePadded(t *testing.T) {
	shape := tensor.Shape{1, 2, 3, 3}
	rgb := [][3]byte{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {10, 11, 12}, {13, 14, 15}, {16, 17, 18}}
	buf := bgr0Frame(rgb, 3, 16)
	got, err := pixfmt.DecodeFallback(buf, shape)
	if err != nil {
		t.Fatalf("DecodeFallback: %v", err)
	}
	checkRGB(t, got, rgb)
}

func TestDecodeFallbackPackedThreeChannel(t *testing.T) {
	shape := tensor.Shape{1, 1, 2, 3}
	buf := []byte{3, 2, 1, 6, 5, 4}
	got, err := pixfmt.DecodeFallback(buf, shape)
	if err != nil {
		t.Fatalf("DecodeFallback: %v", err)
	}
	checkRGB(t, got, [][3]byte{{1, 2, 3}, {4, 5, 6}})
}

func TestDecodeFallbackMismatch(t *testing.T) {
	shape := tensor.Shape{1, 2, 3, 3}
	_, err := pixfmt.DecodeFallback(make([]byte, 7), shape)
	var sizeErr *pixfmt.BufferSizeMismatchError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected BufferSizeMismatchError, got %v", err)
	}
	want := []int{24, 32, 18}
	if sizeErr.Observed != 7 || len(sizeErr.Considered) != 3 {
		t.Fatalf("unexpected error detail: %+v", sizeErr)
	}
	for i := range want {
		if sizeErr.Considered[i] != want[i] {
			t.Fatalf("considered sizes = %v, want %v", sizeErr.Considered, want)
		}
	}
}
