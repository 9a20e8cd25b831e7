package ffmpeg_test

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"videotable/internal/logging"
	"videotable/internal/media/ffmpeg"
	"videotable/internal/pixfmt"
	"videotable/internal/tensor"
)

func requireBinaries(t *testing.T) {
	t.Helper()
	for _, name := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not available: %v", name, err)
		}
	}
}

func TestCertifiedRoundTripWithRealFFmpeg(t *testing.T) {
	requireBinaries(t)

	engine := ffmpeg.New()
	negotiator := pixfmt.NewNegotiator(engine, logging.NewNop())
	shape := tensor.Shape{3, 4, 6, 3}
	original := tensor.NewPixels(shape, 8)
	for i := range original.Data {
		original.Data[i] = uint16((i * 53) % 256)
	}
	path := filepath.Join(t.TempDir(), "roundtrip.mkv")

	record, err := negotiator.Encode(context.Background(), original, map[string]string{"c:v": "ffv1"}, path)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if record.Actual != "gbrp" && record.Actual != "bgr0" {
		t.Fatalf("unexpected negotiated format %q", record.Actual)
	}

	decoded, _, err := negotiator.Decode(context.Background(), path, shape, 8)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !decoded.Equal(original) {
		t.Fatal("ffv1 round trip is not byte exact")
	}
}

func TestRetagWithRealFFmpeg(t *testing.T) {
	requireBinaries(t)

	engine := ffmpeg.New()
	negotiator := pixfmt.NewNegotiator(engine, logging.NewNop())
	pixels := tensor.NewPixels(tensor.Shape{1, 2, 2, 3}, 8)
	path := filepath.Join(t.TempDir(), "tagged.mkv")
	if _, err := negotiator.Encode(context.Background(), pixels, map[string]string{"c:v": "ffv1"}, path); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := engine.Retag(context.Background(), path, map[string]string{"videotable_manifest": `{"version":1}`}); err != nil {
		t.Fatalf("Retag: %v", err)
	}
	probe, err := engine.Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	found := false
	for key, value := range probe.Tags {
		if (key == "videotable_manifest" || key == "VIDEOTABLE_MANIFEST") && value == `{"version":1}` {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected manifest tag after retag, got %v", probe.Tags)
	}
}
