package pipeline

import (
	"time"

	"videotable/internal/catalog"
	"videotable/internal/fileutil"
	"videotable/internal/tensor"
)

// Stats summarizes one encode job.
type Stats struct {
	Name             string        `json:"name"`
	Status           string        `json:"status"`
	Container        string        `json:"container,omitempty"`
	Manifest         string        `json:"manifest,omitempty"`
	OriginalBytes    int64         `json:"original_bytes"`
	CompressedBytes  int64         `json:"compressed_bytes"`
	CompressionRatio float64       `json:"compression_ratio"`
	BitsPerSample    float64       `json:"bits_per_sample"`
	WriteDuration    time.Duration `json:"write_duration_ns"`
	ErrorLabel       string        `json:"error_label,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// measure fills size statistics for frames written to container. Original
// size counts the padded pixel tensor at its sample width.
func (s *Stats) measure(frames tensor.Pixels, container string) {
	samples := int64(frames.Shape.Size())
	s.OriginalBytes = samples * int64(tensor.BytesPerSample(frames.BitDepth))
	s.CompressedBytes = fileutil.FileSize(container)
	if s.CompressedBytes > 0 {
		s.CompressionRatio = float64(s.OriginalBytes) / float64(s.CompressedBytes)
	}
	if samples > 0 {
		s.BitsPerSample = float64(s.CompressedBytes*8) / float64(samples)
	}
}

func (s Stats) entry(runID, batchID string) catalog.Entry {
	return catalog.Entry{
		RunID:            runID,
		BatchID:          batchID,
		Array:            s.Name,
		Operation:        catalog.OperationEncode,
		Status:           s.Status,
		Container:        s.Container,
		Manifest:         s.Manifest,
		OriginalBytes:    s.OriginalBytes,
		CompressedBytes:  s.CompressedBytes,
		CompressionRatio: s.CompressionRatio,
		BitsPerSample:    s.BitsPerSample,
		Duration:         s.WriteDuration,
		ErrorLabel:       s.ErrorLabel,
		Message:          s.Error,
	}
}
