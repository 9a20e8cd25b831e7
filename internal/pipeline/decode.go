package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"videotable/internal/catalog"
	"videotable/internal/config"
	"videotable/internal/logging"
	"videotable/internal/manifest"
	"videotable/internal/packing"
	"videotable/internal/quantize"
	"videotable/internal/reduction"
	"videotable/internal/services"
	"videotable/internal/table"
	"videotable/internal/tensor"
)

// ReconstructedFileName names the table DecodeOne writes for an array.
func ReconstructedFileName(name string) string {
	return "reconstructed_" + name + ".db"
}

// DecodeOne reconstructs array name of batch batchID under batchDir and
// returns the path of the written table. Nothing is written when the
// manifest cannot be found or the container fails verification.
func (p *Pipeline) DecodeOne(ctx context.Context, batchDir, batchID, name string) (string, error) {
	batchID = strings.TrimSpace(batchID)
	name = strings.TrimSpace(name)
	if batchID == "" || name == "" || name != filepath.Base(name) || batchID != filepath.Base(batchID) {
		return "", services.Wrap(services.ErrValidation, "decode", "args", fmt.Sprintf("invalid batch %q or array %q", batchID, name), nil)
	}
	runID := uuid.NewString()
	ctx = services.WithArray(services.WithRunID(services.WithBatchID(ctx, batchID), runID), name)
	batchRoot := filepath.Join(batchDir, batchID)
	arrayDir := filepath.Join(batchRoot, name)

	start := time.Now()
	out, err := p.decode(ctx, arrayDir, name)
	p.recordDecode(ctx, batchRoot, catalog.Entry{
		RunID:     runID,
		BatchID:   batchID,
		Array:     name,
		Operation: catalog.OperationDecode,
		Status:    catalog.StatusSucceeded,
		Container: out,
		Duration:  time.Since(start),
	}, err)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (p *Pipeline) decode(ctx context.Context, arrayDir, name string) (string, error) {
	logger := logging.WithContext(ctx, p.logger)
	sidecar := manifest.SidecarPath(arrayDir, name)
	if info, err := os.Stat(arrayDir); err != nil || !info.IsDir() {
		return "", &manifest.MissingManifestError{Name: name, Location: sidecar}
	}
	lock, err := lockArray(arrayDir)
	if err != nil {
		return "", err
	}
	defer func() { _ = lock.Unlock() }()

	m, container, err := p.loadManifest(ctx, arrayDir, name)
	if err != nil {
		return "", err
	}
	if err := m.VerifyChecksum(container); err != nil {
		return "", err
	}

	shape, err := m.TensorShape()
	if err != nil {
		return "", err
	}
	state, err := m.State()
	if err != nil {
		return "", err
	}
	kind, err := m.Kind()
	if err != nil {
		return "", err
	}

	frames, record, err := p.negotiator.Decode(ctx, container, shape, m.BitDepth)
	if err != nil {
		return "", err
	}
	if record.Actual != m.ActualPixelFormat {
		logger.Info("container pixel format differs from manifest",
			logging.String("manifest", m.ActualPixelFormat),
			logging.String("probed", record.Actual),
		)
	}
	pixels, err := packing.Crop(frames, m.EncodedChannels)
	if err != nil {
		return "", err
	}

	valueKind := kind
	if m.HasReduction() {
		valueKind = tensor.Float
	}
	dense, err := quantize.Invert(pixels, state, valueKind)
	if err != nil {
		return "", err
	}
	if m.HasReduction() {
		model, err := reduction.Restore(*m.ReductionParams)
		if err != nil {
			return "", err
		}
		dense, err = model.InverseTransform(dense)
		if err != nil {
			return "", err
		}
	}

	rows := shape.Frames()
	data := fitColumns(dense.Data, rows, len(dense.Data)/rows, len(m.Columns))
	if got := len(dense.Data) / rows; got != len(m.Columns) {
		mismatch := &ColumnCountMismatchError{Name: name, Got: got, Want: len(m.Columns)}
		logging.WarnWithContext(logger, "reconstructed column count differs from manifest", "column_count_mismatch",
			logging.Int("reconstructed_columns", got),
			logging.Int("manifest_columns", len(m.Columns)),
			logging.String(logging.FieldErrorKind, services.Classify(mismatch)),
			logging.String(logging.FieldErrorHint, mismatch.Error()),
			logging.String(logging.FieldImpact, "reconstructed table shape was adjusted"),
		)
	}

	tbl, err := table.FromRows(m.Columns, data, kind)
	if err != nil {
		return "", err
	}
	out := filepath.Join(arrayDir, ReconstructedFileName(name))
	if err := p.store.Write(ctx, tbl, out); err != nil {
		return "", fmt.Errorf("write reconstructed table: %w", err)
	}
	logger.Info("array decoded",
		logging.String(logging.FieldEventType, "array_decoded"),
		logging.String("output", out),
		logging.String("pixel_format", record.Actual),
		logging.Int("rows", tbl.Rows()),
		logging.Int("columns", len(m.Columns)),
	)
	return out, nil
}

// loadManifest reads the manifest in the configured representation and
// resolves the container it describes.
func (p *Pipeline) loadManifest(ctx context.Context, arrayDir, name string) (*manifest.Manifest, string, error) {
	if p.cfg.Pipeline.ManifestMode == config.ManifestTag {
		container, ok := findContainer(arrayDir, name)
		if !ok {
			return nil, "", &manifest.MissingManifestError{Name: name, Location: filepath.Join(arrayDir, name+".*")}
		}
		probe, err := p.engine.Probe(ctx, container)
		if err != nil {
			return nil, "", err
		}
		m, err := manifest.DecodeTag(probe.Tags, name, container)
		if err != nil {
			return nil, "", err
		}
		return m, container, nil
	}
	m, err := manifest.Load(manifest.SidecarPath(arrayDir, name))
	if err != nil {
		return nil, "", err
	}
	container := filepath.Join(arrayDir, filepath.Base(m.Container))
	if _, err := os.Stat(container); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", services.Wrap(services.ErrNotFound, "decode", "container", container, err)
		}
		return nil, "", err
	}
	return m, container, nil
}

func findContainer(dir, name string) (string, bool) {
	for _, ext := range []string{".mkv", ".mp4"} {
		path := filepath.Join(dir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// fitColumns reshapes row-major data of width got into width want, padding
// each row with zeros or truncating it.
func fitColumns(data []float64, rows, got, want int) []float64 {
	if got == want {
		return data
	}
	out := make([]float64, rows*want)
	keep := min(got, want)
	for r := 0; r < rows; r++ {
		copy(out[r*want:r*want+keep], data[r*got:r*got+keep])
	}
	return out
}

func (p *Pipeline) recordDecode(ctx context.Context, batchRoot string, entry catalog.Entry, decodeErr error) {
	if info, err := os.Stat(batchRoot); err != nil || !info.IsDir() {
		return
	}
	if decodeErr != nil {
		entry.Status = catalog.StatusFailed
		entry.ErrorLabel = services.Classify(decodeErr)
		entry.Message = decodeErr.Error()
	}
	cat, err := catalog.Open(batchRoot)
	if err != nil {
		p.logger.Debug("catalog unavailable for decode record", logging.Error(err))
		return
	}
	defer cat.Close()
	if _, err := cat.Record(ctx, entry); err != nil {
		p.logger.Debug("failed to record decode", logging.Error(err))
	}
}
