package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"videotable/internal/catalog"
	"videotable/internal/config"
	"videotable/internal/fileutil"
	"videotable/internal/logging"
	"videotable/internal/manifest"
	"videotable/internal/packing"
	"videotable/internal/pixfmt"
	"videotable/internal/quantize"
	"videotable/internal/reduction"
	"videotable/internal/services"
	"videotable/internal/table"
	"videotable/internal/tensor"
)

// DatasetFileName is the copy of the source table kept when save_dataset is on.
const DatasetFileName = "dataset.db"

// Pipeline encodes and decodes named arrays.
type Pipeline struct {
	cfg        *config.Config
	engine     pixfmt.Engine
	negotiator *pixfmt.Negotiator
	store      table.Store
	logger     *slog.Logger
}

// New wires a pipeline around a codec engine and table store.
func New(cfg *config.Config, engine pixfmt.Engine, store table.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if store == nil {
		store = table.NewSQLiteStore()
	}
	return &Pipeline{
		cfg:        cfg,
		engine:     engine,
		negotiator: pixfmt.NewNegotiator(engine, logger),
		store:      store,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// BatchDir returns <output_dir>/<batchID>.
func (p *Pipeline) BatchDir(batchID string) string {
	return filepath.Join(p.cfg.Paths.OutputDir, batchID)
}

// EncodeBatch converts every job against the table at tablePath. With
// on_error=raise the first failure stops the batch and is returned together
// with the stats gathered so far; with skip, failures are recorded and the
// batch continues.
func (p *Pipeline) EncodeBatch(ctx context.Context, tablePath, batchID string, jobs []Job) ([]Stats, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" || batchID != filepath.Base(batchID) {
		return nil, services.Wrap(services.ErrValidation, "encode", "batch", fmt.Sprintf("invalid batch id %q", batchID), nil)
	}
	if len(jobs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "encode", "batch", "no jobs to run", nil)
	}
	runID := uuid.NewString()
	ctx = services.WithRunID(services.WithBatchID(ctx, batchID), runID)
	logger := logging.WithContext(ctx, p.logger)

	tbl, err := p.store.Read(ctx, tablePath)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	batchDir := p.BatchDir(batchID)
	if err := os.MkdirAll(batchDir, 0o755); err != nil {
		return nil, fmt.Errorf("create batch dir: %w", err)
	}
	cat, err := catalog.Open(batchDir)
	if err != nil {
		return nil, err
	}
	defer cat.Close()

	logger.Info("batch encode started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String("table", tablePath),
		logging.Int("jobs", len(jobs)),
		logging.Int("rows", tbl.Rows()),
	)

	results := make([]Stats, 0, len(jobs))
	for _, job := range jobs {
		jobCtx := services.WithArray(ctx, job.Name)
		stats, jobErr := p.encodeJob(jobCtx, tbl, batchDir, job.withDefaults(p.cfg))
		if jobErr != nil {
			stats.Name = job.Name
			stats.Status = catalog.StatusFailed
			stats.ErrorLabel = services.Classify(jobErr)
			stats.Error = jobErr.Error()
			if p.cfg.Pipeline.OnError == config.OnErrorSkip {
				stats.Status = catalog.StatusSkipped
			}
		}
		if _, recErr := cat.Record(jobCtx, stats.entry(runID, batchID)); recErr != nil {
			logging.WarnWithContext(logging.WithContext(jobCtx, p.logger), "failed to record job in catalog", "catalog_write_failed",
				logging.Error(recErr),
				logging.String(logging.FieldImpact, "status output will miss this job"),
			)
		}
		results = append(results, stats)
		if jobErr == nil {
			continue
		}
		if p.cfg.Pipeline.OnError != config.OnErrorSkip {
			logging.ErrorWithContext(logging.WithContext(jobCtx, p.logger), "job failed; aborting batch", "job_failed",
				logging.Error(jobErr),
				logging.ErrorKind(jobErr),
			)
			return results, fmt.Errorf("array %q: %w", job.Name, jobErr)
		}
		logging.WarnWithContext(logging.WithContext(jobCtx, p.logger), "job failed; skipping", "job_skipped",
			logging.Error(jobErr),
			logging.ErrorKind(jobErr),
			logging.String(logging.FieldErrorHint, "inspect the array rules and rerun the batch"),
			logging.String(logging.FieldImpact, "array has no container in this batch"),
		)
	}

	if p.cfg.Pipeline.SaveDataset {
		dst := filepath.Join(batchDir, DatasetFileName)
		if err := fileutil.CopyFileVerified(tablePath, dst); err != nil {
			return results, fmt.Errorf("save dataset: %w", err)
		}
		logger.Debug("saved source dataset", logging.String("path", dst))
	}

	logger.Info("batch encode finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("jobs", len(results)),
	)
	return results, nil
}

func (p *Pipeline) encodeJob(ctx context.Context, tbl *table.Table, batchDir string, job Job) (Stats, error) {
	stats := Stats{Name: job.Name}
	logger := logging.WithContext(ctx, p.logger)
	if err := job.Validate(); err != nil {
		return stats, err
	}
	codec := job.codec()
	if codec == "" {
		return stats, services.Wrap(services.ErrConfiguration, "encode", job.Name, "codec params must include c:v", nil)
	}

	arrayDir := filepath.Join(batchDir, job.Name)
	if err := os.MkdirAll(arrayDir, 0o755); err != nil {
		return stats, fmt.Errorf("create array dir: %w", err)
	}
	lock, err := lockArray(arrayDir)
	if err != nil {
		return stats, err
	}
	defer func() { _ = lock.Unlock() }()

	data, kind, err := tbl.Select(job.Columns)
	if err != nil {
		return stats, err
	}
	dense, err := tensor.Reshape(data, job.Shape, kind)
	if err != nil {
		return stats, services.Wrap(services.ErrValidation, "encode", "reshape", fmt.Sprintf("%d rows × %d columns", tbl.Rows(), len(job.Columns)), err)
	}
	if filled, err := FillNaN(dense, job.NaNFill); err != nil {
		return stats, services.Wrap(services.ErrValidation, "encode", "nan fill", "", err)
	} else if filled > 0 {
		logger.Debug("filled NaN samples", logging.Int("count", filled), logging.String("policy", job.NaNFill))
	}

	var reductionParams *string
	if job.Components > 0 {
		model := reduction.NewPCA(job.Components)
		reduced, err := model.FitTransform(dense)
		if err != nil {
			return stats, services.Wrap(services.ErrValidation, "encode", "reduce", "", err)
		}
		blob, err := reduction.Serialize(model, p.cfg.Pipeline.CompressReductionParams)
		if err != nil {
			return stats, fmt.Errorf("serialize reduction: %w", err)
		}
		reductionParams = &blob
		dense = reduced
		logger.Debug("reduced channels",
			logging.Int("from", job.Shape.Channels()),
			logging.Int("to", job.Components),
		)
	}

	state, err := quantize.Decide(dense, job.ValueRange, job.BitDepth)
	if err != nil {
		return stats, err
	}
	pixels, err := quantize.Apply(dense, state)
	if err != nil {
		return stats, err
	}
	encodedChannels := pixels.Shape.Channels()
	frames, err := packing.Pad(pixels)
	if err != nil {
		return stats, services.Wrap(services.ErrValidation, "encode", "pack", "", err)
	}

	containerName := job.Name + containerExt(codec)
	container := filepath.Join(arrayDir, containerName)
	sidecar := manifest.SidecarPath(arrayDir, job.Name)
	if err := os.Remove(sidecar); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return stats, fmt.Errorf("remove stale manifest: %w", err)
	}

	start := time.Now()
	record, err := p.negotiator.Encode(ctx, frames, job.CodecParams, container)
	if err != nil {
		return stats, err
	}
	stats.WriteDuration = time.Since(start)

	m := &manifest.Manifest{
		Version:              manifest.Version,
		Name:                 job.Name,
		Shape:                job.Shape.Slice(),
		EncodedChannels:      encodedChannels,
		ValueRange:           state.Range.Slice(),
		Columns:              append([]string(nil), job.Columns...),
		SourceKind:           kind.String(),
		BitDepth:             state.BitDepth,
		IsQuantized:          state.Quantized,
		ReductionParams:      reductionParams,
		CodecID:              codec,
		CodecParams:          job.CodecParams,
		RequestedPixelFormat: record.Requested,
		ActualPixelFormat:    record.Actual,
		Container:            containerName,
	}
	location, err := p.writeManifest(ctx, m, container, sidecar)
	if err != nil {
		return stats, err
	}

	stats.Status = catalog.StatusSucceeded
	stats.Container = container
	stats.Manifest = location
	stats.measure(frames, container)

	logger.Info("array encoded",
		logging.String(logging.FieldEventType, "array_encoded"),
		logging.String("container", container),
		logging.String("shape", job.Shape.String()),
		logging.String("codec", codec),
		logging.String("pixel_format", record.Actual),
		logging.Bool("quantized", state.Quantized),
		logging.Bool("reduced", reductionParams != nil),
		logging.Float64("compression_ratio", stats.CompressionRatio),
		logging.Duration("write_time", stats.WriteDuration),
	)
	return stats, nil
}

// writeManifest persists m per the configured mode and returns where it went.
func (p *Pipeline) writeManifest(ctx context.Context, m *manifest.Manifest, container, sidecar string) (string, error) {
	if p.cfg.Pipeline.ManifestMode == config.ManifestTag {
		value, err := manifest.EncodeTag(m)
		if err != nil {
			return "", err
		}
		if err := p.engine.Retag(ctx, container, map[string]string{manifest.TagKey: value}); err != nil {
			return "", fmt.Errorf("embed manifest: %w", err)
		}
		return container, nil
	}
	if p.cfg.Pipeline.VerifyChecksum {
		sum, err := manifest.Checksum(container)
		if err != nil {
			return "", fmt.Errorf("checksum container: %w", err)
		}
		m.ContainerChecksum = sum
	}
	if err := manifest.Save(m, sidecar); err != nil {
		return "", err
	}
	return sidecar, nil
}
