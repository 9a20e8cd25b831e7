package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"videotable/internal/config"
	"videotable/internal/logging"
	"videotable/internal/media/ffprobe"
	"videotable/internal/pixfmt"
	"videotable/internal/services"
)

var commandContext = exec.CommandContext

// Option configures the engine.
type Option func(*Engine)

// WithBinaries overrides the ffmpeg and ffprobe executables.
func WithBinaries(ffmpegBinary, ffprobeBinary string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(ffmpegBinary) != "" {
			e.ffmpeg = ffmpegBinary
		}
		if strings.TrimSpace(ffprobeBinary) != "" {
			e.ffprobe = ffprobeBinary
		}
	}
}

// WithLogLevel sets ffmpeg's -loglevel.
func WithLogLevel(level string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(level) != "" {
			e.logLevel = level
		}
	}
}

// WithFrameRate sets the raw input frame rate.
func WithFrameRate(rate int) Option {
	return func(e *Engine) {
		if rate > 0 {
			e.frameRate = rate
		}
	}
}

// WithLogger attaches a logger for command tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.NewComponentLogger(logger, "ffmpeg")
	}
}

// Engine drives ffmpeg and ffprobe processes as the codec engine.
type Engine struct {
	ffmpeg    string
	ffprobe   string
	logLevel  string
	frameRate int
	logger    *slog.Logger
	inspect   func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// New constructs an engine using defaults.
func New(opts ...Option) *Engine {
	e := &Engine{
		ffmpeg:    "ffmpeg",
		ffprobe:   "ffprobe",
		logLevel:  "error",
		frameRate: 30,
		logger:    logging.NewNop(),
		inspect:   ffprobe.Inspect,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfig builds an engine from the engine section of cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Engine {
	return New(
		WithBinaries(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
		WithLogLevel(cfg.Engine.LogLevel),
		WithFrameRate(cfg.Engine.FrameRate),
		WithLogger(logger),
	)
}

// Encode pipes raw frames into ffmpeg and writes the container at req.Path.
func (e *Engine) Encode(ctx context.Context, req pixfmt.EncodeRequest) error {
	if strings.TrimSpace(req.Path) == "" {
		return errors.New("ffmpeg encode: output path required")
	}
	if err := os.MkdirAll(filepath.Dir(req.Path), 0o755); err != nil {
		return fmt.Errorf("ffmpeg encode: create output dir: %w", err)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", e.logLevel,
		"-f", "rawvideo",
		"-pix_fmt", req.PixelFormat,
		"-s", fmt.Sprintf("%dx%d", req.Width, req.Height),
		"-r", strconv.Itoa(e.frameRate),
		"-i", "pipe:0",
	}
	args = append(args, codecArgs(req.CodecParams)...)
	args = append(args, "-pix_fmt", req.PixelFormat, req.Path)

	cmd := commandContext(ctx, e.ffmpeg, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg encode: stdin pipe: %w", err)
	}
	e.logger.Debug("starting ffmpeg encode", logging.String("path", req.Path), logging.String("args", strings.Join(args, " ")))
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "encode", "start ffmpeg", e.ffmpeg, err)
	}

	_, writeErr := stdin.Write(req.Data)
	closeErr := stdin.Close()
	waitErr := cmd.Wait()
	if waitErr != nil {
		return services.Wrap(services.ErrExternalTool, "encode", "ffmpeg", strings.TrimSpace(stderr.String()), waitErr)
	}
	if writeErr != nil {
		return services.Wrap(services.ErrExternalTool, "encode", "write frames", strings.TrimSpace(stderr.String()), writeErr)
	}
	if closeErr != nil {
		return services.Wrap(services.ErrExternalTool, "encode", "close stdin", "", closeErr)
	}
	return nil
}

// Decode returns the container's frames as raw bytes in pixelFormat.
func (e *Engine) Decode(ctx context.Context, path string, pixelFormat string) ([]byte, error) {
	args := []string{
		"-hide_banner",
		"-loglevel", e.logLevel,
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", pixelFormat,
		"pipe:1",
	}
	cmd := commandContext(ctx, e.ffmpeg, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "decode", "ffmpeg", strings.TrimSpace(stderr.String()), err)
	}
	return stdout.Bytes(), nil
}

// Probe reports the first video stream's geometry, pixel format, and tags.
func (e *Engine) Probe(ctx context.Context, path string) (pixfmt.Probe, error) {
	result, err := e.inspect(ctx, e.ffprobe, path)
	if err != nil {
		return pixfmt.Probe{}, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", "", err)
	}
	stream, ok := result.VideoStream()
	if !ok {
		return pixfmt.Probe{}, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", fmt.Sprintf("no video stream in %s", path), nil)
	}
	return pixfmt.Probe{
		Codec:       stream.CodecName,
		Width:       stream.Width,
		Height:      stream.Height,
		Frames:      stream.FrameCount(),
		PixelFormat: stream.PixFmt,
		Tags:        result.Tags(),
	}, nil
}

// Retag rewrites the container with extra metadata tags, copying streams.
func (e *Engine) Retag(ctx context.Context, path string, tags map[string]string) error {
	dir, base := filepath.Split(path)
	tmp := filepath.Join(dir, ".retag-"+base)
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", e.logLevel,
		"-i", path,
		"-map", "0",
		"-c", "copy",
	}
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "-metadata", key+"="+tags[key])
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov":
		// The mp4 muxer drops custom keys unless asked to keep them.
		args = append(args, "-movflags", "use_metadata_tags")
	}
	args = append(args, tmp)

	cmd := commandContext(ctx, e.ffmpeg, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrExternalTool, "retag", "ffmpeg", strings.TrimSpace(string(output)), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("retag: replace container: %w", err)
	}
	return nil
}

// codecArgs renders codec options as "-key value" pairs with c:v first and
// the rest in key order.
func codecArgs(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for key := range params {
		if key == "c:v" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if _, ok := params["c:v"]; ok {
		keys = append([]string{"c:v"}, keys...)
	}
	args := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		name := strings.TrimPrefix(strings.TrimSpace(key), "-")
		if name == "" {
			continue
		}
		args = append(args, "-"+name)
		if value := strings.TrimSpace(params[key]); value != "" {
			args = append(args, value)
		}
	}
	return args
}

var _ pixfmt.Engine = (*Engine)(nil)
