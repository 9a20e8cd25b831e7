package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Engine contains settings for the external ffmpeg codec engine.
type Engine struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	LogLevel      string `toml:"loglevel"`
	FrameRate     int    `toml:"frame_rate"`
}

// Codec contains the defaults applied to jobs that omit codec options.
type Codec struct {
	// VideoCodec selects the raw-frame layout and the lossless guarantee.
	// "ffv1" is the certified lossless codec (planar gbrp); every other codec
	// is fed packed rgb frames and is only shape-preserving.
	VideoCodec string `toml:"video_codec"`
	// Params are extra ffmpeg output options (e.g. preset, crf) merged under
	// each job's own codec options.
	Params map[string]any `toml:"params"`
	// BitDepth is the default pixel sample width, 8 or 16.
	BitDepth int `toml:"bit_depth"`
}

// Pipeline contains orchestration policy.
type Pipeline struct {
	// OnError is "raise" (abort the batch on the first failed job) or "skip"
	// (record the failure and continue).
	OnError string `toml:"on_error"`
	// NaNFill is the default NaN policy: empty (leave NaN), a number, or one of
	// "mean", "min", "max" computed per column over non-NaN samples.
	NaNFill string `toml:"nan_fill"`
	// ManifestMode is "sidecar" (JSON next to the container) or "tag" (a single
	// string tag embedded in the container metadata).
	ManifestMode string `toml:"manifest_mode"`
	// VerifyChecksum records an xxhash64 of each container in sidecar
	// manifests and rejects containers that no longer match on decode.
	VerifyChecksum bool `toml:"verify_checksum"`
	// SaveDataset copies the source table into the batch directory.
	SaveDataset bool `toml:"save_dataset"`
	// CompressReductionParams zstd-compresses reduction parameter blobs.
	CompressReductionParams bool `toml:"compress_reduction_params"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for videotable.
//
// Configuration sections by subsystem:
//   - Paths: batch output root and log directory
//   - Engine: ffmpeg/ffprobe binaries and raw input settings
//   - Codec: default codec selector, options, and bit depth for jobs
//   - Pipeline: failure policy, NaN policy, manifest representation
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Engine   Engine   `toml:"engine"`
	Codec    Codec    `toml:"codec"`
	Pipeline Pipeline `toml:"pipeline"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/videotable/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("videotable.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used as the codec engine.
func (c *Config) FFmpegBinary() string {
	if c == nil || strings.TrimSpace(c.Engine.FFmpegBinary) == "" {
		return defaultFFmpegBinary
	}
	return c.Engine.FFmpegBinary
}

// FFprobeBinary returns the ffprobe executable used for container inspection.
func (c *Config) FFprobeBinary() string {
	if c == nil || strings.TrimSpace(c.Engine.FFprobeBinary) == "" {
		return defaultFFprobeBinary
	}
	return c.Engine.FFprobeBinary
}

// CodecParams returns the default codec options as ffmpeg option strings,
// with the video codec selector always present under "c:v".
func (c *Config) CodecParams() map[string]string {
	params := make(map[string]string, len(c.Codec.Params)+1)
	keys := make([]string, 0, len(c.Codec.Params))
	for key := range c.Codec.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		name := strings.TrimSpace(key)
		if name == "" {
			continue
		}
		params[name] = FormatParam(c.Codec.Params[key])
	}
	if _, ok := params["c:v"]; !ok {
		params["c:v"] = c.Codec.VideoCodec
	}
	return params
}

// FormatParam renders a decoded TOML value as an ffmpeg option string.
func FormatParam(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
