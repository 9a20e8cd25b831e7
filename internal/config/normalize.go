package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngine()
	c.normalizeCodec()
	c.normalizePipeline()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngine() {
	c.Engine.FFmpegBinary = strings.TrimSpace(c.Engine.FFmpegBinary)
	if value, ok := os.LookupEnv("VIDEOTABLE_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.Engine.FFmpegBinary = strings.TrimSpace(value)
	}
	if c.Engine.FFmpegBinary == "" {
		c.Engine.FFmpegBinary = defaultFFmpegBinary
	}
	c.Engine.FFprobeBinary = strings.TrimSpace(c.Engine.FFprobeBinary)
	if value, ok := os.LookupEnv("VIDEOTABLE_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.Engine.FFprobeBinary = strings.TrimSpace(value)
	}
	if c.Engine.FFprobeBinary == "" {
		c.Engine.FFprobeBinary = defaultFFprobeBinary
	}
	c.Engine.LogLevel = strings.ToLower(strings.TrimSpace(c.Engine.LogLevel))
	if c.Engine.LogLevel == "" {
		c.Engine.LogLevel = defaultEngineLogLevel
	}
	if c.Engine.FrameRate <= 0 {
		c.Engine.FrameRate = defaultFrameRate
	}
}

func (c *Config) normalizeCodec() {
	c.Codec.VideoCodec = strings.ToLower(strings.TrimSpace(c.Codec.VideoCodec))
	if c.Codec.VideoCodec == "" {
		c.Codec.VideoCodec = defaultVideoCodec
	}
	if c.Codec.BitDepth == 0 {
		c.Codec.BitDepth = defaultBitDepth
	}
}

func (c *Config) normalizePipeline() {
	c.Pipeline.OnError = strings.ToLower(strings.TrimSpace(c.Pipeline.OnError))
	if c.Pipeline.OnError == "" {
		c.Pipeline.OnError = defaultOnError
	}
	c.Pipeline.NaNFill = strings.ToLower(strings.TrimSpace(c.Pipeline.NaNFill))
	c.Pipeline.ManifestMode = strings.ToLower(strings.TrimSpace(c.Pipeline.ManifestMode))
	if c.Pipeline.ManifestMode == "" {
		c.Pipeline.ManifestMode = defaultManifestMode
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
