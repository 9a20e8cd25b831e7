package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateCodec(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngine() error {
	if strings.TrimSpace(c.Engine.FFmpegBinary) == "" {
		return errors.New("engine.ffmpeg_binary must be set")
	}
	if strings.TrimSpace(c.Engine.FFprobeBinary) == "" {
		return errors.New("engine.ffprobe_binary must be set")
	}
	if c.Engine.FrameRate <= 0 {
		return errors.New("engine.frame_rate must be positive")
	}
	return nil
}

func (c *Config) validateCodec() error {
	if strings.TrimSpace(c.Codec.VideoCodec) == "" {
		return errors.New("codec.video_codec must be set")
	}
	if c.Codec.BitDepth != 8 && c.Codec.BitDepth != 16 {
		return fmt.Errorf("codec.bit_depth must be 8 or 16, got %d", c.Codec.BitDepth)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	switch c.Pipeline.OnError {
	case OnErrorRaise, OnErrorSkip:
	default:
		return fmt.Errorf("pipeline.on_error must be %q or %q, got %q", OnErrorRaise, OnErrorSkip, c.Pipeline.OnError)
	}
	switch c.Pipeline.ManifestMode {
	case ManifestSidecar, ManifestTag:
	default:
		return fmt.Errorf("pipeline.manifest_mode must be %q or %q, got %q", ManifestSidecar, ManifestTag, c.Pipeline.ManifestMode)
	}
	if err := ValidateNaNFill(c.Pipeline.NaNFill); err != nil {
		return fmt.Errorf("pipeline.nan_fill: %w", err)
	}
	return nil
}

// ValidateNaNFill checks a NaN policy string: empty, a number, or mean/min/max.
func ValidateNaNFill(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "mean", "min", "max":
		return nil
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
		return fmt.Errorf("unsupported value %q (want a number, mean, min, or max)", value)
	}
	return nil
}
