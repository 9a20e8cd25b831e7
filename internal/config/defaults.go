package config

const (
	defaultOutputDir       = "~/.local/share/videotable/batches"
	defaultLogDir          = "~/.local/share/videotable/logs"
	defaultFFmpegBinary    = "ffmpeg"
	defaultFFprobeBinary   = "ffprobe"
	defaultEngineLogLevel  = "error"
	defaultFrameRate       = 30
	defaultVideoCodec      = "libx264"
	defaultBitDepth        = 8
	defaultOnError         = OnErrorRaise
	defaultManifestMode    = ManifestSidecar
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultVerifyChecksum  = true
	defaultCompressDRParam = true
)

// Failure policies for batch encoding.
const (
	OnErrorRaise = "raise"
	OnErrorSkip  = "skip"
)

// Manifest representations.
const (
	ManifestSidecar = "sidecar"
	ManifestTag     = "tag"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Engine: Engine{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			LogLevel:      defaultEngineLogLevel,
			FrameRate:     defaultFrameRate,
		},
		Codec: Codec{
			VideoCodec: defaultVideoCodec,
			BitDepth:   defaultBitDepth,
		},
		Pipeline: Pipeline{
			OnError:                 defaultOnError,
			ManifestMode:            defaultManifestMode,
			VerifyChecksum:          defaultVerifyChecksum,
			CompressReductionParams: defaultCompressDRParam,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
