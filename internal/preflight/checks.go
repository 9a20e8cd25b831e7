package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"videotable/internal/config"
	"videotable/internal/deps"
	"videotable/internal/pixfmt"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the codec engine binaries named in cfg.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.EngineBinaries(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}

// CheckEngine reports the ffmpeg version and whether the certified lossless
// encoder is compiled in.
func CheckEngine(ctx context.Context, cfg *config.Config) Result {
	const name = "Lossless encoder"

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	version, err := deps.Version(checkCtx, cfg.FFmpegBinary())
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	ok, err := deps.HasEncoder(checkCtx, cfg.FFmpegBinary(), pixfmt.CertifiedCodec)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if !ok {
		return Result{Name: name, Detail: fmt.Sprintf("%s missing from %s; only shape-preserving codecs available", pixfmt.CertifiedCodec, version)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", pixfmt.CertifiedCodec, version)}
}
