package pixfmt

import (
	"fmt"

	"videotable/internal/services"
)

// UnsupportedPixelFormatError reports an engine-produced format that is
// neither the requested format nor a recognized fallback.
type UnsupportedPixelFormatError struct {
	Codec     string
	Requested string
	Actual    string
}

func (e *UnsupportedPixelFormatError) Error() string {
	if e.Requested == "" {
		return fmt.Sprintf("container pixel format %q (codec %s) cannot be read back", e.Actual, e.Codec)
	}
	return fmt.Sprintf("codec %s produced pixel format %q, requested %q; not a recognized fallback (try a different ffmpeg build or codec)", e.Codec, e.Actual, e.Requested)
}

func (e *UnsupportedPixelFormatError) Unwrap() error { return services.ErrUnsupportedPixelFormat }

// BufferSizeMismatchError reports a decoded byte count that matches none of
// the layouts considered for it.
type BufferSizeMismatchError struct {
	Format     string
	Observed   int
	Considered []int
}

func (e *BufferSizeMismatchError) Error() string {
	return fmt.Sprintf("decoded %d bytes of %s; expected one of %v", e.Observed, e.Format, e.Considered)
}

func (e *BufferSizeMismatchError) Unwrap() error { return services.ErrBufferSizeMismatch }
