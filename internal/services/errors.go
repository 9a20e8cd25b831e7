package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Conversion taxonomy. Typed errors in the owning packages unwrap to these so
// callers can classify failures with errors.Is.
var (
	ErrInvalidRange           = errors.New("invalid value range")
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")
	ErrBufferSizeMismatch     = errors.New("buffer size mismatch")
	ErrMissingManifest        = errors.New("missing manifest")
	ErrColumnCountMismatch    = errors.New("column count mismatch")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the short label persisted in the batch catalog.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, ErrUnsupportedPixelFormat):
		return "unsupported_pixel_format"
	case errors.Is(err, ErrBufferSizeMismatch):
		return "buffer_size_mismatch"
	case errors.Is(err, ErrMissingManifest):
		return "missing_manifest"
	case errors.Is(err, ErrColumnCountMismatch):
		return "column_count_mismatch"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "failed"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
