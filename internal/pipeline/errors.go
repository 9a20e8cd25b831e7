package pipeline

import (
	"fmt"

	"videotable/internal/services"
)

// ColumnCountMismatchError describes a reconstructed width that differs from
// the manifest's column list. Decode pads or truncates and logs it as a
// warning; it is never returned as a failure.
type ColumnCountMismatchError struct {
	Name string
	Got  int
	Want int
}

func (e *ColumnCountMismatchError) Error() string {
	action := "padded with zeros"
	if e.Got > e.Want {
		action = "truncated"
	}
	return fmt.Sprintf("array %q reconstructed %d columns, manifest lists %d; %s", e.Name, e.Got, e.Want, action)
}

func (e *ColumnCountMismatchError) Unwrap() error { return services.ErrColumnCountMismatch }
