package manifest

import (
	"fmt"

	"videotable/internal/services"
)

// MissingManifestError reports that no manifest could be found for a
// container. Location is the sidecar path or container path searched.
type MissingManifestError struct {
	Name     string
	Location string
}

func (e *MissingManifestError) Error() string {
	return fmt.Sprintf("no manifest for %q at %s", e.Name, e.Location)
}

func (e *MissingManifestError) Unwrap() error { return services.ErrMissingManifest }
