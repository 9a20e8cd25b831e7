package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"videotable/internal/services"
)

const lockFileName = ".videotable.lock"

// lockArray takes the advisory lock guarding an array directory.
func lockArray(dir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire array lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrTransient, "lock", filepath.Base(dir), "array is in use by another videotable process", nil)
	}
	return lock, nil
}
