package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills path with size bytes cycling through 0..250 so truncation or
// reordering changes the checksum. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	writeBytes(t, path, data)
}

// WriteRules writes a rules document to dir/rules.toml and returns its path.
func WriteRules(t testing.TB, dir, doc string) string {
	t.Helper()

	path := filepath.Join(dir, "rules.toml")
	writeBytes(t, path, []byte(doc))
	return path
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
