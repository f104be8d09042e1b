package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with size bytes of a repeating pattern.
// A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte('a' + i%26)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Segments returns n deterministic payloads whose concatenation is what an
// ordered download of them must produce.
func Segments(n, size int) ([][]byte, []byte) {
	parts := make([][]byte, n)
	var whole []byte
	for i := range parts {
		part := make([]byte, size)
		for j := range part {
			part[j] = byte((i*31 + j) % 251)
		}
		parts[i] = part
		whole = append(whole, part...)
	}
	return parts, whole
}
