package store

import (
	"path/filepath"
	"testing"
)

// MustTempStore returns a store backed by a file in a temporary directory. The
// store is closed when the test finishes.
func MustTempStore(t *testing.T) DBStore {
	t.Helper()
	st, err := NewStore(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}
