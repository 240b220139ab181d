package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSourceTracksDataFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.sqlite3")
	if err := os.WriteFile(path, []byte("version one"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	source := FileSource(path)
	guard := NewGuard([]byte("secret"), source)

	tok, _, err := guard.Issue(alice)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, ok := guard.Restore(tok); !ok {
		t.Fatal("fresh token rejected")
	}

	// Replacing the file with different content changes the fingerprint.
	if err := os.WriteFile(path, []byte("a different dataset"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	// Force a distinct mtime even on coarse-grained filesystems.
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, ok := guard.Restore(tok); ok {
		t.Fatal("token survived a data file replacement")
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	source := FileSource(filepath.Join(t.TempDir(), "absent"))
	if fp := source.Current(); fp != (Fingerprint{}) {
		t.Fatalf("expected zero fingerprint for missing file, got %+v", fp)
	}
}

func TestBootSourceStable(t *testing.T) {
	source := NewBootSource()
	if source.Current() != source.Current() {
		t.Fatal("boot fingerprint changed between calls")
	}
}

func TestBootSourcesAreDistinct(t *testing.T) {
	a, b := NewBootSource(), NewBootSource()
	if a.Size == b.Size {
		t.Fatalf("two boot fingerprints share the random component: %d", a.Size)
	}
	if a.Size < 0 || b.Size < 0 {
		t.Fatalf("negative fingerprint size: %d %d", a.Size, b.Size)
	}
}
