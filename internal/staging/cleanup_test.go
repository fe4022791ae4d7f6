package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"audiomason/internal/logging"
	"audiomason/internal/manifest"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, false, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	oldDir := filepath.Join(tmpDir, "Old_Book")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatalf("create old dir: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	recentDir := filepath.Join(tmpDir, "New_Book")
	if err := os.Mkdir(recentDir, 0o755); err != nil {
		t.Fatalf("create recent dir: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, false, logging.NewNop())

	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %d", len(result.Removed))
	}
	if result.Removed[0] != oldDir {
		t.Errorf("expected %s to be removed, got %s", oldDir, result.Removed[0])
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent directory should still exist")
	}
}

func TestCleanStaleDryRunKeepsDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	oldDir := filepath.Join(tmpDir, "Old_Book")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatal(err)
	}
	oldTime := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatal(err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, true, logging.NewNop())
	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 reported, got %d", len(result.Removed))
	}
	if _, err := os.Stat(oldDir); err != nil {
		t.Fatal("dry run removed directory")
	}
}

func TestCleanStaleIgnoresFiles(t *testing.T) {
	tmpDir := t.TempDir()

	lockFile := filepath.Join(tmpDir, ".audiomason.lock")
	if err := os.WriteFile(lockFile, nil, 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(lockFile, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, false, logging.NewNop())

	if len(result.Removed) != 0 {
		t.Errorf("expected no removals for files, got %d", len(result.Removed))
	}
	if _, err := os.Stat(lockFile); err != nil {
		t.Error("file should not have been removed")
	}
}

func TestCleanOrphanedRemovesRunsWithoutSource(t *testing.T) {
	tmpDir := t.TempDir()

	knownDir := filepath.Join(tmpDir, "Still_Here")
	if err := os.Mkdir(knownDir, 0o755); err != nil {
		t.Fatal(err)
	}
	goneDir := filepath.Join(tmpDir, "Gone")
	if err := os.Mkdir(goneDir, 0o755); err != nil {
		t.Fatal(err)
	}

	active := map[string]struct{}{"still_here": {}}
	result := CleanOrphaned(context.Background(), tmpDir, active, false, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != goneDir {
		t.Fatalf("removed = %v", result.Removed)
	}
	if _, err := os.Stat(knownDir); err != nil {
		t.Error("known directory should still exist")
	}
}

func TestListDirectoriesInvalidPaths(t *testing.T) {
	for _, path := range []string{"", "/nonexistent/path/12345"} {
		dirs, err := ListDirectories(path)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", path, err)
		}
		if dirs != nil {
			t.Errorf("expected nil for path %q, got %v", path, dirs)
		}
	}
}

func TestListDirectoriesReadsManifest(t *testing.T) {
	tmpDir := t.TempDir()

	run := Open(tmpDir, "Some Book")
	if _, err := run.Manifest.Update(func(m *manifest.Manifest) {
		m.Source.Name = "Some Book"
		m.Books.Picked = []string{"A", "B"}
		m.MarkProcessed("A")
	}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "import.log.jsonl"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 {
		t.Fatalf("expected 1 directory, got %d", len(dirs))
	}
	info := dirs[0]
	if info.Name != "Some_Book" || info.Source != "Some Book" {
		t.Fatalf("info = %+v", info)
	}
	if info.Books != 2 || info.Processed != 1 {
		t.Fatalf("counts = %d/%d", info.Processed, info.Books)
	}
	if info.Size == 0 || info.ModTime.IsZero() {
		t.Fatalf("size/modtime missing: %+v", info)
	}
}
