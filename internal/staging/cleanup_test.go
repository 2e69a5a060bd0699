package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recorder2rc/internal/logging"
)

func mkdirAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	if age > 0 {
		stamp := time.Now().Add(-age)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("set time: %v", err)
		}
	}
}

func TestNewRunDir(t *testing.T) {
	work := t.TempDir()
	dir, err := NewRunDir(work, "abc")
	if err != nil {
		t.Fatalf("NewRunDir: %v", err)
	}
	if dir != filepath.Join(work, "run-abc") {
		t.Fatalf("dir = %q", dir)
	}
	if _, err := NewRunDir(" ", "abc"); err == nil {
		t.Fatal("expected error for empty work dir")
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldRunDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	oldDir := filepath.Join(tmpDir, "run-old")
	mkdirAged(t, oldDir, 2*time.Hour)
	recentDir := filepath.Join(tmpDir, "run-recent")
	mkdirAged(t, recentDir, 0)
	foreignDir := filepath.Join(tmpDir, "keep-me")
	mkdirAged(t, foreignDir, 2*time.Hour)

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("removed = %v", result.Removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	for _, dir := range []string{recentDir, foreignDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("%s should still exist", dir)
		}
	}
}

func TestCleanStaleIgnoresFiles(t *testing.T) {
	tmpDir := t.TempDir()

	oldFile := filepath.Join(tmpDir, "run-file.txt")
	if err := os.WriteFile(oldFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Errorf("expected no removals for files, got %d", len(result.Removed))
	}
	if _, err := os.Stat(oldFile); err != nil {
		t.Error("file should not have been removed")
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

func TestListDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	dir1 := filepath.Join(tmpDir, "run-1")
	mkdirAged(t, dir1, 0)
	mkdirAged(t, filepath.Join(tmpDir, "run-2"), 0)
	mkdirAged(t, filepath.Join(tmpDir, "other"), 0)
	if err := os.WriteFile(filepath.Join(tmpDir, "not-a-dir.txt"), []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir1, "data.bin"), []byte("12345"), 0o644); err != nil {
		t.Fatalf("create inner file: %v", err)
	}

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("expected 2 directories, got %d", len(dirs))
	}

	var found bool
	for _, d := range dirs {
		if d.Name == "run-1" {
			found = true
			if d.Size != 5 {
				t.Errorf("run-1 size = %d, want 5", d.Size)
			}
			if d.RunID != "1" {
				t.Errorf("run id = %q", d.RunID)
			}
			if d.ModTime.IsZero() {
				t.Error("ModTime should not be zero")
			}
		}
	}
	if !found {
		t.Error("did not find run-1 in results")
	}
}
