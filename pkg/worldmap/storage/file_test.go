package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func setupFileBackend(t *testing.T) *FileBackend {
	t.Helper()
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "maps"))
	if err != nil {
		t.Fatalf("Failed to create file backend: %v", err)
	}
	return backend
}

func TestNewFileBackendPrivateDir(t *testing.T) {
	backend := setupFileBackend(t)

	info, err := os.Stat(backend.Dir())
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Errorf("Expected dir mode 0700, got %o", perm)
	}
}

func TestFileSaveAndLoad(t *testing.T) {
	backend := setupFileBackend(t)
	ctx := context.Background()

	if err := backend.Save(ctx, "worldMap", []byte("bytesA")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := backend.Load(ctx, "worldMap")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != "bytesA" {
		t.Errorf("Expected 'bytesA', got %q", got)
	}
}

func TestFileSaveIdempotent(t *testing.T) {
	backend := setupFileBackend(t)
	ctx := context.Background()
	data := []byte("same content")

	backend.Save(ctx, "imageMap", data)
	first, _ := os.ReadFile(filepath.Join(backend.Dir(), "imageMap"))
	backend.Save(ctx, "imageMap", data)
	second, _ := os.ReadFile(filepath.Join(backend.Dir(), "imageMap"))

	if string(first) != string(second) || string(second) != string(data) {
		t.Errorf("Saving twice changed content: %q vs %q", first, second)
	}
}

func TestFileLoadNotFound(t *testing.T) {
	backend := setupFileBackend(t)

	_, err := backend.Load(context.Background(), "imageMap")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFileSaveFailureMidWriteKeepsPrevious(t *testing.T) {
	backend := setupFileBackend(t)
	ctx := context.Background()

	if err := backend.Save(ctx, "worldMap", []byte("previous complete content")); err != nil {
		t.Fatalf("seed Save failed: %v", err)
	}

	errInterrupted := errors.New("interrupted")
	backend.writeBody = func(w io.Writer, data []byte) error {
		w.Write(data[:len(data)/2])
		return errInterrupted
	}

	if err := backend.Save(ctx, "worldMap", []byte("new content that never lands")); !errors.Is(err, errInterrupted) {
		t.Fatalf("Expected interrupted error, got %v", err)
	}

	got, err := backend.Load(ctx, "worldMap")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != "previous complete content" {
		t.Errorf("Expected previous content, got %q", got)
	}
}

func TestFileSaveFailureOnFreshLocation(t *testing.T) {
	backend := setupFileBackend(t)
	ctx := context.Background()

	backend.writeBody = func(w io.Writer, data []byte) error {
		w.Write(data[:1])
		return errors.New("disk full")
	}
	if err := backend.Save(ctx, "imageMap", []byte("abc")); err == nil {
		t.Fatal("Expected save error")
	}

	if _, err := backend.Load(ctx, "imageMap"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after failed first save, got %v", err)
	}

	entries, _ := os.ReadDir(backend.Dir())
	if len(entries) != 0 {
		t.Errorf("Expected no leftover files, found %d", len(entries))
	}
}

func TestFileRemove(t *testing.T) {
	backend := setupFileBackend(t)
	ctx := context.Background()

	backend.Save(ctx, "worldMap", []byte("x"))
	if err := backend.Remove(ctx, "worldMap"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := backend.Remove(ctx, "worldMap"); err != nil {
		t.Errorf("Second remove should not fail: %v", err)
	}
}

func TestFileRejectsPathLocations(t *testing.T) {
	backend := setupFileBackend(t)

	if err := backend.Save(context.Background(), "../outside", []byte("x")); err == nil {
		t.Error("Expected error for path traversal location")
	}
}

func TestFileCanceledContext(t *testing.T) {
	backend := setupFileBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := backend.Save(ctx, "worldMap", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
