package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// Helper function to create a temporary test database
func setupTestDB(t *testing.T) (*SQLiteBackend, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_blobs.sqlite3")
	backend, err := NewSQLiteBackend(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test backend: %v", err)
	}
	t.Cleanup(func() {
		backend.Close()
	})
	return backend, dbPath
}

func TestNewSQLiteBackend(t *testing.T) {
	backend, dbPath := setupTestDB(t)

	if backend.DB == nil {
		t.Fatal("Expected non-nil GORM DB handle")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
}

func TestNewSQLiteBackendCreatesDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "blobs.db")

	backend, err := NewSQLiteBackend(dbPath)
	if err != nil {
		t.Fatalf("Failed to create backend in nested dir: %v", err)
	}
	defer backend.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
}

func TestSQLiteSaveAndLoad(t *testing.T) {
	backend, _ := setupTestDB(t)
	ctx := context.Background()

	if err := backend.Save(ctx, "worldMap", []byte("map-v1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := backend.Load(ctx, "worldMap")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != "map-v1" {
		t.Errorf("Expected 'map-v1', got %q", got)
	}
}

func TestSQLiteSaveOverwrites(t *testing.T) {
	backend, _ := setupTestDB(t)
	ctx := context.Background()

	for _, v := range []string{"one", "two", "three"} {
		if err := backend.Save(ctx, "imageMap", []byte(v)); err != nil {
			t.Fatalf("Save(%s) failed: %v", v, err)
		}
	}

	got, err := backend.Load(ctx, "imageMap")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != "three" {
		t.Errorf("Expected last write 'three', got %q", got)
	}

	var count int64
	backend.DB.Model(&Blob{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected a single row after overwrites, found %d", count)
	}
}

func TestSQLiteLoadNotFound(t *testing.T) {
	backend, _ := setupTestDB(t)

	_, err := backend.Load(context.Background(), "worldMap")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteRemove(t *testing.T) {
	backend, _ := setupTestDB(t)
	ctx := context.Background()

	backend.Save(ctx, "worldMap", []byte("x"))
	if err := backend.Remove(ctx, "worldMap"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := backend.Load(ctx, "worldMap"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after remove, got %v", err)
	}
	if err := backend.Remove(ctx, "worldMap"); err != nil {
		t.Errorf("Removing a missing location should not fail: %v", err)
	}
}

func TestSQLiteLocations(t *testing.T) {
	backend, _ := setupTestDB(t)
	ctx := context.Background()

	backend.Save(ctx, "worldMap", bytes.Repeat([]byte{1}, 10))
	backend.Save(ctx, "imageMap", bytes.Repeat([]byte{2}, 3))

	locs, err := backend.Locations(ctx)
	if err != nil {
		t.Fatalf("Locations failed: %v", err)
	}
	if locs["worldMap"] != 10 || locs["imageMap"] != 3 || len(locs) != 2 {
		t.Errorf("Unexpected locations: %v", locs)
	}
}

func TestSQLiteEmptyBlob(t *testing.T) {
	backend, _ := setupTestDB(t)
	ctx := context.Background()

	if err := backend.Save(ctx, "worldMap", nil); err != nil {
		t.Fatalf("Save of empty blob failed: %v", err)
	}
	got, err := backend.Load(ctx, "worldMap")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty blob, got %d bytes", len(got))
	}
}

func TestSQLiteInvalidLocation(t *testing.T) {
	backend, _ := setupTestDB(t)
	ctx := context.Background()

	for _, loc := range []string{"", "..", "../escape", "a/b", ".hidden"} {
		if err := backend.Save(ctx, loc, []byte("x")); err == nil {
			t.Errorf("Expected error for location %q", loc)
		}
	}
}

func TestSQLiteClose(t *testing.T) {
	backend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "close_test.sqlite3"))
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}

	if err := backend.Close(); err != nil {
		t.Errorf("Failed to close backend: %v", err)
	}
	if err := backend.Save(context.Background(), "worldMap", []byte("x")); err == nil {
		t.Error("Expected error saving to a closed backend")
	}
}

// TestNilBackendMethods tests that methods handle a nil backend gracefully
func TestNilBackendMethods(t *testing.T) {
	var backend *SQLiteBackend
	ctx := context.Background()

	if err := backend.Save(ctx, "worldMap", nil); err == nil {
		t.Error("Expected error for nil backend in Save")
	}
	if _, err := backend.Load(ctx, "worldMap"); err == nil {
		t.Error("Expected error for nil backend in Load")
	}
	if err := backend.Remove(ctx, "worldMap"); err == nil {
		t.Error("Expected error for nil backend in Remove")
	}
	if err := backend.Close(); err != nil {
		t.Errorf("Close on nil backend should return nil, got: %v", err)
	}
}

func TestSQLiteConcurrentSaves(t *testing.T) {
	backend, _ := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if err := backend.Save(ctx, "imageMap", []byte(fmt.Sprintf("payload-%d", idx))); err != nil {
				t.Errorf("Concurrent save failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := backend.Load(ctx, "imageMap")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !bytes.HasPrefix(got, []byte("payload-")) {
		t.Errorf("Expected one complete payload, got %q", got)
	}
}
