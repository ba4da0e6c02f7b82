package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/himanishpuri/ARWorldMap/pkg/utils"
)

// FileBackend stores each location as one file in a private directory.
type FileBackend struct {
	dir string

	// writeBody streams data into the temp file; replaced in tests to
	// simulate a failure halfway through a write.
	writeBody func(w io.Writer, data []byte) error
}

// NewFileBackend creates dir (mode 0700) if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, errors.New("file backend: empty directory")
	}
	if err := utils.MakePrivateDir(dir); err != nil {
		return nil, fmt.Errorf("file backend: %w", err)
	}
	return &FileBackend{dir: dir, writeBody: writeAll}, nil
}

func writeAll(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}

// Dir returns the directory holding the blobs.
func (b *FileBackend) Dir() string { return b.dir }

func (b *FileBackend) path(location string) (string, error) {
	if err := validLocation(location); err != nil {
		return "", err
	}
	return filepath.Join(b.dir, location), nil
}

// Save atomically replaces the file for location with data.
func (b *FileBackend) Save(ctx context.Context, location string, data []byte) error {
	if b == nil {
		return errors.New(errBackendNil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := b.path(location)
	if err != nil {
		return err
	}
	err = utils.WriteFileAtomicFunc(path, 0o600, func(w io.Writer) error {
		return b.writeBody(w, data)
	})
	if err != nil {
		return fmt.Errorf("saving %s: %w", location, err)
	}
	return nil
}

// Load returns the content last saved at location, or ErrNotFound.
func (b *FileBackend) Load(ctx context.Context, location string) ([]byte, error) {
	if b == nil {
		return nil, errors.New(errBackendNil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := b.path(location)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", location, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", location, err)
	}
	return data, nil
}

// Remove deletes location. Removing a missing location is not an error.
func (b *FileBackend) Remove(ctx context.Context, location string) error {
	if b == nil {
		return errors.New(errBackendNil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := b.path(location)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", location, err)
	}
	return nil
}

// Close is a no-op; files are closed after every operation.
func (b *FileBackend) Close() error { return nil }
