package worldmap

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/ARWorldMap/pkg/worldmap/storage"
)

type BackendKind string

const (
	BackendFile   BackendKind = "file"
	BackendSQLite BackendKind = "sqlite"
)

// ParseBackendKind accepts "file" or "sqlite" in any case.
func ParseBackendKind(s string) (BackendKind, error) {
	switch k := BackendKind(strings.ToLower(strings.TrimSpace(s))); k {
	case BackendFile, BackendSQLite:
		return k, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want file or sqlite)", s)
	}
}

// OpenBackend opens a backend of the given kind rooted at dataDir.
func OpenBackend(kind BackendKind, dataDir string) (Backend, error) {
	switch kind {
	case BackendFile, "":
		b, err := storage.NewFileBackend(dataDir)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendSQLite:
		b, err := storage.NewSQLiteBackend(filepath.Join(dataDir, storage.DefaultDBFile))
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
}
