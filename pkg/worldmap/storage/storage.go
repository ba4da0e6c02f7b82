// Package storage holds the byte-blob backends used to persist the world map
// and the image map. Every backend replaces a location atomically.
package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Load when nothing was ever saved at a location.
var ErrNotFound = errors.New("location not found")

const errBackendNil = "backend is nil"

// validLocation rejects names that could escape the storage area.
func validLocation(location string) error {
	if location == "" {
		return errors.New("empty location")
	}
	if strings.ContainsAny(location, `/\`) || location == "." || location == ".." || strings.HasPrefix(location, ".") {
		return fmt.Errorf("invalid location %q", location)
	}
	return nil
}
