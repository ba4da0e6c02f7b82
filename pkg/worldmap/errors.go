package worldmap

import (
	"errors"
	"fmt"
)

var (
	// ErrSnapshotUnavailable means the tracking session could not produce a
	// world snapshot (for example, not enough of the room is mapped yet).
	ErrSnapshotUnavailable = errors.New("world snapshot unavailable")

	// ErrPickCancelled is reported when the user dismisses the image picker.
	ErrPickCancelled = errors.New("image pick cancelled")

	// ErrNoHitPoint is reported when a tap did not hit any tracked surface.
	ErrNoHitPoint = errors.New("no surface at tap location")

	// ErrCoordinatorStopped is returned for events sent after Run returned.
	ErrCoordinatorStopped = errors.New("coordinator stopped")
)

// EncodingError reports a value that could not be encoded into a blob.
type EncodingError struct {
	What string // "world map", "image map", ...
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s: %v", e.What, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// DecodingError reports bytes that are not a valid blob of the expected kind.
type DecodingError struct {
	What string
	Err  error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.What, e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// IOError reports a storage failure while saving or loading a location.
type IOError struct {
	Op       string // "save" or "load"
	Location string
	Err      error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Location, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NotFoundError reports a load from a location that was never saved.
type NotFoundError struct {
	Location string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("nothing saved at %s", e.Location)
}

func (e *NotFoundError) Unwrap() error { return e.Err }
