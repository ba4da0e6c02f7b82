package worldmap

import (
	"github.com/himanishpuri/ARWorldMap/pkg/models"
)

// State is the coordination state of the session and store.
type State int

const (
	StateUnmapped State = iota
	StateMapping
	StateSaved
	StateRestoring
)

func (s State) String() string {
	switch s {
	case StateUnmapped:
		return "unmapped"
	case StateMapping:
		return "mapping"
	case StateSaved:
		return "saved"
	case StateRestoring:
		return "restoring"
	default:
		return "unknown"
	}
}

// Status is a user-visible message emitted after every event.
type Status struct {
	State   State
	Message string
	Err     error
}

// StatusFunc receives status messages. It is called from the coordinator's
// loop and must not block.
type StatusFunc func(Status)

// Event is consumed by Coordinator.Run. A non-nil Done channel receives
// exactly one result and needs a buffer of at least one.
type Event interface {
	event()
}

// TapEvent is a screen tap. Hit is the 3D point under the tap, or nil when
// the tap did not land on a tracked surface.
type TapEvent struct {
	Hit  *models.Pose
	Done chan<- error
}

// SaveEvent asks for the world map and images to be saved.
type SaveEvent struct {
	Done chan<- error
}

// LoadEvent asks for the saved world map and images to be restored.
type LoadEvent struct {
	Done chan<- error
}

// ResetEvent restarts tracking from scratch.
type ResetEvent struct {
	Done chan<- error
}

// PauseEvent suspends tracking without touching the store.
type PauseEvent struct {
	Done chan<- error
}

// AnchorEvent is the session's notification that an anchor was added.
type AnchorEvent struct {
	ID   models.AnchorID
	Pose models.Pose
}

func (TapEvent) event()    {}
func (SaveEvent) event()   {}
func (LoadEvent) event()   {}
func (ResetEvent) event()  {}
func (PauseEvent) event()  {}
func (AnchorEvent) event() {}

func done(ch chan<- error, err error) {
	if ch != nil {
		ch <- err
	}
}
