package worldmap

import (
	"context"

	"github.com/himanishpuri/ARWorldMap/pkg/models"
)

// Backend stores opaque byte blobs at named locations. Save must replace a
// location atomically; Load returns an error wrapping storage.ErrNotFound
// when nothing was saved there.
type Backend interface {
	Save(ctx context.Context, location string, data []byte) error
	Load(ctx context.Context, location string) ([]byte, error)
	Remove(ctx context.Context, location string) error
	Close() error
}

// TrackingSession is the host platform's world-tracking session.
type TrackingSession interface {
	// Start (re)runs tracking with cfg. A non-nil initial snapshot resumes
	// tracking in the frame of reference it was captured in.
	Start(ctx context.Context, cfg models.TrackingConfig, initial *models.WorldSnapshot) error

	// Pause stops tracking until the next Start. Tracked anchors are kept.
	Pause(ctx context.Context) error

	// CurrentSnapshot captures the current world map. It may take a while
	// and fails when the map is not good enough to save.
	CurrentSnapshot(ctx context.Context) (models.WorldSnapshot, error)

	// CreateAnchor adds an anchor at pose and returns its identifier.
	CreateAnchor(ctx context.Context, pose models.Pose) (models.AnchorID, error)

	// AnchorEvents delivers anchor-added notifications, including anchors
	// restored from an initial snapshot.
	AnchorEvents() <-chan AnchorEvent
}

// PickResult is the outcome of one image pick.
type PickResult struct {
	Image     models.Image
	Cancelled bool
	Err       error
}

// ImagePicker presents the host's photo picker. The returned channel yields
// exactly one result.
type ImagePicker interface {
	Pick(ctx context.Context) <-chan PickResult
}

// SceneRenderer attaches the textured object for an anchor.
type SceneRenderer interface {
	Place(id models.AnchorID, img models.Image)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
