package models

import "bytes"

// AnchorID identifies a spatial anchor. It is assigned by the tracking session
// and only ever compared for equality.
type AnchorID string

// Image is an encoded raster (PNG, JPEG, ...) chosen by the user.
type Image struct {
	Data []byte
}

// NewImage copies data into a new Image.
func NewImage(data []byte) Image {
	return Image{Data: bytes.Clone(data)}
}

// Empty reports whether the image carries no bytes.
func (i Image) Empty() bool { return len(i.Data) == 0 }

// Equal reports whether both images hold the same bytes.
func (i Image) Equal(other Image) bool { return bytes.Equal(i.Data, other.Data) }

// Clone returns a deep copy.
func (i Image) Clone() Image { return NewImage(i.Data) }

// Pose is a point and orientation in the tracked 3D space.
// A 3D hit point is a Pose with the identity rotation.
type Pose struct {
	X, Y, Z  float32    // Position in meters
	Rotation [4]float32 // Quaternion (x, y, z, w)
}

// HitPoint returns a Pose at the given position with no rotation.
func HitPoint(x, y, z float32) Pose {
	return Pose{X: x, Y: y, Z: z, Rotation: [4]float32{0, 0, 0, 1}}
}

// WorldSnapshot is the serialized spatial map produced by the tracking
// session. It is never introspected here.
type WorldSnapshot struct {
	Data []byte
}

// Empty reports whether the snapshot carries no bytes.
func (s WorldSnapshot) Empty() bool { return len(s.Data) == 0 }

// Equal reports whether both snapshots hold the same bytes.
func (s WorldSnapshot) Equal(other WorldSnapshot) bool { return bytes.Equal(s.Data, other.Data) }

// PlaneDetection selects which plane orientations the session looks for.
type PlaneDetection int

const (
	PlaneDetectionNone PlaneDetection = iota
	PlaneDetectionHorizontal
	PlaneDetectionVertical
)

func (p PlaneDetection) String() string {
	switch p {
	case PlaneDetectionNone:
		return "none"
	case PlaneDetectionHorizontal:
		return "horizontal"
	case PlaneDetectionVertical:
		return "vertical"
	default:
		return "unknown"
	}
}

// TrackingConfig is handed to the tracking session on every (re)start.
type TrackingConfig struct {
	PlaneDetection    PlaneDetection
	ShowFeaturePoints bool
}

// DefaultTrackingConfig enables horizontal plane detection and feature point
// visualization.
func DefaultTrackingConfig() TrackingConfig {
	return TrackingConfig{
		PlaneDetection:    PlaneDetectionHorizontal,
		ShowFeaturePoints: true,
	}
}
