// Package sim provides in-memory stand-ins for the host platform's tracking
// session, photo picker and renderer.
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/himanishpuri/ARWorldMap/pkg/models"
	"github.com/himanishpuri/ARWorldMap/pkg/utils"
	"github.com/himanishpuri/ARWorldMap/pkg/worldmap"
)

// ErrNotRunning is returned by session calls made before Start or after Pause.
var ErrNotRunning = errors.New("tracking session not running")

const eventBuffer = 1024

// snapshotDocument is the sim's private world map format.
type snapshotDocument struct {
	Anchors map[models.AnchorID]models.Pose `json:"anchors"`
}

// Session is an in-memory TrackingSession. Anchors live until the next Start.
type Session struct {
	mu          sync.Mutex
	running     bool
	cfg         models.TrackingConfig
	anchors     map[models.AnchorID]models.Pose
	starts      int
	startErr    error
	snapshotErr error
	delay       time.Duration
	onStart     func(initial *models.WorldSnapshot)
	events      chan worldmap.AnchorEvent
}

func NewSession() *Session {
	return &Session{
		anchors: make(map[models.AnchorID]models.Pose),
		events:  make(chan worldmap.AnchorEvent, eventBuffer),
	}
}

// FailStart makes the next Start calls return err (nil clears it).
func (s *Session) FailStart(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startErr = err
}

// FailSnapshot makes CurrentSnapshot return err (nil clears it).
func (s *Session) FailSnapshot(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotErr = err
}

// SetSnapshotDelay simulates a slow world map capture.
func (s *Session) SetSnapshotDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *Session) Start(ctx context.Context, cfg models.TrackingConfig, initial *models.WorldSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	onStart := s.onStart
	s.mu.Unlock()
	if onStart != nil {
		onStart(initial)
	}

	var restored map[models.AnchorID]models.Pose
	if initial != nil {
		var doc snapshotDocument
		if err := json.Unmarshal(initial.Data, &doc); err != nil {
			return fmt.Errorf("invalid world snapshot: %w", err)
		}
		restored = doc.Anchors
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.running = true
	s.cfg = cfg
	s.starts++
	s.anchors = make(map[models.AnchorID]models.Pose, len(restored))
	for id, pose := range restored {
		s.anchors[id] = pose
		s.emit(worldmap.AnchorEvent{ID: id, Pose: pose})
	}
	return nil
}

func (s *Session) Pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// Running reports whether the session is tracking.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// OnStart registers fn to run at the top of every Start call, before the
// session changes.
func (s *Session) OnStart(fn func(initial *models.WorldSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStart = fn
}

func (s *Session) CurrentSnapshot(ctx context.Context) (models.WorldSnapshot, error) {
	s.mu.Lock()
	delay := s.delay
	s.mu.Unlock()

	type result struct {
		snap models.WorldSnapshot
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		snap, err := s.capture()
		ch <- result{snap, err}
	}()

	select {
	case r := <-ch:
		return r.snap, r.err
	case <-ctx.Done():
		return models.WorldSnapshot{}, ctx.Err()
	}
}

func (s *Session) capture() (models.WorldSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshotErr != nil {
		return models.WorldSnapshot{}, s.snapshotErr
	}
	if !s.running {
		return models.WorldSnapshot{}, fmt.Errorf("%w: %v", worldmap.ErrSnapshotUnavailable, ErrNotRunning)
	}
	doc := snapshotDocument{Anchors: make(map[models.AnchorID]models.Pose, len(s.anchors))}
	for id, pose := range s.anchors {
		doc.Anchors[id] = pose
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return models.WorldSnapshot{}, err
	}
	return models.WorldSnapshot{Data: data}, nil
}

func (s *Session) CreateAnchor(ctx context.Context, pose models.Pose) (models.AnchorID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return "", ErrNotRunning
	}
	id := utils.NewAnchorID()
	s.anchors[id] = pose
	s.emit(worldmap.AnchorEvent{ID: id, Pose: pose})
	return id, nil
}

func (s *Session) AnchorEvents() <-chan worldmap.AnchorEvent { return s.events }

// emit never blocks; notifications beyond the buffer are dropped.
func (s *Session) emit(ev worldmap.AnchorEvent) {
	select {
	case s.events <- ev:
	default:
	}
}

// Anchors returns a copy of the tracked anchors.
func (s *Session) Anchors() map[models.AnchorID]models.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.AnchorID]models.Pose, len(s.anchors))
	for id, p := range s.anchors {
		out[id] = p
	}
	return out
}

// Starts counts successful Start calls.
func (s *Session) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Config returns the configuration of the last successful Start.
func (s *Session) Config() models.TrackingConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}
