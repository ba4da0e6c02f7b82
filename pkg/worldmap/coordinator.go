package worldmap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/himanishpuri/ARWorldMap/pkg/models"
)

// Coordinator owns the anchor-image store and drives the tracking session.
// All store mutations, saves and loads happen on the goroutine running Run,
// one event at a time.
type Coordinator struct {
	session  TrackingSession
	picker   ImagePicker
	persist  *Persistence
	store    *AnchorImageStore
	renderer SceneRenderer
	status   StatusFunc
	tracking models.TrackingConfig
	log      Logger

	events  chan Event
	stopped chan struct{}
	runOnce sync.Once

	mu    sync.RWMutex
	state State
}

// NewCoordinator wires a session and picker to a fresh, empty store.
func NewCoordinator(session TrackingSession, picker ImagePicker, opts ...Option) (*Coordinator, error) {
	if session == nil {
		return nil, errors.New("tracking session is required")
	}
	if picker == nil {
		return nil, errors.New("image picker is required")
	}

	cfg := newConfig(opts)
	persist, err := newPersistence(cfg)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		session:  session,
		picker:   picker,
		persist:  persist,
		store:    NewAnchorImageStore(),
		renderer: cfg.Renderer,
		status:   cfg.Status,
		tracking: cfg.Tracking,
		log:      cfg.Logger,
		events:   make(chan Event, 16),
		stopped:  make(chan struct{}),
		state:    StateUnmapped,
	}, nil
}

// State returns the current coordination state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.log.Debugf("State %s -> %s", prev, s)
	}
}

// Store returns a copy of the anchor-image store as of the call. Changes to
// the copy do not reach the coordinator.
func (c *Coordinator) Store() *AnchorImageStore { return c.store.Clone() }

// Persistence exposes the blob persistence used for save and load.
func (c *Coordinator) Persistence() *Persistence { return c.persist }

// Close releases the persistence backend. Call it after Run has returned.
func (c *Coordinator) Close() error { return c.persist.Close() }

// Run starts tracking and processes events until ctx is done, then pauses the
// session. It may only be called once.
func (c *Coordinator) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("coordinator already ran")
	}
	defer close(c.stopped)

	if err := c.session.Start(ctx, c.tracking, nil); err != nil {
		c.report(Status{State: c.State(), Message: "Tracking could not start", Err: err})
		return fmt.Errorf("starting tracking session: %w", err)
	}
	c.setState(StateMapping)
	c.report(Status{State: StateMapping, Message: "Move the device to map the room. Tap a surface to place a photo."})

	anchors := c.session.AnchorEvents()
	for {
		select {
		case <-ctx.Done():
			if err := c.session.Pause(context.WithoutCancel(ctx)); err != nil {
				c.log.Warnf("Pausing tracking on stop: %v", err)
			}
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ctx, ev)
		case ev, ok := <-anchors:
			if !ok {
				anchors = nil
				continue
			}
			c.handleAnchor(ev)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case TapEvent:
		done(e.Done, c.handleTap(ctx, e.Hit))
	case SaveEvent:
		done(e.Done, c.handleSave(ctx))
	case LoadEvent:
		done(e.Done, c.handleLoad(ctx))
	case ResetEvent:
		done(e.Done, c.handleReset(ctx))
	case PauseEvent:
		done(e.Done, c.handlePause(ctx))
	case AnchorEvent:
		c.handleAnchor(e)
	default:
		c.log.Warnf("Ignoring unknown event %T", ev)
	}
}

// Send queues ev for the loop.
func (c *Coordinator) Send(ctx context.Context, ev Event) error {
	select {
	case <-c.stopped:
		return ErrCoordinatorStopped
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.stopped:
		return ErrCoordinatorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tap queues a tap and waits until it is handled: the image was placed, the
// pick was cancelled, or an error occurred.
func (c *Coordinator) Tap(ctx context.Context, hit *models.Pose) error {
	ch := make(chan error, 1)
	return c.await(ctx, TapEvent{Hit: hit, Done: ch}, ch)
}

// Save queues a save and waits for its outcome.
func (c *Coordinator) Save(ctx context.Context) error {
	ch := make(chan error, 1)
	return c.await(ctx, SaveEvent{Done: ch}, ch)
}

// Load queues a load and waits for its outcome.
func (c *Coordinator) Load(ctx context.Context) error {
	ch := make(chan error, 1)
	return c.await(ctx, LoadEvent{Done: ch}, ch)
}

// Reset queues a tracking reset and waits for its outcome.
func (c *Coordinator) Reset(ctx context.Context) error {
	ch := make(chan error, 1)
	return c.await(ctx, ResetEvent{Done: ch}, ch)
}

// Pause queues a tracking pause and waits for its outcome. The store and
// state are kept; Reset or Load starts tracking again.
func (c *Coordinator) Pause(ctx context.Context) error {
	ch := make(chan error, 1)
	return c.await(ctx, PauseEvent{Done: ch}, ch)
}

func (c *Coordinator) await(ctx context.Context, ev Event, ch <-chan error) error {
	if err := c.Send(ctx, ev); err != nil {
		return err
	}
	select {
	case err := <-ch:
		return err
	case <-c.stopped:
		select {
		case err := <-ch:
			return err
		default:
			return ErrCoordinatorStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) handleTap(ctx context.Context, hit *models.Pose) error {
	if hit == nil {
		c.report(Status{State: c.State(), Message: "No surface found. Try tapping a mapped area.", Err: ErrNoHitPoint})
		return ErrNoHitPoint
	}
	pose := *hit

	var result PickResult
	select {
	case r, ok := <-c.picker.Pick(ctx):
		if !ok {
			r = PickResult{Err: errors.New("image picker closed without a result")}
		}
		result = r
	case <-ctx.Done():
		return ctx.Err()
	}

	switch {
	case result.Cancelled:
		c.report(Status{State: c.State(), Message: "Photo selection cancelled.", Err: ErrPickCancelled})
		return ErrPickCancelled
	case result.Err != nil:
		err := fmt.Errorf("picking image: %w", result.Err)
		c.report(Status{State: c.State(), Message: "Could not get the photo.", Err: err})
		return err
	case result.Image.Empty():
		err := errors.New("picked image is empty")
		c.report(Status{State: c.State(), Message: "Could not get the photo.", Err: err})
		return err
	}

	id, err := c.session.CreateAnchor(ctx, pose)
	if err != nil {
		err = fmt.Errorf("creating anchor: %w", err)
		c.report(Status{State: c.State(), Message: "Could not place the photo.", Err: err})
		return err
	}
	c.store.Put(id, result.Image)
	c.setState(StateMapping)

	c.log.Debugf("Placed image on anchor %s at (%.2f, %.2f, %.2f)", id, pose.X, pose.Y, pose.Z)
	c.report(Status{State: StateMapping, Message: fmt.Sprintf("Photo placed (%d in scene).", c.store.Len())})
	return nil
}

func (c *Coordinator) handleAnchor(ev AnchorEvent) {
	img, ok := c.store.Get(ev.ID)
	if !ok {
		c.log.Debugf("Anchor %s has no image", ev.ID)
		return
	}
	if c.renderer != nil {
		c.renderer.Place(ev.ID, img)
	}
}

func (c *Coordinator) handleSave(ctx context.Context) error {
	snap, err := c.session.CurrentSnapshot(ctx)
	if err != nil {
		if !errors.Is(err, ErrSnapshotUnavailable) {
			err = fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
		}
		c.report(Status{State: c.State(), Message: "Can't save the map yet. Keep scanning the room.", Err: err})
		return err
	}

	report := c.persist.SaveAll(ctx, snap, c.store)
	if !report.OK() {
		err := report.Err()
		c.report(Status{State: c.State(), Message: "Save failed: the map or the photos could not be written.", Err: err})
		return err
	}

	c.setState(StateSaved)
	c.report(Status{State: StateSaved, Message: fmt.Sprintf("Map saved with %d photos.", c.store.Len())})
	return nil
}

func (c *Coordinator) handleLoad(ctx context.Context) error {
	prev := c.State()

	snap, loaded, err := c.persist.LoadAll(ctx)
	if err != nil {
		msg := "Load failed: the saved map is unreadable."
		var nf *NotFoundError
		if errors.As(err, &nf) {
			msg = "No saved map found."
		}
		c.report(Status{State: prev, Message: msg, Err: err})
		return err
	}

	c.setState(StateUnmapped)
	c.setState(StateRestoring)
	c.report(Status{State: StateRestoring, Message: "Restoring the saved map..."})
	if err := c.session.Start(ctx, c.tracking, &snap); err != nil {
		c.setState(prev)
		err = fmt.Errorf("restarting tracking from saved map: %w", err)
		c.report(Status{State: prev, Message: "Load failed: tracking could not resume from the saved map.", Err: err})
		return err
	}
	c.store.ReplaceWith(loaded)
	c.setState(StateMapping)

	c.report(Status{State: StateMapping, Message: fmt.Sprintf("Map loaded with %d photos. Move the device to where the map was saved.", loaded.Len())})
	return nil
}

func (c *Coordinator) handleReset(ctx context.Context) error {
	prev := c.State()
	c.setState(StateUnmapped)
	if err := c.session.Start(ctx, c.tracking, nil); err != nil {
		c.setState(prev)
		err = fmt.Errorf("resetting tracking: %w", err)
		c.report(Status{State: prev, Message: "Reset failed.", Err: err})
		return err
	}
	c.setState(StateMapping)
	c.report(Status{State: StateMapping, Message: "Tracking reset."})
	return nil
}

func (c *Coordinator) handlePause(ctx context.Context) error {
	if err := c.session.Pause(ctx); err != nil {
		err = fmt.Errorf("pausing tracking: %w", err)
		c.report(Status{State: c.State(), Message: "Could not pause tracking.", Err: err})
		return err
	}
	c.report(Status{State: c.State(), Message: "Tracking paused."})
	return nil
}

func (c *Coordinator) report(s Status) {
	if s.Err != nil {
		c.log.Warnf("%s (%v)", s.Message, s.Err)
	} else {
		c.log.Infof("%s", s.Message)
	}
	if c.status != nil {
		c.status(s)
	}
}
