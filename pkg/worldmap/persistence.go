package worldmap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/ARWorldMap/pkg/logger"
	"github.com/himanishpuri/ARWorldMap/pkg/models"
	"github.com/himanishpuri/ARWorldMap/pkg/worldmap/storage"
)

// Persistence saves and loads the world-map and image-map blobs at two fixed
// locations of a backend.
type Persistence struct {
	backend     Backend
	ownsBackend bool
	worldLoc    string
	imageLoc    string
	world       codec
	images      codec
	log         Logger
}

// NewPersistence opens the configured backend unless one is supplied with
// WithBackend.
func NewPersistence(opts ...Option) (*Persistence, error) {
	return newPersistence(newConfig(opts))
}

func newPersistence(cfg *Config) (*Persistence, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.WorldMapLocation == "" || cfg.ImageMapLocation == "" {
		return nil, errors.New("world map and image map locations are required")
	}
	if cfg.WorldMapLocation == cfg.ImageMapLocation {
		return nil, fmt.Errorf("world map and image map share location %q", cfg.WorldMapLocation)
	}

	p := &Persistence{
		backend:  cfg.Backend,
		worldLoc: cfg.WorldMapLocation,
		imageLoc: cfg.ImageMapLocation,
		world:    codec{kind: worldMapBlob, compress: cfg.CompressWorldMap},
		images:   codec{kind: imageMapBlob, compress: cfg.CompressImageMap},
		log:      cfg.Logger,
	}
	if cfg.Passphrase != "" {
		p.world.passphrase = []byte(cfg.Passphrase)
		p.images.passphrase = []byte(cfg.Passphrase)
	}

	if p.backend == nil {
		b, err := OpenBackend(cfg.BackendKind, cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open backend: %w", err)
		}
		p.backend = b
		p.ownsBackend = true
	}
	return p, nil
}

// Locations returns the world-map and image-map location names.
func (p *Persistence) Locations() (worldMap, imageMap string) {
	return p.worldLoc, p.imageLoc
}

// Save writes data to location, replacing it atomically. Storage failures
// are returned as *IOError.
func (p *Persistence) Save(ctx context.Context, location string, data []byte) error {
	if err := p.backend.Save(ctx, location, data); err != nil {
		return &IOError{Op: "save", Location: location, Err: err}
	}
	return nil
}

// Load reads location. It returns *NotFoundError when nothing was saved
// there and *IOError on any other failure.
func (p *Persistence) Load(ctx context.Context, location string) ([]byte, error) {
	data, err := p.backend.Load(ctx, location)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &NotFoundError{Location: location, Err: err}
	}
	if err != nil {
		return nil, &IOError{Op: "load", Location: location, Err: err}
	}
	return data, nil
}

// SaveReport is the outcome of SaveAll. Either blob may have been written
// while the other failed.
type SaveReport struct {
	WorldMapErr   error
	ImageMapErr   error
	WorldMapBytes int
	ImageMapBytes int
}

// OK reports whether both blobs were saved.
func (r SaveReport) OK() bool { return r.WorldMapErr == nil && r.ImageMapErr == nil }

// Err joins the per-blob errors, or returns nil.
func (r SaveReport) Err() error { return errors.Join(r.WorldMapErr, r.ImageMapErr) }

// SaveAll encodes and saves both blobs. A failure on one does not stop the
// attempt on the other.
func (p *Persistence) SaveAll(ctx context.Context, snap models.WorldSnapshot, store *AnchorImageStore) SaveReport {
	var report SaveReport

	if blob, err := p.EncodeSnapshot(snap); err != nil {
		report.WorldMapErr = err
	} else if err := p.Save(ctx, p.worldLoc, blob); err != nil {
		report.WorldMapErr = err
	} else {
		report.WorldMapBytes = len(blob)
	}

	if blob, err := store.serialize(p.images); err != nil {
		report.ImageMapErr = err
	} else if err := p.Save(ctx, p.imageLoc, blob); err != nil {
		report.ImageMapErr = err
	} else {
		report.ImageMapBytes = len(blob)
	}

	if report.OK() {
		p.log.Infof("Saved world map (%s) and %d images (%s)",
			humanize.Bytes(uint64(report.WorldMapBytes)), store.Len(), humanize.Bytes(uint64(report.ImageMapBytes)))
	} else {
		p.log.Warnf("Save incomplete: %v", report.Err())
	}
	return report
}

// LoadedMap is a decoded saved map plus the stored size of each blob.
type LoadedMap struct {
	Snapshot      models.WorldSnapshot
	Store         *AnchorImageStore
	WorldMapBytes int
	ImageMapBytes int
}

// LoadMap reads and decodes both blobs. Nothing is returned unless both are
// present and valid.
func (p *Persistence) LoadMap(ctx context.Context) (*LoadedMap, error) {
	worldBlob, err := p.Load(ctx, p.worldLoc)
	if err != nil {
		return nil, err
	}
	imageBlob, err := p.Load(ctx, p.imageLoc)
	if err != nil {
		return nil, err
	}

	snap, err := p.DecodeSnapshot(worldBlob)
	if err != nil {
		return nil, err
	}
	store, err := deserializeStore(imageBlob, p.images)
	if err != nil {
		return nil, err
	}

	p.log.Infof("Loaded world map (%s) and %d images (%s)",
		humanize.Bytes(uint64(len(worldBlob))), store.Len(), humanize.Bytes(uint64(len(imageBlob))))
	return &LoadedMap{
		Snapshot:      snap,
		Store:         store,
		WorldMapBytes: len(worldBlob),
		ImageMapBytes: len(imageBlob),
	}, nil
}

// LoadAll is LoadMap without the stored sizes.
func (p *Persistence) LoadAll(ctx context.Context) (models.WorldSnapshot, *AnchorImageStore, error) {
	m, err := p.LoadMap(ctx)
	if err != nil {
		return models.WorldSnapshot{}, nil, err
	}
	return m.Snapshot, m.Store, nil
}

// EncodeSnapshot wraps a world snapshot into a world-map blob.
func (p *Persistence) EncodeSnapshot(snap models.WorldSnapshot) ([]byte, error) {
	if snap.Empty() {
		return nil, &EncodingError{What: p.world.kind.what, Err: errors.New("snapshot is empty")}
	}
	return p.world.encode(snap.Data)
}

// DecodeSnapshot unwraps a world-map blob.
func (p *Persistence) DecodeSnapshot(blob []byte) (models.WorldSnapshot, error) {
	data, err := p.world.decode(blob)
	if err != nil {
		return models.WorldSnapshot{}, err
	}
	if len(data) == 0 {
		return models.WorldSnapshot{}, &DecodingError{What: p.world.kind.what, Err: errors.New("snapshot is empty")}
	}
	return models.WorldSnapshot{Data: data}, nil
}

// EncodeStore wraps store into an image-map blob with this persistence's
// compression and sealing settings.
func (p *Persistence) EncodeStore(store *AnchorImageStore) ([]byte, error) {
	return store.serialize(p.images)
}

// DecodeStore is the inverse of EncodeStore.
func (p *Persistence) DecodeStore(blob []byte) (*AnchorImageStore, error) {
	return deserializeStore(blob, p.images)
}

// Backend returns the underlying backend.
func (p *Persistence) Backend() Backend { return p.backend }

// Close releases the backend if this Persistence opened it.
func (p *Persistence) Close() error {
	if p.ownsBackend {
		return p.backend.Close()
	}
	return nil
}
