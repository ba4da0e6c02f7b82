package worldmap

import (
	"github.com/himanishpuri/ARWorldMap/pkg/models"
)

const (
	DefaultWorldMapLocation = "worldMap"
	DefaultImageMapLocation = "imageMap"
)

type Config struct {
	DataDir          string
	BackendKind      BackendKind
	Backend          Backend
	WorldMapLocation string
	ImageMapLocation string
	CompressWorldMap bool
	CompressImageMap bool
	Passphrase       string
	Tracking         models.TrackingConfig
	Logger           Logger
	Status           StatusFunc
	Renderer         SceneRenderer
}

type Option func(*Config)

// WithDataDir sets the private directory the default backend writes to.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.DataDir = dir
	}
}

// WithBackendKind selects the backend opened when none is supplied.
func WithBackendKind(kind BackendKind) Option {
	return func(c *Config) {
		c.BackendKind = kind
	}
}

// WithBackend supplies an already opened backend. The caller keeps ownership.
func WithBackend(b Backend) Option {
	return func(c *Config) {
		c.Backend = b
	}
}

func WithLocations(worldMap, imageMap string) Option {
	return func(c *Config) {
		c.WorldMapLocation = worldMap
		c.ImageMapLocation = imageMap
	}
}

func WithCompression(worldMap, imageMap bool) Option {
	return func(c *Config) {
		c.CompressWorldMap = worldMap
		c.CompressImageMap = imageMap
	}
}

// WithPassphrase seals both blobs with a key derived from passphrase.
func WithPassphrase(passphrase string) Option {
	return func(c *Config) {
		c.Passphrase = passphrase
	}
}

func WithTrackingConfig(cfg models.TrackingConfig) Option {
	return func(c *Config) {
		c.Tracking = cfg
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithStatus sets the sink for user-visible status messages.
func WithStatus(fn StatusFunc) Option {
	return func(c *Config) {
		c.Status = fn
	}
}

func WithRenderer(r SceneRenderer) Option {
	return func(c *Config) {
		c.Renderer = r
	}
}

func defaultConfig() *Config {
	return &Config{
		DataDir:          "arworldmap-data",
		BackendKind:      BackendFile,
		WorldMapLocation: DefaultWorldMapLocation,
		ImageMapLocation: DefaultImageMapLocation,
		CompressWorldMap: true,
		CompressImageMap: false,
		Tracking:         models.DefaultTrackingConfig(),
	}
}

func newConfig(opts []Option) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
