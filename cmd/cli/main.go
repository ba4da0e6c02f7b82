package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/ARWorldMap/pkg/logger"
	"github.com/himanishpuri/ARWorldMap/pkg/models"
	"github.com/himanishpuri/ARWorldMap/pkg/utils"
	"github.com/himanishpuri/ARWorldMap/pkg/worldmap"
	"github.com/himanishpuri/ARWorldMap/pkg/worldmap/imagemeta"
	"github.com/himanishpuri/ARWorldMap/pkg/worldmap/storage"
)

const (
	envDataDir    = "ARWORLDMAP_DATA_DIR"
	envBackend    = "ARWORLDMAP_BACKEND"
	envPassphrase = "ARWORLDMAP_PASSPHRASE"
)

// Global flags
var (
	dataDir        string
	backendName    string
	passphrase     string
	configPath     string
	compressWorld  bool
	compressImages bool
)

func init() {
	flag.StringVar(&dataDir, "data", getEnvOrDefault(envDataDir, "arworldmap-data"), "Private directory holding the saved map")
	flag.StringVar(&backendName, "backend", getEnvOrDefault(envBackend, string(worldmap.BackendFile)), "Storage backend: file or sqlite")
	flag.StringVar(&passphrase, "passphrase", os.Getenv(envPassphrase), "Seal saved blobs with a key derived from this passphrase")
	flag.StringVar(&configPath, "config", "", "Optional YAML config file")
	flag.BoolVar(&compressWorld, "compress-world", true, "xz-compress the world map blob")
	flag.BoolVar(&compressImages, "compress-images", false, "xz-compress the image map blob")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// persistenceOptions builds the options shared by every command.
func persistenceOptions() ([]worldmap.Option, error) {
	kind, err := worldmap.ParseBackendKind(backendName)
	if err != nil {
		return nil, err
	}
	return []worldmap.Option{
		worldmap.WithDataDir(dataDir),
		worldmap.WithBackendKind(kind),
		worldmap.WithPassphrase(passphrase),
		worldmap.WithCompression(compressWorld, compressImages),
		worldmap.WithLogger(logger.GetLogger().Named("worldmap")),
	}, nil
}

func openPersistence() (*worldmap.Persistence, error) {
	opts, err := persistenceOptions()
	if err != nil {
		return nil, err
	}
	return worldmap.NewPersistence(opts...)
}

// fail prints a user-facing error, logs it and exits.
func fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("❌ %s\n", msg)
	logger.GetLogger().Error("%s", msg)
	os.Exit(1)
}

func main() {
	log := logger.GetLogger()

	flag.Usage = printUsage
	flag.Parse()

	if configPath != "" {
		cfg, err := readConfigFile(configPath)
		if err != nil {
			fail("%v", err)
		}
		if err := applyConfig(cfg, flag.CommandLine); err != nil {
			fail("%v", err)
		}
	}

	printBanner()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	log.Infof("Executing command: %s (data=%s backend=%s)", command, dataDir, backendName)

	switch command {
	case "inspect":
		handleInspect()
	case "verify":
		handleVerify()
	case "export":
		handleExport(args[1:])
	case "copy":
		handleCopy(args[1:])
	case "demo":
		handleDemo(args[1:])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
    _    ____  __        __         _     _ __  __
   / \  |  _ \ \ \      / /__  _ __| | __| |  \/  | __ _ _ __
  / _ \ | |_) | \ \ /\ / / _ \| '__| |/ _' | |\/| |/ _' | '_ \
 / ___ \|  _ <   \ V  V / (_) | |  | | (_| | |  | | (_| | |_) |
/_/   \_\_| \_\   \_/\_/ \___/|_|  |_|\__,_|_|  |_|\__,_| .__/
                                                        |_|
           AR World Map Persistence Tool
`
	fmt.Println(banner)
}

func handleInspect() {
	log := logger.GetLogger()

	p, err := openPersistence()
	if err != nil {
		fail("Failed to open storage: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	worldLoc, imageLoc := p.Locations()

	fmt.Println("🗺️  World map:")
	if blob, err := p.Load(ctx, worldLoc); err != nil {
		fmt.Printf("   %s: %v\n", worldLoc, err)
	} else if snap, err := p.DecodeSnapshot(blob); err != nil {
		fmt.Printf("   %s: %s stored, unreadable: %v\n", worldLoc, humanize.Bytes(uint64(len(blob))), err)
	} else {
		fmt.Printf("   %s: %s stored, %s decoded\n", worldLoc,
			humanize.Bytes(uint64(len(blob))), humanize.Bytes(uint64(len(snap.Data))))
	}

	blob, err := p.Load(ctx, imageLoc)
	if err != nil {
		fmt.Printf("\n📭 No image map: %v\n", err)
		return
	}
	store, err := p.DecodeStore(blob)
	if err != nil {
		fail("Image map is unreadable: %v", err)
	}

	fmt.Printf("\n🖼️  Image map: %d image(s), %s stored\n\n", store.Len(), humanize.Bytes(uint64(len(blob))))
	for i, id := range store.IDs() {
		img, _ := store.Get(id)
		meta, err := imagemeta.Probe(img)
		if err != nil {
			fmt.Printf("%d. %s\n   %s, %v\n", i+1, id, humanize.Bytes(uint64(len(img.Data))), err)
			continue
		}
		fmt.Printf("%d. %s\n   %s\n", i+1, id, meta)
	}

	if db, ok := p.Backend().(*storage.SQLiteBackend); ok {
		sizes, err := db.Locations(ctx)
		if err != nil {
			log.Warnf("Could not list sqlite rows: %v", err)
			return
		}
		fmt.Printf("\n💾 SQLite rows: %d\n", len(sizes))
		for loc, size := range sizes {
			fmt.Printf("   %s: %s\n", loc, humanize.Bytes(uint64(size)))
		}
	}
}

func handleVerify() {
	log := logger.GetLogger()

	p, err := openPersistence()
	if err != nil {
		fail("Failed to open storage: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	snap, store, err := p.LoadAll(ctx)
	if err != nil {
		var nf *worldmap.NotFoundError
		var decErr *worldmap.DecodingError
		switch {
		case errors.As(err, &nf):
			fail("Saved map is incomplete: %v", err)
		case errors.As(err, &decErr):
			fail("Saved map is corrupt: %v", err)
		default:
			fail("Could not read saved map: %v", err)
		}
	}

	fmt.Println("✅ Saved map is valid")
	fmt.Printf("   World map: %s\n", humanize.Bytes(uint64(len(snap.Data))))
	fmt.Printf("   Images:    %d\n", store.Len())
	log.Infof("Verified saved map with %d images", store.Len())
}

func handleExport(args []string) {
	log := logger.GetLogger()

	if len(args) < 2 {
		fmt.Println("Usage: arworldmap export <anchor-id> <out-file>")
		os.Exit(1)
	}
	id, out := models.AnchorID(args[0]), args[1]

	p, err := openPersistence()
	if err != nil {
		fail("Failed to open storage: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, imageLoc := p.Locations()
	blob, err := p.Load(ctx, imageLoc)
	if err != nil {
		fail("Failed to load image map: %v", err)
	}
	store, err := p.DecodeStore(blob)
	if err != nil {
		fail("Image map is unreadable: %v", err)
	}

	img, ok := store.Get(id)
	if !ok {
		fail("No image for anchor %s", id)
	}
	if err := utils.WriteFileAtomic(out, img.Data, 0o644); err != nil {
		fail("Failed to write %s: %v", out, err)
	}

	fmt.Printf("✅ Exported anchor %s to %s (%s)\n", id, out, humanize.Bytes(uint64(len(img.Data))))
	log.Infof("Exported anchor %s to %s", id, out)
}

func handleCopy(args []string) {
	log := logger.GetLogger()

	copyCmd := flag.NewFlagSet("copy", flag.ExitOnError)
	toBackend := copyCmd.String("to-backend", string(worldmap.BackendSQLite), "Destination backend: file or sqlite")
	toDir := copyCmd.String("to-dir", "", "Destination data directory (required)")
	copyCmd.Parse(args)

	if *toDir == "" {
		fmt.Println("Usage: arworldmap copy --to-backend <file|sqlite> --to-dir <dir>")
		os.Exit(1)
	}
	kind, err := worldmap.ParseBackendKind(*toBackend)
	if err != nil {
		fail("%v", err)
	}

	src, err := openPersistence()
	if err != nil {
		fail("Failed to open source storage: %v", err)
	}
	defer src.Close()

	dst, err := worldmap.OpenBackend(kind, *toDir)
	if err != nil {
		fail("Failed to open destination storage: %v", err)
	}
	defer dst.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Blobs are copied as stored, so sealed blobs stay sealed.
	worldLoc, imageLoc := src.Locations()
	for _, loc := range []string{worldLoc, imageLoc} {
		blob, err := src.Load(ctx, loc)
		if err != nil {
			fail("Failed to read %s: %v", loc, err)
		}
		if err := dst.Save(ctx, loc, blob); err != nil {
			fail("Failed to write %s: %v", loc, err)
		}
		fmt.Printf("📦 Copied %s (%s)\n", loc, humanize.Bytes(uint64(len(blob))))
	}

	fmt.Printf("\n✅ Copied saved map to %s backend at %s\n", kind, *toDir)
	log.Infof("Copied saved map from %s to %s:%s", dataDir, kind, *toDir)
}

func printUsage() {
	fmt.Println("ARWorldMap - AR world map persistence CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --data <dir>          Data directory (env: ARWORLDMAP_DATA_DIR, default: arworldmap-data)")
	fmt.Println("  --backend <kind>      file or sqlite (env: ARWORLDMAP_BACKEND, default: file)")
	fmt.Println("  --passphrase <text>   Seal blobs with this passphrase (env: ARWORLDMAP_PASSPHRASE)")
	fmt.Println("  --compress-world      xz-compress the world map (default: true)")
	fmt.Println("  --compress-images     xz-compress the image map (default: false)")
	fmt.Println("  --config <file>       YAML config file")
	fmt.Println("\nUsage:")
	fmt.Println("  arworldmap [global-options] inspect")
	fmt.Println("  arworldmap [global-options] verify")
	fmt.Println("  arworldmap [global-options] export <anchor-id> <out-file>")
	fmt.Println("  arworldmap [global-options] copy --to-backend <file|sqlite> --to-dir <dir>")
	fmt.Println("  arworldmap [global-options] demo --images <dir>")
	fmt.Println("\nExamples:")
	fmt.Println("  # Place every photo in ./photos, save, reset and restore")
	fmt.Println("  arworldmap --data /tmp/room demo --images ./photos")
	fmt.Println()
	fmt.Println("  # Move a saved map into SQLite")
	fmt.Println("  arworldmap --data /tmp/room copy --to-backend sqlite --to-dir /tmp/room-db")
	fmt.Println()
	fmt.Println("  # Check the saved map")
	fmt.Println("  arworldmap --backend sqlite --data /tmp/room-db verify")
}
