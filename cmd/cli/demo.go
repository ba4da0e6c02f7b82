package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/himanishpuri/ARWorldMap/pkg/logger"
	"github.com/himanishpuri/ARWorldMap/pkg/models"
	"github.com/himanishpuri/ARWorldMap/pkg/worldmap"
	"github.com/himanishpuri/ARWorldMap/pkg/worldmap/imagemeta"
	"github.com/himanishpuri/ARWorldMap/pkg/worldmap/sim"
)

// loadImages reads every decodable image in dir, sorted by file name.
func loadImages(dir string) ([]models.Image, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	log := logger.GetLogger()
	var images []models.Image
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, nil, err
		}
		img := models.NewImage(data)
		if _, err := imagemeta.Probe(img); err != nil {
			log.Debugf("Skipping %s: %v", e.Name(), err)
			continue
		}
		images = append(images, img)
		names = append(names, e.Name())
	}
	return images, names, nil
}

// handleDemo drives a full place, save, reset and load cycle against the
// simulated tracking session.
func handleDemo(args []string) {
	log := logger.GetLogger()

	demoCmd := flag.NewFlagSet("demo", flag.ExitOnError)
	imagesDir := demoCmd.String("images", "", "Directory of photos to place (required)")
	demoCmd.Parse(args)

	if *imagesDir == "" {
		fmt.Println("Usage: arworldmap demo --images <dir>")
		os.Exit(1)
	}

	images, names, err := loadImages(*imagesDir)
	if err != nil {
		fail("Failed to read images: %v", err)
	}
	if len(images) == 0 {
		fail("No images found in %s", *imagesDir)
	}

	opts, err := persistenceOptions()
	if err != nil {
		fail("%v", err)
	}

	session := sim.NewSession()
	picker := sim.NewPicker()
	renderer := sim.NewRenderer()
	opts = append(opts,
		worldmap.WithRenderer(renderer),
		worldmap.WithStatus(func(s worldmap.Status) {
			fmt.Printf("   [%s] %s\n", s.State, s.Message)
		}),
	)

	coord, err := worldmap.NewCoordinator(session, picker, opts...)
	if err != nil {
		fail("Failed to create coordinator: %v", err)
	}
	defer coord.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- coord.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
			log.Warnf("Coordinator stopped: %v", err)
		}
	}()

	fmt.Printf("📸 Placing %d photo(s)...\n", len(images))
	for i, img := range images {
		picker.Choose(img)
		hit := models.HitPoint(float32(i)*0.5, 0, -1)
		if err := coord.Tap(ctx, &hit); err != nil {
			fail("Failed to place %s: %v", names[i], err)
		}
	}

	fmt.Println("\n💾 Saving map...")
	if err := coord.Save(ctx); err != nil {
		fail("Save failed: %v", err)
	}

	fmt.Println("\n🔄 Resetting tracking...")
	if err := coord.Reset(ctx); err != nil {
		fail("Reset failed: %v", err)
	}

	fmt.Println("\n📂 Loading map...")
	before := renderer.Calls()
	if err := coord.Load(ctx); err != nil {
		fail("Load failed: %v", err)
	}

	// Restored anchors are reported asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for renderer.Calls()-before < len(images) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("\n✅ Restored %d photo(s), %d placed in the scene\n", coord.Store().Len(), renderer.Calls()-before)
	log.Infof("Demo complete: %d anchors restored", len(session.Anchors()))
}
