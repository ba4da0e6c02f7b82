package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/himanishpuri/ARWorldMap/pkg/logger"
	"github.com/himanishpuri/ARWorldMap/pkg/worldmap"
)

var (
	port           int
	dataDir        string
	backendName    string
	passphrase     string
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dataDir, "data", getEnvOrDefault("ARWORLDMAP_DATA_DIR", "arworldmap-data"), "Data directory holding the saved map")
	flag.StringVar(&backendName, "backend", getEnvOrDefault("ARWORLDMAP_BACKEND", string(worldmap.BackendFile)), "Storage backend: file or sqlite")
	flag.StringVar(&passphrase, "passphrase", os.Getenv("ARWORLDMAP_PASSPHRASE"), "Passphrase the blobs were sealed with")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseOrigins(s string) []string {
	if s == "*" {
		return []string{"*"}
	}
	origins := strings.Split(s, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	kind, err := worldmap.ParseBackendKind(backendName)
	if err != nil {
		log.Fatalf("Invalid backend: %v", err)
	}

	persist, err := worldmap.NewPersistence(
		worldmap.WithDataDir(dataDir),
		worldmap.WithBackendKind(kind),
		worldmap.WithPassphrase(passphrase),
		worldmap.WithLogger(log.Named("worldmap")),
	)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer persist.Close()

	config := &ServerConfig{
		Port:           port,
		DataDir:        dataDir,
		Backend:        kind,
		Sealed:         passphrase != "",
		AllowedOrigins: parseOrigins(allowedOrigins),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(persist, config)
	if err := server.Start(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		os.Exit(1)
	}
}
