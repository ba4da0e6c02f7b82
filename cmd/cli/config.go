package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/ARWorldMap/pkg/logger"
)

// fileConfig is the optional YAML config passed with -config. Command-line
// flags and environment variables take precedence over it.
type fileConfig struct {
	DataDir          string `yaml:"data_dir"`
	Backend          string `yaml:"backend"`
	Passphrase       string `yaml:"passphrase"`
	LogLevel         string `yaml:"log_level"`
	CompressWorldMap *bool  `yaml:"compress_world_map"`
	CompressImageMap *bool  `yaml:"compress_image_map"`
}

func readConfigFile(path string) (*fileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	var cfg fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// applyConfig fills in the settings the user did not give on the command
// line or through the environment.
func applyConfig(cfg *fileConfig, fs *flag.FlagSet) error {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	unset := func(name, env string) bool {
		return !explicit[name] && (env == "" || os.Getenv(env) == "")
	}

	if cfg.DataDir != "" && unset("data", envDataDir) {
		dataDir = cfg.DataDir
	}
	if cfg.Backend != "" && unset("backend", envBackend) {
		backendName = cfg.Backend
	}
	if cfg.Passphrase != "" && unset("passphrase", envPassphrase) {
		passphrase = cfg.Passphrase
	}
	if cfg.CompressWorldMap != nil && unset("compress-world", "") {
		compressWorld = *cfg.CompressWorldMap
	}
	if cfg.CompressImageMap != nil && unset("compress-images", "") {
		compressImages = *cfg.CompressImageMap
	}
	if cfg.LogLevel != "" && os.Getenv("LOG_LEVEL") == "" {
		lvl, ok := logger.ParseLevel(cfg.LogLevel)
		if !ok {
			return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
		}
		logger.SetLevel(lvl)
	}
	return nil
}
