// Package config loads VM tuning parameters from a TOML manifest,
// grounded on the teacher repo's manifest package (manifest/manifest.go
// uses the same github.com/BurntSushi/toml decoder for its own
// project manifests).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/teodorov/llst/vm"
)

// Config is the top-level VM tuning document a deployment ships
// alongside its image file.
type Config struct {
	Image  ImageConfig  `toml:"image"`
	Heap   HeapConfig   `toml:"heap"`
	Logger LoggerConfig `toml:"logger"`
}

// ImageConfig names the snapshot to boot from.
type ImageConfig struct {
	Path string `toml:"path"`
}

// HeapConfig mirrors vm.HeapConfig's tunables in a form that survives a
// round trip through TOML (ManagerKind is spelled out as a string here
// rather than the vm package's small integer enum).
type HeapConfig struct {
	Kind                 string `toml:"kind"` // "baker", "generational", or "noncollecting"
	InitialObjects       int    `toml:"initial_objects"`
	MaxObjects           int    `toml:"max_objects"`
	StaticInitialObjects int    `toml:"static_initial_objects"`
	RightCollectionDelay int    `toml:"right_collection_delay"`
	TenuredThreshold     int    `toml:"tenured_threshold"`
}

// LoggerConfig controls where diagnostics go.
type LoggerConfig struct {
	Path  string `toml:"path"` // empty means stderr
	Debug bool   `toml:"debug"`
}

// Load reads and parses the TOML document at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault returns a Config with sane defaults for a standalone run
// with no manifest file, mirroring the zero-configuration path
// cmd/llst falls back to when no -config flag is given.
func LoadDefault() *Config {
	return &Config{
		Heap: HeapConfig{
			Kind:                 "baker",
			InitialObjects:       4096,
			StaticInitialObjects: 1024,
		},
	}
}

// ToVMHeapConfig translates the TOML-friendly HeapConfig into the
// vm.HeapConfig the runtime actually takes.
func (h HeapConfig) ToVMHeapConfig() (vm.HeapConfig, error) {
	var kind vm.ManagerKind
	switch h.Kind {
	case "", "baker":
		kind = vm.BakerTwoSpace
	case "generational":
		kind = vm.Generational
	case "noncollecting":
		kind = vm.NonCollecting
	default:
		return vm.HeapConfig{}, fmt.Errorf("config: unknown heap kind %q", h.Kind)
	}
	return vm.HeapConfig{
		Kind:                 kind,
		InitialObjects:       h.InitialObjects,
		MaxObjects:           h.MaxObjects,
		StaticInitialObjects: h.StaticInitialObjects,
		RightCollectionDelay: h.RightCollectionDelay,
		TenuredThreshold:     h.TenuredThreshold,
	}, nil
}

// OpenLogWriter opens the configured log destination, or os.Stderr if
// none is configured.
func (c *Config) OpenLogWriter() (*os.File, error) {
	if c.Logger.Path == "" {
		return os.Stderr, nil
	}
	f, err := os.OpenFile(c.Logger.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("config: opening log file %s: %w", c.Logger.Path, err)
	}
	return f, nil
}
