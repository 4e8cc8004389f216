package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	// Hub / catalog classification.
	HubBaseURL        string `json:"hub_base_url" yaml:"hub_base_url" toml:"hub_base_url"`
	MaxCandidates     int    `json:"max_candidates" yaml:"max_candidates" toml:"max_candidates"`
	Concurrency       int    `json:"concurrency" yaml:"concurrency" toml:"concurrency"`
	PageSize          int    `json:"page_size" yaml:"page_size" toml:"page_size"`
	MaxListingSize    int    `json:"max_listing_size" yaml:"max_listing_size" toml:"max_listing_size"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec" toml:"request_timeout_sec"`
	FamiliesFile      string `json:"families_file" yaml:"families_file" toml:"families_file"`

	// Inference.
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
	SnapshotsDir string `json:"snapshots_dir" yaml:"snapshots_dir" toml:"snapshots_dir"`
	FastCtxSize  int    `json:"fast_ctx_size" yaml:"fast_ctx_size" toml:"fast_ctx_size"`
	FastThreads  int    `json:"fast_threads" yaml:"fast_threads" toml:"fast_threads"`
	// Ordered fallback device list, e.g. ["cuda", "cpu"].
	Devices []string `json:"devices" yaml:"devices" toml:"devices"`
	// Fallback engine endpoints, device name -> llama-server base URL.
	DeviceEndpoints map[string]string `json:"device_endpoints" yaml:"device_endpoints" toml:"device_endpoints"`
	MaxWaitSec      int               `json:"max_wait_sec" yaml:"max_wait_sec" toml:"max_wait_sec"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
