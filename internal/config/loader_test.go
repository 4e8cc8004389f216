package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	p := writeTemp(t, "cfg.yaml", `
addr: ":9090"
hub_base_url: https://hub.example
max_candidates: 50
devices: [cuda, cpu]
device_endpoints:
  cpu: http://127.0.0.1:8081
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.HubBaseURL != "https://hub.example" || cfg.MaxCandidates != 50 {
		t.Fatalf("cfg %+v", cfg)
	}
	if len(cfg.Devices) != 2 || cfg.DeviceEndpoints["cpu"] != "http://127.0.0.1:8081" {
		t.Fatalf("cfg %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	p := writeTemp(t, "cfg.json", `{"addr":":7070","default_model":"Xenova/distilgpt2","max_wait_sec":10}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.DefaultModel != "Xenova/distilgpt2" || cfg.MaxWaitSec != 10 {
		t.Fatalf("cfg %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	p := writeTemp(t, "cfg.toml", "addr = \":6060\"\nconcurrency = 4\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":6060" || cfg.Concurrency != 4 {
		t.Fatalf("cfg %+v", cfg)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	p := writeTemp(t, "cfg.ini", "addr=:1")
	if _, err := Load(p); err == nil {
		t.Fatal("expected an error for .ini")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
