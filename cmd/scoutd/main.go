package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"scoutd/internal/catalog"
	"scoutd/internal/config"
	"scoutd/internal/engine"
	"scoutd/internal/httpapi"
	"scoutd/internal/loader"
	"scoutd/internal/registry"
	"scoutd/internal/worker"
)

func main() {
	// .env is optional; flags and real env take precedence.
	_ = godotenv.Load()

	defaultAddr := ":8080"
	if v := os.Getenv("SCOUTD_ADDR"); v != "" {
		defaultAddr = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8080")
	cfgPath := flag.String("config", "", "Optional config file (.yaml/.json/.toml)")
	hubBaseURL := flag.String("hub-base-url", "https://huggingface.co", "Model hub base URL")
	maxCandidates := flag.Int("max-candidates", 0, "Classification candidate cap (0=default)")
	concurrency := flag.Int("concurrency", 0, "Metadata fetch concurrency (0=default)")
	familiesFile := flag.String("families-file", "", "YAML file extending the family allow/deny sets")
	defaultModel := flag.String("default-model", "", "Default model id when request omits model")
	snapshotsDir := flag.String("snapshots-dir", "~/models/snapshots", "Directory with local *.gguf snapshots for the fast engine")
	devicesCSV := flag.String("devices", "", "Comma-separated fallback device order, e.g. cuda,cpu")
	flag.Parse()

	var cfg config.Config
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("failed to load config %s: %v", *cfgPath, err)
		}
		cfg = loaded
	}
	if cfg.Addr == "" {
		cfg.Addr = *addr
	}
	if cfg.HubBaseURL == "" {
		cfg.HubBaseURL = *hubBaseURL
	}
	if cfg.MaxCandidates == 0 {
		cfg.MaxCandidates = *maxCandidates
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = *concurrency
	}
	if cfg.FamiliesFile == "" {
		cfg.FamiliesFile = *familiesFile
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = *defaultModel
	}
	if cfg.SnapshotsDir == "" {
		cfg.SnapshotsDir = *snapshotsDir
	}
	if len(cfg.Devices) == 0 {
		cfg.Devices = splitCSV(*devicesCSV)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "scoutd").Logger()
	httpapi.SetLogger(logger)

	fam, err := registry.LoadFamilies(cfg.FamiliesFile)
	if err != nil {
		log.Fatalf("failed to load family overrides: %v", err)
	}

	classifyOpts := catalog.Options{
		MaxCandidates:         cfg.MaxCandidates,
		Concurrency:           cfg.Concurrency,
		AuthToken:             os.Getenv("HUB_TOKEN"),
		PerRequestTimeout:     time.Duration(cfg.RequestTimeoutSec) * time.Second,
		MaxListingSize:        cfg.MaxListingSize,
		PageSize:              cfg.PageSize,
		ExtraAllowFamilies:    fam.Allow,
		ExtraDenyFamilies:     fam.Deny,
		ExtraDenyPipelineTags: fam.DenyPipelineTags,
	}
	classifier := catalog.New(cfg.HubBaseURL, nil, logger)

	endpoints := make(map[engine.Device]string, len(cfg.DeviceEndpoints))
	for dev, base := range cfg.DeviceEndpoints {
		endpoints[engine.Device(strings.ToLower(dev))] = base
	}
	devices := make([]engine.Device, 0, len(cfg.Devices))
	for _, d := range cfg.Devices {
		devices = append(devices, engine.Device(strings.ToLower(d)))
	}
	cache := loader.New(loader.Config{
		Fast:     engine.NewFast(cfg.SnapshotsDir, cfg.FastCtxSize, cfg.FastThreads),
		Fallback: engine.NewServerFallback(endpoints, os.Getenv("LLAMA_SERVER_API_KEY"), 0),
		Devices:  devices,
		MaxWait:  time.Duration(cfg.MaxWaitSec) * time.Second,
		Logger:   logger,
	})

	w := worker.New(worker.Config{
		Classifier:      classifier,
		Cache:           cache,
		DefaultModel:    cfg.DefaultModel,
		ClassifyOptions: classifyOpts,
		Logger:          logger,
	})

	// Base context cancels streams on shutdown.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(w)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("hub", cfg.HubBaseURL).Msg("scoutd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		p := strings.TrimSpace(part)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
