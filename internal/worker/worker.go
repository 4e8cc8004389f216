// Package worker composes the catalog classifier and the model load cache
// behind the surface the HTTP layer serves: classify runs, the retained model
// list, inference, and status.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"scoutd/internal/catalog"
	"scoutd/internal/loader"
	"scoutd/pkg/types"
)

// Config encapsulates the worker's collaborators.
type Config struct {
	Classifier   *catalog.Classifier
	Cache        *loader.Cache
	DefaultModel string
	// ClassifyOptions are the server defaults for a run; per-request options
	// override individual fields.
	ClassifyOptions catalog.Options
	Logger          zerolog.Logger
}

// Worker is constructed once at daemon startup and torn down with the
// process.
type Worker struct {
	classifier   *catalog.Classifier
	cache        *loader.Cache
	defaultModel string
	classifyOpts catalog.Options
	log          zerolog.Logger
	startTime    time.Time

	mu         sync.RWMutex
	running    bool
	lastModels []types.ModelClassification
	lastMeta   *types.RunMeta
}

// New constructs a Worker.
func New(cfg Config) *Worker {
	return &Worker{
		classifier:   cfg.Classifier,
		cache:        cfg.Cache,
		defaultModel: cfg.DefaultModel,
		classifyOpts: cfg.ClassifyOptions,
		log:          cfg.Logger,
		startTime:    time.Now(),
	}
}

// ClassifyOptions returns the server-default run options.
func (w *Worker) ClassifyOptions() catalog.Options { return w.classifyOpts }

// Classify starts a classification run and relays its event stream, retaining
// the final model list for Models once the run completes. At most one run is
// in flight; a second request fails immediately on the stream.
func (w *Worker) Classify(ctx context.Context, opts catalog.Options) <-chan types.ProgressEvent {
	out := make(chan types.ProgressEvent, 1)
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		out <- types.ProgressEvent{Type: types.EventFailed, Message: "a classification run is already in progress"}
		close(out)
		return out
	}
	w.running = true
	w.mu.Unlock()

	in := w.classifier.Run(ctx, opts)
	go func() {
		defer close(out)
		for ev := range in {
			if ev.Type == types.EventDone {
				w.mu.Lock()
				w.lastModels = ev.Models
				w.lastMeta = ev.Meta
				w.mu.Unlock()
			}
			out <- ev
		}
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()
	return out
}

// Models returns the last completed run's list, generation-capable entries
// first, preserving run order within each group.
func (w *Worker) Models() types.ModelsResponse {
	w.mu.RLock()
	defer w.mu.RUnlock()
	models := make([]types.ModelClassification, 0, len(w.lastModels))
	for _, m := range w.lastModels {
		if m.Classification == types.ClassGeneration {
			models = append(models, m)
		}
	}
	for _, m := range w.lastModels {
		if m.Classification != types.ClassGeneration {
			models = append(models, m)
		}
	}
	return types.ModelsResponse{Models: models, Meta: w.lastMeta}
}

// Status builds the /status response.
func (w *Worker) Status() types.StatusResponse {
	w.mu.RLock()
	meta := w.lastMeta
	running := w.running
	w.mu.RUnlock()

	handles := w.cache.Entries()
	hs := make([]types.HandleStatus, 0, len(handles))
	for _, h := range handles {
		hs = append(hs, types.HandleStatus{
			ModelID:  h.ID,
			Backend:  h.Backend.String(),
			Device:   string(h.Device),
			LastUsed: h.LastUsed().Unix(),
			Inflight: h.Inflight(),
		})
	}
	now := time.Now()
	return types.StatusResponse{
		Handles:         hs,
		LastRun:         meta,
		ClassifyRunning: running,
		UptimeSeconds:   int64(now.Sub(w.startTime).Seconds()),
		ServerTimeUnix:  now.Unix(),
	}
}

// Ready reports whether the worker can accept requests.
func (w *Worker) Ready() bool {
	return w.classifier != nil && w.cache != nil
}
