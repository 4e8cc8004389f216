package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scoutd/internal/engine"
)

// Backend tags which tier produced a handle.
type Backend int

const (
	BackendFast Backend = iota
	BackendFallback
)

func (b Backend) String() string {
	switch b {
	case BackendFast:
		return "fast"
	case BackendFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Handle is one ready entry in the load cache: a tagged union over the two
// engine tiers. Callers receive a shared reference and never mutate it; the
// cache owns the lifecycle.
type Handle struct {
	ID      string
	Backend Backend
	// Device is the accelerator the fallback engine succeeded on. Empty for
	// the fast backend.
	Device engine.Device

	sess    engine.Session
	maxWait time.Duration

	mu       sync.Mutex
	lastUsed time.Time
	genCh    chan struct{} // size 1: single in-flight generation
}

func newHandle(id string, backend Backend, device engine.Device, sess engine.Session, maxWait time.Duration) *Handle {
	return &Handle{
		ID:       id,
		Backend:  backend,
		Device:   device,
		sess:     sess,
		maxWait:  maxWait,
		lastUsed: time.Now(),
		genCh:    make(chan struct{}, 1),
	}
}

// Generate runs one completion on the handle, normalizing generation options
// per backend. One generation runs at a time per handle; waiting longer than
// maxWait for the slot returns a too-busy error.
func (h *Handle) Generate(ctx context.Context, prompt string, opts engine.Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	timer := time.NewTimer(h.maxWait)
	defer timer.Stop()
	select {
	case h.genCh <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", tooBusyError{modelID: h.ID}
	}
	defer func() { <-h.genCh }()

	h.mu.Lock()
	h.lastUsed = time.Now()
	h.mu.Unlock()

	switch h.Backend {
	case BackendFast:
		// The in-process engine generates until its context window fills
		// unless capped.
		if opts.MaxNewTokens <= 0 {
			opts.MaxNewTokens = 128
		}
		return h.sess.Generate(ctx, prompt, opts)
	case BackendFallback:
		// The server applies its own defaults; zero values pass through.
		return h.sess.Generate(ctx, prompt, opts)
	default:
		return "", fmt.Errorf("unknown backend %d for %s", h.Backend, h.ID)
	}
}

// LastUsed returns the last generation start time.
func (h *Handle) LastUsed() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastUsed
}

// Inflight reports whether a generation is currently running.
func (h *Handle) Inflight() int { return len(h.genCh) }
