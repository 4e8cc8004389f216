// Package loader implements the model load cache: per-identifier memoized
// two-tier loading with a fast-engine attempt, a multi-device fallback, and a
// singleflight guarantee for concurrent callers.
package loader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"scoutd/internal/engine"
)

const (
	// Smoke test applied to a Tier 1 instantiation: a tiny prompt with a
	// tiny budget whose output must be non-empty.
	smokePrompt = "Hello"
	smokeTokens = 8

	defaultMaxWait = 30 * time.Second
)

// Config encapsulates the load cache's collaborators and tunables.
type Config struct {
	Fast     engine.Fast
	Fallback engine.Fallback
	// Devices is the ordered Tier 2 device list; first success wins.
	Devices []engine.Device
	// MaxWait bounds the wait for a handle's generation slot.
	MaxWait time.Duration
	Logger  zerolog.Logger
}

// Cache owns all model handles for the process lifetime. Constructed once at
// worker startup; there is no TTL and no disposal hook, process teardown
// reclaims the resources.
type Cache struct {
	fast     engine.Fast
	fallback engine.Fallback
	devices  []engine.Device
	maxWait  time.Duration
	log      zerolog.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]*Handle

	probeOnce sync.Once
	probeOK   bool
}

// New constructs a Cache.
func New(cfg Config) *Cache {
	devices := cfg.Devices
	if len(devices) == 0 {
		devices = []engine.Device{engine.DeviceCUDA, engine.DeviceCPU}
	}
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	return &Cache{
		fast:     cfg.Fast,
		fallback: cfg.Fallback,
		devices:  devices,
		maxWait:  maxWait,
		log:      cfg.Logger,
		entries:  make(map[string]*Handle),
	}
}

// GetHandle returns the ready handle for id, loading it on first request.
// Concurrent callers for the same id share one load attempt and receive the
// same handle or the same error. A failed load leaves no cache entry, so the
// next call retries from scratch.
func (c *Cache) GetHandle(ctx context.Context, id string) (*Handle, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("empty model identifier")
	}
	c.mu.RLock()
	h := c.entries[id]
	c.mu.RUnlock()
	if h != nil {
		return h, nil
	}

	v, err, _ := c.group.Do(id, func() (any, error) {
		// Re-check: another flight may have just committed.
		c.mu.RLock()
		h := c.entries[id]
		c.mu.RUnlock()
		if h != nil {
			return h, nil
		}
		h, err := c.load(ctx, id)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[id] = h
		c.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// load runs the two-tier attempt sequence for one identifier.
func (c *Cache) load(ctx context.Context, id string) (*Handle, error) {
	if c.probeFast() {
		if h := c.tryFast(ctx, id); h != nil {
			loadsTotal.WithLabelValues("fast", "ok").Inc()
			c.log.Info().Str("model", id).Msg("loaded on fast engine")
			return h, nil
		}
	}
	var devErrs []error
	for _, dev := range c.devices {
		sess, err := c.fallback.LoadDevice(ctx, id, dev)
		if err != nil {
			c.log.Warn().Str("model", id).Str("device", string(dev)).Err(err).Msg("fallback device failed")
			devErrs = append(devErrs, fmt.Errorf("%s: %w", dev, err))
			continue
		}
		loadsTotal.WithLabelValues("fallback", "ok").Inc()
		c.log.Info().Str("model", id).Str("device", string(dev)).Msg("loaded on fallback engine")
		return newHandle(id, BackendFallback, dev, sess, c.maxWait), nil
	}
	loadsTotal.WithLabelValues("fallback", "error").Inc()
	return nil, allDevicesFailedError{id: id, errs: devErrs}
}

// probeFast runs the advisory fast-engine capability probe exactly once per
// process.
func (c *Cache) probeFast() bool {
	c.probeOnce.Do(func() {
		c.probeOK = c.fast != nil && c.fast.Available()
		c.log.Info().Bool("available", c.probeOK).Msg("fast engine probe")
	})
	return c.probeOK
}

// tryFast attempts Tier 1: instantiate, then smoke-test with a minimal
// generation. Every failure is logged in one line and answered with nil so
// control falls through to Tier 2; Tier 1 errors never reach the caller.
func (c *Cache) tryFast(ctx context.Context, id string) *Handle {
	sess, err := c.fast.Load(ctx, id)
	if err != nil {
		loadsTotal.WithLabelValues("fast", "error").Inc()
		c.log.Warn().Str("model", id).Err(err).Msg("fast engine load failed, falling back")
		return nil
	}
	out, err := sess.Generate(ctx, smokePrompt, engine.Options{MaxNewTokens: smokeTokens})
	if err != nil || strings.TrimSpace(out) == "" {
		_ = sess.Close()
		loadsTotal.WithLabelValues("fast", "error").Inc()
		c.log.Warn().Str("model", id).Err(err).Msg("fast engine smoke test failed, falling back")
		return nil
	}
	return newHandle(id, BackendFast, "", sess, c.maxWait)
}

// Entries returns a snapshot of the ready handles.
func (c *Cache) Entries() []*Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Handle, 0, len(c.entries))
	for _, h := range c.entries {
		out = append(out, h)
	}
	return out
}
