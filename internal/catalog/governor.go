package catalog

import (
	"sync"
	"time"
)

// rateGovernor adapts classification concurrency to hub rate limiting. It
// keeps a sliding window of 429 timestamps; when the window fills it halves
// the semaphore limit (floor 1) and opens a backoff period during which no
// restoration happens. After a quiet backoff, Tick restores one unit of
// concurrency per call up to the original limit.
type rateGovernor struct {
	mu           sync.Mutex
	sem          *tokenSemaphore
	window       time.Duration
	threshold    int
	original     int
	stamps       []time.Time
	backoffUntil time.Time
	limited      bool
}

func newRateGovernor(sem *tokenSemaphore, original int, window time.Duration, threshold int) *rateGovernor {
	return &rateGovernor{
		sem:       sem,
		window:    window,
		threshold: threshold,
		original:  original,
	}
}

// Observe records one 429. Halving happens at most once per backoff period;
// the window resets on halving so another full window is required before the
// next cut.
func (g *rateGovernor) Observe(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limited = true
	g.stamps = append(g.stamps, now)
	g.pruneLocked(now)
	if len(g.stamps) < g.threshold || now.Before(g.backoffUntil) {
		return
	}
	half := g.sem.Limit() / 2
	if half < 1 {
		half = 1
	}
	g.sem.SetLimit(half)
	effectiveConcurrency.Set(float64(half))
	g.backoffUntil = now.Add(g.window)
	g.stamps = g.stamps[:0]
}

// Tick restores one unit of concurrency when the backoff period has elapsed
// and no further 429s have landed since the halving.
func (g *rateGovernor) Tick(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cur := g.sem.Limit()
	if cur >= g.original {
		return
	}
	if now.Before(g.backoffUntil) {
		return
	}
	g.pruneLocked(now)
	if len(g.stamps) > 0 {
		return
	}
	g.sem.SetLimit(cur + 1)
	effectiveConcurrency.Set(float64(cur + 1))
}

// RateLimited reports whether any 429 was observed during the run.
func (g *rateGovernor) RateLimited() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limited
}

func (g *rateGovernor) pruneLocked(now time.Time) {
	cutoff := now.Add(-g.window)
	i := 0
	for i < len(g.stamps) && g.stamps[i].Before(cutoff) {
		i++
	}
	g.stamps = g.stamps[i:]
}
