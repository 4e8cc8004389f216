package catalog

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"scoutd/pkg/types"
)

// Classifier runs the catalog classification pipeline: list the hub,
// prefilter locally, fetch candidate metadata concurrently, classify, stream
// progress. Safe for concurrent use; each Run owns its own state.
type Classifier struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger

	// Injectable time sources so tests can run on simulated time.
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New constructs a Classifier against the given hub base URL. A nil client
// gets a pooled transport with no client-level timeout; every request carries
// a per-request context deadline instead.
func New(baseURL string, client *http.Client, log zerolog.Logger) *Classifier {
	if client == nil {
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 32,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
		client = &http.Client{Transport: tr, Timeout: 0}
	}
	return &Classifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		log:     log,
		now:     time.Now,
		after:   time.After,
	}
}

// Run starts a classification run and returns its event stream. The channel
// is closed after a terminal done or failed event; callers must drain it
// until close. Cancelling ctx stops new candidate fetches, aborts in-flight
// requests, and still yields a terminal done event flagged cancelled.
func (c *Classifier) Run(ctx context.Context, opts Options) <-chan types.ProgressEvent {
	opts = opts.withDefaults()
	events := make(chan types.ProgressEvent, 1)
	go func() {
		defer close(events)
		c.run(ctx, opts, events)
	}()
	return events
}

// emit delivers a non-terminal event, dropping it if the run was cancelled
// while the consumer stopped keeping up.
func (c *Classifier) emit(ctx context.Context, events chan<- types.ProgressEvent, ev types.ProgressEvent) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

func (c *Classifier) run(ctx context.Context, opts Options, events chan<- types.ProgressEvent) {
	start := c.now()
	runID := uuid.NewString()
	logger := c.log.With().Str("run_id", runID).Logger()

	allow := append(append([]string(nil), generationFamilies...), opts.ExtraAllowFamilies...)
	deny := append(append([]string(nil), encoderOnlyFamilies...), opts.ExtraDenyFamilies...)

	listing, listingLimited, err := c.fetchListing(ctx, opts)
	if err != nil {
		logger.Error().Err(err).Msg("classification run failed")
		runsTotal.WithLabelValues("failed").Inc()
		events <- types.ProgressEvent{Type: types.EventFailed, Message: err.Error()}
		return
	}
	c.emit(ctx, events, types.ProgressEvent{Type: types.EventListingComplete, TotalFound: len(listing)})

	survivors := prefilter(listing, opts)
	filtered := len(survivors)
	c.emit(ctx, events, types.ProgressEvent{Type: types.EventPrefiltered, SurvivorCount: len(survivors)})
	logger.Info().Int("listed", len(listing)).Int("survivors", len(survivors)).Msg("prefilter complete")

	sem := newTokenSemaphore(opts.Concurrency)
	effectiveConcurrency.Set(float64(opts.Concurrency))
	gov := newRateGovernor(sem, opts.Concurrency, opts.RateWindow, opts.RateThreshold)

	// Restoration ticker; stops with the run.
	tickDone := make(chan struct{})
	defer close(tickDone)
	go func() {
		for {
			select {
			case <-tickDone:
				return
			case <-ctx.Done():
				return
			case <-c.after(opts.RestoreTick):
				gov.Tick(c.now())
			}
		}
	}()

	var (
		mu      sync.Mutex
		results = make([]*types.ModelClassification, len(survivors))
		cErrs   []types.CandidateError
		fetched int
		cursor  int64 = -1
	)

	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Concurrency
	if workers > len(survivors) {
		workers = len(survivors)
	}
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if gctx.Err() != nil {
					return nil
				}
				idx := int(atomic.AddInt64(&cursor, 1))
				if idx >= len(survivors) {
					return nil
				}
				if err := sem.Acquire(gctx); err != nil {
					return nil
				}
				sum := survivors[idx]
				c.emit(gctx, events, types.ProgressEvent{Type: types.EventCandidateStarted, Identifier: sum.Identifier})
				out := c.fetchConfig(gctx, sum.Identifier, opts, func() { gov.Observe(c.now()) })
				sem.Release()
				if gctx.Err() != nil && out.status == fetchTransient {
					// Aborted mid-fetch; no classification for this candidate.
					return nil
				}
				mc := classifyOutcome(sum, out, allow, deny)
				candidatesTotal.WithLabelValues(mc.Classification).Inc()
				mu.Lock()
				results[idx] = &mc
				fetched++
				if out.status == fetchTransient {
					cErrs = append(cErrs, types.CandidateError{Identifier: sum.Identifier, Message: out.message})
				}
				mu.Unlock()
				if out.status == fetchTransient {
					c.emit(gctx, events, types.ProgressEvent{Type: types.EventCandidateFailed, Identifier: sum.Identifier, Message: out.message})
				} else {
					c.emit(gctx, events, types.ProgressEvent{Type: types.EventCandidateClassified, Identifier: sum.Identifier, Classification: &mc})
				}
				logger.Debug().Str("model", sum.Identifier).Str("class", mc.Classification).Str("confidence", mc.Confidence).Msg("candidate classified")
			}
		})
	}
	_ = g.Wait()

	models := make([]types.ModelClassification, 0, len(survivors))
	for _, r := range results {
		if r != nil {
			models = append(models, *r)
		}
	}
	meta := &types.RunMeta{
		RunID:       runID,
		Fetched:     fetched,
		Filtered:    filtered,
		Errors:      cErrs,
		RateLimited: listingLimited || gov.RateLimited(),
		Cancelled:   ctx.Err() != nil,
		DurationMS:  c.now().Sub(start).Milliseconds(),
	}
	outcome := "done"
	if meta.Cancelled {
		outcome = "cancelled"
	}
	runsTotal.WithLabelValues(outcome).Inc()
	logger.Info().
		Int("models", len(models)).
		Int("filtered", filtered).
		Int("errors", len(cErrs)).
		Bool("rate_limited", meta.RateLimited).
		Bool("cancelled", meta.Cancelled).
		Int64("dur_ms", meta.DurationMS).
		Msg("classification run complete")
	events <- types.ProgressEvent{Type: types.EventDone, Models: models, Meta: meta}
}
