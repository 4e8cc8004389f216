package catalog

import "time"

// Defaults applied when corresponding Options fields are unset or invalid.
// The rate-limit tuning values are conventional rather than principled; they
// are exposed as options so deployments can adjust them.
const (
	defaultMaxCandidates  = 250
	defaultConcurrency    = 12
	defaultRequestTimeout = 10 * time.Second
	defaultMaxListingSize = 5000
	defaultPageSize       = 500

	defaultRateWindow    = 30 * time.Second
	defaultRateThreshold = 10
	defaultRestoreTick   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultBaseDelay     = 500 * time.Millisecond
)

// Options encapsulates all tunables for one classification run.
// Zero or invalid values are clamped to defaults, never rejected.
type Options struct {
	// MaxCandidates caps how many prefilter survivors are classified.
	MaxCandidates int
	// Concurrency is the initial number of concurrent metadata fetches.
	Concurrency int
	// AuthToken is an optional hub bearer token (raises rate limits, opens
	// gated repositories).
	AuthToken string
	// PerRequestTimeout bounds each HTTP request, not the run as a whole.
	PerRequestTimeout time.Duration
	// MaxListingSize stops listing pagination once this many entries are
	// collected.
	MaxListingSize int
	// PageSize is the listing page size.
	PageSize int

	// RateWindow is the sliding window over which 429s are counted.
	RateWindow time.Duration
	// RateThreshold is the 429 count within RateWindow that triggers a
	// concurrency halving.
	RateThreshold int
	// RestoreTick is the interval at which one unit of concurrency is
	// restored after a quiet backoff period.
	RestoreTick time.Duration
	// MaxRetries caps retries per request (listing page or config path).
	MaxRetries int
	// BaseDelay seeds the exponential backoff between retries.
	BaseDelay time.Duration

	// ExtraAllowFamilies extends the built-in generation family set.
	ExtraAllowFamilies []string
	// ExtraDenyFamilies extends the built-in encoder-only family set.
	ExtraDenyFamilies []string
	// ExtraDenyPipelineTags extends the prefilter tag deny set.
	ExtraDenyPipelineTags []string
}

func (o Options) withDefaults() Options {
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = defaultMaxCandidates
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	if o.PerRequestTimeout <= 0 {
		o.PerRequestTimeout = defaultRequestTimeout
	}
	if o.MaxListingSize <= 0 {
		o.MaxListingSize = defaultMaxListingSize
	}
	if o.PageSize <= 0 || o.PageSize > 1000 {
		o.PageSize = defaultPageSize
	}
	if o.RateWindow <= 0 {
		o.RateWindow = defaultRateWindow
	}
	if o.RateThreshold <= 0 {
		o.RateThreshold = defaultRateThreshold
	}
	if o.RestoreTick <= 0 {
		o.RestoreTick = defaultRestoreTick
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = defaultBaseDelay
	}
	return o
}
