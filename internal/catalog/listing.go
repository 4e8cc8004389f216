package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// SiblingFile is one repository file descriptor from the hub listing.
type SiblingFile struct {
	Name string `json:"rfilename"`
}

// RemoteModelSummary is one entry from the hub listing. Immutable once
// parsed; the prefilter and classifier only read it.
type RemoteModelSummary struct {
	Identifier  string        `json:"id"`
	PipelineTag string        `json:"pipeline_tag"`
	Siblings    []SiblingFile `json:"siblings"`
}

// fetchListing pages through the hub model listing sequentially until an
// empty page or maxListingSize entries. A 429 retries the same page with
// backoff; retry exhaustion stops listing early with whatever was collected.
// A non-retryable failure is fatal only when nothing was collected at all.
func (c *Classifier) fetchListing(ctx context.Context, opts Options) ([]RemoteModelSummary, bool, error) {
	var (
		collected   []RemoteModelSummary
		rateLimited bool
	)
	for offset := 0; len(collected) < opts.MaxListingSize; offset += opts.PageSize {
		page, limited, err := c.fetchListingPage(ctx, opts, offset)
		if limited {
			rateLimited = true
		}
		if err != nil {
			if len(collected) == 0 {
				return nil, rateLimited, fmt.Errorf("catalog listing: %w", err)
			}
			c.log.Warn().Err(err).Int("collected", len(collected)).Msg("listing stopped early")
			return collected, rateLimited, nil
		}
		if len(page) == 0 {
			break
		}
		collected = append(collected, page...)
		listingPagesTotal.Inc()
	}
	if len(collected) > opts.MaxListingSize {
		collected = collected[:opts.MaxListingSize]
	}
	return collected, rateLimited, nil
}

// fetchListingPage fetches one page, retrying 429s and transient failures.
func (c *Classifier) fetchListingPage(ctx context.Context, opts Options, offset int) ([]RemoteModelSummary, bool, error) {
	u := c.baseURL + "/api/models?" + url.Values{
		"limit": {strconv.Itoa(opts.PageSize)},
		"skip":  {strconv.Itoa(offset)},
		"sort":  {"downloads"},
	}.Encode()

	rateLimited := false
	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoffDelay(attempt-1, opts.BaseDelay)); err != nil {
				return nil, rateLimited, err
			}
		}
		page, status, err := c.getListingOnce(ctx, u, opts)
		switch {
		case err == nil && status == http.StatusOK:
			return page, rateLimited, nil
		case status == http.StatusTooManyRequests:
			rateLimited = true
			rateLimited429Total.Inc()
			lastErr = fmt.Errorf("listing page offset=%d: HTTP 429", offset)
		case err != nil:
			lastErr = err
		case status >= 500:
			lastErr = fmt.Errorf("listing page offset=%d: HTTP %d", offset, status)
		default:
			// 4xx other than 429 will not improve on retry.
			return nil, rateLimited, fmt.Errorf("listing page offset=%d: HTTP %d", offset, status)
		}
	}
	return nil, rateLimited, lastErr
}

func (c *Classifier) getListingOnce(ctx context.Context, u string, opts Options) ([]RemoteModelSummary, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, opts.PerRequestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	if opts.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+opts.AuthToken)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, nil
	}
	var page []RemoteModelSummary
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode listing: %w", err)
	}
	return page, resp.StatusCode, nil
}
