package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

type fetchStatus int

const (
	fetchOK fetchStatus = iota
	fetchNotFound
	fetchAuth
	fetchTransient
)

// configOutcome is the result of probing one candidate's metadata.
// Exactly one variant applies; retried fetches produce a fresh outcome.
type configOutcome struct {
	status        fetchStatus
	statusCode    int
	modelType     string
	architectures []string
	message       string
}

// Conventional metadata locations, probed in order. A 404 advances to the
// next path; the first 200 wins.
var configPaths = []string{
	"config.json",
	"model/config.json",
	"adapter_config.json",
}

type repoConfig struct {
	ModelType     string   `json:"model_type"`
	Architectures []string `json:"architectures"`
}

// fetchConfig probes the candidate's config paths. 401/403 short-circuits as
// an auth outcome. A 429 reports to on429 and retries the same path with
// exponential backoff, as do 5xx and network failures; retry exhaustion
// yields a transient outcome.
func (c *Classifier) fetchConfig(ctx context.Context, id string, opts Options, on429 func()) configOutcome {
	for _, path := range configPaths {
		out := c.fetchConfigPath(ctx, id, path, opts, on429)
		if out.status == fetchNotFound {
			continue
		}
		return out
	}
	return configOutcome{status: fetchNotFound, statusCode: http.StatusNotFound}
}

// fetchConfigPath attempts one path, retrying rate limits and transient
// failures in place.
func (c *Classifier) fetchConfigPath(ctx context.Context, id, path string, opts Options, on429 func()) configOutcome {
	u := c.baseURL + "/" + id + "/resolve/main/" + path
	var last configOutcome
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoffDelay(attempt-1, opts.BaseDelay)); err != nil {
				return configOutcome{status: fetchTransient, message: err.Error()}
			}
		}
		out, err := c.getConfigOnce(ctx, u, opts)
		if err != nil {
			if ctx.Err() != nil {
				return configOutcome{status: fetchTransient, message: ctx.Err().Error()}
			}
			last = configOutcome{status: fetchTransient, message: err.Error()}
			continue
		}
		switch {
		case out.status == fetchTransient && out.statusCode == http.StatusTooManyRequests:
			rateLimited429Total.Inc()
			if on429 != nil {
				on429()
			}
			last = out
		case out.status == fetchTransient:
			last = out
		default:
			return out
		}
	}
	return last
}

func (c *Classifier) getConfigOnce(ctx context.Context, u string, opts Options) (configOutcome, error) {
	reqCtx, cancel := context.WithTimeout(ctx, opts.PerRequestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return configOutcome{}, err
	}
	if opts.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+opts.AuthToken)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return configOutcome{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var cfg repoConfig
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&cfg); err != nil {
			return configOutcome{status: fetchTransient, statusCode: resp.StatusCode,
				message: fmt.Sprintf("decode config: %v", err)}, nil
		}
		return configOutcome{status: fetchOK, statusCode: resp.StatusCode,
			modelType: cfg.ModelType, architectures: cfg.Architectures}, nil
	case resp.StatusCode == http.StatusNotFound:
		return configOutcome{status: fetchNotFound, statusCode: resp.StatusCode}, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return configOutcome{status: fetchAuth, statusCode: resp.StatusCode}, nil
	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return configOutcome{status: fetchTransient, statusCode: resp.StatusCode,
			message: fmt.Sprintf("HTTP %d", resp.StatusCode)}, nil
	}
}

// backoffDelay computes base << attempt with jitter, capped at 30s.
func (c *Classifier) backoffDelay(attempt int, base time.Duration) time.Duration {
	d := base << uint(attempt)
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d + time.Duration(rand.Int63n(int64(base)))
}

// sleep waits for d or until ctx is cancelled.
func (c *Classifier) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-c.after(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
