package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"scoutd/pkg/types"
)

// fakeHub serves a small model hub: one listing page plus per-repo config
// files. Repos absent from configs 404 on every config path.
func fakeHub(t *testing.T, listing []RemoteModelSummary, configs map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/models" {
			skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
			if skip > 0 {
				json.NewEncoder(w).Encode([]RemoteModelSummary{})
				return
			}
			json.NewEncoder(w).Encode(listing)
			return
		}
		if i := strings.Index(r.URL.Path, "/resolve/main/config.json"); i > 0 {
			id := strings.TrimPrefix(r.URL.Path[:i], "/")
			if cfg, ok := configs[id]; ok {
				w.Write([]byte(cfg))
				return
			}
		}
		http.NotFound(w, r)
	}))
}

func drain(ch <-chan types.ProgressEvent) []types.ProgressEvent {
	var evs []types.ProgressEvent
	for ev := range ch {
		evs = append(evs, ev)
	}
	return evs
}

func terminal(t *testing.T, evs []types.ProgressEvent) types.ProgressEvent {
	t.Helper()
	if len(evs) == 0 {
		t.Fatal("no events")
	}
	last := evs[len(evs)-1]
	if last.Type != types.EventDone && last.Type != types.EventFailed {
		t.Fatalf("last event %s is not terminal", last.Type)
	}
	return last
}

func TestRunClassifiesCatalog(t *testing.T) {
	listing := []RemoteModelSummary{
		summary("sentence-transformers/all-MiniLM-L6-v2", "feature-extraction", "tokenizer.json"),
		summary("Xenova/distilgpt2", "text-generation", "tokenizer.json"),
		summary("org/mystery-model", "text-generation"),
	}
	configs := map[string]string{
		"Xenova/distilgpt2": `{"model_type":"gpt2","architectures":["GPT2LMHeadModel"]}`,
	}
	srv := fakeHub(t, listing, configs)
	defer srv.Close()

	c := newTestClassifier(srv)
	evs := drain(c.Run(context.Background(), Options{Concurrency: 2}))

	if evs[0].Type != types.EventListingComplete || evs[0].TotalFound != 3 {
		t.Fatalf("first event %+v", evs[0])
	}
	if evs[1].Type != types.EventPrefiltered || evs[1].SurvivorCount != 2 {
		t.Fatalf("second event %+v", evs[1])
	}

	last := terminal(t, evs)
	if last.Type != types.EventDone {
		t.Fatalf("terminal %s: %s", last.Type, last.Message)
	}
	if len(last.Models) != 2 {
		t.Fatalf("models=%d, want 2", len(last.Models))
	}
	byID := map[string]types.ModelClassification{}
	for _, m := range last.Models {
		byID[m.Identifier] = m
	}
	gpt := byID["Xenova/distilgpt2"]
	if gpt.Classification != types.ClassGeneration || gpt.Confidence != types.ConfidenceHigh || gpt.ModelType != "gpt2" {
		t.Fatalf("distilgpt2 %+v", gpt)
	}
	mystery := byID["org/mystery-model"]
	if mystery.Classification != types.ClassGeneration || mystery.Confidence != types.ConfidenceMedium {
		t.Fatalf("mystery-model %+v", mystery)
	}
	if mystery.FetchStatus != types.FetchNotFound {
		t.Fatalf("mystery-model fetch=%s", mystery.FetchStatus)
	}

	meta := last.Meta
	if meta == nil {
		t.Fatal("done event missing meta")
	}
	if meta.RunID == "" {
		t.Fatal("missing run id")
	}
	if meta.Fetched != 2 || meta.Filtered != 2 {
		t.Fatalf("fetched=%d filtered=%d", meta.Fetched, meta.Filtered)
	}
	if len(meta.Errors) != 0 || meta.RateLimited || meta.Cancelled {
		t.Fatalf("meta %+v", meta)
	}
}

func TestRunIsRepeatable(t *testing.T) {
	listing := []RemoteModelSummary{summary("Xenova/distilgpt2", "text-generation", "tokenizer.json")}
	configs := map[string]string{"Xenova/distilgpt2": `{"model_type":"gpt2"}`}
	srv := fakeHub(t, listing, configs)
	defer srv.Close()

	c := newTestClassifier(srv)
	first := terminal(t, drain(c.Run(context.Background(), Options{})))
	second := terminal(t, drain(c.Run(context.Background(), Options{})))
	if len(first.Models) != 1 || len(second.Models) != 1 {
		t.Fatalf("models %d / %d", len(first.Models), len(second.Models))
	}
	a, b := first.Models[0], second.Models[0]
	if a.Identifier != b.Identifier || a.Classification != b.Classification || a.Confidence != b.Confidence {
		t.Fatalf("runs differ: %+v vs %+v", a, b)
	}
	if first.Meta.RunID == second.Meta.RunID {
		t.Fatal("run ids must be unique per run")
	}
}

func TestRunPropagates429RateLimitFlag(t *testing.T) {
	var hit429 bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/models" {
			skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
			if skip > 0 {
				json.NewEncoder(w).Encode([]RemoteModelSummary{})
				return
			}
			json.NewEncoder(w).Encode([]RemoteModelSummary{summary("org/m", "text-generation")})
			return
		}
		if !hit429 {
			hit429 = true
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"model_type":"llama"}`))
	}))
	defer srv.Close()

	c := newTestClassifier(srv)
	last := terminal(t, drain(c.Run(context.Background(), Options{Concurrency: 1})))
	if last.Type != types.EventDone {
		t.Fatalf("terminal %s", last.Type)
	}
	if !last.Meta.RateLimited {
		t.Fatal("meta should flag rate limiting")
	}
}

func TestRunFailsWhenListingUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClassifier(srv)
	last := terminal(t, drain(c.Run(context.Background(), Options{})))
	if last.Type != types.EventFailed {
		t.Fatalf("terminal %s, want failed", last.Type)
	}
	if last.Message == "" {
		t.Fatal("failed event needs a message")
	}
}

func TestRunCancellationYieldsTerminalEvent(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/models" {
			skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
			if skip > 0 {
				json.NewEncoder(w).Encode([]RemoteModelSummary{})
				return
			}
			json.NewEncoder(w).Encode([]RemoteModelSummary{
				summary("org/slow-1", "text-generation"),
				summary("org/slow-2", "text-generation"),
			})
			return
		}
		// Config fetches hang until the client disconnects.
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newTestClassifier(srv)
	ch := c.Run(ctx, Options{Concurrency: 2})

	var evs []types.ProgressEvent
	for ev := range ch {
		evs = append(evs, ev)
		if ev.Type == types.EventCandidateStarted {
			cancel()
		}
	}
	last := terminal(t, evs)
	if last.Type != types.EventDone {
		t.Fatalf("terminal %s, want done", last.Type)
	}
	if !last.Meta.Cancelled {
		t.Fatal("meta should flag cancellation")
	}
}
