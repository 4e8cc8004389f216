package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"scoutd/internal/catalog"
	"scoutd/internal/engine"
	"scoutd/internal/httpapi"
	"scoutd/internal/loader"
	"scoutd/internal/worker"
)

// hubEntry is one listing row served by the fake hub.
type hubEntry struct {
	ID          string              `json:"id"`
	PipelineTag string              `json:"pipeline_tag"`
	Siblings    []map[string]string `json:"siblings"`
}

func genEntry(id string) hubEntry {
	return hubEntry{ID: id, PipelineTag: "text-generation", Siblings: []map[string]string{{"rfilename": "tokenizer.json"}}}
}

// newFakeHub serves a single listing page and config.json bodies per repo id.
func newFakeHub(t *testing.T, entries []hubEntry, configs map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/models" {
			skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
			if skip > 0 {
				json.NewEncoder(w).Encode([]hubEntry{})
				return
			}
			json.NewEncoder(w).Encode(entries)
			return
		}
		if i := strings.Index(r.URL.Path, "/resolve/main/config.json"); i > 0 {
			if cfg, ok := configs[strings.TrimPrefix(r.URL.Path[:i], "/")]; ok {
				w.Write([]byte(cfg))
				return
			}
		}
		http.NotFound(w, r)
	}))
}

// newFakeLlamaServer answers health checks and completions. gate, when
// non-nil, parks each completion until it is closed.
func newFakeLlamaServer(t *testing.T, gate chan struct{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/v1/completions":
			if gate != nil {
				select {
				case <-gate:
				case <-r.Context().Done():
					return
				}
			}
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]string{{"text": "generated text"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

var errNoFast = errors.New("fast engine unavailable")

type noFast struct{}

func (noFast) Available() bool { return false }
func (noFast) Load(ctx context.Context, id string) (engine.Session, error) {
	return nil, errNoFast
}

// newServer assembles the full daemon stack over fakes and returns its
// HTTP test server.
func newServer(t *testing.T, hub, llama *httptest.Server, maxWait time.Duration) *httptest.Server {
	t.Helper()
	cache := loader.New(loader.Config{
		Fast:     noFast{},
		Fallback: engine.NewServerFallback(map[engine.Device]string{engine.DeviceCPU: llama.URL}, "", 0),
		Devices:  []engine.Device{engine.DeviceCPU},
		MaxWait:  maxWait,
		Logger:   zerolog.Nop(),
	})
	w := worker.New(worker.Config{
		Classifier:   catalog.New(hub.URL, hub.Client(), zerolog.Nop()),
		Cache:        cache,
		DefaultModel: "Xenova/distilgpt2",
		Logger:       zerolog.Nop(),
	})
	srv := httptest.NewServer(httpapi.NewMux(w))
	t.Cleanup(srv.Close)
	return srv
}
