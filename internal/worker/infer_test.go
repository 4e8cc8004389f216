package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"scoutd/internal/engine"
	"scoutd/internal/loader"
	"scoutd/pkg/types"
)

// stubFast reports unavailable so every load lands on the fallback tier.
type stubFast struct{}

func (stubFast) Available() bool                                        { return false }
func (stubFast) Load(ctx context.Context, id string) (engine.Session, error) { return nil, errors.New("unavailable") }

// stubFallback loads every model on any device and echoes a fixed completion.
type stubFallback struct{}

func (stubFallback) LoadDevice(ctx context.Context, id string, device engine.Device) (engine.Session, error) {
	return stubSession{}, nil
}

type stubSession struct{}

func (stubSession) Generate(ctx context.Context, prompt string, opts engine.Options) (string, error) {
	return "echo: " + prompt, nil
}
func (stubSession) Close() error { return nil }

func newInferWorker(defaultModel string) *Worker {
	return New(Config{
		Cache:        loader.New(loader.Config{Fast: stubFast{}, Fallback: stubFallback{}, Devices: []engine.Device{engine.DeviceCPU}, Logger: zerolog.Nop()}),
		DefaultModel: defaultModel,
		Logger:       zerolog.Nop(),
	})
}

func TestInferStreamsNDJSON(t *testing.T) {
	w := newInferWorker("")
	var buf strings.Builder
	flushes := 0
	err := w.Infer(context.Background(), types.InferRequest{Model: "org/m", Prompt: "hello"}, &buf, func() { flushes++ })
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%d, want 2", len(lines))
	}
	var token struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &token); err != nil {
		t.Fatalf("json: %v", err)
	}
	if token.Token != "echo: hello" {
		t.Fatalf("token=%q", token.Token)
	}
	var done struct {
		Done    bool   `json:"done"`
		Content string `json:"content"`
		Backend string `json:"backend"`
		Device  string `json:"device"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &done); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !done.Done || done.Backend != "fallback" || done.Device != "cpu" {
		t.Fatalf("done line %+v", done)
	}
	if flushes != 2 {
		t.Fatalf("flushes=%d, want 2", flushes)
	}
}

func TestInferUsesDefaultModel(t *testing.T) {
	w := newInferWorker("org/default")
	var buf strings.Builder
	if err := w.Infer(context.Background(), types.InferRequest{Model: "", Prompt: "hi"}, &buf, nil); err != nil {
		t.Fatalf("Infer: %v", err)
	}
	st := w.Status()
	if len(st.Handles) != 1 || st.Handles[0].ModelID != "org/default" {
		t.Fatalf("handles %+v", st.Handles)
	}
}

func TestInferNoModelAndNoDefault(t *testing.T) {
	w := newInferWorker("")
	var buf strings.Builder
	err := w.Infer(context.Background(), types.InferRequest{Model: "", Prompt: "hi"}, &buf, nil)
	if !IsModelNotFound(err) {
		t.Fatalf("err=%v, want model-not-found", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written on error, got %q", buf.String())
	}
}
