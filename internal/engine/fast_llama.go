//go:build llama

package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"scoutd/internal/common/fsutil"
)

// fastLlama runs models in-process through go-llama.cpp. Model weights are
// resolved from a local snapshots directory keyed by identifier
// (<snapshotsDir>/<org>__<name>.gguf).
type fastLlama struct {
	snapshotsDir string
	ctxSize      int
	threads      int
}

// NewFast constructs the in-process fast engine.
func NewFast(snapshotsDir string, ctxSize, threads int) Fast {
	if ctxSize <= 0 {
		ctxSize = 2048
	}
	if expanded, err := fsutil.ExpandHome(snapshotsDir); err == nil {
		snapshotsDir = expanded
	}
	return &fastLlama{snapshotsDir: snapshotsDir, ctxSize: ctxSize, threads: threads}
}

func (f *fastLlama) Available() bool {
	return f.snapshotsDir != "" && fsutil.DirExists(f.snapshotsDir)
}

func (f *fastLlama) Load(ctx context.Context, id string) (Session, error) {
	path := f.snapshotPath(id)
	if !fsutil.PathExists(path) {
		return nil, fmt.Errorf("no local snapshot for %s at %s", id, path)
	}
	opts := []llama.ModelOption{llama.SetContext(f.ctxSize)}
	model, err := llama.New(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	return &fastSession{model: model, threads: f.threads}, nil
}

func (f *fastLlama) snapshotPath(id string) string {
	return filepath.Join(f.snapshotsDir, strings.ReplaceAll(id, "/", "__")+".gguf")
}

type fastSession struct {
	model   *llama.LLama
	threads int
}

func (s *fastSession) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	popts := []llama.PredictOption{}
	if opts.MaxNewTokens > 0 {
		popts = append(popts, llama.SetTokens(opts.MaxNewTokens))
	}
	if opts.Temperature > 0 {
		popts = append(popts, llama.SetTemperature(opts.Temperature))
	}
	if opts.TopP > 0 {
		popts = append(popts, llama.SetTopP(opts.TopP))
	}
	if len(opts.Stop) > 0 {
		popts = append(popts, llama.SetStopWords(opts.Stop...))
	}
	if s.threads > 0 {
		popts = append(popts, llama.SetThreads(s.threads))
	}
	return s.model.Predict(prompt, popts...)
}

func (s *fastSession) Close() error {
	s.model.Free()
	return nil
}
