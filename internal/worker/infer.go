package worker

import (
	"context"
	"encoding/json"
	"io"

	"scoutd/internal/engine"
	"scoutd/pkg/types"
)

// modelNotFoundError signals a missing or unspecified model id for 404 mapping.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// Infer loads the requested model through the cache and streams the result
// as NDJSON to w. The load itself reuses the memoized handle when present;
// a total load failure purges the cache entry and surfaces the aggregated
// per-device error.
func (w *Worker) Infer(ctx context.Context, req types.InferRequest, out io.Writer, flush func()) error {
	modelID := req.Model
	if modelID == "" {
		modelID = w.defaultModel
		if modelID == "" {
			return modelNotFoundError{id: "(unspecified)"}
		}
	}
	h, err := w.cache.GetHandle(ctx, modelID)
	if err != nil {
		return err
	}
	text, err := h.Generate(ctx, req.Prompt, engine.Options{
		MaxNewTokens: req.MaxTokens,
		Temperature:  req.Temperature,
		TopP:         req.TopP,
		Stop:         req.Stop,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	if err := enc.Encode(map[string]any{"token": text}); err != nil {
		return err
	}
	if flush != nil {
		flush()
	}
	if err := enc.Encode(map[string]any{
		"done":    true,
		"content": text,
		"backend": h.Backend.String(),
		"device":  string(h.Device),
	}); err != nil {
		return err
	}
	if flush != nil {
		flush()
	}
	return nil
}
