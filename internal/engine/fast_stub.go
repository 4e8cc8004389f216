//go:build !llama

package engine

// This file provides a no-CGO stub for the fast engine. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real engine lives in fast_llama.go (tagged 'llama').

import (
	"context"
	"errors"
)

type fastLlama struct{}

// NewFast constructs the fast engine. Without the 'llama' build tag it
// reports unavailable, so the load cache skips Tier 1 entirely.
func NewFast(snapshotsDir string, ctxSize, threads int) Fast {
	return fastLlama{}
}

func (fastLlama) Available() bool { return false }

func (fastLlama) Load(ctx context.Context, id string) (Session, error) {
	return nil, errors.New("fast engine not built (missing 'llama' build tag)")
}
