// Package engine defines the two inference backends the load cache arbitrates
// between: a fast in-process engine with narrow model compatibility and a
// broad-compatibility fallback engine that can target multiple devices.
package engine

import "context"

// Device identifies an acceleration target for the fallback engine.
type Device string

const (
	DeviceCUDA  Device = "cuda"
	DeviceMetal Device = "metal"
	DeviceCPU   Device = "cpu"
)

// Options captures generation parameters common to both engines.
type Options struct {
	MaxNewTokens int
	Temperature  float64
	TopP         float64
	Stop         []string
}

// Session is a loaded model ready to run completions.
type Session interface {
	// Generate runs one completion. Implementations must return promptly
	// when ctx is cancelled.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	// Close releases the resources behind the session.
	Close() error
}

// Fast is the optimized in-process engine. Load has no timeout by design:
// first use may download multi-gigabyte weights.
type Fast interface {
	// Available reports whether the engine can work at all in this build and
	// environment. Called once per process as an advisory probe.
	Available() bool
	// Load instantiates the model identified by id.
	Load(ctx context.Context, id string) (Session, error)
}

// Fallback is the broad-compatibility engine. It is instantiated per device;
// the load cache walks its device list in order until one succeeds.
type Fallback interface {
	LoadDevice(ctx context.Context, id string, device Device) (Session, error)
}
