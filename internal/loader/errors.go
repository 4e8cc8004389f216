package loader

import (
	"fmt"
	"strings"
)

// allDevicesFailedError aggregates the per-device failures of a Tier 2 load.
type allDevicesFailedError struct {
	id   string
	errs []error
}

func (e allDevicesFailedError) Error() string {
	parts := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		parts = append(parts, err.Error())
	}
	return fmt.Sprintf("all fallback devices failed for %s: %s", e.id, strings.Join(parts, "; "))
}

func (e allDevicesFailedError) Unwrap() []error { return e.errs }

// ErrAllDevicesFailed constructs an allDevicesFailedError.
func ErrAllDevicesFailed(id string, errs []error) error {
	return allDevicesFailedError{id: id, errs: errs}
}

// IsAllDevicesFailed reports whether err means every fallback device failed
// (mapped to 503 by the HTTP layer).
func IsAllDevicesFailed(err error) bool {
	_, ok := err.(allDevicesFailedError)
	return ok
}

// tooBusyError signals per-handle generation backpressure for 429 mapping.
type tooBusyError struct{ modelID string }

func (e tooBusyError) Error() string { return "too busy: " + e.modelID }

// ErrTooBusy constructs a tooBusyError.
func ErrTooBusy(modelID string) error { return tooBusyError{modelID: modelID} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}
