package types

// InferRequest represents an inference request payload.
type InferRequest struct {
	// Model identifier to run the prompt against. Required unless the server
	// has a default model configured.
	// example: Xenova/distilgpt2
	Model string `json:"model,omitempty" example:"Xenova/distilgpt2"`
	// Required prompt text to generate a completion for.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// Maximum number of new tokens to generate.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Optional stop sequences. Generation stops when any sequence is matched.
	// example: ["\n\n","END"]
	Stop []string `json:"stop,omitempty" example:"[\"\\n\\n\",\"END\"]"`
}

// ModelsResponse wraps the list returned by GET /models.
type ModelsResponse struct {
	// Models from the most recent completed classification run,
	// generation-capable entries first.
	Models []ModelClassification `json:"models"`
	// Metadata of the run that produced the list, if any run completed.
	Meta *RunMeta `json:"meta,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// HandleStatus summarizes one entry in the model load cache for /status.
type HandleStatus struct {
	// Identifier of the cached model.
	// example: Xenova/distilgpt2
	ModelID string `json:"model_id" example:"Xenova/distilgpt2"`
	// Backend that produced the handle: fast or fallback.
	// example: fallback
	Backend string `json:"backend" example:"fallback"`
	// Device the fallback engine succeeded on (fallback backend only).
	// example: cpu
	Device string `json:"device,omitempty" example:"cpu"`
	// Last time this handle served a request (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Number of in-flight generations on this handle.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Cached model handles.
	Handles []HandleStatus `json:"handles"`
	// Metadata of the last completed classification run, if any.
	LastRun *RunMeta `json:"last_run,omitempty"`
	// True while a classification run is in progress.
	ClassifyRunning bool `json:"classify_running"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
