package types

// Classification buckets for a remote model candidate.
const (
	ClassGeneration    = "generation"
	ClassEncoderOnly   = "encoder_only"
	ClassUnknown       = "unknown"
	ClassAuthProtected = "auth_protected"
)

// Confidence levels attached to a classification.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Fetch statuses for the metadata probe behind a classification.
const (
	FetchOK        = "ok"
	FetchNotFound  = "not_found"
	FetchAuthError = "auth_error"
	FetchTransient = "transient_error"
)

// ModelClassification is the final judgment for one catalog candidate.
// Created once at the end of a classification attempt and never mutated.
type ModelClassification struct {
	// Repository identifier, e.g. "Xenova/distilgpt2".
	// example: Xenova/distilgpt2
	Identifier string `json:"identifier" example:"Xenova/distilgpt2"`
	// model_type from the repository config, when retrievable.
	// example: gpt2
	ModelType string `json:"model_type,omitempty" example:"gpt2"`
	// architectures from the repository config, when retrievable.
	Architectures []string `json:"architectures,omitempty"`
	// One of generation, encoder_only, unknown, auth_protected.
	// example: generation
	Classification string `json:"classification" example:"generation"`
	// One of high, medium, low.
	// example: high
	Confidence string `json:"confidence" example:"high"`
	// One of ok, not_found, auth_error, transient_error.
	// example: ok
	FetchStatus string `json:"fetch_status" example:"ok"`
	// HTTP status behind an auth_error fetch status.
	// example: 401
	StatusCode int `json:"status_code,omitempty" example:"401"`
	// Diagnostic message retained for transient fetch failures.
	Error string `json:"error,omitempty"`
}

// CandidateError pairs an identifier with the message that failed it.
type CandidateError struct {
	Identifier string `json:"identifier"`
	Message    string `json:"message"`
}

// RunMeta summarizes one classification run.
type RunMeta struct {
	// Run identifier, unique per invocation.
	// example: 7f9c2a1e-1d0a-4a3b-9a2e-1f7b3c4d5e6f
	RunID string `json:"run_id"`
	// Number of candidates whose metadata was fetched.
	// example: 120
	Fetched int `json:"fetched" example:"120"`
	// Number of listing entries that survived the prefilter.
	// example: 250
	Filtered int `json:"filtered" example:"250"`
	// Per-candidate failures recorded during the run.
	Errors []CandidateError `json:"errors,omitempty"`
	// True when the run observed at least one 429 from the hub.
	RateLimited bool `json:"rate_limited"`
	// True when the run ended early due to cancellation.
	Cancelled bool `json:"cancelled,omitempty"`
	// Wall-clock duration of the run in milliseconds.
	// example: 8450
	DurationMS int64 `json:"duration_ms" example:"8450"`
}

// Progress event kinds emitted by a classification run.
const (
	EventListingComplete     = "listing_complete"
	EventPrefiltered         = "prefiltered"
	EventCandidateStarted    = "candidate_started"
	EventCandidateClassified = "candidate_classified"
	EventCandidateFailed     = "candidate_failed"
	EventDone                = "done"
	EventFailed              = "failed"
)

// ProgressEvent is one NDJSON line on the classification stream. Exactly one
// of the optional payload groups is populated depending on Type. done and
// failed are terminal.
type ProgressEvent struct {
	// One of listing_complete, prefiltered, candidate_started,
	// candidate_classified, candidate_failed, done, failed.
	// example: candidate_classified
	Type string `json:"type" example:"candidate_classified"`
	// Total entries collected from the listing (listing_complete).
	// example: 4200
	TotalFound int `json:"total_found,omitempty" example:"4200"`
	// Candidates surviving the prefilter (prefiltered).
	// example: 250
	SurvivorCount int `json:"survivor_count,omitempty" example:"250"`
	// Candidate identifier (candidate_* events).
	Identifier string `json:"identifier,omitempty"`
	// Classification result (candidate_classified).
	Classification *ModelClassification `json:"classification,omitempty"`
	// Failure or fatal-error message (candidate_failed, failed).
	Message string `json:"message,omitempty"`
	// Full result list (done).
	Models []ModelClassification `json:"models,omitempty"`
	// Run metadata (done).
	Meta *RunMeta `json:"meta,omitempty"`
}
