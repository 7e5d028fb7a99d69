// Package worker provides a Go SDK for task execution workers. Workers pop
// task envelopes from the dispatch queue and report progress and final
// outcomes back over the internal callback API.
package worker

import "encoding/json"

// Task is the envelope a worker pops from the dispatch queue. HandoffID is
// unique per dispatch attempt; JobSID identifies the job across redeliveries.
type Task struct {
	HandoffID string          `json:"handoff_id"`
	JobSID    string          `json:"job_sid"`
	JobType   string          `json:"job_type"`
	AccountID string          `json:"account_id"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Outcome values accepted by the completion callback.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeRetry     = "retry"
)

// Completion reports the final result of a task.
type Completion struct {
	JobID           string  `json:"job_id"`
	Outcome         string  `json:"outcome"`
	ErrorReason     string  `json:"error_reason,omitempty"`
	ArtifactContent string  `json:"artifact_content,omitempty"`
	Language        string  `json:"language,omitempty"`
	FinalAmount     float64 `json:"final_amount,omitempty"`
	DurationSec     float64 `json:"duration_sec,omitempty"`
}

// CompletionResult is the server's acknowledgement of a completion callback.
// Duplicate is true when the job was already terminal and the callback was
// absorbed without effect.
type CompletionResult struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// ProgressResult reports whether a progress update was applied. Dropped is
// true when the job is no longer running.
type ProgressResult struct {
	Dropped bool `json:"dropped"`
}

// apiResponse represents the standard API response envelope.
type apiResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
	Error   *errorInfo `json:"error,omitempty"`
}

type errorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
