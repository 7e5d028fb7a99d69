package dispatch

import "context"

// Task is the envelope pushed to the execution substrate.
type Task struct {
	HandoffID string `json:"handoff_id"`
	JobSID    string `json:"job_sid"`
	JobType   string `json:"job_type"`
	AccountID string `json:"account_id"`
	SessionID string `json:"session_id"`
	Payload   []byte `json:"payload,omitempty"`
}

// TaskQueue is the port to the execution substrate. Push is at-least-once;
// duplicate delivery is absorbed by the completion handler's terminal-state
// check.
type TaskQueue interface {
	Push(ctx context.Context, task Task) error
}
