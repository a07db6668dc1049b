// Package event defines the wire taxonomy exchanged with the execution
// runtime: events flowing back from the runtime and intents sent to it.
// Every message carries a session ID, a correlation ID and a timestamp;
// ordering is only guaranteed within one correlation ID.
package event

import "time"

// Type identifies the kind of a runtime event.
type Type string

// Runtime event types.
const (
	ProcessStarted      Type = "process_started"
	StdoutChunk         Type = "stdout_chunk"
	StderrChunk         Type = "stderr_chunk"
	ProcessExited       Type = "process_exited"
	PermissionRequested Type = "permission_requested"
	WorkflowError       Type = "workflow_error"
	SecurityViolation   Type = "security_violation"
	ModelChatStarted    Type = "model_chat_started"
	ModelChatDelta      Type = "model_chat_delta"
	ModelChatCompleted  Type = "model_chat_completed"
	ModelChatFailed     Type = "model_chat_failed"
	SystemReady         Type = "system_ready"
)

// Known reports whether t is a recognized event type. Unknown types are
// logged and skipped by the consumer, never treated as fatal.
func (t Type) Known() bool {
	switch t {
	case ProcessStarted, StdoutChunk, StderrChunk, ProcessExited,
		PermissionRequested, WorkflowError, SecurityViolation,
		ModelChatStarted, ModelChatDelta, ModelChatCompleted,
		ModelChatFailed, SystemReady:
		return true
	}
	return false
}

// Start reports whether t opens a new output record.
func (t Type) Start() bool {
	return t == ProcessStarted || t == ModelChatStarted
}

// TokenCounts reports model token usage for a completed chat call.
type TokenCounts struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Event is a single runtime event. The header fields are always present;
// payload fields are populated according to Type.
type Event struct {
	SessionID     string    `json:"session_id"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
	Type          Type      `json:"type"`

	// process_started
	Command string `json:"command,omitempty"`
	PID     int    `json:"pid,omitempty"`

	// stdout_chunk / stderr_chunk
	Content string `json:"content,omitempty"`

	// process_exited
	ExitCode *int `json:"exit_code,omitempty"`

	// permission_requested
	RequestID string `json:"request_id,omitempty"`
	RiskLevel string `json:"risk_level,omitempty"`

	// workflow_error / model_chat_failed
	Error    string `json:"error,omitempty"`
	Severity string `json:"severity,omitempty"`

	// security_violation
	Policy        string `json:"policy,omitempty"`
	AttemptedPath string `json:"attempted_path,omitempty"`

	// model_chat_delta
	Delta string `json:"delta,omitempty"`

	// model_chat_completed
	Message string       `json:"message,omitempty"`
	Tokens  *TokenCounts `json:"tokens,omitempty"`

	// system_ready
	RunID string `json:"run_id,omitempty"`
}
