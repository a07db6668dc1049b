package event

import "time"

// IntentType identifies the kind of an intent sent to the runtime.
type IntentType string

// Intent types.
const (
	ExecCmd         IntentType = "exec_cmd"
	ModelChat       IntentType = "model_chat"
	GrantPermission IntentType = "grant_permission"
	DenyPermission  IntentType = "deny_permission"
	Reset           IntentType = "reset"
)

// ChatMessage is one message in a model chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Intent is a request from the engine to the runtime. The runtime echoes the
// correlation ID on every event the intent produces, which is how results
// find their way back to the originating output record.
type Intent struct {
	SessionID     string     `json:"session_id"`
	CorrelationID string     `json:"correlation_id"`
	Timestamp     time.Time  `json:"timestamp"`
	Type          IntentType `json:"type"`

	// exec_cmd
	Command string `json:"command,omitempty"`

	// model_chat
	Messages []ChatMessage     `json:"messages,omitempty"`
	Model    string            `json:"model,omitempty"`
	Options  map[string]string `json:"options,omitempty"`

	// grant_permission / deny_permission
	RequestID string `json:"request_id,omitempty"`
}
