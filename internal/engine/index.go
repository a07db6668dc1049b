// Package engine is the event reconciliation core: it routes runtime
// events into role memory through the correlation index, drives the phase
// machine on UI commands, and keeps the durable snapshot fresh.
package engine

import "github.com/quadflow/quadflow/internal/role"

// Binding locates the output record a correlation ID belongs to.
type Binding struct {
	Role     role.Role
	OutputID string
}

// CorrelationIndex maps correlation IDs to output records. It is a pure
// index; it never owns record contents.
type CorrelationIndex struct {
	bindings map[string]Binding
}

// NewCorrelationIndex creates an empty index.
func NewCorrelationIndex() *CorrelationIndex {
	return &CorrelationIndex{bindings: make(map[string]Binding)}
}

// Bind inserts a binding for a correlation ID. Rebinding is a silent no-op:
// a correlation ID belongs to at most one record for its whole life.
func (ci *CorrelationIndex) Bind(correlationID string, r role.Role, outputID string) {
	if _, exists := ci.bindings[correlationID]; exists {
		return
	}
	ci.bindings[correlationID] = Binding{Role: r, OutputID: outputID}
}

// Resolve looks up the binding for a correlation ID.
func (ci *CorrelationIndex) Resolve(correlationID string) (Binding, bool) {
	b, ok := ci.bindings[correlationID]
	return b, ok
}

// Len returns the number of bindings.
func (ci *CorrelationIndex) Len() int {
	return len(ci.bindings)
}

// Reset drops every binding. Called on new-session and session-switch.
func (ci *CorrelationIndex) Reset() {
	ci.bindings = make(map[string]Binding)
}
