package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/quadflow/quadflow/internal/event"
	"github.com/quadflow/quadflow/internal/role"
)

// RouteResult describes the single state mutation an event produced.
type RouteResult struct {
	Role     role.Role
	OutputID string
	Created  bool // a new output record was appended
	Ignored  bool // unknown event type, skipped for forward compatibility
}

// Route applies one runtime event to role memory. Every known event
// produces exactly one mutation: resolved events mutate their bound record
// in place, unresolved events fall back to creating a record in
// fallbackRole rather than being dropped.
func Route(ev *event.Event, mem *role.Store, idx *CorrelationIndex, fallback role.Role) RouteResult {
	if !ev.Type.Known() {
		return RouteResult{Ignored: true}
	}

	if b, ok := idx.Resolve(ev.CorrelationID); ok {
		if out := mem.Memory(b.Role).Output(b.OutputID); out != nil {
			mutate(out, ev, mem.Memory(b.Role))
			return RouteResult{Role: b.Role, OutputID: b.OutputID}
		}
	}

	// Unbound: create a record in the fallback role and bind it so later
	// events for the same correlation ID join it.
	out := newOutput(ev, fallback)
	mem.Memory(fallback).AppendOutput(out)
	idx.Bind(ev.CorrelationID, fallback, out.ID)
	if !ev.Type.Start() {
		// Continuation with no binding: best-effort standalone record.
		mutate(out, ev, mem.Memory(fallback))
	}
	return RouteResult{Role: fallback, OutputID: out.ID, Created: true}
}

// newOutput builds the initial record for an event's correlation ID.
func newOutput(ev *event.Event, r role.Role) *role.OutputItem {
	kind := role.KindShell
	switch ev.Type {
	case event.ModelChatStarted, event.ModelChatDelta, event.ModelChatCompleted, event.ModelChatFailed:
		kind = role.KindAgent
	}
	return &role.OutputItem{
		ID:        uuid.NewString(),
		Kind:      kind,
		Command:   ev.Command,
		Status:    role.StatusRunning,
		Timestamp: ev.Timestamp,
		Role:      r,
	}
}

// mutate applies an event's effect to its bound record.
func mutate(out *role.OutputItem, ev *event.Event, mem *role.Memory) {
	switch ev.Type {
	case event.ProcessStarted:
		if ev.Command != "" {
			out.Command = ev.Command
		}
		out.Status = role.StatusRunning

	case event.ModelChatStarted:
		out.Status = role.StatusRunning

	case event.StdoutChunk:
		out.Append(ev.Content, false)

	case event.StderrChunk:
		out.Append(ev.Content, true)

	case event.ModelChatDelta:
		out.Append(ev.Delta, false)

	case event.ProcessExited:
		code := 0
		if ev.ExitCode != nil {
			code = *ev.ExitCode
		}
		if code == 0 {
			out.Status = role.StatusSuccess
		} else {
			out.Status = role.StatusError
			out.Append(fmt.Sprintf("\nexit code %d", code), true)
		}

	case event.ModelChatCompleted:
		out.Status = role.StatusSuccess
		if ev.Message != "" {
			// Full answer supersedes the accumulated deltas.
			out.Replace(ev.Message)
		}
		if ev.Tokens != nil {
			mem.Tokens.Add(ev.Tokens.Input, ev.Tokens.Output, ev.Tokens.Total)
		}

	case event.ModelChatFailed:
		out.Status = role.StatusError
		out.Append(errorLine(ev.Error), true)

	case event.PermissionRequested:
		// Awaiting is a non-terminal marker: the record resumes or fails
		// once the grant/deny decision lands.
		out.Status = role.StatusAwaiting
		out.Pending = &role.PendingAction{
			RequestID: ev.RequestID,
			Command:   ev.Command,
			RiskLevel: ev.RiskLevel,
		}

	case event.WorkflowError:
		out.Status = role.StatusError
		out.Append(errorLine(ev.Error), true)

	case event.SecurityViolation:
		out.Status = role.StatusError
		msg := fmt.Sprintf("security violation: %s", ev.Policy)
		if ev.AttemptedPath != "" {
			msg += " (" + ev.AttemptedPath + ")"
		}
		out.Append(errorLine(msg), true)
	}
}

func errorLine(msg string) string {
	if msg == "" {
		msg = "unknown error"
	}
	return "\n" + msg
}
