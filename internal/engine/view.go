package engine

import (
	"github.com/quadflow/quadflow/internal/phase"
	"github.com/quadflow/quadflow/internal/role"
)

// View is a read-only copy of engine state for rendering layers. Renderers
// never touch live role memory; they only ever see these copies.
type View struct {
	RunID         string
	SessionID     string
	Phase         phase.State
	Active        role.Role
	PhaseComplete bool
	Handoff       string
	Roles         map[role.Role]RoleView
	Models        map[role.Role]string
}

// RoleView is one role's memory, copied.
type RoleView struct {
	Outputs []role.OutputItem
	Tasks   []role.TaskItem
	Tokens  role.TokenCounters
}

// View captures a consistent copy of the current state.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := View{
		RunID:         e.runID,
		SessionID:     e.sessionID,
		Phase:         e.machine.State(),
		Active:        e.active,
		PhaseComplete: e.phaseComplete,
		Handoff:       e.handoff,
		Roles:         make(map[role.Role]RoleView, len(role.All())),
		Models:        make(map[role.Role]string, len(e.models)),
	}
	for r, m := range e.models {
		v.Models[r] = m
	}
	for _, r := range role.All() {
		mem := e.mem.Memory(r)
		rv := RoleView{Tokens: mem.Tokens}
		for _, o := range mem.Outputs {
			cp := *o
			cp.Segments = append([]role.Segment(nil), o.Segments...)
			if o.Pending != nil {
				p := *o.Pending
				cp.Pending = &p
			}
			rv.Outputs = append(rv.Outputs, cp)
		}
		for _, t := range mem.Tasks {
			rv.Tasks = append(rv.Tasks, *t)
		}
		v.Roles[r] = rv
	}
	return v
}
