// Package snapshot serializes and restores the durable per-run state: the
// current phase, every role's memory and the per-role model selection. The
// decoder is strict: any structural mismatch yields nil rather than a
// partially hydrated state, so callers either restore everything or start
// fresh.
package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/quadflow/quadflow/internal/phase"
	"github.com/quadflow/quadflow/internal/role"
)

// Version is the current snapshot document version. A mismatch is a decode
// failure, not a migration opportunity.
const Version = 1

// Document is the on-disk snapshot shape.
type Document struct {
	Version        int                     `json:"version"`
	RunID          string                  `json:"run_id"`
	CurrentPhase   string                  `json:"current_phase"`
	RoleMemory     map[string]*role.Memory `json:"role_memory"`
	SelectedModels map[string]string       `json:"selected_models"`
}

// State is a fully validated, decoded snapshot.
type State struct {
	RunID  string
	Phase  phase.State
	Memory *role.Store
	Models map[role.Role]string
}

// Encode builds a versioned snapshot document from live state.
func Encode(runID string, ph phase.State, store *role.Store, models map[role.Role]string) ([]byte, error) {
	doc := Document{
		Version:        Version,
		RunID:          runID,
		CurrentPhase:   string(ph),
		RoleMemory:     make(map[string]*role.Memory, len(role.All())),
		SelectedModels: make(map[string]string, len(models)),
	}
	for _, r := range role.All() {
		doc.RoleMemory[string(r)] = store.Memory(r)
	}
	for r, m := range models {
		doc.SelectedModels[string(r)] = m
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode validates and restores a snapshot document. It returns nil on any
// structural mismatch; callers must treat nil as "start fresh".
func Decode(raw []byte) *State {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	if doc.Version != Version || doc.RunID == "" {
		return nil
	}
	ph, ok := phase.Parse(doc.CurrentPhase)
	if !ok {
		return nil
	}
	store := role.NewStore()
	for name, mem := range doc.RoleMemory {
		r, ok := role.Parse(name)
		if !ok || mem == nil {
			return nil
		}
		if !validMemory(mem, r) {
			return nil
		}
		store.Replace(r, mem)
	}
	models := make(map[role.Role]string, len(doc.SelectedModels))
	for name, m := range doc.SelectedModels {
		r, ok := role.Parse(name)
		if !ok {
			return nil
		}
		models[r] = m
	}
	return &State{RunID: doc.RunID, Phase: ph, Memory: store, Models: models}
}

// validMemory type-checks every record in one role's memory.
func validMemory(m *role.Memory, r role.Role) bool {
	for _, o := range m.Outputs {
		if o == nil || o.ID == "" || o.Role != r {
			return false
		}
		if o.Kind != role.KindShell && o.Kind != role.KindAgent {
			return false
		}
		if !o.Status.Valid() {
			return false
		}
	}
	for _, t := range m.Tasks {
		if t == nil || t.ID == "" || t.Text == "" || !t.Status.Valid() {
			return false
		}
	}
	return true
}
