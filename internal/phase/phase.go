// Package phase implements the hierarchical pipeline state machine. States
// are a flat enumeration of phase.substate leaves with a static transition
// table; the machine only moves along defined edges and is driven purely by
// UI commands, never by runtime events.
package phase

// State is one leaf of the hierarchical state space.
type State string

// Leaf states.
const (
	Idle State = "idle"

	PlanAnalyzing     State = "plan.analyzing"
	PlanDrafting      State = "plan.drafting"
	PlanReviewingPlan State = "plan.reviewing_plan"
	PlanApproved      State = "plan.approved"

	BuildScaffolding State = "build.scaffolding"
	BuildCodegen     State = "build.codegen"
	BuildVerifying   State = "build.verifying"
	BuildComplete    State = "build.complete"
	BuildFailure     State = "build.failure"

	ReviewLocked   State = "review.locked"
	ReviewUnlocked State = "review.unlocked"

	Deploy State = "deploy"

	SecurityLockdown State = "security_lockdown"
)

// Valid reports whether s is a known leaf state.
func (s State) Valid() bool {
	_, ok := advance[s]
	if ok || s == Idle || s == Deploy || s == SecurityLockdown ||
		s == PlanApproved || s == BuildComplete || s == BuildFailure ||
		s == ReviewLocked || s == ReviewUnlocked {
		return true
	}
	return false
}

// Parse converts a string to a State.
func Parse(s string) (State, bool) {
	st := State(s)
	if st.Valid() {
		return st, true
	}
	return "", false
}

// CommandKind identifies a state machine command.
type CommandKind string

// Commands.
const (
	Advance           CommandKind = "ADVANCE"
	SetPhase          CommandKind = "SET_PHASE"
	UnlockGate        CommandKind = "UNLOCK_GATE"
	Retry             CommandKind = "RETRY"
	SecurityViolation CommandKind = "SECURITY_VIOLATION"
	Reset             CommandKind = "RESET"
)

// Command is one instruction to the machine. Target names a phase for
// SET_PHASE; Policy records the violated policy for SECURITY_VIOLATION.
type Command struct {
	Kind   CommandKind
	Target string
	Policy string
}
