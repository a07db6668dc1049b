package phase

// advance is the linear progression table: next substate within the current
// phase, or the next phase's initial substate from a terminal substate.
// States absent from the table do not advance: deploy is terminal,
// review.locked requires UNLOCK_GATE, build.failure requires RETRY, and
// security_lockdown requires RETRY.
var advance = map[State]State{
	Idle:              PlanAnalyzing,
	PlanAnalyzing:     PlanDrafting,
	PlanDrafting:      PlanReviewingPlan,
	PlanReviewingPlan: PlanApproved,
	PlanApproved:      BuildScaffolding,
	BuildScaffolding:  BuildCodegen,
	BuildCodegen:      BuildVerifying,
	BuildVerifying:    BuildComplete,
	BuildComplete:     ReviewLocked,
	ReviewUnlocked:    Deploy,
}

// initial maps a phase name to the substate a SET_PHASE jump lands on.
var initial = map[string]State{
	"plan":   PlanAnalyzing,
	"build":  BuildScaffolding,
	"review": ReviewLocked,
	"deploy": Deploy,
}

// Next returns the state reached by applying cmd in state s. ok is false
// when no edge is defined, in which case the machine must not move.
func Next(s State, cmd Command) (State, bool) {
	// Lockdown halts normal progression: only an explicit acknowledgment
	// (RETRY) or a full RESET leaves it.
	if s == SecurityLockdown && cmd.Kind != Retry && cmd.Kind != Reset &&
		cmd.Kind != SecurityViolation {
		return "", false
	}
	switch cmd.Kind {
	case Advance:
		next, ok := advance[s]
		return next, ok
	case SetPhase:
		next, ok := initial[cmd.Target]
		return next, ok
	case UnlockGate:
		if s == ReviewLocked {
			return ReviewUnlocked, true
		}
		return "", false
	case Retry:
		switch s {
		case BuildFailure:
			return BuildScaffolding, true
		case SecurityLockdown:
			return PlanAnalyzing, true
		}
		return "", false
	case SecurityViolation:
		// Global pre-emption: reachable from any state.
		return SecurityLockdown, true
	case Reset:
		return Idle, true
	}
	return "", false
}

// Machine tracks the current state and, while locked down, the policy that
// triggered the lockdown.
type Machine struct {
	state  State
	policy string
}

// NewMachine creates a machine in the idle state.
func NewMachine() *Machine {
	return &Machine{state: Idle}
}

// State returns the current leaf state.
func (m *Machine) State() State {
	return m.state
}

// LockdownPolicy returns the policy recorded by the last security
// violation, or "" when not locked down.
func (m *Machine) LockdownPolicy() string {
	if m.state != SecurityLockdown {
		return ""
	}
	return m.policy
}

// Apply executes a command. Undefined edges are no-ops, not errors; the
// return value reports whether the machine moved.
func (m *Machine) Apply(cmd Command) bool {
	next, ok := Next(m.state, cmd)
	if !ok {
		return false
	}
	m.state = next
	switch cmd.Kind {
	case SecurityViolation:
		m.policy = cmd.Policy
	case Retry, Reset:
		m.policy = ""
	}
	return true
}

// Restore forces the machine into a previously snapshotted state.
func (m *Machine) Restore(s State) {
	if s.Valid() {
		m.state = s
	}
}
