package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quadflow/quadflow/internal/event"
	"github.com/quadflow/quadflow/internal/logging"
	"github.com/quadflow/quadflow/internal/phase"
	"github.com/quadflow/quadflow/internal/policy"
	"github.com/quadflow/quadflow/internal/role"
	"github.com/quadflow/quadflow/internal/snapshot"
	"github.com/quadflow/quadflow/internal/store"
	"github.com/quadflow/quadflow/internal/tasks"
)

// IntentPublisher sends intents to the execution runtime.
type IntentPublisher interface {
	PublishIntent(in *event.Intent) error
}

// Options configures an Engine.
type Options struct {
	RunID     string
	Logger    *logging.Logger
	Store     *store.Store     // optional; nil disables persistence
	Publisher IntentPublisher  // optional; nil engines run detached (tests, replay)
	Policy    *policy.Policy   // optional; nil uses the permissive default
	Models    map[role.Role]string
	Debounce  time.Duration
}

// Engine owns role memory, the correlation index and the phase machine.
// Events are applied one at a time under one lock: each application is
// atomic and fully ordered from the engine's point of view, while delivery
// stays asynchronous.
type Engine struct {
	mu sync.Mutex

	runID        string
	sessionID    string
	sessionStart time.Time

	mem     *role.Store
	idx     *CorrelationIndex
	machine *phase.Machine
	models  map[role.Role]string
	active  role.Role

	// Role captured when an intent is dispatched, so results land in the
	// role that issued them even after a role switch mid-flight.
	dispatchRole map[string]role.Role

	handoff       string
	phaseComplete bool

	// Set while Resume replays recorded history: replayed events mutate
	// state but are never re-recorded or re-snapshotted.
	replaying bool

	log       *logging.Logger
	runStore  *store.Store
	publisher IntentPublisher
	perms     *policy.Policy
	persist   *persister

	events chan *event.Event
}

// New creates an engine with empty role memory in the idle phase.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	perms := opts.Policy
	if perms == nil {
		perms = policy.Default()
	}
	models := make(map[role.Role]string, len(opts.Models))
	for r, m := range opts.Models {
		models[r] = m
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Engine{
		runID:        opts.RunID,
		mem:          role.NewStore(),
		idx:          NewCorrelationIndex(),
		machine:      phase.NewMachine(),
		models:       models,
		active:       role.Plan,
		dispatchRole: make(map[string]role.Role),
		log:          log.With("run_id", opts.RunID),
		runStore:     opts.Store,
		publisher:    opts.Publisher,
		perms:        perms,
		persist:      newPersister(opts.Store, log, debounce),
		events:       make(chan *event.Event, 256),
	}
}

// RunID returns the engine's run identifier.
func (e *Engine) RunID() string { return e.runID }

// StartSession begins a fresh session epoch. Role memory is replaced
// wholesale, the correlation index and phase machine reset, and events from
// earlier epochs will be discarded.
func (e *Engine) StartSession(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionID = sessionID
	e.sessionStart = time.Now()
	e.mem.Reset()
	e.idx.Reset()
	e.machine.Apply(phase.Command{Kind: phase.Reset})
	e.dispatchRole = make(map[string]role.Role)
	e.handoff = ""
	e.phaseComplete = false
	e.log.Info("session started", "session_id", sessionID)
}

// SessionID returns the active session identifier.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// Start launches the reducer loop. Submitted events are applied to
// completion, one at a time, until ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				e.persist.stop()
				return
			case ev := <-e.events:
				e.HandleEvent(ctx, ev)
			}
		}
	}()
}

// Submit queues an event for the reducer loop.
func (e *Engine) Submit(ev *event.Event) {
	e.events <- ev
}

// HandleEvent applies one runtime event synchronously. Stale events (wrong
// session or pre-session timestamp) are discarded before routing; this is
// expected during session switches, not an error.
func (e *Engine) HandleEvent(ctx context.Context, ev *event.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ev.SessionID != e.sessionID || ev.Timestamp.Before(e.sessionStart) {
		e.log.Debug("stale event discarded",
			"type", string(ev.Type), "session_id", ev.SessionID)
		return
	}

	if ev.Type == event.SystemReady {
		e.log.Info("runtime ready", "run_id", ev.RunID)
		if !e.replaying {
			e.recordEvent(ev)
		}
		return
	}

	_, span := startEventSpan(ctx, ev)
	res := Route(ev, e.mem, e.idx, e.fallbackRole(ev.CorrelationID))
	endEventSpan(span, res)

	if res.Ignored {
		e.log.Warn("unknown event type skipped", "type", string(ev.Type))
		return
	}

	switch ev.Type {
	case event.ModelChatCompleted:
		e.reconcileTasks(res.Role, ev.Message)
	case event.SecurityViolation:
		// The one runtime event that forces the phase machine: global
		// lockdown until a human acknowledges with RETRY.
		e.machine.Apply(phase.Command{Kind: phase.SecurityViolation, Policy: ev.Policy})
		e.log.Error("security lockdown", "policy", ev.Policy, "path", ev.AttemptedPath)
	case event.PermissionRequested:
		e.fillRisk(res)
	}

	if e.replaying {
		return
	}
	e.recordEvent(ev)
	e.requestSnapshot()
}

// fallbackRole returns the role captured when the correlation ID was
// dispatched, or the currently active role for externally originated work.
func (e *Engine) fallbackRole(correlationID string) role.Role {
	if r, ok := e.dispatchRole[correlationID]; ok {
		return r
	}
	return e.active
}

// fillRisk assigns a policy risk level to a pending action the runtime
// left unrated.
func (e *Engine) fillRisk(res RouteResult) {
	out := e.mem.Memory(res.Role).Output(res.OutputID)
	if out == nil || out.Pending == nil || out.Pending.RiskLevel != "" {
		return
	}
	out.Pending.RiskLevel = e.perms.RiskFor(out.Pending.Command)
}

// reconcileTasks folds task markers from a completed model answer into the
// role's task list.
func (e *Engine) reconcileTasks(r role.Role, message string) {
	if message == "" {
		return
	}
	parsed := tasks.Parse(message, e.phaseName())
	if len(parsed.Tasks) == 0 && !parsed.PhaseComplete {
		return
	}
	mem := e.mem.Memory(r)
	mem.Tasks = tasks.Reconcile(mem.Tasks, parsed.Tasks)
	if parsed.PhaseComplete {
		e.phaseComplete = true
		e.handoff = parsed.Handoff
		e.log.Info("phase completion signalled", "role", string(r), "handoff", parsed.Handoff)
	}
}

// phaseName returns the phase component of the current state.
func (e *Engine) phaseName() string {
	name, _, _ := strings.Cut(string(e.machine.State()), ".")
	return name
}

// Apply executes a phase command. Undefined edges are no-ops. RESET also
// clears the correlation index and every derived identifier.
func (e *Engine) Apply(ctx context.Context, cmd phase.Command) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, span := startCommandSpan(ctx, cmd, e.machine.State())
	moved := e.machine.Apply(cmd)
	endCommandSpan(span, e.machine.State(), moved)

	if moved {
		if cmd.Kind == phase.Reset {
			e.idx.Reset()
			e.dispatchRole = make(map[string]role.Role)
		}
		if cmd.Kind == phase.Advance || cmd.Kind == phase.SetPhase || cmd.Kind == phase.Retry {
			e.phaseComplete = false
			e.handoff = ""
		}
		e.requestSnapshot()
	}
	return moved
}

// Phase returns the current phase state.
func (e *Engine) Phase() phase.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.State()
}

// SetActiveRole switches the role new work is attributed to. In-flight
// correlations keep the role they were dispatched under.
func (e *Engine) SetActiveRole(r role.Role) {
	if !r.Valid() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = r
}

// ActiveRole returns the currently active role.
func (e *Engine) ActiveRole() role.Role {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// SetModels replaces the per-role model selection. Called on config reload;
// only the selection changes, never in-flight state.
func (e *Engine) SetModels(models map[role.Role]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.models = make(map[role.Role]string, len(models))
	for r, m := range models {
		e.models[r] = m
	}
	e.requestSnapshot()
}

// DispatchExec sends a shell command intent and returns the correlation ID
// its events will carry. The active role is captured now, at dispatch time.
func (e *Engine) DispatchExec(command string) (string, error) {
	return e.dispatch(&event.Intent{Type: event.ExecCmd, Command: command})
}

// DispatchChat sends a model chat intent for the active role.
func (e *Engine) DispatchChat(messages []event.ChatMessage) (string, error) {
	e.mu.Lock()
	model := e.models[e.active]
	e.mu.Unlock()
	return e.dispatch(&event.Intent{Type: event.ModelChat, Messages: messages, Model: model})
}

// Grant approves a pending permission request: the record resumes running
// and the runtime is told to proceed.
func (e *Engine) Grant(requestID string) error {
	return e.decide(requestID, true)
}

// Deny rejects a pending permission request: the record fails with an
// annotation and the runtime is told to abort.
func (e *Engine) Deny(requestID string) error {
	return e.decide(requestID, false)
}

func (e *Engine) decide(requestID string, grant bool) error {
	e.mu.Lock()
	out := e.findPending(requestID)
	if out == nil {
		e.mu.Unlock()
		return fmt.Errorf("no pending permission request %q", requestID)
	}
	if grant {
		out.Status = role.StatusRunning
	} else {
		out.Status = role.StatusError
		out.Append("\npermission denied", true)
	}
	out.Pending = nil
	e.requestSnapshot()
	e.mu.Unlock()

	typ := event.GrantPermission
	if !grant {
		typ = event.DenyPermission
	}
	_, err := e.dispatch(&event.Intent{Type: typ, RequestID: requestID})
	return err
}

// findPending locates the output record holding a permission request.
func (e *Engine) findPending(requestID string) *role.OutputItem {
	for _, r := range role.All() {
		for _, out := range e.mem.Memory(r).Outputs {
			if out.Pending != nil && out.Pending.RequestID == requestID {
				return out
			}
		}
	}
	return nil
}

// DispatchReset tells the runtime to reset and starts a fresh session.
func (e *Engine) DispatchReset() error {
	if _, err := e.dispatch(&event.Intent{Type: event.Reset}); err != nil {
		return err
	}
	e.StartSession(uuid.NewString())
	return nil
}

// dispatch publishes an intent, stamping the session context and capturing
// the role it was issued under.
func (e *Engine) dispatch(in *event.Intent) (string, error) {
	e.mu.Lock()
	in.SessionID = e.sessionID
	in.CorrelationID = uuid.NewString()
	in.Timestamp = time.Now()
	e.dispatchRole[in.CorrelationID] = e.active
	pub := e.publisher
	e.mu.Unlock()

	if pub == nil {
		return in.CorrelationID, nil
	}
	if err := pub.PublishIntent(in); err != nil {
		return "", fmt.Errorf("publish intent: %w", err)
	}
	return in.CorrelationID, nil
}

// recordEvent appends the event to the run's durable history. Best-effort:
// a failed write is logged and never blocks the event path.
func (e *Engine) recordEvent(ev *event.Event) {
	if e.runStore == nil {
		return
	}
	data, err := event.Encode(ev)
	if err != nil {
		e.log.Warn("event encode failed", "error", err)
		return
	}
	if err := e.runStore.RecordEvent(e.runID, data); err != nil {
		e.log.Warn("event record failed", "error", err)
	}
}

// requestSnapshot schedules a debounced snapshot write. Caller holds e.mu.
func (e *Engine) requestSnapshot() {
	e.persist.request(func() (string, string, []byte, bool) {
		e.mu.Lock()
		defer e.mu.Unlock()
		payload, err := snapshot.Encode(e.runID, e.machine.State(), e.mem, e.models)
		if err != nil {
			e.log.Warn("snapshot encode failed", "error", err)
			return "", "", nil, false
		}
		return e.runID, runStatus(e.machine.State()), payload, true
	})
}

// runStatus summarizes a phase state for the run listing.
func runStatus(s phase.State) string {
	switch s {
	case phase.Idle:
		return "idle"
	case phase.Deploy:
		return "deployed"
	case phase.SecurityLockdown:
		return "locked_down"
	case phase.BuildFailure:
		return "failed"
	default:
		return "running"
	}
}

// Snapshot encodes the engine's current state.
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot.Encode(e.runID, e.machine.State(), e.mem, e.models)
}

// Restore replaces engine state wholesale from a decoded snapshot.
func (e *Engine) Restore(st *snapshot.State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runID = st.RunID
	e.machine.Restore(st.Phase)
	e.mem = st.Memory
	e.models = st.Models
	e.idx.Reset()
	e.dispatchRole = make(map[string]role.Role)
}

// Resume restores the latest snapshot for the run, then replays recent
// history through the router to catch up. A missing or undecodable
// snapshot means starting fresh, never partial recovery.
func (e *Engine) Resume(ctx context.Context) error {
	if e.runStore == nil {
		return nil
	}
	raw, takenAt, err := e.runStore.LoadLatestSnapshot(e.runID)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if raw == nil {
		return nil
	}
	st := snapshot.Decode(raw)
	if st == nil {
		e.log.Warn("snapshot undecodable, starting fresh", "run_id", e.runID)
		return nil
	}
	e.Restore(st)

	// Only events the snapshot missed; replaying covered events would
	// duplicate their effects.
	payloads, err := e.runStore.EventsSince(e.runID, takenAt)
	if err != nil {
		return fmt.Errorf("events since snapshot: %w", err)
	}
	var history []*event.Event
	for _, p := range payloads {
		ev, err := event.Decode(p)
		if err != nil {
			e.log.Debug("skipping undecodable historical event", "error", err)
			continue
		}
		history = append(history, ev)
	}
	if len(history) == 0 {
		return nil
	}

	// Adopt the epoch of the recorded stream so replay passes the stale
	// guard, then apply everything from that session in order. The
	// replaying flag keeps already-recorded events out of the durable
	// history a second time.
	last := history[len(history)-1]
	e.mu.Lock()
	e.sessionID = last.SessionID
	e.sessionStart = time.Time{}
	e.replaying = true
	e.mu.Unlock()
	for _, ev := range history {
		e.HandleEvent(ctx, ev)
	}
	e.mu.Lock()
	e.replaying = false
	e.mu.Unlock()
	return nil
}
