package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/quadflow/quadflow/internal/event"
	"github.com/quadflow/quadflow/internal/role"
)

func ev(typ event.Type, corr string) *event.Event {
	return &event.Event{
		SessionID:     "s1",
		CorrelationID: corr,
		Timestamp:     time.Now(),
		Type:          typ,
	}
}

func TestRoute_StartCreatesExactlyOneRecord(t *testing.T) {
	mem := role.NewStore()
	idx := NewCorrelationIndex()

	start := ev(event.ProcessStarted, "c1")
	start.Command = "make build"
	res := Route(start, mem, idx, role.Build)
	if !res.Created {
		t.Fatal("start event should create a record")
	}
	if idx.Len() != 1 {
		t.Fatalf("expected exactly one binding, got %d", idx.Len())
	}
	outs := mem.Memory(role.Build).Outputs
	if len(outs) != 1 {
		t.Fatalf("expected exactly one output, got %d", len(outs))
	}
	if outs[0].Command != "make build" || outs[0].Status != role.StatusRunning {
		t.Errorf("record: %+v", outs[0])
	}
	if outs[0].Kind != role.KindShell {
		t.Errorf("process output should be shell kind, got %s", outs[0].Kind)
	}

	// Follow-up events reuse the record; no new bindings, no new outputs.
	chunk := ev(event.StdoutChunk, "c1")
	chunk.Content = "compiling\n"
	res = Route(chunk, mem, idx, role.Plan)
	if res.Created {
		t.Error("bound continuation must not create a record")
	}
	if res.Role != role.Build {
		t.Errorf("continuation landed in %s", res.Role)
	}
	if idx.Len() != 1 || len(mem.Memory(role.Build).Outputs) != 1 {
		t.Error("continuation grew the index or timeline")
	}
}

func TestRoute_ChunksConcatenateInOrder(t *testing.T) {
	mem := role.NewStore()
	idx := NewCorrelationIndex()
	Route(ev(event.ProcessStarted, "c1"), mem, idx, role.Build)

	var want string
	for i := 0; i < 20; i++ {
		c := ev(event.StdoutChunk, "c1")
		c.Content = fmt.Sprintf("line %d\n", i)
		want += c.Content
		Route(c, mem, idx, role.Build)
	}
	got := mem.Memory(role.Build).Outputs[0].Content
	if got != want {
		t.Errorf("content drifted from emission order:\n got %q\nwant %q", got, want)
	}
}

func TestRoute_StderrTaggedNotTerminal(t *testing.T) {
	mem := role.NewStore()
	idx := NewCorrelationIndex()
	Route(ev(event.ProcessStarted, "c1"), mem, idx, role.Build)

	c := ev(event.StderrChunk, "c1")
	c.Content = "warning: deprecated flag\n"
	Route(c, mem, idx, role.Build)

	out := mem.Memory(role.Build).Outputs[0]
	if out.Status != role.StatusRunning {
		t.Errorf("stderr must not change status, got %s", out.Status)
	}
	if len(out.Segments) != 1 || !out.Segments[0].Stderr {
		t.Errorf("stderr content should be tagged: %+v", out.Segments)
	}
}

func TestRoute_ExitTerminatesOnce(t *testing.T) {
	mem := role.NewStore()
	idx := NewCorrelationIndex()
	Route(ev(event.ProcessStarted, "c1"), mem, idx, role.Build)

	code := 0
	exit := ev(event.ProcessExited, "c1")
	exit.ExitCode = &code
	Route(exit, mem, idx, role.Build)
	out := mem.Memory(role.Build).Outputs[0]
	if out.Status != role.StatusSuccess {
		t.Errorf("exit 0 should succeed, got %s", out.Status)
	}

	fail := 2
	exit2 := ev(event.ProcessExited, "c2")
	exit2.ExitCode = &fail
	Route(ev(event.ProcessStarted, "c2"), mem, idx, role.Build)
	Route(exit2, mem, idx, role.Build)
	out2 := mem.Memory(role.Build).Outputs[1]
	if out2.Status != role.StatusError {
		t.Errorf("non-zero exit should error, got %s", out2.Status)
	}
}

func TestRoute_UnboundContinuationFallbackAppends(t *testing.T) {
	mem := role.NewStore()
	idx := NewCorrelationIndex()

	c := ev(event.StdoutChunk, "orphan")
	c.Content = "late output\n"
	res := Route(c, mem, idx, role.Review)
	if !res.Created {
		t.Fatal("unbound continuation must fall back to a new record, never drop")
	}
	out := mem.Memory(role.Review).Outputs
	if len(out) != 1 || out[0].Content != "late output\n" {
		t.Errorf("fallback record: %+v", out)
	}
	// The fallback binds, so later chunks join the same record.
	c2 := ev(event.StdoutChunk, "orphan")
	c2.Content = "more\n"
	Route(c2, mem, idx, role.Review)
	if len(mem.Memory(role.Review).Outputs) != 1 {
		t.Error("second orphan chunk should reuse the fallback record")
	}
	if got := mem.Memory(role.Review).Outputs[0].Content; got != "late output\nmore\n" {
		t.Errorf("content: %q", got)
	}
}

func TestRoute_ChatCompletedReplacesDeltas(t *testing.T) {
	mem := role.NewStore()
	idx := NewCorrelationIndex()
	Route(ev(event.ModelChatStarted, "c1"), mem, idx, role.Plan)

	d := ev(event.ModelChatDelta, "c1")
	d.Delta = "partial answ"
	Route(d, mem, idx, role.Plan)

	done := ev(event.ModelChatCompleted, "c1")
	done.Message = "full answer"
	done.Tokens = &event.TokenCounts{Input: 100, Output: 40}
	Route(done, mem, idx, role.Plan)

	out := mem.Memory(role.Plan).Outputs[0]
	if out.Kind != role.KindAgent {
		t.Errorf("chat output should be agent kind, got %s", out.Kind)
	}
	if out.Status != role.StatusSuccess || out.Content != "full answer" {
		t.Errorf("completion should replace content: %+v", out)
	}
	tok := mem.Memory(role.Plan).Tokens
	if tok.Input != 100 || tok.Output != 40 || tok.Total != 140 {
		t.Errorf("token counters: %+v", tok)
	}
}

func TestRoute_PermissionAwaiting(t *testing.T) {
	mem := role.NewStore()
	idx := NewCorrelationIndex()
	Route(ev(event.ProcessStarted, "c1"), mem, idx, role.Build)

	p := ev(event.PermissionRequested, "c1")
	p.RequestID = "req-1"
	p.Command = "rm -rf build/"
	p.RiskLevel = "high"
	Route(p, mem, idx, role.Build)

	out := mem.Memory(role.Build).Outputs[0]
	if out.Status != role.StatusAwaiting {
		t.Errorf("awaiting is a non-terminal marker, got %s", out.Status)
	}
	if out.Pending == nil || out.Pending.RequestID != "req-1" || out.Pending.RiskLevel != "high" {
		t.Errorf("pending action: %+v", out.Pending)
	}
}

func TestRoute_WorkflowErrorNeverDropped(t *testing.T) {
	mem := role.NewStore()
	idx := NewCorrelationIndex()

	// Unbound: creates a new error record in the fallback role.
	we := ev(event.WorkflowError, "ghost")
	we.Error = "runtime exploded"
	Route(we, mem, idx, role.Deploy)
	outs := mem.Memory(role.Deploy).Outputs
	if len(outs) != 1 || outs[0].Status != role.StatusError {
		t.Fatalf("unbound workflow error should create an error record: %+v", outs)
	}

	// Bound: annotates the existing record.
	Route(ev(event.ProcessStarted, "c1"), mem, idx, role.Build)
	we2 := ev(event.WorkflowError, "c1")
	we2.Error = "step failed"
	Route(we2, mem, idx, role.Build)
	out := mem.Memory(role.Build).Outputs[0]
	if out.Status != role.StatusError {
		t.Errorf("bound workflow error should mark the record: %s", out.Status)
	}
	if len(out.Segments) == 0 || !out.Segments[len(out.Segments)-1].Stderr {
		t.Error("error annotation should be tagged")
	}
}

func TestRoute_UnknownTypeIgnored(t *testing.T) {
	mem := role.NewStore()
	idx := NewCorrelationIndex()
	res := Route(ev(event.Type("quantum_flux"), "c1"), mem, idx, role.Plan)
	if !res.Ignored {
		t.Error("unknown types are skipped for forward compatibility")
	}
	if idx.Len() != 0 || len(mem.Memory(role.Plan).Outputs) != 0 {
		t.Error("ignored event must not mutate state")
	}
}

func TestRoute_RoleIsolation(t *testing.T) {
	mem := role.NewStore()
	idx := NewCorrelationIndex()
	Route(ev(event.ProcessStarted, "c1"), mem, idx, role.Plan)
	Route(ev(event.ModelChatStarted, "c2"), mem, idx, role.Build)

	c := ev(event.StdoutChunk, "c1")
	c.Content = "plan output"
	Route(c, mem, idx, role.Deploy) // fallback role must be irrelevant: c1 is bound

	if len(mem.Memory(role.Plan).Outputs) != 1 {
		t.Error("plan timeline wrong")
	}
	if len(mem.Memory(role.Deploy).Outputs) != 0 {
		t.Error("bound events must not leak into the fallback role")
	}
	if mem.Memory(role.Build).Outputs[0].Content != "" {
		t.Error("sibling role memory mutated")
	}
}
