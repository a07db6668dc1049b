package replay

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/quadflow/quadflow/internal/event"
)

func payload(t *testing.T, ev *event.Event) []byte {
	t.Helper()
	ev.SessionID = "s1"
	if ev.CorrelationID == "" {
		ev.CorrelationID = "corr-1234-abcd"
	}
	ev.Timestamp = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	data, err := event.Encode(ev)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestReplay_RendersStream(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, 0)

	code := 0
	payloads := [][]byte{
		payload(t, &event.Event{Type: event.ProcessStarted, Command: "make test"}),
		payload(t, &event.Event{Type: event.StdoutChunk, Content: "ok\n"}),
		payload(t, &event.Event{Type: event.ProcessExited, ExitCode: &code}),
		payload(t, &event.Event{Type: event.ModelChatStarted}),
		payload(t, &event.Event{
			Type:    event.ModelChatCompleted,
			Message: "done",
			Tokens:  &event.TokenCounts{Input: 50, Output: 20},
		}),
	}
	if err := r.Replay("run-1", payloads); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"run-1", "$ make test", "exit 0", "done",
		"5 events, 1 processes, 1 chats, 0 errors, 0 violations", "50 in / 20 out"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	// Chunk bodies only show in verbose mode.
	if strings.Contains(out, "    ok") {
		t.Error("stdout body rendered without -v")
	}
}

func TestReplay_VerboseShowsChunks(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, 1)
	payloads := [][]byte{
		payload(t, &event.Event{Type: event.StdoutChunk, Content: "compiling widgets\n"}),
	}
	if err := r.Replay("run-1", payloads); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "compiling widgets") {
		t.Errorf("verbose replay should include chunk content:\n%s", buf.String())
	}
}

func TestReplay_UndecodablePlaceholder(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, 0)
	if err := r.Replay("run-1", [][]byte{[]byte("garbage")}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "undecodable") {
		t.Errorf("bad payloads should render as placeholders:\n%s", buf.String())
	}
}

func TestStats_CountsErrorsAndViolations(t *testing.T) {
	var s Stats
	for _, ev := range []*event.Event{
		{Type: event.WorkflowError},
		{Type: event.ModelChatFailed},
		{Type: event.SecurityViolation},
	} {
		s.observe(ev)
	}
	if s.Events != 3 || s.Errors != 2 || s.Violations != 1 {
		t.Errorf("stats: %+v", s)
	}
}
