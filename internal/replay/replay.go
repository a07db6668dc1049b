package replay

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/quadflow/quadflow/internal/event"
)

// Replayer formats recorded run events for analysis.
type Replayer struct {
	output    io.Writer
	verbosity int // 0=normal, 1=verbose (-v)
	width     int
}

// New creates a Replayer writing to output.
func New(output io.Writer, verbosity int) *Replayer {
	return &Replayer{output: output, verbosity: verbosity, width: 100}
}

// Replay decodes and renders raw event payloads in recorded order.
// Undecodable payloads are rendered as placeholders rather than aborting.
func (r *Replayer) Replay(runID string, payloads [][]byte) error {
	fmt.Fprintln(r.output, titleStyle.Render("Run "+runID))
	fmt.Fprintln(r.output, divider)

	var stats Stats
	for i, p := range payloads {
		ev, err := event.Decode(p)
		if err != nil {
			fmt.Fprintf(r.output, "%s\n", dimStyle.Render(fmt.Sprintf("#%d <undecodable: %v>", i+1, err)))
			continue
		}
		stats.observe(ev)
		r.renderEvent(i+1, ev)
	}

	fmt.Fprintln(r.output, divider)
	r.renderStats(stats)
	return nil
}

func (r *Replayer) renderEvent(seq int, ev *event.Event) {
	ts := dimStyle.Render(ev.Timestamp.Format("15:04:05.000"))
	corr := dimStyle.Render(shortID(ev.CorrelationID))
	head := fmt.Sprintf("%s %s %s", ts, corr, r.label(ev))
	fmt.Fprintln(r.output, head)
	if body := r.body(ev); body != "" {
		fmt.Fprintln(r.output, indent(wordwrap.String(body, r.width-4)))
	}
}

// label picks the styled one-line description of an event.
func (r *Replayer) label(ev *event.Event) string {
	switch ev.Type {
	case event.ProcessStarted:
		return shellStyle.Render("$ " + ev.Command)
	case event.ProcessExited:
		code := 0
		if ev.ExitCode != nil {
			code = *ev.ExitCode
		}
		if code == 0 {
			return successStyle.Render("exit 0")
		}
		return errorStyle.Render(fmt.Sprintf("exit %d", code))
	case event.StdoutChunk:
		return shellStyle.Render("stdout")
	case event.StderrChunk:
		return errorStyle.Render("stderr")
	case event.ModelChatStarted:
		return chatStyle.Render("chat started")
	case event.ModelChatDelta:
		return chatStyle.Render("chat delta")
	case event.ModelChatCompleted:
		return successStyle.Render("chat completed")
	case event.ModelChatFailed:
		return errorStyle.Render("chat failed")
	case event.PermissionRequested:
		return permStyle.Render(fmt.Sprintf("permission requested [%s] %s", ev.RiskLevel, ev.Command))
	case event.WorkflowError:
		return errorStyle.Render("workflow error (" + ev.Severity + ")")
	case event.SecurityViolation:
		return securityStyle.Render("SECURITY VIOLATION: " + ev.Policy)
	case event.SystemReady:
		return dimStyle.Render("system ready")
	default:
		return dimStyle.Render(string(ev.Type))
	}
}

// body returns the content shown under the label, if verbosity allows.
func (r *Replayer) body(ev *event.Event) string {
	switch ev.Type {
	case event.StdoutChunk, event.StderrChunk:
		if r.verbosity > 0 {
			return strings.TrimRight(ev.Content, "\n")
		}
	case event.ModelChatDelta:
		if r.verbosity > 0 {
			return strings.TrimRight(ev.Delta, "\n")
		}
	case event.ModelChatCompleted:
		return strings.TrimRight(ev.Message, "\n")
	case event.ModelChatFailed, event.WorkflowError:
		return ev.Error
	case event.SecurityViolation:
		return ev.AttemptedPath
	}
	return ""
}

// Stats aggregates a replayed stream.
type Stats struct {
	Events     int
	Processes  int
	Chats      int
	Errors     int
	Violations int
	TokensIn   int
	TokensOut  int
}

func (s *Stats) observe(ev *event.Event) {
	s.Events++
	switch ev.Type {
	case event.ProcessStarted:
		s.Processes++
	case event.ModelChatStarted:
		s.Chats++
	case event.WorkflowError, event.ModelChatFailed:
		s.Errors++
	case event.SecurityViolation:
		s.Violations++
	case event.ModelChatCompleted:
		if ev.Tokens != nil {
			s.TokensIn += ev.Tokens.Input
			s.TokensOut += ev.Tokens.Output
		}
	}
}

func (r *Replayer) renderStats(s Stats) {
	fmt.Fprintf(r.output, "%s %d events, %d processes, %d chats, %d errors, %d violations\n",
		dimStyle.Render("total:"), s.Events, s.Processes, s.Chats, s.Errors, s.Violations)
	if s.TokensIn+s.TokensOut > 0 {
		fmt.Fprintf(r.output, "%s %d in / %d out\n", dimStyle.Render("tokens:"), s.TokensIn, s.TokensOut)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}
