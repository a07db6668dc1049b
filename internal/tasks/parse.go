package tasks

import (
	"regexp"
	"strings"

	"github.com/quadflow/quadflow/internal/role"
)

// marker matches bullet or numbered list items carrying a bracket marker,
// e.g. "- [ ] set up project" or "2) [x] write tests".
var marker = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s*\[([^\]])\]\s*(.+?)\s*$`)

// handoffPhrases signal that the current phase considers itself done,
// independent of individual task markers.
var handoffPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bhanding\s+off\s+to\s+(\w+)`),
	regexp.MustCompile(`(?i)\bready\s+for\s+(\w+)`),
	regexp.MustCompile(`(?i)\ball\s+tasks\s+(?:are\s+)?complete`),
}

// Result is the outcome of parsing one block of generated text.
type Result struct {
	Tasks         []*role.TaskItem
	PhaseComplete bool
	Handoff       string // target named by a handoff phrase, if any
}

// Parse scans text for task markers and handoff phrases. Unrecognized
// markers default to pending rather than being dropped.
func Parse(text, phase string) Result {
	var res Result
	for _, line := range strings.Split(text, "\n") {
		m := marker.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		res.Tasks = append(res.Tasks, &role.TaskItem{
			ID:     ID(m[2]),
			Text:   m[2],
			Status: statusFor(m[1]),
			Phase:  phase,
		})
	}
	for _, re := range handoffPhrases {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		res.PhaseComplete = true
		if len(m) > 1 {
			res.Handoff = m[1]
		}
		break
	}
	return res
}

func statusFor(mark string) role.TaskStatus {
	switch mark {
	case ">":
		return role.TaskActive
	case "x", "X":
		return role.TaskComplete
	case "~":
		return role.TaskSkipped
	default:
		return role.TaskPending
	}
}
