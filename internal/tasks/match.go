package tasks

import "github.com/quadflow/quadflow/internal/role"

// DefaultThreshold is the minimum similarity for a fuzzy match. High on
// purpose: a wrong match silently corrupts a task's history, a missed match
// only creates a duplicate entry.
const DefaultThreshold = 0.95

// Match finds the existing task most similar to candidate text. It returns
// the best match and its confidence, or ok=false when nothing meets the
// threshold. Exact matches after normalization short-circuit at 1.0.
func Match(candidate string, existing []*role.TaskItem, threshold float64) (best *role.TaskItem, confidence float64, ok bool) {
	norm := Normalize(candidate)
	if norm == "" {
		return nil, 0, false
	}
	for _, t := range existing {
		if Normalize(t.Text) == norm {
			return t, 1.0, true
		}
	}
	for _, t := range existing {
		if s := Similarity(norm, Normalize(t.Text)); s > confidence {
			best, confidence = t, s
		}
	}
	if best == nil || confidence < threshold {
		return nil, 0, false
	}
	return best, confidence, true
}

// Similarity scores two normalized strings in [0,1] using Levenshtein
// distance scaled by the longer length.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Reconcile merges freshly parsed tasks into an existing task list with
// upsert semantics: identical or sufficiently similar tasks are updated in
// place, everything else is appended to a new slice.
func Reconcile(existing []*role.TaskItem, parsed []*role.TaskItem) []*role.TaskItem {
	out := make([]*role.TaskItem, len(existing))
	copy(out, existing)
	for _, p := range parsed {
		if t := findByID(out, p.ID); t != nil {
			t.Status = p.Status
			continue
		}
		if t, _, ok := Match(p.Text, out, DefaultThreshold); ok {
			t.Status = p.Status
			continue
		}
		out = append(out, &role.TaskItem{ID: p.ID, Text: p.Text, Status: p.Status, Phase: p.Phase})
	}
	return out
}

func findByID(tasks []*role.TaskItem, id string) *role.TaskItem {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
