package role

import "time"

// PendingAction is a permission request attached to an output record,
// waiting for a grant/deny decision.
type PendingAction struct {
	RequestID string `json:"request_id"`
	Command   string `json:"command"`
	RiskLevel string `json:"risk_level"`
}

// Segment is a run of output content. Stderr segments are tagged so error
// content can be rendered distinctly without changing the record's status.
type Segment struct {
	Text   string `json:"text"`
	Stderr bool   `json:"stderr,omitempty"`
}

// OutputItem is one record in a role's output timeline. While the record is
// running its content only grows; a completion event moves it to a terminal
// status exactly once.
type OutputItem struct {
	ID        string         `json:"id"`
	Kind      OutputKind     `json:"kind"`
	Command   string         `json:"command,omitempty"`
	Content   string         `json:"content"`
	Segments  []Segment      `json:"segments,omitempty"`
	Status    OutputStatus   `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Role      Role           `json:"role"`
	Pending   *PendingAction `json:"pending,omitempty"`
}

// Append adds content to the record, tagging stderr runs. Adjacent segments
// of the same stream are merged.
func (o *OutputItem) Append(text string, stderr bool) {
	if text == "" {
		return
	}
	o.Content += text
	if n := len(o.Segments); n > 0 && o.Segments[n-1].Stderr == stderr {
		o.Segments[n-1].Text += text
		return
	}
	o.Segments = append(o.Segments, Segment{Text: text, Stderr: stderr})
}

// Replace swaps the record's content with a final payload. Only meaningful
// on completion; the router never calls this on a running record.
func (o *OutputItem) Replace(text string) {
	o.Content = text
	o.Segments = []Segment{{Text: text}}
}

// TaskItem is one entry in a role's task list. IDs are derived from the
// normalized task text, so the same wording always yields the same identity.
type TaskItem struct {
	ID     string     `json:"id"`
	Text   string     `json:"text"`
	Status TaskStatus `json:"status"`
	Phase  string     `json:"phase,omitempty"`
}

// TokenCounters accumulates model token usage for one role.
type TokenCounters struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Add accumulates another set of counters.
func (t *TokenCounters) Add(in, out, total int) {
	t.Input += in
	t.Output += out
	if total == 0 {
		total = in + out
	}
	t.Total += total
}

// Memory holds everything the engine tracks for one role: an ordered output
// timeline, the reconciled task list and token counters. Instances are
// siblings; switching roles never touches another role's memory.
type Memory struct {
	Outputs []*OutputItem `json:"outputs"`
	Tasks   []*TaskItem   `json:"tasks"`
	Tokens  TokenCounters `json:"tokens"`
}

// Output returns the output record with the given ID, or nil.
func (m *Memory) Output(id string) *OutputItem {
	for _, o := range m.Outputs {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// AppendOutput adds a record to the end of the timeline.
func (m *Memory) AppendOutput(o *OutputItem) {
	m.Outputs = append(m.Outputs, o)
}

// Task returns the task with the given ID, or nil.
func (m *Memory) Task(id string) *TaskItem {
	for _, t := range m.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Store holds one Memory per role. The engine owns the store exclusively;
// renderers only ever see copies.
type Store struct {
	memories map[Role]*Memory
}

// NewStore creates a store with an empty memory for every role.
func NewStore() *Store {
	s := &Store{memories: make(map[Role]*Memory, len(All()))}
	for _, r := range All() {
		s.memories[r] = &Memory{}
	}
	return s
}

// Memory returns the memory for a role. Unknown roles return nil.
func (s *Store) Memory(r Role) *Memory {
	return s.memories[r]
}

// Replace swaps in a restored memory for a role. Used by snapshot restore,
// which rebuilds state wholesale rather than merging.
func (s *Store) Replace(r Role, m *Memory) {
	if !r.Valid() || m == nil {
		return
	}
	s.memories[r] = m
}

// Reset discards all role memories, leaving fresh empty ones.
func (s *Store) Reset() {
	for _, r := range All() {
		s.memories[r] = &Memory{}
	}
}
