package role

import "testing"

func TestOutputItem_AppendMergesStreams(t *testing.T) {
	o := &OutputItem{}
	o.Append("line 1\n", false)
	o.Append("line 2\n", false)
	o.Append("oops\n", true)
	o.Append("still broken\n", true)
	o.Append("recovered\n", false)

	if o.Content != "line 1\nline 2\noops\nstill broken\nrecovered\n" {
		t.Errorf("content: %q", o.Content)
	}
	// Adjacent same-stream runs merge: stdout, stderr, stdout.
	if len(o.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d: %+v", len(o.Segments), o.Segments)
	}
	if o.Segments[0].Stderr || !o.Segments[1].Stderr || o.Segments[2].Stderr {
		t.Errorf("stream tags: %+v", o.Segments)
	}
	if o.Segments[1].Text != "oops\nstill broken\n" {
		t.Errorf("stderr run: %q", o.Segments[1].Text)
	}
}

func TestOutputItem_AppendEmptyNoop(t *testing.T) {
	o := &OutputItem{}
	o.Append("", false)
	if o.Content != "" || len(o.Segments) != 0 {
		t.Errorf("empty append mutated the record: %+v", o)
	}
}

func TestOutputItem_Replace(t *testing.T) {
	o := &OutputItem{}
	o.Append("streaming del", false)
	o.Replace("final answer")
	if o.Content != "final answer" {
		t.Errorf("content: %q", o.Content)
	}
	if len(o.Segments) != 1 || o.Segments[0].Stderr {
		t.Errorf("segments: %+v", o.Segments)
	}
}

func TestTokenCounters_Add(t *testing.T) {
	var c TokenCounters
	c.Add(100, 40, 140)
	c.Add(10, 5, 0) // runtimes that omit totals still count
	if c.Input != 110 || c.Output != 45 || c.Total != 155 {
		t.Errorf("counters: %+v", c)
	}
}

func TestStore_RolesAreSiblings(t *testing.T) {
	s := NewStore()
	s.Memory(Plan).AppendOutput(&OutputItem{ID: "o1"})

	if len(s.Memory(Plan).Outputs) != 1 {
		t.Fatal("plan output missing")
	}
	for _, r := range []Role{Build, Review, Deploy} {
		if len(s.Memory(r).Outputs) != 0 {
			t.Errorf("%s memory mutated by a plan write", r)
		}
	}
}

func TestStore_Reset(t *testing.T) {
	s := NewStore()
	s.Memory(Build).AppendOutput(&OutputItem{ID: "o1"})
	s.Memory(Build).Tokens.Add(5, 5, 10)
	s.Reset()
	m := s.Memory(Build)
	if len(m.Outputs) != 0 || m.Tokens.Total != 0 {
		t.Errorf("reset left state behind: %+v", m)
	}
}

func TestStore_ReplaceRejectsInvalid(t *testing.T) {
	s := NewStore()
	s.Replace(Role("GHOST"), &Memory{})
	s.Replace(Plan, nil)
	if s.Memory(Plan) == nil {
		t.Error("nil replacement should be ignored")
	}
}

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"plan", Plan, true},
		{" BUILD ", Build, true},
		{"Review", Review, true},
		{"deploy", Deploy, true},
		{"ops", "", false},
	}
	for _, tc := range cases {
		got, ok := Parse(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Parse(%q) = %q, %v", tc.in, got, ok)
		}
	}
}
