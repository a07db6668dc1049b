package store

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveSnapshot("run-1", "running", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSnapshot("run-1", "running", []byte("second")); err != nil {
		t.Fatal(err)
	}

	payload, at, err := s.LoadLatestSnapshot("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payload, []byte("second")) {
		t.Errorf("latest snapshot = %q, want the most recent write", payload)
	}
	if at.IsZero() {
		t.Error("snapshot time not recorded")
	}
}

func TestLoadLatestSnapshot_MissingRun(t *testing.T) {
	s := newTestStore(t)
	payload, _, err := s.LoadLatestSnapshot("never-seen")
	if err != nil {
		t.Fatal(err)
	}
	if payload != nil {
		t.Errorf("missing run should yield nil, got %q", payload)
	}
}

func TestEventsSince(t *testing.T) {
	s := newTestStore(t)

	if err := s.RecordEvent("run-1", []byte("before")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	cut := time.Now()
	time.Sleep(20 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := s.RecordEvent("run-1", []byte(fmt.Sprintf("after-%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.EventsSince("run-1", cut)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 post-cut events, got %d", len(got))
	}
	for i, p := range got {
		want := fmt.Sprintf("after-%d", i)
		if string(p) != want {
			t.Errorf("event %d = %q, want %q (oldest first)", i, p, want)
		}
	}
}

func TestListRuns_MostRecentFirst(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveSnapshot("run-a", "running", []byte("a")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := s.SaveSnapshot("run-b", "deployed", []byte("b")); err != nil {
		t.Fatal(err)
	}

	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-b" || runs[1].ID != "run-a" {
		t.Errorf("order: %s, %s", runs[0].ID, runs[1].ID)
	}
	if runs[0].Status != "deployed" {
		t.Errorf("status not updated by the later save: %s", runs[0].Status)
	}
}

func TestListRuns_Limit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		if err := s.SaveSnapshot(fmt.Sprintf("run-%d", i), "running", []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("limit ignored: got %d runs", len(runs))
	}
}

func TestRecentEvents_NewestWindowOldestFirst(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 10; i++ {
		if err := s.RecordEvent("run-1", []byte(fmt.Sprintf("ev-%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.RecentEvents("run-1", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 events, got %d", len(got))
	}
	// The newest four, but delivered in recording order for replay.
	for i, p := range got {
		want := fmt.Sprintf("ev-%d", 6+i)
		if string(p) != want {
			t.Errorf("event %d = %q, want %q", i, p, want)
		}
	}
}

func TestRecentEvents_IsolatedPerRun(t *testing.T) {
	s := newTestStore(t)
	if err := s.RecordEvent("run-a", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordEvent("run-b", []byte("b")); err != nil {
		t.Fatal(err)
	}

	got, err := s.RecentEvents("run-a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || string(got[0]) != "a" {
		t.Errorf("run-a events: %q", got)
	}
}
