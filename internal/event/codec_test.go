package event

import (
	"errors"
	"testing"
	"time"
)

func TestDecode_ValidEvent(t *testing.T) {
	src := &Event{
		SessionID:     "s1",
		CorrelationID: "c1",
		Timestamp:     time.Now().UTC(),
		Type:          StdoutChunk,
		Content:       "hello\n",
	}
	data, err := Encode(src)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != StdoutChunk || got.Content != "hello\n" || got.CorrelationID != "c1" {
		t.Errorf("round trip: %+v", got)
	}
}

func TestDecode_HeaderValidation(t *testing.T) {
	cases := []struct {
		name string
		json string
		want error
	}{
		{"missing session", `{"correlation_id":"c1","timestamp":"2026-08-29T10:00:00Z","type":"stdout_chunk"}`, ErrNoSession},
		{"missing correlation", `{"session_id":"s1","timestamp":"2026-08-29T10:00:00Z","type":"stdout_chunk"}`, ErrNoCorrelation},
		{"missing timestamp", `{"session_id":"s1","correlation_id":"c1","type":"stdout_chunk"}`, ErrNoTimestamp},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.json))
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDecode_SystemReadyWithoutCorrelation(t *testing.T) {
	data := []byte(`{"session_id":"s1","timestamp":"2026-08-29T10:00:00Z","type":"system_ready","run_id":"run-1"}`)
	ev, err := Decode(data)
	if err != nil {
		t.Fatalf("system_ready is a broadcast, not correlated work: %v", err)
	}
	if ev.RunID != "run-1" {
		t.Errorf("run id: %q", ev.RunID)
	}
}

func TestDecode_UnknownTypePasses(t *testing.T) {
	data := []byte(`{"session_id":"s1","correlation_id":"c1","timestamp":"2026-08-29T10:00:00Z","type":"future_thing"}`)
	ev, err := Decode(data)
	if err != nil {
		t.Fatalf("unknown types are for the consumer to skip: %v", err)
	}
	if ev.Type.Known() {
		t.Error("future_thing should not be a known type")
	}
}

func TestDecode_Garbage(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("garbage should not decode")
	}
}

func TestIntentRoundTrip(t *testing.T) {
	src := &Intent{
		SessionID:     "s1",
		CorrelationID: "c1",
		Timestamp:     time.Now().UTC(),
		Type:          ModelChat,
		Model:         "sonnet",
		Messages: []ChatMessage{
			{Role: "user", Content: "draft a plan"},
		},
	}
	data, err := EncodeIntent(src)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeIntent(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != ModelChat || got.Model != "sonnet" || len(got.Messages) != 1 {
		t.Errorf("round trip: %+v", got)
	}
	if got.Messages[0].Content != "draft a plan" {
		t.Errorf("message: %+v", got.Messages[0])
	}
}
