package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Decode errors.
var (
	ErrNoSession     = errors.New("event missing session id")
	ErrNoCorrelation = errors.New("event missing correlation id")
	ErrNoTimestamp   = errors.New("event missing timestamp")
)

// Encode serializes an event for the transport.
func Encode(ev *Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}

// Decode parses a wire payload into an Event and validates the header.
// Unknown event types decode fine; the consumer decides what to skip.
func Decode(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if ev.SessionID == "" {
		return nil, ErrNoSession
	}
	if ev.CorrelationID == "" && ev.Type != SystemReady {
		return nil, ErrNoCorrelation
	}
	if ev.Timestamp.IsZero() {
		return nil, ErrNoTimestamp
	}
	return &ev, nil
}

// EncodeIntent serializes an intent for the transport.
func EncodeIntent(in *Intent) ([]byte, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode intent: %w", err)
	}
	return data, nil
}

// DecodeIntent parses a wire payload into an Intent.
func DecodeIntent(data []byte) (*Intent, error) {
	var in Intent
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	return &in, nil
}
