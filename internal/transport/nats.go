// Package transport carries events and intents between the engine and the
// execution runtime over NATS. The transport preserves per-correlation
// ordering (one subject, one subscription) but makes no promise about
// interleaving across correlation IDs.
package transport

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/quadflow/quadflow/internal/event"
	"github.com/quadflow/quadflow/internal/logging"
)

// Transport is a NATS connection scoped to one subject prefix.
type Transport struct {
	nc     *nats.Conn
	prefix string
	log    *logging.Logger
}

// Connect dials the NATS server.
func Connect(url, prefix string, log *logging.Logger) (*Transport, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Name("quadflow"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	if prefix == "" {
		prefix = "quadflow"
	}
	return &Transport{nc: nc, prefix: prefix, log: log}, nil
}

// eventSubject is where the runtime publishes events for a run.
func (t *Transport) eventSubject(runID string) string {
	return fmt.Sprintf("%s.%s.events", t.prefix, runID)
}

// intentSubject is where the engine publishes intents for a run.
func (t *Transport) intentSubject(runID string) string {
	return fmt.Sprintf("%s.%s.intents", t.prefix, runID)
}

// SubscribeEvents delivers decoded runtime events for a run to handler.
// Undecodable payloads are logged and skipped, never fatal.
func (t *Transport) SubscribeEvents(runID string, handler func(*event.Event)) (*nats.Subscription, error) {
	sub, err := t.nc.Subscribe(t.eventSubject(runID), func(msg *nats.Msg) {
		ev, err := event.Decode(msg.Data)
		if err != nil {
			t.log.Warn("undecodable event payload", "error", err)
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe events: %w", err)
	}
	return sub, nil
}

// IntentPublisher returns a publisher bound to one run's intent subject.
func (t *Transport) IntentPublisher(runID string) *RunPublisher {
	return &RunPublisher{t: t, subject: t.intentSubject(runID)}
}

// RunPublisher publishes intents for a single run.
type RunPublisher struct {
	t       *Transport
	subject string
}

// PublishIntent sends one intent to the runtime.
func (p *RunPublisher) PublishIntent(in *event.Intent) error {
	data, err := event.EncodeIntent(in)
	if err != nil {
		return err
	}
	if err := p.t.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish intent: %w", err)
	}
	return nil
}

// Close drains the connection, letting in-flight messages finish.
func (t *Transport) Close() {
	if t.nc == nil {
		return
	}
	if err := t.nc.Drain(); err != nil {
		t.nc.Close()
	}
}
