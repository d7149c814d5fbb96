// Package events publishes JSON business events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event is the envelope written to every catalog.* subject.
type Event struct {
	EventID    string          `json:"event_id"`
	EventName  string          `json:"event_name"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// JetStream is the subset of nats.JetStreamContext the publisher needs.
type JetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher sends events synchronously and waits for the stream ack.
// A nil Publisher, or one without a JetStream context, drops events.
type Publisher struct {
	js  JetStream
	log *zap.Logger
	now func() time.Time
}

func New(js JetStream, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{js: js, log: log, now: time.Now}
}

// Publish wraps payload in an Event and publishes it on subject. eventID is
// reused as Nats-Msg-Id so a retried publish is deduplicated by the stream;
// an empty eventID gets a random one.
func (p *Publisher) Publish(ctx context.Context, subject, eventID string, payload json.RawMessage) error {
	if p == nil || p.js == nil {
		return nil
	}
	if subject == "" {
		return errors.New("events: empty subject")
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}
	ev := Event{
		EventID:    eventID,
		EventName:  subject,
		OccurredAt: p.now().UTC(),
		Payload:    payload,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := p.js.Publish(subject, data, nats.MsgId(eventID), nats.Context(ctx)); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.String("event_id", eventID), zap.Error(err))
		return err
	}
	return nil
}
