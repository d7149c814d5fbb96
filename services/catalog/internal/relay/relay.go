// Package relay pulls authorship facts published by the users service.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/cinema-platform/internal/platform/natsconn"
)

// Bus topics shared with the users and payments services.
const (
	SubjectAuth    = "auth"
	SubjectComment = "comment"
	SubjectPayment = "payment"

	DefaultStream  = "USER_FACTS"
	DefaultDurable = "catalog-comments"
	DefaultWait    = 5 * time.Second
)

// AuthorshipFact is the payload on the comment topic.
type AuthorshipFact struct {
	Username string `json:"username"`
}

type Config struct {
	Stream  string
	Subject string
	Durable string
	// Wait bounds one NextAuthorName call.
	Wait time.Duration
}

func (c Config) withDefaults() Config {
	if c.Stream == "" {
		c.Stream = DefaultStream
	}
	if c.Subject == "" {
		c.Subject = SubjectComment
	}
	if c.Durable == "" {
		c.Durable = DefaultDurable
	}
	if c.Wait <= 0 {
		c.Wait = DefaultWait
	}
	return c
}

// pullFunc fetches at most one message, honouring ctx.
type pullFunc func(ctx context.Context) ([]*nats.Msg, error)

// FactRelay hands out at most one authorship fact per call. Facts carry no
// comment correlation: the next pending fact is attributed to the caller.
type FactRelay struct {
	pull pullFunc
	wait time.Duration
	log  *zap.Logger
	ack  func(*nats.Msg) error
}

// New declares the facts stream and binds a durable pull consumer that
// starts from the earliest retained fact.
func New(js nats.JetStreamContext, cfg Config, log *zap.Logger) (*FactRelay, error) {
	cfg = cfg.withDefaults()
	if err := natsconn.EnsureStream(js, cfg.Stream, []string{SubjectAuth, SubjectComment, SubjectPayment}); err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
	}
	sub, err := js.PullSubscribe(cfg.Subject, cfg.Durable,
		nats.BindStream(cfg.Stream),
		nats.DeliverAll(),
		nats.AckExplicit(),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", cfg.Subject, err)
	}
	pull := func(ctx context.Context) ([]*nats.Msg, error) {
		return sub.Fetch(1, nats.Context(ctx))
	}
	return newRelay(pull, cfg.Wait, log), nil
}

func newRelay(pull pullFunc, wait time.Duration, log *zap.Logger) *FactRelay {
	if log == nil {
		log = zap.NewNop()
	}
	if wait <= 0 {
		wait = DefaultWait
	}
	return &FactRelay{pull: pull, wait: wait, log: log, ack: func(m *nats.Msg) error { return m.Ack() }}
}

// NextAuthorName waits up to the configured bound for one fact. The fact is
// acknowledged as soon as it is received. Timeouts, bus errors and malformed
// payloads all yield nil.
func (r *FactRelay) NextAuthorName(ctx context.Context) *string {
	ctx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	msgs, err := r.pull(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.Canceled) {
			r.log.Debug("no authorship fact within wait", zap.Duration("wait", r.wait))
		} else {
			r.log.Warn("authorship fact fetch failed", zap.Error(err))
		}
		return nil
	}
	if len(msgs) == 0 {
		return nil
	}

	msg := msgs[0]
	if err := r.ack(msg); err != nil {
		r.log.Warn("authorship fact ack failed", zap.Error(err))
	}

	var fact AuthorshipFact
	if err := json.Unmarshal(msg.Data, &fact); err != nil {
		r.log.Warn("malformed authorship fact discarded", zap.ByteString("data", truncate(msg.Data)), zap.Error(err))
		return nil
	}
	name := strings.TrimSpace(fact.Username)
	if name == "" {
		r.log.Warn("authorship fact without username discarded")
		return nil
	}
	return &name
}

func truncate(b []byte) []byte {
	if len(b) > 256 {
		return b[:256]
	}
	return b
}
