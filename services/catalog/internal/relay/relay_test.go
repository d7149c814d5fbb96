package relay

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

type fakeSub struct {
	msgs  [][]byte
	err   error
	block bool
}

func (f *fakeSub) pull(ctx context.Context) ([]*nats.Msg, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.msgs) == 0 {
		return nil, nats.ErrTimeout
	}
	m := &nats.Msg{Subject: SubjectComment, Data: f.msgs[0]}
	f.msgs = f.msgs[1:]
	return []*nats.Msg{m}, nil
}

func newTestRelay(sub *fakeSub, wait time.Duration) (*FactRelay, *atomic.Int32) {
	r := newRelay(sub.pull, wait, nil)
	var acks atomic.Int32
	r.ack = func(*nats.Msg) error { acks.Add(1); return nil }
	return r, &acks
}

func TestNextAuthorName_ConsumesOneFact(t *testing.T) {
	sub := &fakeSub{msgs: [][]byte{[]byte(`{"username":"neo"}`), []byte(`{"username":"trinity"}`)}}
	r, acks := newTestRelay(sub, time.Second)

	name := r.NextAuthorName(context.Background())
	if name == nil || *name != "neo" {
		t.Fatalf("expected neo, got %v", name)
	}
	if acks.Load() != 1 {
		t.Fatalf("expected 1 ack, got %d", acks.Load())
	}
	if len(sub.msgs) != 1 {
		t.Fatalf("expected one fact left pending, got %d", len(sub.msgs))
	}
}

func TestNextAuthorName_TimeoutIsNil(t *testing.T) {
	r, acks := newTestRelay(&fakeSub{block: true}, 30*time.Millisecond)

	start := time.Now()
	if name := r.NextAuthorName(context.Background()); name != nil {
		t.Fatalf("expected nil, got %q", *name)
	}
	if el := time.Since(start); el > time.Second {
		t.Fatalf("wait not bounded: %s", el)
	}
	if acks.Load() != 0 {
		t.Fatal("nothing should be acked on timeout")
	}
}

func TestNextAuthorName_MalformedDiscardedButAcked(t *testing.T) {
	for _, payload := range []string{`not json`, `{"username":"   "}`, `{}`} {
		r, acks := newTestRelay(&fakeSub{msgs: [][]byte{[]byte(payload)}}, time.Second)
		if name := r.NextAuthorName(context.Background()); name != nil {
			t.Fatalf("payload %q: expected nil, got %q", payload, *name)
		}
		if acks.Load() != 1 {
			t.Fatalf("payload %q: malformed fact must still be acked", payload)
		}
	}
}

func TestNextAuthorName_BusErrorIsNil(t *testing.T) {
	r, _ := newTestRelay(&fakeSub{err: nats.ErrConnectionClosed}, time.Second)
	if name := r.NextAuthorName(context.Background()); name != nil {
		t.Fatalf("expected nil, got %q", *name)
	}
}

func TestNextAuthorName_AckFailureStillReturnsName(t *testing.T) {
	r := newRelay((&fakeSub{msgs: [][]byte{[]byte(`{"username":"neo"}`)}}).pull, time.Second, nil)
	r.ack = func(*nats.Msg) error { return nats.ErrMsgNoReply }
	if name := r.NextAuthorName(context.Background()); name == nil || *name != "neo" {
		t.Fatalf("expected neo, got %v", name)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	if c.Stream != DefaultStream || c.Subject != SubjectComment || c.Durable != DefaultDurable || c.Wait != 5*time.Second {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}
