// Package outbox relays catalog_outbox rows to JetStream.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/cinema-platform/internal/platform/natsconn"
)

const (
	Stream        = "CATALOG_EVENTS"
	StreamSubject = "catalog.>"
)

// Sink publishes one event; eventID doubles as the dedup id.
type Sink interface {
	Publish(ctx context.Context, subject, eventID string, payload json.RawMessage) error
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type Publisher struct {
	Log          *zap.Logger
	DB           txBeginner
	Sink         Sink
	BatchSize    int
	PollInterval time.Duration
}

type outboxRow struct {
	ID        string
	EventType string
	Payload   json.RawMessage
}

func NewPublisher(log *zap.Logger, db txBeginner, sink Sink, batchSize int, poll time.Duration) *Publisher {
	if batchSize <= 0 {
		batchSize = 100
	}
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &Publisher{Log: log, DB: db, Sink: sink, BatchSize: batchSize, PollInterval: poll}
}

// EnsureStream declares the catalog events stream.
func EnsureStream(js nats.JetStreamContext) error {
	return natsconn.EnsureStream(js, Stream, []string{StreamSubject})
}

// Run flushes pending rows every PollInterval until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := p.flushOnce(ctx)
			if err != nil {
				p.Log.Warn("outbox flush failed", zap.Error(err))
				continue
			}
			if n > 0 {
				p.Log.Debug("outbox flushed", zap.Int("events", n))
			}
		}
	}
}

// flushOnce publishes one batch. Rows are marked published only when the
// whole batch went out; a partial failure republishes the batch next tick
// and the stream drops the duplicates by event id.
func (p *Publisher) flushOnce(ctx context.Context) (int, error) {
	tx, err := p.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT id::text, event_type, payload
FROM catalog_outbox
WHERE published_at IS NULL
ORDER BY created_at
LIMIT $1
FOR UPDATE SKIP LOCKED
`, p.BatchSize)
	if err != nil {
		return 0, err
	}

	items := make([]outboxRow, 0, p.BatchSize)
	for rows.Next() {
		var item outboxRow
		if err := rows.Scan(&item.ID, &item.EventType, &item.Payload); err != nil {
			rows.Close()
			return 0, err
		}
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if err := p.Sink.Publish(ctx, item.EventType, item.ID, item.Payload); err != nil {
			return 0, err
		}
		ids = append(ids, item.ID)
	}

	if _, err := tx.Exec(ctx, `UPDATE catalog_outbox SET published_at = now() WHERE id::text = ANY($1)`, ids); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(items), nil
}
