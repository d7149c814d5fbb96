// Package natsconn opens the shared NATS connection and JetStream context
// with fail-fast semantics, and declares streams idempotently.
package natsconn

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	DefaultMaxReconnects = 5
	DefaultReconnectWait = 2 * time.Second
)

// Options configures the NATS connection behaviour.
// Zero values fall back to the package defaults.
type Options struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Logger        *zap.Logger
}

func (o Options) withDefaults() Options {
	o.URL = strings.TrimSpace(o.URL)
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = DefaultMaxReconnects
	}
	if o.ReconnectWait <= 0 {
		o.ReconnectWait = DefaultReconnectWait
	}
	return o
}

// Connect establishes a NATS connection with the configured retry policy.
// On failure it returns an error so the caller can fail-fast.
func Connect(opts Options) (*nats.Conn, error) {
	opts = opts.withDefaults()
	if opts.URL == "" {
		return nil, errors.New("nats url is required")
	}

	natsOpts := []nats.Option{
		nats.MaxReconnects(opts.MaxReconnects),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.RetryOnFailedConnect(false),
	}
	if opts.Name != "" {
		natsOpts = append(natsOpts, nats.Name(opts.Name))
	}
	if log := opts.Logger; log != nil {
		natsOpts = append(natsOpts,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Warn("nats disconnected", zap.Error(err))
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
			}),
		)
	}

	nc, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s (max_reconnects=%d, wait=%s): %w",
			opts.URL, opts.MaxReconnects, opts.ReconnectWait, err)
	}
	return nc, nil
}

// EnsureStream creates the stream or widens its subject list.
func EnsureStream(js nats.JetStreamContext, name string, subjects []string) error {
	info, err := js.StreamInfo(name)
	if err == nil && info != nil {
		missing := missingSubjects(info.Config.Subjects, subjects)
		if len(missing) == 0 {
			return nil
		}
		cfg := info.Config
		cfg.Subjects = append(cfg.Subjects, missing...)
		_, err = js.UpdateStream(&cfg)
		return err
	}
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:      name,
		Subjects:  subjects,
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
	})
	return err
}

func missingSubjects(have, want []string) []string {
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range want {
		if _, ok := set[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
