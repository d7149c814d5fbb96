package run

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownTimeout bounds the time all shutdown hooks get together.
const ShutdownTimeout = 10 * time.Second

type Runner struct {
	Logger *zap.Logger
	hooks  []namedHook
}

type namedHook struct {
	name string
	fn   func(context.Context) error
}

func New(log *zap.Logger) *Runner {
	return &Runner{Logger: log}
}

// OnShutdown registers fn to run after the start function returns or a
// signal arrives. Hooks run in reverse registration order.
func (r *Runner) OnShutdown(name string, fn func(context.Context) error) {
	r.hooks = append(r.hooks, namedHook{name: name, fn: fn})
}

// WithSignals runs start until it returns or SIGINT/SIGTERM arrives, then
// runs the shutdown hooks. It returns the process exit code.
func (r *Runner) WithSignals(start func(ctx context.Context) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- start(ctx)
	}()

	code := 0
	select {
	case <-ctx.Done():
		r.Logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.Logger.Error("service exited with error", zap.Error(err))
			code = 1
		}
	}
	r.shutdown()
	return code
}

func (r *Runner) shutdown() {
	c, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	for i := len(r.hooks) - 1; i >= 0; i-- {
		h := r.hooks[i]
		if err := h.fn(c); err != nil {
			r.Logger.Warn("shutdown hook failed", zap.String("hook", h.name), zap.Error(err))
		}
	}
}

func Exit(code int) {
	os.Exit(code)
}
