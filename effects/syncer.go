package effects

import (
	"context"
	"log/slog"

	"github.com/next-trace/scg-ipc-sync/ipc"
)

// FailFunc receives programmer-contract violations, such as writing to a value
// that only the host may change.
type FailFunc func(err error)

// Syncer carries what every binding needs: the bridge for reads and writes, the
// registry for host pushes, and how async work, encoding and failures are handled.
type Syncer struct {
	bridge *ipc.Bridge
	reg    *ipc.Registry
	logger *slog.Logger
	runner Runner
	codec  Codec
	ctx    context.Context
	fail   FailFunc
	dev    bool
}

// Option configures a Syncer instance.
type Option func(*Syncer)

// WithRunner sets how initial loads and write-backs are scheduled.
func WithRunner(r Runner) Option { return func(s *Syncer) { s.runner = r } }

// WithCodec replaces the JSON codec used by BidirectionalSyncWithTranslate and SyncWithMain.
func WithCodec(c Codec) Option { return func(s *Syncer) { s.codec = c } }

// WithContext sets the context passed to host calls.
func WithContext(ctx context.Context) Option { return func(s *Syncer) { s.ctx = ctx } }

// WithFailure routes contract violations to fn instead of the default reporter.
func WithFailure(fn FailFunc) Option { return func(s *Syncer) { s.fail = fn } }

// WithDev makes the default reporter panic on contract violations.
func WithDev(dev bool) Option { return func(s *Syncer) { s.dev = dev } }

// New constructs a Syncer. By default async work runs on goroutines, values are
// encoded as JSON and host calls use context.Background().
func New(bridge *ipc.Bridge, reg *ipc.Registry, logger *slog.Logger, opts ...Option) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Syncer{
		bridge: bridge,
		reg:    reg,
		logger: logger,
		runner: &Group{},
		codec:  JSONCodec{},
		ctx:    context.Background(),
	}
	for _, o := range opts {
		o(s)
	}

	return s
}

// ForClient constructs a Syncer over a client's bridge and registry, inheriting its dev flag.
func ForClient(c *ipc.Client, logger *slog.Logger, opts ...Option) *Syncer {
	return New(c.Bridge(), c.Registry(), logger, append([]Option{WithDev(c.IsDev())}, opts...)...)
}

// Wait blocks until scheduled async work finishes when the runner supports it.
func (s *Syncer) Wait() {
	if w, ok := s.runner.(interface{ Wait() }); ok {
		w.Wait()
	}
}

func (s *Syncer) reportFailure(err error) {
	if s.fail != nil {
		s.fail(err)
		return
	}

	s.logger.WithGroup("fail").Error("contract violation", "error", err)

	if s.dev {
		panic(err)
	}
}
