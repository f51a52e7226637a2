package memory

import (
	"context"
	"log/slog"

	"github.com/next-trace/scg-ipc-sync/adapters/inmemory"
	"github.com/next-trace/scg-ipc-sync/effects"
	"github.com/next-trace/scg-ipc-sync/ipc"
)

// Stack is a client and syncer wired to an in-process host.
type Stack struct {
	Host   *inmemory.Host
	Client *ipc.Client
	Syncer *effects.Syncer
}

// New constructs a Stack whose client is already listening to the host's pushes,
// along with a cleanup function that detaches it. Effects run inline, so every
// host call has completed by the time the triggering operation returns.
func New(logger *slog.Logger, opts ...effects.Option) (*Stack, func()) {
	host := inmemory.New()
	client := ipc.New(host, logger)

	// the in-memory host never fails to attach a listener
	_ = client.WireUp(context.Background())

	syncer := effects.ForClient(client, logger, append([]effects.Option{effects.WithRunner(effects.Inline())}, opts...)...)
	cleanup := func() { _ = client.Close() }

	return &Stack{Host: host, Client: client, Syncer: syncer}, cleanup
}
