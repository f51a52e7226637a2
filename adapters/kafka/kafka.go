package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
)

const defaultBackoff = 500 * time.Millisecond

// Reader is a minimal Kafka-like consumer interface.
// Poll blocks until at least one record value is available or ctx ends.
type Reader interface {
	Poll(ctx context.Context) ([][]byte, error)
}

// Adapter implements cipc.PushSource by polling an injected Reader.
// Every record value is one push frame.
type Adapter struct {
	Reader Reader
	// Backoff is the pause after a failed poll.
	Backoff time.Duration
	// OnError, when set, observes poll failures.
	OnError func(err error)
}

var _ cipc.PushSource = (*Adapter)(nil)

// New creates a new Kafka adapter instance with the provided reader.
func New(r Reader) *Adapter { return &Adapter{Reader: r, Backoff: defaultBackoff} }

// Listen starts the poll loop. The loop outlives ctx cancellation of the
// caller only until unlisten is called; values carried by ctx are kept.
func (a *Adapter) Listen(ctx context.Context, handler func(frame []byte)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.Reader == nil {
		return nil, fmt.Errorf("kafka listen: %w", berr.ErrNotConnected)
	}

	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)
		a.loop(lctx, handler)
	}()

	var once sync.Once

	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func (a *Adapter) loop(ctx context.Context, handler func(frame []byte)) {
	for {
		frames, err := a.Reader.Poll(ctx)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			a.report(fmt.Errorf("kafka poll: %w", errors.Join(berr.ErrListenFailed, err)))

			if !sleep(ctx, a.backoff()) {
				return
			}

			continue
		}

		for _, f := range frames {
			handler(f)
		}
	}
}

func (a *Adapter) report(err error) {
	if a.OnError != nil {
		a.OnError(err)
	}
}

func (a *Adapter) backoff() time.Duration {
	if a.Backoff > 0 {
		return a.Backoff
	}

	return defaultBackoff
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
