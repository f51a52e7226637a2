package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
)

const (
	defaultPrefix = "ipc."
)

// Client is a minimal NATS-like interface decoupled from any concrete library.
// Users can provide a wrapper around their NATS connection to satisfy this.
type Client interface {
	// Request publishes data on subject with optional headers and waits for one reply.
	Request(ctx context.Context, subject string, data []byte, headers map[string]string) ([]byte, error)
	// Subscribe delivers every message on subject to fn until the returned function is called.
	Subscribe(subject string, fn func(data []byte)) (unsubscribe func() error, err error)
}

// Adapter implements cipc.Channel using an injected NATS-like Client.
// Invokes become requests on Prefix+channel; push frames arrive on Prefix+PushTopic.
type Adapter struct {
	Client     Client
	Prefix     string
	PushTopic  string
	Propagator cipc.HeaderPropagator // optional, for context propagation into headers
}

// Ensure Adapter implements the combined contract.
var _ cipc.Channel = (*Adapter)(nil)

// New creates a new NATS adapter instance with the provided client.
func New(c Client) *Adapter {
	return &Adapter{Client: c, Prefix: defaultPrefix, PushTopic: cipc.DefaultPushTopic}
}

func (a *Adapter) Invoke(ctx context.Context, channel string, arg any) (any, error) {
	if err := a.ready(ctx, "invoke"); err != nil {
		return nil, err
	}

	body, err := cipc.MarshalArg(arg)
	if err != nil {
		return nil, fmt.Errorf("nats invoke serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	headers := map[string]string{"channel": channel}
	if a.Propagator != nil {
		a.Propagator.Inject(ctx, headers)
	}

	raw, err := a.Client.Request(ctx, a.subject(channel), body, headers)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, fmt.Errorf("nats invoke %s: %w", channel, errors.Join(berr.ErrInvokeFailed, err))
	}

	return decodeReply(channel, raw)
}

func (a *Adapter) Listen(ctx context.Context, handler func(frame []byte)) (func(), error) {
	if err := a.ready(ctx, "listen"); err != nil {
		return nil, err
	}

	unsub, err := a.Client.Subscribe(a.subject(a.PushTopic), handler)
	if err != nil {
		return nil, fmt.Errorf("nats listen: %w", errors.Join(berr.ErrListenFailed, err))
	}

	return func() { _ = unsub() }, nil
}

func (a *Adapter) ready(ctx context.Context, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Client == nil {
		return fmt.Errorf("nats %s: %w", label, berr.ErrNotConnected)
	}

	return nil
}

// helpers

func (a *Adapter) subject(name string) string { return a.Prefix + name }

// decodeReply unpacks a cipc.Reply body. An empty body is a nil result.
func decodeReply(channel string, raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var rep cipc.Reply
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, fmt.Errorf("nats invoke %s decode: %w", channel, errors.Join(berr.ErrSerializationFailed, err))
	}

	if rep.Error != "" {
		return nil, fmt.Errorf("nats invoke %s: %w: %s", channel, berr.ErrRemote, rep.Error)
	}

	res, err := cipc.UnmarshalResult(rep.Result)
	if err != nil {
		return nil, fmt.Errorf("nats invoke %s decode: %w", channel, errors.Join(berr.ErrSerializationFailed, err))
	}

	return res, nil
}
