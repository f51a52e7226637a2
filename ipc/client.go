package ipc

import (
	"context"
	"log/slog"
	"sync"

	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
)

// Client is the renderer's single entry point to the host. It owns the topic
// Registry, the Dispatcher feeding it, and the Bridge for requests, all over one
// Channel. Client is concurrency-safe and contains no global state.
type Client struct {
	ch     cipc.Channel
	reg    *Registry
	disp   *Dispatcher
	bridge *Bridge
	logger *slog.Logger
	dev    bool
	mws    []InvokeMiddleware

	mu     sync.Mutex
	unwire func()
}

// ClientOption configures a Client instance.
type ClientOption func(*Client)

// WithDev marks the client as running in a development build.
func WithDev(dev bool) ClientOption {
	return func(c *Client) { c.dev = dev }
}

// WithRegistry makes the client share an existing Registry.
func WithRegistry(reg *Registry) ClientOption {
	return func(c *Client) { c.reg = reg }
}

// WithInvokeMiddleware wraps every request the client sends.
func WithInvokeMiddleware(mw ...InvokeMiddleware) ClientOption {
	return func(c *Client) { c.mws = append(c.mws, mw...) }
}

// New constructs a Client over ch. A nil ch is allowed; requests then fail with
// ErrNotConnected and WireUp reports the missing push source.
func New(ch cipc.Channel, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{ch: ch, logger: logger}
	for _, o := range opts {
		o(c)
	}

	if c.reg == nil {
		c.reg = NewRegistry()
	}

	c.disp = NewDispatcher(c.reg, logger.WithGroup("ipc"))
	c.bridge = NewBridge(ch, logger.WithGroup("bridge"), c.mws...)

	return c
}

// Registry exposes the topic registry.
func (c *Client) Registry() *Registry { return c.reg }

// Dispatcher exposes the dispatcher.
func (c *Client) Dispatcher() *Dispatcher { return c.disp }

// Bridge exposes the request/response bridge.
func (c *Client) Bridge() *Bridge { return c.bridge }

// IsDev reports whether the client runs in a development build.
func (c *Client) IsDev() bool { return c.dev }

// Subscribe registers fn for topic.
func (c *Client) Subscribe(topic string, fn cipc.MessageHandler) cipc.ListenKey {
	return c.reg.Subscribe(topic, fn)
}

// Unsubscribe removes a subscription.
func (c *Client) Unsubscribe(key cipc.ListenKey) { c.reg.Unsubscribe(key) }

// HandleMessage dispatches an envelope as if it had arrived from the host.
func (c *Client) HandleMessage(message any) { c.disp.HandleMessage(message) }

// WireUp attaches the dispatcher to the channel's push stream. Calling it again
// replaces the previous listener.
func (c *Client) WireUp(ctx context.Context) error {
	unwire, err := c.disp.WireUp(ctx, c.ch)
	if err != nil {
		return err
	}

	c.mu.Lock()
	prev := c.unwire
	c.unwire = unwire
	c.mu.Unlock()

	if prev != nil {
		prev()
	}

	return nil
}

// Invoke sends a named request through the bridge.
func (c *Client) Invoke(ctx context.Context, channel string, arg any) (any, error) {
	return c.bridge.Invoke(ctx, channel, arg)
}

// Post sends a named request and discards the result.
func (c *Client) Post(ctx context.Context, channel string, arg any) error {
	return c.bridge.Post(ctx, channel, arg)
}

// CallClient is a typed helper to call through a Client.
func CallClient[R any](ctx context.Context, c *Client, channel string, arg any, validate Validator[R]) (R, bool, error) {
	return Call(ctx, c.bridge, channel, arg, validate)
}

// Close detaches the push listener. Subscriptions are left to their owners.
func (c *Client) Close() error {
	c.mu.Lock()
	unwire := c.unwire
	c.unwire = nil
	c.mu.Unlock()

	if unwire != nil {
		unwire()
	}

	return nil
}
