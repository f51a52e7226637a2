package ipc

import "context"

// Invoker performs one request/response exchange with the host process.
// A nil arg means the request carries no argument. Implementations must be safe
// for concurrent use and must honor ctx cancellation while awaiting the reply.
type Invoker interface {
	Invoke(ctx context.Context, channel string, arg any) (any, error)
}

// PushSource delivers raw push frames sent by the host on its single async stream.
// Listen registers handler and returns a function that removes it again.
// Frames are handed over as received; validating their shape is the caller's job.
type PushSource interface {
	Listen(ctx context.Context, handler func(frame []byte)) (unlisten func(), err error)
}

// Channel is a convenience interface combining request/response and push delivery.
// Any transport that implements both can back an ipc.Client.
type Channel interface {
	Invoker
	PushSource
}

type composite struct {
	Invoker
	PushSource
}

// Compose joins an Invoker and a PushSource served by different transports.
func Compose(inv Invoker, push PushSource) Channel { //nolint:ireturn
	return composite{Invoker: inv, PushSource: push}
}
