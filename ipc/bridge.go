package ipc

import (
	"context"
	"fmt"
	"log/slog"

	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
)

// InvokeFunc performs one request against the host.
type InvokeFunc func(ctx context.Context, channel string, arg any) (any, error)

// InvokeMiddleware wraps every request sent through a Bridge. Middlewares are
// executed in registration order.
type InvokeMiddleware func(next InvokeFunc) InvokeFunc

// Bridge wraps the host's invoke primitive with request/response logging and
// result validation. It never retries.
type Bridge struct {
	inv    cipc.Invoker
	call   InvokeFunc
	logger *slog.Logger
}

// NewBridge constructs a Bridge over inv. A nil inv yields a Bridge whose calls
// fail with ErrNotConnected.
func NewBridge(inv cipc.Invoker, logger *slog.Logger, mws ...InvokeMiddleware) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bridge{inv: inv, logger: logger}
	if inv == nil {
		return b
	}

	// Build chain so the first registered middleware runs first
	final := InvokeFunc(inv.Invoke)
	for i := len(mws) - 1; i >= 0; i-- {
		final = mws[i](final)
	}

	b.call = final

	return b
}

// Invoke sends a named request and returns the raw result. A nil arg means no
// argument. Connectivity and transport errors are returned to the caller.
func (b *Bridge) Invoke(ctx context.Context, channel string, arg any) (any, error) {
	if b.inv == nil {
		return nil, fmt.Errorf("invoke %q: %w", channel, berr.ErrNotConnected)
	}

	if arg != nil {
		b.logger.DebugContext(ctx, "invoking main", "channel", channel, "arg", arg)
	} else {
		b.logger.DebugContext(ctx, "invoking main", "channel", channel)
	}

	res, err := b.call(ctx, channel, arg)
	if err != nil {
		b.logger.DebugContext(ctx, "invoke main failed", "channel", channel, "error", err)
		return nil, err
	}

	b.logger.DebugContext(ctx, "invoke main returned", "channel", channel, "result", res)

	return res, nil
}

// Call invokes channel and checks the result with validate. A result that fails
// validation is logged and reported as (zero, false, nil); only errors from
// Invoke are returned.
func Call[R any](ctx context.Context, b *Bridge, channel string, arg any, validate Validator[R]) (R, bool, error) {
	var zero R

	res, err := b.Invoke(ctx, channel, arg)
	if err != nil {
		return zero, false, err
	}

	v, ok := validate(res)
	if !ok {
		b.logger.ErrorContext(ctx, "call main result failed typecheck",
			"channel", channel, "result", res, "error", berr.ErrValidationFailed)

		return zero, false, nil
	}

	return v, true, nil
}

// Post invokes channel for its side effect and discards the result.
func (b *Bridge) Post(ctx context.Context, channel string, arg any) error {
	_, _, err := Call(ctx, b, channel, arg, Any)
	return err
}

// ReadFromStorage fetches the stored string for key. A missing key reports
// ("", false, nil); a non-string result is logged and reported the same way.
func (b *Bridge) ReadFromStorage(ctx context.Context, key string) (string, bool, error) {
	res, err := b.Invoke(ctx, cipc.ChannelReadFromStorage, key)
	if err != nil {
		return "", false, err
	}

	if res == nil {
		return "", false, nil
	}

	s, ok := IsString(res)
	if !ok {
		b.logger.ErrorContext(ctx, "read from storage result failed typecheck",
			"key", key, "result", res, "error", berr.ErrValidationFailed)

		return "", false, nil
	}

	return s, true, nil
}

// WriteToStorage stores data under key.
func (b *Bridge) WriteToStorage(ctx context.Context, key, data string) error {
	return b.Post(ctx, cipc.ChannelWriteToStorage, []string{key, data})
}
