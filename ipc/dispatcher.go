package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
)

// Envelope is an inbound message whose keys are topics.
type Envelope map[string]any

// Dispatcher fans inbound envelopes out to the subscriptions of a Registry.
type Dispatcher struct {
	reg    *Registry
	logger *slog.Logger
}

// NewDispatcher constructs a Dispatcher over reg.
func NewDispatcher(reg *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{reg: reg, logger: logger}
}

// HandleMessage delivers every topic carried by message to that topic's current
// subscribers, passing the associated value verbatim. Topics are visited in
// sorted order and all of them are dispatched before HandleMessage returns.
//
// A message that is not keyed, or that reaches no subscriber, is logged as
// unhandled. A panicking handler is logged and does not stop the others.
func (d *Dispatcher) HandleMessage(message any) {
	handled := false

	if env, ok := asEnvelope(message); ok {
		topics := make([]string, 0, len(env))
		for topic := range env {
			topics = append(topics, topic)
		}

		slices.Sort(topics)

		for _, topic := range topics {
			for _, h := range d.reg.handlers(topic) {
				handled = true

				d.logger.Debug("handling message", "topic", topic)
				d.call(topic, h, env[topic])
			}
		}
	}

	if !handled {
		d.logger.Error("unhandled message", "message", message, "error", berr.ErrUnhandledMessage)
	}
}

// HandleFrame is the raw listener for the host's async stream. A well formed frame
// is {"message": envelope}, optionally wrapped in a one-element array.
func (d *Dispatcher) HandleFrame(data []byte) {
	msg, err := unwrapFrame(data)
	if err != nil {
		d.logger.Error("malformed async message", "frame", string(data), "error", err)
		return
	}

	d.logger.Debug("async message formed properly")
	d.HandleMessage(msg)
}

// WireUp attaches HandleFrame to src and returns the function that detaches it.
func (d *Dispatcher) WireUp(ctx context.Context, src cipc.PushSource) (func(), error) {
	if src == nil {
		d.logger.Error("push source is not set")
		return nil, fmt.Errorf("wire up: %w", berr.ErrNotConnected)
	}

	unlisten, err := src.Listen(ctx, d.HandleFrame)
	if err != nil {
		return nil, fmt.Errorf("wire up: %w", err)
	}

	d.logger.Debug("push source wired")

	return unlisten, nil
}

func (d *Dispatcher) call(topic string, h cipc.MessageHandler, val any) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("message handler panicked", "topic", topic, "panic", r)
		}
	}()

	h(val)
}

func asEnvelope(message any) (map[string]any, bool) {
	switch m := message.(type) {
	case Envelope:
		return m, m != nil
	case map[string]any:
		return m, m != nil
	default:
		return nil, false
	}
}

func unwrapFrame(data []byte) (any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", berr.ErrMalformedMessage, err)
	}

	if arr, ok := raw.([]any); ok {
		if len(arr) == 0 {
			return nil, fmt.Errorf("%w: empty frame", berr.ErrMalformedMessage)
		}

		raw = arr[0]
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: frame is not an object", berr.ErrMalformedMessage)
	}

	msg, ok := obj["message"]
	if !ok {
		return nil, fmt.Errorf("%w: frame has no message", berr.ErrMalformedMessage)
	}

	return msg, nil
}
