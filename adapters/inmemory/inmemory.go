package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
)

// HandlerFunc serves one named channel of the in-memory host.
type HandlerFunc func(ctx context.Context, arg any) (any, error)

// Call records one invoke received by the host.
type Call struct {
	Channel string
	Arg     any
}

// Host is a thread-safe in-process stand-in for the host process.
// It serves read-from-storage and write-to-storage out of a map, accepts extra
// channel handlers, records every invoke, and pushes frames to its listeners.
// Arguments and results are passed through without serialization.
type Host struct {
	mu        sync.Mutex
	handlers  map[string]HandlerFunc
	store     map[string]string
	calls     []Call
	listeners map[int]func([]byte)
	nextID    int
}

// Ensure Host implements the combined contract.
var _ cipc.Channel = (*Host)(nil)

// New creates a host with empty storage.
func New() *Host {
	h := &Host{
		handlers:  make(map[string]HandlerFunc),
		store:     make(map[string]string),
		listeners: make(map[int]func([]byte)),
	}

	h.handlers[cipc.ChannelReadFromStorage] = h.readFromStorage
	h.handlers[cipc.ChannelWriteToStorage] = h.writeToStorage

	return h
}

// Handle installs (or replaces) the handler for channel.
func (h *Host) Handle(channel string, fn HandlerFunc) {
	h.mu.Lock()
	h.handlers[channel] = fn
	h.mu.Unlock()
}

func (h *Host) Invoke(ctx context.Context, channel string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.calls = append(h.calls, Call{Channel: channel, Arg: arg})
	fn, ok := h.handlers[channel]
	h.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("inmemory invoke %q: %w", channel, berr.ErrRemote)
	}

	return fn(ctx, arg)
}

func (h *Host) Listen(ctx context.Context, handler func(frame []byte)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = handler
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}, nil
}

// Push wraps envelope into a frame and delivers it to every listener before returning.
func (h *Host) Push(envelope any) error {
	frame, err := cipc.MarshalFrame(envelope)
	if err != nil {
		return fmt.Errorf("inmemory push serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	h.PushFrame(frame)

	return nil
}

// PushFrame delivers a raw frame to every listener before returning.
func (h *Host) PushFrame(frame []byte) {
	h.mu.Lock()
	ls := make([]func([]byte), 0, len(h.listeners))
	for _, l := range h.listeners {
		ls = append(ls, l)
	}
	h.mu.Unlock()

	for _, l := range ls {
		l(frame)
	}
}

// Seed stores a value as if an earlier session had written it.
func (h *Host) Seed(key, value string) {
	h.mu.Lock()
	h.store[key] = value
	h.mu.Unlock()
}

// Stored returns the value held for key.
func (h *Host) Stored(key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.store[key]

	return v, ok
}

// Calls returns a copy of the invokes received so far.
func (h *Host) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]Call(nil), h.calls...)
}

// CallsTo returns the invokes received on channel.
func (h *Host) CallsTo(channel string) []Call {
	var out []Call

	for _, c := range h.Calls() {
		if c.Channel == channel {
			out = append(out, c)
		}
	}

	return out
}

// Listeners reports how many push listeners are attached.
func (h *Host) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.listeners)
}

func (h *Host) readFromStorage(_ context.Context, arg any) (any, error) {
	key, ok := arg.(string)
	if !ok {
		return nil, fmt.Errorf("inmemory read-from-storage: %w", berr.ErrRemote)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.store[key]
	if !ok {
		return nil, nil
	}

	return v, nil
}

func (h *Host) writeToStorage(_ context.Context, arg any) (any, error) {
	pair, ok := stringPair(arg)
	if !ok {
		return nil, fmt.Errorf("inmemory write-to-storage: %w", berr.ErrRemote)
	}

	h.mu.Lock()
	h.store[pair[0]] = pair[1]
	h.mu.Unlock()

	return nil, nil
}

func stringPair(arg any) ([2]string, bool) {
	switch v := arg.(type) {
	case []string:
		if len(v) == 2 {
			return [2]string{v[0], v[1]}, true
		}
	case []any:
		if len(v) == 2 {
			k, ok1 := v[0].(string)
			d, ok2 := v[1].(string)

			return [2]string{k, d}, ok1 && ok2
		}
	}

	return [2]string{}, false
}
