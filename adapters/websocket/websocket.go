package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
)

// Conn is the part of *websocket.Conn the adapter uses.
// Reads happen on one goroutine; writes are serialized by the adapter.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type reply struct {
	rep cipc.Reply
	err error
}

// Adapter implements cipc.Channel over one websocket connection.
type Adapter struct {
	conn Conn

	writeMu sync.Mutex

	mu        sync.Mutex
	pending   map[string]chan reply
	listeners map[uint64]func([]byte)
	nextID    uint64
	readErr   error

	// push frames wait here for the delivery goroutine.
	qmu    sync.Mutex
	queued [][]byte
	wake   chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

var _ cipc.Channel = (*Adapter)(nil)

// New starts the read loop on c. Close stops it.
func New(c Conn) *Adapter {
	a := &Adapter{
		conn:      c,
		pending:   make(map[string]chan reply),
		listeners: make(map[uint64]func([]byte)),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	if c == nil {
		a.readErr = berr.ErrNotConnected
		close(a.done)

		return a
	}

	go a.readLoop()
	go a.deliverLoop()

	return a
}

func (a *Adapter) Invoke(ctx context.Context, channel string, arg any) (any, error) {
	if err := a.ready(ctx, "invoke"); err != nil {
		return nil, err
	}

	body, err := cipc.MarshalArg(arg)
	if err != nil {
		return nil, fmt.Errorf("websocket invoke serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	req := cipc.Request{ID: uuid.NewString(), Channel: channel, Arg: body}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("websocket invoke serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	wait := make(chan reply, 1)

	a.mu.Lock()
	if a.readErr != nil {
		err := a.readErr
		a.mu.Unlock()

		return nil, fmt.Errorf("websocket invoke: %w", errors.Join(berr.ErrNotConnected, err))
	}
	a.pending[req.ID] = wait
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.pending, req.ID)
		a.mu.Unlock()
	}()

	if err := a.write(gws.TextMessage, data); err != nil {
		return nil, fmt.Errorf("websocket invoke %s write: %w", channel, errors.Join(berr.ErrInvokeFailed, err))
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-wait:
		if r.err != nil {
			return nil, fmt.Errorf("websocket invoke %s: %w", channel, errors.Join(berr.ErrInvokeFailed, r.err))
		}

		if r.rep.Error != "" {
			return nil, fmt.Errorf("websocket invoke %s: %w: %s", channel, berr.ErrRemote, r.rep.Error)
		}

		res, err := cipc.UnmarshalResult(r.rep.Result)
		if err != nil {
			return nil, fmt.Errorf("websocket invoke %s decode: %w", channel, errors.Join(berr.ErrSerializationFailed, err))
		}

		return res, nil
	}
}

// Listen registers handler for push frames. Handlers run in arrival order on a
// delivery goroutine separate from the read loop, so a handler may call Invoke.
func (a *Adapter) Listen(ctx context.Context, handler func(frame []byte)) (func(), error) {
	if err := a.ready(ctx, "listen"); err != nil {
		return nil, err
	}

	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = handler
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}, nil
}

// Ping writes a ping control message.
func (a *Adapter) Ping() error { return a.write(gws.PingMessage, nil) }

// Done is closed once the read loop has stopped.
func (a *Adapter) Done() <-chan struct{} { return a.done }

// Err reports why the read loop stopped, or nil while it runs.
func (a *Adapter) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.readErr
}

// Close sends a normal close frame, closes the connection and waits for the read loop.
func (a *Adapter) Close() error {
	if a.conn == nil {
		return nil
	}

	var err error

	a.closeOnce.Do(func() {
		_ = a.write(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
		err = a.conn.Close()
		<-a.done
	})

	return err
}

func (a *Adapter) ready(ctx context.Context, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := a.Err(); err != nil {
		return fmt.Errorf("websocket %s: %w", label, errors.Join(berr.ErrNotConnected, err))
	}

	return nil
}

func (a *Adapter) write(messageType int, data []byte) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	return a.conn.WriteMessage(messageType, data)
}

// internal helpers (read loop)

func (a *Adapter) readLoop() {
	defer close(a.done)

	for {
		mt, data, err := a.conn.ReadMessage()
		if err != nil {
			a.stop(err)

			return
		}

		if mt != gws.TextMessage && mt != gws.BinaryMessage {
			continue
		}

		if rep, ok := asReply(data); ok {
			a.resolve(rep)

			continue
		}

		a.enqueue(data)
	}
}

func (a *Adapter) enqueue(data []byte) {
	a.qmu.Lock()
	a.queued = append(a.queued, data)
	a.qmu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// deliverLoop hands queued push frames to listeners. It drains what is left
// after the read loop stops and then exits.
func (a *Adapter) deliverLoop() {
	for {
		a.qmu.Lock()
		batch := a.queued
		a.queued = nil
		a.qmu.Unlock()

		for _, data := range batch {
			a.deliver(data)
		}

		if len(batch) > 0 {
			continue
		}

		select {
		case <-a.wake:
		case <-a.done:
			a.qmu.Lock()
			empty := len(a.queued) == 0
			a.qmu.Unlock()

			if empty {
				return
			}
		}
	}
}

func (a *Adapter) deliver(data []byte) {
	a.mu.Lock()
	ls := make([]func([]byte), 0, len(a.listeners))
	for _, l := range a.listeners {
		ls = append(ls, l)
	}
	a.mu.Unlock()

	for _, l := range ls {
		l(data)
	}
}

func (a *Adapter) resolve(rep cipc.Reply) {
	a.mu.Lock()
	wait, ok := a.pending[rep.ID]
	a.mu.Unlock()

	if !ok {
		return
	}

	select {
	case wait <- reply{rep: rep}:
	default:
	}
}

func (a *Adapter) stop(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.readErr = err

	for _, wait := range a.pending {
		select {
		case wait <- reply{err: errors.Join(berr.ErrNotConnected, err)}:
		default:
		}
	}
}

// asReply reports whether data is an object carrying a reply id.
// Anything else, including the array frame form, is a push.
func asReply(data []byte) (cipc.Reply, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return cipc.Reply{}, false
	}

	var rep cipc.Reply
	if err := json.Unmarshal(trimmed, &rep); err != nil || rep.ID == "" {
		return cipc.Reply{}, false
	}

	return rep, true
}
