package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
)

const (
	defaultPrefix = "ipc."

	// DirectReplyTo is the pseudo-queue RabbitMQ routes RPC replies through.
	DirectReplyTo = "amq.rabbitmq.reply-to"
)

type PubMsg struct {
	Exchange      string
	RoutingKey    string
	Body          []byte
	Headers       map[string]string
	ReplyTo       string
	CorrelationID string
}

type Delivery struct {
	Body          []byte
	CorrelationID string
}

// Conn is the slice of an AMQP channel the adapter needs.
// Consume delivers until stop is called or the underlying channel closes,
// after which the delivery channel is closed.
type Conn interface {
	Publish(ctx context.Context, m PubMsg) error
	Consume(queue string) (deliveries <-chan Delivery, stop func(), err error)
}

type reply struct {
	body []byte
	err  error
}

// Adapter implements cipc.Channel over AMQP: invokes are RPC publishes answered
// on the direct reply-to queue, push frames are consumed from PushQueue.
type Adapter struct {
	Conn       Conn
	Exchange   string
	Prefix     string
	PushQueue  string
	Propagator cipc.HeaderPropagator // optional, for context propagation into headers

	mu          sync.Mutex
	pending     map[string]chan reply
	consuming   bool
	stopReplies func()
}

var _ cipc.Channel = (*Adapter)(nil)

func New(c Conn) *Adapter {
	return &Adapter{Conn: c, Prefix: defaultPrefix, PushQueue: cipc.DefaultPushTopic}
}

// NewWithPropagator allows configuring a HeaderPropagator for context propagation.
func NewWithPropagator(c Conn, hp cipc.HeaderPropagator) *Adapter {
	a := New(c)
	a.Propagator = hp

	return a
}

func (a *Adapter) Invoke(ctx context.Context, channel string, arg any) (any, error) {
	if err := a.ready(ctx, "invoke"); err != nil {
		return nil, err
	}

	body, err := cipc.MarshalArg(arg)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq invoke serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	id := uuid.NewString()

	wait, err := a.expect(id)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq invoke %s: %w", channel, errors.Join(berr.ErrInvokeFailed, err))
	}
	defer a.forget(id)

	hdrs := map[string]string{"channel": channel}
	if a.Propagator != nil {
		a.Propagator.Inject(ctx, hdrs)
	}

	msg := PubMsg{
		Exchange:      a.Exchange,
		RoutingKey:    a.Prefix + channel,
		Body:          body,
		Headers:       hdrs,
		ReplyTo:       DirectReplyTo,
		CorrelationID: id,
	}
	if err := a.Conn.Publish(ctx, msg); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, fmt.Errorf("rabbitmq invoke %s publish: %w", channel, errors.Join(berr.ErrInvokeFailed, err))
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-wait:
		if r.err != nil {
			return nil, fmt.Errorf("rabbitmq invoke %s: %w", channel, errors.Join(berr.ErrInvokeFailed, r.err))
		}

		return decodeReply(channel, r.body)
	}
}

func (a *Adapter) Listen(ctx context.Context, handler func(frame []byte)) (func(), error) {
	if err := a.ready(ctx, "listen"); err != nil {
		return nil, err
	}

	deliveries, stop, err := a.Conn.Consume(a.PushQueue)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq listen %s: %w", a.PushQueue, errors.Join(berr.ErrListenFailed, err))
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		for d := range deliveries {
			handler(d.Body)
		}
	}()

	var once sync.Once

	return func() {
		once.Do(func() {
			stop()
			<-done
		})
	}, nil
}

func (a *Adapter) ready(ctx context.Context, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Conn == nil {
		return fmt.Errorf("rabbitmq %s: %w", label, berr.ErrNotConnected)
	}

	return nil
}

// Close stops the reply consumer. Calls still waiting fail with ErrNotConnected.
func (a *Adapter) Close() error {
	a.mu.Lock()
	stop := a.stopReplies
	a.stopReplies = nil
	a.mu.Unlock()

	if stop != nil {
		stop()
	}

	return nil
}

// internal helpers (reply routing)

// expect registers a pending call and makes sure the direct reply-to consumer
// is attached, both under one lock. When the consumer's delivery channel closes
// every pending call fails and the next call attaches it again.
func (a *Adapter) expect(id string) (<-chan reply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.consuming {
		deliveries, stop, err := a.Conn.Consume(DirectReplyTo)
		if err != nil {
			return nil, err
		}

		a.consuming = true
		a.stopReplies = stop

		go a.routeReplies(deliveries)
	}

	ch := make(chan reply, 1)

	if a.pending == nil {
		a.pending = make(map[string]chan reply)
	}
	a.pending[id] = ch

	return ch, nil
}

func (a *Adapter) routeReplies(deliveries <-chan Delivery) {
	for d := range deliveries {
		a.mu.Lock()
		ch, ok := a.pending[d.CorrelationID]
		a.mu.Unlock()

		if !ok {
			continue
		}

		select {
		case ch <- reply{body: d.Body}:
		default:
		}
	}

	a.mu.Lock()
	a.consuming = false
	a.stopReplies = nil
	for _, ch := range a.pending {
		select {
		case ch <- reply{err: berr.ErrNotConnected}:
		default:
		}
	}
	a.mu.Unlock()
}

func (a *Adapter) forget(id string) {
	a.mu.Lock()
	delete(a.pending, id)
	a.mu.Unlock()
}

func decodeReply(channel string, raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var rep cipc.Reply
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, fmt.Errorf("rabbitmq invoke %s decode: %w", channel, errors.Join(berr.ErrSerializationFailed, err))
	}

	if rep.Error != "" {
		return nil, fmt.Errorf("rabbitmq invoke %s: %w: %s", channel, berr.ErrRemote, rep.Error)
	}

	res, err := cipc.UnmarshalResult(rep.Result)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq invoke %s decode: %w", channel, errors.Join(berr.ErrSerializationFailed, err))
	}

	return res, nil
}
