package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Concrete AMQP connection-backed Conn and constructor.

type Config struct {
	URL             string
	ConnTimeout     time.Duration
	RequestExchange string
	RoutingPrefix   string
	PushQueue       string
}

type amqpConn struct{ ch *amqp.Channel }

func (c amqpConn) Publish(ctx context.Context, m PubMsg) error {
	var h amqp.Table
	if len(m.Headers) > 0 {
		h = amqp.Table{}
		for k, v := range m.Headers {
			h[k] = v
		}
	}

	return c.ch.PublishWithContext(
		ctx,
		m.Exchange,
		m.RoutingKey,
		false,
		false,
		amqp.Publishing{
			Headers:       h,
			ContentType:   "application/json",
			Body:          m.Body,
			ReplyTo:       m.ReplyTo,
			CorrelationId: m.CorrelationID,
		},
	)
}

// Consume uses auto-ack, which direct reply-to requires.
func (c amqpConn) Consume(queue string) (<-chan Delivery, func(), error) {
	tag := "ipcsync-" + uuid.NewString()

	msgs, err := c.ch.Consume(queue, tag, true, false, false, false, nil)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan Delivery)

	go func() {
		defer close(out)

		for m := range msgs {
			out <- Delivery{Body: m.Body, CorrelationID: m.CorrelationId}
		}
	}()

	stop := func() { _ = c.ch.Cancel(tag, false) }

	return out, stop, nil
}

// NewWithAMQPConn dials RabbitMQ, declares the push queue and returns an Adapter and cleanup.
// Reply and push consumers share the publishing channel.
func NewWithAMQPConn(cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: rabbitmq url required", berr.ErrNotConnected)
	}

	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "scg-ipc-sync"},
		Dial:       amqp.DefaultDial(cfg.ConnTimeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: rabbitmq dial: %w", berr.ErrNotConnected, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, nil, fmt.Errorf("%w: rabbitmq channel: %w", berr.ErrNotConnected, err)
	}

	ad := New(amqpConn{ch: ch})
	ad.Exchange = cfg.RequestExchange

	if cfg.RoutingPrefix != "" {
		ad.Prefix = cfg.RoutingPrefix
	}

	if cfg.PushQueue != "" {
		ad.PushQueue = cfg.PushQueue
	}

	if _, err := ch.QueueDeclare(ad.PushQueue, false, true, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, nil, fmt.Errorf("%w: rabbitmq declare %s: %w", berr.ErrListenFailed, ad.PushQueue, err)
	}

	cleanup := func() {
		_ = ad.Close()
		_ = ch.Close()
		_ = conn.Close()
	}

	return ad, cleanup, nil
}
