// Package transport opens the host channel named by a config.Config.
package transport

import (
	"context"
	"fmt"

	"github.com/next-trace/scg-ipc-sync/adapters/inmemory"
	"github.com/next-trace/scg-ipc-sync/adapters/kafka"
	"github.com/next-trace/scg-ipc-sync/adapters/nats"
	"github.com/next-trace/scg-ipc-sync/adapters/rabbitmq"
	"github.com/next-trace/scg-ipc-sync/adapters/websocket"
	"github.com/next-trace/scg-ipc-sync/config"
	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
)

// Open connects the configured transport and, when cfg.Push names kafka,
// swaps its push stream for a kafka consumer. The cleanup releases everything
// opened, in reverse order.
func Open(ctx context.Context, cfg config.Config) (cipc.Channel, func(), error) { //nolint:ireturn
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	ch, cleanup, err := openPrimary(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Push != config.TransportKafka {
		return ch, cleanup, nil
	}

	src, stop, err := kafka.NewWithKgo(kafka.Config{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		Group:    cfg.Kafka.Group,
		ClientID: cfg.Kafka.ClientID,
	})
	if err != nil {
		cleanup()

		return nil, nil, err
	}

	return cipc.Compose(ch, src), func() { stop(); cleanup() }, nil
}

func openPrimary(ctx context.Context, cfg config.Config) (cipc.Channel, func(), error) { //nolint:ireturn
	switch cfg.Transport {
	case config.TransportMemory:
		return inmemory.New(), func() {}, nil
	case config.TransportNATS:
		return nats.NewWithNATS(nats.Config{
			URL:           cfg.NATS.URL,
			Name:          cfg.NATS.Name,
			ConnTimeout:   cfg.NATS.ConnTimeout,
			MaxReconnects: cfg.NATS.MaxReconnects,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			PushTopic:     cfg.PushTopic,
		})
	case config.TransportRabbitMQ:
		pushQueue := cfg.RabbitMQ.PushQueue
		if pushQueue == "" {
			pushQueue = cfg.PushTopic
		}

		return rabbitmq.NewWithAMQPConn(rabbitmq.Config{
			URL:             cfg.RabbitMQ.URL,
			ConnTimeout:     cfg.RabbitMQ.ConnTimeout,
			RequestExchange: cfg.RabbitMQ.RequestExchange,
			RoutingPrefix:   cfg.RabbitMQ.RoutingPrefix,
			PushQueue:       pushQueue,
		})
	case config.TransportWebsocket:
		return websocket.Dial(ctx, websocket.Config{
			URL:              cfg.Websocket.URL,
			HandshakeTimeout: cfg.Websocket.HandshakeTimeout,
			PingInterval:     cfg.Websocket.PingInterval,
		})
	default:
		return nil, nil, fmt.Errorf("transport %q: %w", cfg.Transport, berr.ErrConfigurationInvalid)
	}
}
