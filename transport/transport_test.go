package transport_test

import (
	"errors"
	"testing"
	"time"

	"github.com/next-trace/scg-ipc-sync/adapters/inmemory"
	"github.com/next-trace/scg-ipc-sync/config"
	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
	"github.com/next-trace/scg-ipc-sync/transport"
)

func TestOpen_Memory(t *testing.T) {
	ch, cleanup, err := transport.Open(t.Context(), config.Config{Transport: config.TransportMemory, PushTopic: "p"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer cleanup()

	if _, ok := ch.(*inmemory.Host); !ok {
		t.Fatalf("want in-memory host, got %T", ch)
	}

	res, err := ch.Invoke(t.Context(), cipc.ChannelReadFromStorage, "missing")
	if err != nil || res != nil {
		t.Fatalf("res=%v err=%v", res, err)
	}
}

func TestOpen_KafkaPushComposes(t *testing.T) {
	cfg := config.Config{
		Transport: config.TransportMemory,
		Push:      config.TransportKafka,
		PushTopic: "p",
		Kafka:     config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}, Topic: "renderer-push"},
	}

	ch, cleanup, err := transport.Open(t.Context(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer cleanup()

	if _, ok := ch.(*inmemory.Host); ok {
		t.Fatalf("push stream was not replaced")
	}

	if _, err := ch.Invoke(t.Context(), cipc.ChannelWriteToStorage, []string{"k", "v"}); err != nil {
		t.Fatalf("invoke still goes to the primary transport: %v", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, _, err := transport.Open(t.Context(), config.Config{Transport: "nats", PushTopic: "p"}); !errors.Is(err, berr.ErrConfigurationInvalid) {
		t.Fatalf("want ErrConfigurationInvalid, got %v", err)
	}

	cfg := config.Config{
		Transport: config.TransportNATS,
		PushTopic: "p",
		NATS:      config.NATSConfig{URL: "nats://127.0.0.1:1", ConnTimeout: 100 * time.Millisecond},
	}

	if _, _, err := transport.Open(t.Context(), cfg); !errors.Is(err, berr.ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}
}
