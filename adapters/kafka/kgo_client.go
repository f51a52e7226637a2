package kafka

import (
	"context"
	"crypto/tls"
	"fmt"

	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Concrete franz-go based constructor and reader wrapper.

type Config struct {
	Brokers  []string
	Topic    string
	Group    string
	ClientID string
	TLS      *tls.Config
}

type kgoReader struct{ cl *kgo.Client }

func (r kgoReader) Poll(ctx context.Context) ([][]byte, error) {
	fetches := r.cl.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, kgo.ErrClientClosed
	}

	if errs := fetches.Errors(); len(errs) > 0 {
		e := errs[0]

		return nil, fmt.Errorf("topic %s partition %d: %w", e.Topic, e.Partition, e.Err)
	}

	var out [][]byte

	fetches.EachRecord(func(rec *kgo.Record) {
		out = append(out, rec.Value)
	})

	return out, nil
}

// NewWithKgo builds a franz-go consumer based Adapter. The returned cleanup should be called to close the client.
func NewWithKgo(cfg Config) (*Adapter, func(), error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil, fmt.Errorf("%w: kafka brokers required", berr.ErrNotConnected)
	}

	if cfg.Topic == "" {
		return nil, nil, fmt.Errorf("%w: kafka topic required", berr.ErrConfigurationInvalid)
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
	}

	if cfg.Group != "" {
		opts = append(opts, kgo.ConsumerGroup(cfg.Group))
	} else {
		opts = append(opts, kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()))
	}

	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	if cfg.TLS != nil {
		opts = append(opts, kgo.DialTLSConfig(cfg.TLS))
	}

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: kafka client init: %w", berr.ErrNotConnected, err)
	}

	ad := New(kgoReader{cl: cl})
	cleanup := func() { cl.Close() }

	return ad, cleanup, nil
}
