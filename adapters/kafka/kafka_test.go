package kafka_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/next-trace/scg-ipc-sync/adapters/kafka"
	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	"github.com/next-trace/scg-ipc-sync/ipc"
)

// Unified Kafka adapter tests (single file).

// fakeReader hands out queued batches, then blocks until ctx ends.
type fakeReader struct {
	mu      sync.Mutex
	batches [][][]byte
	errs    []error
	polls   int
}

func (f *fakeReader) Poll(ctx context.Context) ([][]byte, error) {
	f.mu.Lock()
	f.polls++

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()

		return nil, err
	}

	if len(f.batches) > 0 {
		b := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()

		return b, nil
	}
	f.mu.Unlock()

	<-ctx.Done()

	return nil, ctx.Err()
}

func TestKafka_ListenDeliversRecords(t *testing.T) {
	fr := &fakeReader{batches: [][][]byte{
		{[]byte(`{"message":{"a":1}}`), []byte(`{"message":{"b":2}}`)},
	}}
	ad := kafka.New(fr)

	got := make(chan string, 2)

	unlisten, err := ad.Listen(t.Context(), func(f []byte) { got <- string(f) })
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	for _, want := range []string{`{"message":{"a":1}}`, `{"message":{"b":2}}`} {
		select {
		case f := <-got:
			if f != want {
				t.Fatalf("frame=%s want %s", f, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing frame %s", want)
		}
	}

	unlisten()
	unlisten()
}

func TestKafka_PollErrorsAreReportedAndRetried(t *testing.T) {
	fr := &fakeReader{
		errs:    []error{errors.New("broker down")},
		batches: [][][]byte{{[]byte(`{"message":{"x":true}}`)}},
	}
	ad := kafka.New(fr)
	ad.Backoff = time.Millisecond

	var (
		mu   sync.Mutex
		seen []error
	)

	ad.OnError = func(err error) {
		mu.Lock()
		seen = append(seen, err)
		mu.Unlock()
	}

	got := make(chan []byte, 1)

	unlisten, err := ad.Listen(t.Context(), func(f []byte) { got <- f })
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer unlisten()

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatalf("no frame after retry")
	}

	mu.Lock()
	defer mu.Unlock()

	if len(seen) != 1 || !errors.Is(seen[0], berr.ErrListenFailed) {
		t.Fatalf("errors=%v", seen)
	}
}

func TestKafka_NilReaderAndCancelledContext(t *testing.T) {
	if _, err := kafka.New(nil).Listen(t.Context(), func([]byte) {}); !errors.Is(err, berr.ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := kafka.New(&fakeReader{}).Listen(ctx, func([]byte) {}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestKafka_FeedsDispatcher(t *testing.T) {
	fr := &fakeReader{batches: [][][]byte{{[]byte(`[{"message":{"theme":"dark"}}]`)}}}

	reg := ipc.NewRegistry()
	disp := ipc.NewDispatcher(reg, nil)

	got := make(chan any, 1)
	reg.Subscribe("theme", func(v any) { got <- v })

	unwire, err := disp.WireUp(t.Context(), kafka.New(fr))
	if err != nil {
		t.Fatalf("wire up: %v", err)
	}
	defer unwire()

	select {
	case v := <-got:
		if v != "dark" {
			t.Fatalf("v=%v", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("not dispatched")
	}
}

func TestNewWithKgo_Validation(t *testing.T) {
	if _, _, err := kafka.NewWithKgo(kafka.Config{}); !errors.Is(err, berr.ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}

	if _, _, err := kafka.NewWithKgo(kafka.Config{Brokers: []string{"localhost:9092"}}); !errors.Is(err, berr.ErrConfigurationInvalid) {
		t.Fatalf("want ErrConfigurationInvalid, got %v", err)
	}
}
