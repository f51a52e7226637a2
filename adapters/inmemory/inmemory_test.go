package inmemory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/next-trace/scg-ipc-sync/adapters/inmemory"
	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
)

func TestInmemory_StorageChannels_Recordings(t *testing.T) {
	h := inmemory.New()

	// Read a key that was never written
	res, err := h.Invoke(t.Context(), cipc.ChannelReadFromStorage, "theme")
	if err != nil || res != nil {
		t.Fatalf("absent key: res=%v err=%v", res, err)
	}

	// Write it
	if _, err := h.Invoke(t.Context(), cipc.ChannelWriteToStorage, []string{"theme", `"dark"`}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The decoded JSON form of the pair is accepted too
	if _, err := h.Invoke(t.Context(), cipc.ChannelWriteToStorage, []any{"volume", "3"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	res, err = h.Invoke(t.Context(), cipc.ChannelReadFromStorage, "theme")
	if err != nil || res != `"dark"` {
		t.Fatalf("read back: res=%v err=%v", res, err)
	}

	if v, ok := h.Stored("volume"); !ok || v != "3" {
		t.Fatalf("volume=%q ok=%v", v, ok)
	}

	if n := len(h.Calls()); n != 4 {
		t.Fatalf("want 4 calls, got %d", n)
	}

	if n := len(h.CallsTo(cipc.ChannelWriteToStorage)); n != 2 {
		t.Fatalf("want 2 writes, got %d", n)
	}
}

func TestInmemory_MalformedAndUnknown(t *testing.T) {
	h := inmemory.New()

	if _, err := h.Invoke(t.Context(), "no-such-channel", nil); !errors.Is(err, berr.ErrRemote) {
		t.Fatalf("want ErrRemote, got %v", err)
	}

	if _, err := h.Invoke(t.Context(), cipc.ChannelReadFromStorage, 42); !errors.Is(err, berr.ErrRemote) {
		t.Fatalf("want ErrRemote for non-string key, got %v", err)
	}

	if _, err := h.Invoke(t.Context(), cipc.ChannelWriteToStorage, []string{"only-key"}); !errors.Is(err, berr.ErrRemote) {
		t.Fatalf("want ErrRemote for short pair, got %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := h.Invoke(ctx, cipc.ChannelReadFromStorage, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestInmemory_CustomHandler(t *testing.T) {
	h := inmemory.New()
	h.Handle("echo", func(_ context.Context, arg any) (any, error) { return arg, nil })

	res, err := h.Invoke(t.Context(), "echo", map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}

	if m, ok := res.(map[string]any); !ok || m["a"] != 1 {
		t.Fatalf("res=%v", res)
	}
}

func TestInmemory_PushAndListen(t *testing.T) {
	h := inmemory.New()

	var frames []string

	unlisten, err := h.Listen(t.Context(), func(f []byte) { frames = append(frames, string(f)) })
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	if h.Listeners() != 1 {
		t.Fatalf("listeners=%d", h.Listeners())
	}

	if err := h.Push(map[string]any{"volume": 3}); err != nil {
		t.Fatalf("push: %v", err)
	}

	if len(frames) != 1 || frames[0] != `{"message":{"volume":3}}` {
		t.Fatalf("frames=%v", frames)
	}

	if err := h.Push(map[string]any{"bad": func() {}}); !errors.Is(err, berr.ErrSerializationFailed) {
		t.Fatalf("want ErrSerializationFailed, got %v", err)
	}

	unlisten()

	h.PushFrame([]byte(`{"message":{}}`))

	if len(frames) != 1 || h.Listeners() != 0 {
		t.Fatalf("listener still attached: frames=%v", frames)
	}
}

func TestInmemory_ConcurrentSafety(t *testing.T) {
	h := inmemory.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)

		write := func(i int) {
			defer wg.Done()

			_, _ = h.Invoke(t.Context(), cipc.ChannelWriteToStorage, []string{fmt.Sprint("k", i), "v"})
		}

		read := func(i int) {
			defer wg.Done()

			_, _ = h.Invoke(t.Context(), cipc.ChannelReadFromStorage, fmt.Sprint("k", i))
		}

		push := func(_ int) {
			defer wg.Done()

			_ = h.Push(map[string]any{"t": 1})
		}

		go write(i)
		go read(i)
		go push(i)
	}

	wg.Wait()

	if n := len(h.CallsTo(cipc.ChannelWriteToStorage)); n != 50 {
		t.Fatalf("writes=%d", n)
	}

	if n := len(h.CallsTo(cipc.ChannelReadFromStorage)); n != 50 {
		t.Fatalf("reads=%d", n)
	}
}
