package ipc_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/next-trace/scg-ipc-sync/adapters/inmemory"
	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	"github.com/next-trace/scg-ipc-sync/internal/logtest"
	"github.com/next-trace/scg-ipc-sync/ipc"
)

type failingInvoker struct{ err error }

func (f failingInvoker) Invoke(ctx context.Context, channel string, arg any) (any, error) {
	return nil, f.err
}

func TestBridge_NotConnected(t *testing.T) {
	b := ipc.NewBridge(nil, nil)

	if _, err := b.Invoke(t.Context(), "x", nil); !errors.Is(err, berr.ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}

	if _, _, err := ipc.Call(t.Context(), b, "x", 1, ipc.IsString); !errors.Is(err, berr.ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}

	if err := b.Post(t.Context(), "x", 1); !errors.Is(err, berr.ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}
}

func TestBridge_TransportErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	b := ipc.NewBridge(failingInvoker{err: boom}, nil)

	if _, _, err := ipc.Call(t.Context(), b, "x", nil, ipc.Any); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	if _, _, err := b.ReadFromStorage(t.Context(), "k"); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
}

func TestBridge_CallValidates(t *testing.T) {
	host := inmemory.New()
	host.Handle("show-open-dialog", func(ctx context.Context, arg any) (any, error) {
		return []any{"/tmp/a", "/tmp/b"}, nil
	})
	host.Handle("get-volume", func(ctx context.Context, arg any) (any, error) {
		return "loud", nil
	})

	rec, logger := logtest.New()
	b := ipc.NewBridge(host, logger)

	paths, ok, err := ipc.Call(t.Context(), b, "show-open-dialog", map[string]any{"multi": true}, ipc.IsStringSlice)
	if err != nil || !ok || len(paths) != 2 || paths[1] != "/tmp/b" {
		t.Fatalf("paths=%v ok=%v err=%v", paths, ok, err)
	}

	vol, ok, err := ipc.Call(t.Context(), b, "get-volume", nil, ipc.IsNumber)
	if err != nil || ok || vol != 0 {
		t.Fatalf("bad result must degrade: vol=%v ok=%v err=%v", vol, ok, err)
	}

	if rec.Count(slog.LevelError, "call main result failed typecheck") != 1 {
		t.Fatalf("records=%+v", rec.Records())
	}

	if rec.Count(slog.LevelDebug, "invoking main") != 2 || rec.Count(slog.LevelDebug, "invoke main returned") != 2 {
		t.Fatalf("request/response not traced: %+v", rec.Records())
	}
}

func TestBridge_Storage(t *testing.T) {
	host := inmemory.New()
	rec, logger := logtest.New()
	b := ipc.NewBridge(host, logger)

	if _, ok, err := b.ReadFromStorage(t.Context(), "theme"); ok || err != nil {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}

	if err := b.WriteToStorage(t.Context(), "theme", "dark"); err != nil {
		t.Fatalf("write: %v", err)
	}

	v, ok, err := b.ReadFromStorage(t.Context(), "theme")
	if err != nil || !ok || v != "dark" {
		t.Fatalf("v=%q ok=%v err=%v", v, ok, err)
	}

	writes := host.CallsTo("write-to-storage")
	if len(writes) != 1 {
		t.Fatalf("writes=%v", writes)
	}

	if pair, _ := ipc.IsStringSlice(writes[0].Arg); len(pair) != 2 || pair[0] != "theme" || pair[1] != "dark" {
		t.Fatalf("write arg=%v", writes[0].Arg)
	}

	if rec.Errors() != 0 {
		t.Fatalf("records=%+v", rec.Records())
	}

	host.Handle("read-from-storage", func(ctx context.Context, arg any) (any, error) { return 12, nil })

	if _, ok, err := b.ReadFromStorage(t.Context(), "theme"); ok || err != nil {
		t.Fatalf("non-string: ok=%v err=%v", ok, err)
	}

	if rec.Count(slog.LevelError, "read from storage result failed typecheck") != 1 {
		t.Fatalf("records=%+v", rec.Records())
	}
}

func TestValidators(t *testing.T) {
	if _, ok := ipc.IsString(3); ok {
		t.Fatalf("IsString accepted an int")
	}

	if n, ok := ipc.IsNumber(int64(3)); !ok || n != 3 {
		t.Fatalf("IsNumber int64: %v %v", n, ok)
	}

	if _, ok := ipc.IsNumber("3"); ok {
		t.Fatalf("IsNumber accepted a string")
	}

	if _, ok := ipc.IsVoid(nil); !ok {
		t.Fatalf("IsVoid rejected nil")
	}

	if _, ok := ipc.IsVoid(false); ok {
		t.Fatalf("IsVoid accepted a value")
	}

	if _, ok := ipc.IsStringSlice([]any{"a", 1}); ok {
		t.Fatalf("IsStringSlice accepted a mixed array")
	}

	if _, ok := ipc.IsObject(map[string]any(nil)); ok {
		t.Fatalf("IsObject accepted nil map")
	}

	if b, ok := ipc.IsBool(true); !ok || !b {
		t.Fatalf("IsBool")
	}

	if _, ok := ipc.Any(nil); !ok {
		t.Fatalf("Any rejected nil")
	}
}

func TestBridge_MiddlewareOrder(t *testing.T) {
	host := inmemory.New()

	var order []string

	tag := func(name string) ipc.InvokeMiddleware {
		return func(next ipc.InvokeFunc) ipc.InvokeFunc {
			return func(ctx context.Context, channel string, arg any) (any, error) {
				order = append(order, name+">"+channel)
				res, err := next(ctx, channel, arg)
				order = append(order, name+"<")

				return res, err
			}
		}
	}

	c := ipc.New(host, nil, ipc.WithInvokeMiddleware(tag("outer")), ipc.WithInvokeMiddleware(tag("inner")))

	if err := c.Post(t.Context(), "write-to-storage", []string{"k", "v"}); err != nil {
		t.Fatalf("post: %v", err)
	}

	want := []string{"outer>write-to-storage", "inner>write-to-storage", "inner<", "outer<"}
	if len(order) != len(want) {
		t.Fatalf("order=%v", order)
	}

	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order=%v want %v", order, want)
		}
	}

	if v, _ := host.Stored("k"); v != "v" {
		t.Fatalf("request did not reach the host: %q", v)
	}
}
