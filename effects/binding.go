package effects

import (
	"log/slog"

	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
	"github.com/next-trace/scg-ipc-sync/contract/state"
)

// twoWay is the shared machinery of the read/write strategies.
type twoWay[T any] struct {
	s      *Syncer
	p      state.Params[T]
	logger *slog.Logger
	led    ledger

	encode       func(v T) (string, error)
	decodeStored func(raw string) (T, error)
	decodePush   func(val any) (T, bool)
}

func (b *twoWay[T]) activate(pushTopic string) func() {
	if b.p.Trigger == state.TriggerGet {
		b.s.runner.Go(b.load)
	}

	var lkey *cipc.ListenKey

	if pushTopic != "" && b.decodePush != nil {
		k := b.s.reg.Subscribe(pushTopic, b.push)
		lkey = &k
	}

	b.p.OnSet(b.changed)

	if lkey == nil {
		return nil
	}

	return func() {
		b.logger.Debug("unsubscribing listener", "topic", lkey.Key)
		b.s.reg.Unsubscribe(*lkey)
	}
}

// load applies the stored value, if any, as the initial value.
func (b *twoWay[T]) load() {
	ctx := b.s.ctx

	raw, ok, err := b.s.bridge.ReadFromStorage(ctx, b.p.Key)
	if err != nil {
		b.logger.ErrorContext(ctx, "get failed", "key", b.p.Key, "error", err)
		return
	}

	if !ok || raw == "" {
		return
	}

	v, err := b.decodeStored(raw)
	if err != nil {
		b.logger.ErrorContext(ctx, "stored value rejected", "key", b.p.Key, "error", decodeFailed(b.p.Key, err))
		return
	}

	b.applyRemote(v)
}

// push applies a value the host sent on the binding's topic.
func (b *twoWay[T]) push(val any) {
	v, ok := b.decodePush(val)
	if !ok {
		b.logger.Error("async invalid data received", "key", b.p.Key, "data", val)
		return
	}

	b.logger.Debug("async data", "key", b.p.Key)
	b.applyRemote(v)
}

func (b *twoWay[T]) applyRemote(v T) {
	if enc, err := b.encode(v); err == nil {
		b.led.remote(enc)
	}

	b.p.SetSelf(v)
}

// changed handles a local change of the observable.
func (b *twoWay[T]) changed(newVal, _ state.Value[T]) {
	if newVal.IsDefault {
		return
	}

	enc, err := b.encode(newVal.V)
	if err != nil {
		b.logger.Error("encode failed", "key", b.p.Key, "error", err)
		return
	}

	d := b.led.local(enc)
	if !d.write {
		return
	}

	b.logger.Debug("saving back to server", "key", b.p.Key)

	b.s.runner.Go(func() {
		ctx := b.s.ctx
		if err := b.s.bridge.WriteToStorage(ctx, b.p.Key, d.data); err != nil {
			b.led.failed(d.data)
			b.logger.ErrorContext(ctx, "save to main failed", "key", b.p.Key, "error", err)

			return
		}

		b.logger.DebugContext(ctx, "saved properly", "key", b.p.Key)
	})
}
