package effects

import (
	"context"
	"errors"
	"fmt"

	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
	"github.com/next-trace/scg-ipc-sync/contract/state"
)

// Getter fetches the initial value of a one-way binding. Reporting false leaves
// the observable at its default.
type Getter[T any] func(ctx context.Context) (T, bool, error)

// OneWayOptions configures host pushes for OneWayFromMain. An empty AsyncKey
// disables them. A nil Decode falls back to Coerce.
type OneWayOptions[T any] struct {
	AsyncKey string
	Decode   func(val any) (T, bool)
}

// OneWayFromMain binds an observable that only the host may change. The initial
// value comes from get; pushes on opts.AsyncKey replace it. Setting the value
// locally is reported as a contract violation and never reaches the host.
func OneWayFromMain[T any](s *Syncer, get Getter[T], opts OneWayOptions[T]) state.Effect[T] {
	decode := opts.Decode
	if decode == nil {
		decode = Coerce[T]
	}

	return func(p state.Params[T]) func() {
		logger := s.logger.With("key", p.Key)

		if p.Trigger == state.TriggerGet && get != nil {
			s.runner.Go(func() {
				v, ok, err := get(s.ctx)
				if err != nil {
					logger.ErrorContext(s.ctx, "get failed in one way binding", "error", err)
					return
				}

				if ok {
					p.SetSelf(v)
				}
			})
		}

		var lkey *cipc.ListenKey

		if opts.AsyncKey != "" {
			k := s.reg.Subscribe(opts.AsyncKey, func(val any) {
				v, ok := decode(val)
				if !ok {
					logger.Error("async invalid data received", "data", val,
						"error", fmt.Errorf("push %s: %w", opts.AsyncKey, berr.ErrValidationFailed))

					return
				}

				logger.Debug("async data")
				p.SetSelf(v)
			})
			lkey = &k
		}

		p.OnSet(func(newVal, _ state.Value[T]) {
			if newVal.IsDefault {
				return
			}

			s.reportFailure(fmt.Errorf("invalid assignment to server-side-only value %s: %w", p.Key, berr.ErrReadOnly))
		})

		if lkey == nil {
			return nil
		}

		return func() {
			logger.Debug("unsubscribing listener", "topic", lkey.Key)
			s.reg.Unsubscribe(*lkey)
		}
	}
}

// TranslateToMain binds an observable to host storage through a string form.
// It loads once and writes back changed values; it does not follow host pushes.
func TranslateToMain[T any](s *Syncer, toString func(v T) string, fromString func(raw string) (T, bool)) state.Effect[T] {
	return func(p state.Params[T]) func() {
		b := &twoWay[T]{
			s:      s,
			p:      p,
			logger: s.logger.WithGroup("translate"),
			encode: func(v T) (string, error) { return toString(v), nil },
			decodeStored: func(raw string) (T, error) {
				v, ok := fromString(raw)
				if !ok {
					return v, errors.New("string form not recognized")
				}

				return v, nil
			},
		}

		return b.activate("")
	}
}

// BidirectionalSyncWithTranslate binds an observable to host storage through the
// syncer's codec. toWire and fromWire translate between T and codec-ready values;
// write-backs are skipped when the encoded form is unchanged. With asyncUpdates,
// host pushes on the observable's own key are applied too.
func BidirectionalSyncWithTranslate[T any](
	s *Syncer,
	toWire func(v T) any,
	fromWire func(val any) (T, bool),
	asyncUpdates bool,
) state.Effect[T] {
	return func(p state.Params[T]) func() {
		b := &twoWay[T]{
			s:      s,
			p:      p,
			logger: s.logger.WithGroup("sync"),
			encode: func(v T) (string, error) {
				enc, err := s.codec.Encode(toWire(v))
				if err != nil {
					return "", fmt.Errorf("encode %s: %w", p.Key, errors.Join(berr.ErrSerializationFailed, err))
				}

				return enc, nil
			},
			decodeStored: func(raw string) (T, error) {
				var zero T

				val, err := s.codec.Decode(raw)
				if err != nil {
					return zero, err
				}

				v, ok := fromWire(val)
				if !ok {
					return zero, errors.New("decoded value has the wrong shape")
				}

				return v, nil
			},
			decodePush: fromWire,
		}

		topic := ""
		if asyncUpdates {
			topic = p.Key
		}

		return b.activate(topic)
	}
}

// SyncWithMain is BidirectionalSyncWithTranslate for values that are already
// wire-ready: T is encoded as is and decoded values are coerced back into T.
func SyncWithMain[T any](s *Syncer, asyncUpdates bool) state.Effect[T] {
	return BidirectionalSyncWithTranslate(s, func(v T) any { return v }, Coerce[T], asyncUpdates)
}
