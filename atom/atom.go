// Package atom is a small observable-state container that runs state.Effect
// bindings. It is the reference implementation of the container side of the
// contract/state capability.
package atom

import (
	"slices"
	"sync"

	"github.com/next-trace/scg-ipc-sync/contract/state"
)

// external marks handlers and writes that do not belong to an effect.
const external = -1

// Atom holds one value of type T identified by a key.
//
// Effects run once, on first access, with a trigger telling whether that access
// was a read or a write. Other callers block until activation finishes, so every
// OnSet handler is registered before any external write lands. Effects and
// change handlers must not call Get, Set or Reset while activation runs.
// A write made through an effect's SetSelf or ResetSelf is not reported to that
// effect's own OnSet handlers.
type Atom[T any] struct {
	key     string
	def     T
	effects []state.Effect[T]

	mu       sync.Mutex
	val      T
	isSet    bool
	once     sync.Once
	nextID   int
	handlers []handler[T]
	cleanups []func()
}

type handler[T any] struct {
	id    int
	owner int
	fn    func(newVal, oldVal state.Value[T])
}

// New constructs an atom holding def until something sets it.
func New[T any](key string, def T, effects ...state.Effect[T]) *Atom[T] {
	return &Atom[T]{key: key, def: def, val: def, effects: effects}
}

// Key returns the atom's identifier, which effects use as their storage key.
func (a *Atom[T]) Key() string { return a.key }

// Get returns the current value.
func (a *Atom[T]) Get() T { return a.Value().V }

// Value returns the current value together with whether it is the default.
func (a *Atom[T]) Value() state.Value[T] {
	a.activate(state.TriggerGet)

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.snapshot()
}

// Set stores v and notifies subscribers.
func (a *Atom[T]) Set(v T) {
	a.activate(state.TriggerSet)
	a.write(state.Of(v), external)
}

// Reset restores the default and notifies subscribers.
func (a *Atom[T]) Reset() {
	a.activate(state.TriggerSet)
	a.write(state.Default(a.def), external)
}

// Subscribe registers fn for every change and returns its removal.
func (a *Atom[T]) Subscribe(fn func(newVal, oldVal state.Value[T])) (cancel func()) {
	id := a.addHandler(external, fn)

	return func() { a.removeHandler(id) }
}

// Close tears down the effects in reverse order of activation.
func (a *Atom[T]) Close() {
	a.mu.Lock()
	cleanups := a.cleanups
	a.cleanups = nil
	a.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

func (a *Atom[T]) activate(trigger state.Trigger) {
	a.once.Do(func() { a.runEffects(trigger) })
}

func (a *Atom[T]) runEffects(trigger state.Trigger) {
	for i, eff := range a.effects {
		owner := i
		cleanup := eff(state.Params[T]{
			Key:       a.key,
			Trigger:   trigger,
			SetSelf:   func(v T) { a.write(state.Of(v), owner) },
			ResetSelf: func() { a.write(state.Default(a.def), owner) },
			OnSet: func(fn func(newVal, oldVal state.Value[T])) {
				a.addHandler(owner, fn)
			},
		})

		if cleanup != nil {
			a.mu.Lock()
			a.cleanups = append(a.cleanups, cleanup)
			a.mu.Unlock()
		}
	}
}

func (a *Atom[T]) write(v state.Value[T], from int) {
	a.mu.Lock()
	old := a.snapshot()
	a.val = v.V
	a.isSet = !v.IsDefault

	notify := make([]func(newVal, oldVal state.Value[T]), 0, len(a.handlers))
	for _, h := range a.handlers {
		if from != external && h.owner == from {
			continue
		}

		notify = append(notify, h.fn)
	}
	a.mu.Unlock()

	for _, fn := range notify {
		fn(v, old)
	}
}

func (a *Atom[T]) snapshot() state.Value[T] {
	if !a.isSet {
		return state.Default(a.val)
	}

	return state.Of(a.val)
}

func (a *Atom[T]) addHandler(owner int, fn func(newVal, oldVal state.Value[T])) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextID++
	a.handlers = append(a.handlers, handler[T]{id: a.nextID, owner: owner, fn: fn})

	return a.nextID
}

func (a *Atom[T]) removeHandler(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.handlers = slices.DeleteFunc(a.handlers, func(h handler[T]) bool { return h.id == id })
}
