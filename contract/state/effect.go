package state

// Trigger says which access first activated an observable.
type Trigger int

const (
	// TriggerGet means the observable was first read.
	TriggerGet Trigger = iota
	// TriggerSet means the observable was first written.
	TriggerSet
)

func (t Trigger) String() string {
	if t == TriggerSet {
		return "set"
	}

	return "get"
}

// Params is what an observable container hands to an effect when the value
// becomes active.
//
// SetSelf and ResetSelf change the value without notifying this effect's own
// OnSet handlers; every other subscriber is notified as usual. They may be
// called later from any goroutine.
type Params[T any] struct {
	Key       string
	Trigger   Trigger
	SetSelf   func(v T)
	ResetSelf func()
	OnSet     func(fn func(newVal, oldVal Value[T]))
}

// Effect binds an observable to something outside it. The returned cleanup, if
// non-nil, runs when the binding is torn down.
type Effect[T any] func(p Params[T]) (cleanup func())
