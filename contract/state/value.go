package state

// Value is a snapshot of an observable that tells a real value apart from the
// container's default. IsDefault is true when no value has been set (or the
// value was reset); V then holds the default.
type Value[T any] struct {
	V         T
	IsDefault bool
}

// Of wraps a real value.
func Of[T any](v T) Value[T] { return Value[T]{V: v} }

// Default wraps the container default.
func Default[T any](def T) Value[T] { return Value[T]{V: def, IsDefault: true} }
